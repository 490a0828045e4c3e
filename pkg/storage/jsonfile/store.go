// Package jsonfile stores reminders as a single JSON array in a local file.
// It is the offline fallback for the document store: lookups and filters are
// linear scans and every write rewrites the whole file.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"wellness/pkg/reminders"
)

// Store is a reminders.Store backed by one JSON file.
//
// The read-modify-write cycle is serialised inside the process. Other
// processes writing the same file are not coordinated with.
type Store struct {
	path  string
	clock clock.Clock

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for ids and timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// New returns a Store writing to path. The file and its directory are
// created, holding an empty array, if they do not exist.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:  path,
		clock: clock.New(),
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Name() string {
	return "file"
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Create(_ context.Context, r *reminders.Reminder) (*reminders.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		return nil, err
	}

	now := s.now()
	rem := *r
	rem.ID = nextID(list, now)
	rem.CreatedAt = now
	rem.UpdatedAt = now
	list = append(list, rem)

	if err := s.write(list); err != nil {
		return nil, err
	}
	return &rem, nil
}

func (s *Store) Get(_ context.Context, id string) (*reminders.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, reminders.ErrNotFound
	}
	rem := list[idx]
	return &rem, nil
}

func (s *Store) Update(_ context.Context, id string, p reminders.Patch) (*reminders.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, reminders.ErrNotFound
	}
	p.Apply(&list[idx])
	list[idx].UpdatedAt = s.now()

	if err := s.write(list); err != nil {
		return nil, err
	}
	rem := list[idx]
	return &rem, nil
}

func (s *Store) Replace(_ context.Context, r *reminders.Reminder) (*reminders.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, r.ID)
	if idx < 0 {
		return nil, reminders.ErrNotFound
	}
	rem := *r
	rem.Owner = list[idx].Owner
	rem.CreatedAt = list[idx].CreatedAt
	rem.UpdatedAt = s.now()
	list[idx] = rem

	if err := s.write(list); err != nil {
		return nil, err
	}
	return &rem, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		return err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return reminders.ErrNotFound
	}
	list = append(list[:idx], list[idx+1:]...)
	return s.write(list)
}

func (s *Store) List(_ context.Context, q reminders.Query) ([]reminders.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		return nil, err
	}
	res := make([]reminders.Reminder, 0, len(list))
	for _, r := range list {
		if q.Matches(r) {
			res = append(res, r)
		}
	}
	reminders.Sort(res)
	return res, nil
}

func (s *Store) now() time.Time {
	return s.clock.Now().Truncate(time.Millisecond)
}

func (s *Store) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}
	if err := os.WriteFile(s.path, []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) read() ([]reminders.Reminder, error) {
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	var list []reminders.Reminder
	if len(raw) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return list, nil
}

// write replaces the file through a temporary file in the same directory so a
// crash never leaves a truncated array behind.
func (s *Store) write(list []reminders.Reminder) error {
	if list == nil {
		list = []reminders.Reminder{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode reminders: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".reminders-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func indexOf(list []reminders.Reminder, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// nextID derives an id from the creation timestamp in milliseconds, bumping it
// while it collides with an existing record.
func nextID(list []reminders.Reminder, now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if indexOf(list, id) < 0 {
			return id
		}
		ms++
	}
}
