// Package mongodb is the document-store backend for reminders.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"wellness/pkg/reminders"
)

// Error code MongoDB returns when creating a collection that already exists.
const namespaceExistsCode = 48

// Options configures the connection.
type Options struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
	Clock          clock.Clock
	Logger         *slog.Logger
}

// Store is a reminders.Store backed by a MongoDB collection. It implements
// reminders.Prober: Connected follows the driver's server heartbeats.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	clock  clock.Clock
	log    *slog.Logger

	connected atomic.Bool

	schemaMu    sync.Mutex
	schemaReady bool
}

// Connect creates the client and tries once to reach the server. An
// unreachable server is not an error: the store reports itself disconnected
// until a heartbeat succeeds.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.Database == "" {
		opts.Database = "wellness"
	}
	if opts.Collection == "" {
		opts.Collection = "reminders"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	s := &Store{
		clock: opts.Clock,
		log:   opts.Logger,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	monitor := &event.ServerMonitor{
		ServerHeartbeatSucceeded: func(*event.ServerHeartbeatSucceededEvent) {
			if !s.connected.Swap(true) {
				s.log.Info("MongoDB connection established")
			}
		},
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			if s.connected.Swap(false) {
				s.log.Warn("MongoDB connection lost", "error", e.Failure)
			}
		},
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout).
		SetServerMonitor(monitor)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	s.client = client
	s.coll = client.Database(opts.Database).Collection(opts.Collection)

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		s.log.Warn("MongoDB unreachable, fallback storage will be used", "error", err)
		return s, nil
	}
	s.connected.Store(true)
	if err := s.ensureSchema(ctx); err != nil {
		s.log.Warn("Failed to prepare reminders collection", "error", err)
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Name() string {
	return "mongodb"
}

// Connected reports whether the last server heartbeat succeeded.
func (s *Store) Connected() bool {
	return s.connected.Load()
}

// ensureSchema creates the collection with its JSON schema validator and the
// owner/active/nextOccurrence index. It runs until it succeeds once.
func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}

	err := s.coll.Database().CreateCollection(ctx, s.coll.Name(),
		options.CreateCollection().SetValidator(bson.M{"$jsonSchema": reminderSchema}))
	var cmdErr mongo.CommandError
	if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Code == namespaceExistsCode) {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "active", Value: 1}, {Key: "nextOccurrence", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	s.schemaReady = true
	return nil
}

func (s *Store) prepare(ctx context.Context) {
	if err := s.ensureSchema(ctx); err != nil {
		s.log.Warn("Failed to prepare reminders collection", "error", err)
	}
}

func (s *Store) Create(ctx context.Context, r *reminders.Reminder) (*reminders.Reminder, error) {
	s.prepare(ctx)

	now := s.now()
	doc := toDocument(r)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert reminder: %w", err)
	}
	return doc.reminder(), nil
}

func (s *Store) Get(ctx context.Context, id string) (*reminders.Reminder, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, reminders.ErrNotFound
	}
	var doc document
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.reminder(), nil
}

// Update applies the patch as one atomic $set.
func (s *Store) Update(ctx context.Context, id string, p reminders.Patch) (*reminders.Reminder, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, reminders.ErrNotFound
	}
	var doc document
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.D{{Key: "$set", Value: setDocument(p, s.now())}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.reminder(), nil
}

// Replace overwrites the mutable fields in one $set, leaving owner and
// createdAt as stored.
func (s *Store) Replace(ctx context.Context, r *reminders.Reminder) (*reminders.Reminder, error) {
	oid, err := primitive.ObjectIDFromHex(r.ID)
	if err != nil {
		return nil, reminders.ErrNotFound
	}
	var saved document
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.D{{Key: "$set", Value: replaceDocument(r, s.now())}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&saved)
	if err != nil {
		return nil, notFound(err)
	}
	return saved.reminder(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return reminders.ErrNotFound
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if res.DeletedCount == 0 {
		return reminders.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, q reminders.Query) ([]reminders.Reminder, error) {
	cur, err := s.coll.Find(ctx, queryFilter(q), options.Find().SetSort(listSort))
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}
	res := make([]reminders.Reminder, 0, len(docs))
	for i := range docs {
		res = append(res, *docs[i].reminder())
	}
	return res, nil
}

func (s *Store) now() time.Time {
	return s.clock.Now().Truncate(time.Millisecond)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return reminders.ErrNotFound
	}
	return fmt.Errorf("mongo: %w", err)
}
