package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"wellness/pkg/reminders"
	"wellness/pkg/storage/storagetest"
)

func TestDocumentRoundTrip(t *testing.T) {
	r := storagetest.NewReminder("u1", "Meditate", storagetest.Base)
	r.Priority = reminders.PriorityHigh
	r.Repeat = reminders.RepeatWeekly
	r.CreatedAt = storagetest.Base
	r.UpdatedAt = storagetest.Base

	doc := toDocument(r)
	assert.True(t, doc.ID.IsZero())
	assert.Equal(t, "u1", doc.User)
	assert.Equal(t, "09:00", doc.Time)

	doc.ID = primitive.NewObjectID()
	got := doc.reminder()
	assert.Equal(t, doc.ID.Hex(), got.ID)
	r.ID = got.ID
	assert.Equal(t, r, got)
}

func TestQueryFilter(t *testing.T) {
	assert.Equal(t, bson.D{}, queryFilter(reminders.Query{}))

	from := storagetest.Base
	to := storagetest.Base.Add(time.Hour)
	got := queryFilter(reminders.Query{
		Owner:    "u1",
		Active:   reminders.Bool(false),
		Category: "study",
		From:     from,
		To:       to,
	})
	assert.Equal(t, bson.D{
		{Key: "user", Value: "u1"},
		{Key: "active", Value: false},
		{Key: "category", Value: "study"},
		{Key: "nextOccurrence", Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lte", Value: to},
		}},
	}, got)

	upper := queryFilter(reminders.Query{To: to})
	assert.Equal(t, bson.D{
		{Key: "nextOccurrence", Value: bson.D{{Key: "$lte", Value: to}}},
	}, upper)
}

func TestSetDocument(t *testing.T) {
	now := storagetest.Base

	assert.Equal(t, bson.D{{Key: "updatedAt", Value: now}}, setDocument(reminders.Patch{}, now))

	text := "Walk"
	repeat := reminders.RepeatDaily
	got := setDocument(reminders.Patch{
		Text:      &text,
		Repeat:    &repeat,
		Completed: reminders.Bool(true),
	}, now)
	assert.Equal(t, bson.D{
		{Key: "text", Value: "Walk"},
		{Key: "repeat", Value: "daily"},
		{Key: "completed", Value: true},
		{Key: "updatedAt", Value: now},
	}, got)
}

func TestReplaceDocumentLeavesOwnerAndCreation(t *testing.T) {
	r := storagetest.NewReminder("u1", "Read", storagetest.Base)
	set := replaceDocument(r, storagetest.Base)

	keys := make([]string, 0, len(set))
	for _, e := range set {
		keys = append(keys, e.Key)
	}
	assert.NotContains(t, keys, "user")
	assert.NotContains(t, keys, "createdAt")
	assert.NotContains(t, keys, "_id")
	assert.Contains(t, keys, "nextOccurrence")
	assert.Contains(t, keys, "updatedAt")
}
