package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"wellness/pkg/reminders"
)

// document is the stored shape of a reminder. Field names match the JSON wire
// format so records read the same in the shell and over HTTP.
type document struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	User           string             `bson:"user"`
	Text           string             `bson:"text"`
	Time           string             `bson:"time"`
	Priority       string             `bson:"priority"`
	Repeat         string             `bson:"repeat"`
	Category       string             `bson:"category"`
	NextOccurrence time.Time          `bson:"nextOccurrence"`
	Active         bool               `bson:"active"`
	Completed      bool               `bson:"completed"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func toDocument(r *reminders.Reminder) document {
	return document{
		User:           r.Owner,
		Text:           r.Text,
		Time:           r.TimeOfDay,
		Priority:       string(r.Priority),
		Repeat:         string(r.Repeat),
		Category:       r.Category,
		NextOccurrence: r.NextOccurrence,
		Active:         r.Active,
		Completed:      r.Completed,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (d document) reminder() *reminders.Reminder {
	return &reminders.Reminder{
		ID:             d.ID.Hex(),
		Owner:          d.User,
		Text:           d.Text,
		TimeOfDay:      d.Time,
		Priority:       reminders.Priority(d.Priority),
		Repeat:         reminders.Repeat(d.Repeat),
		Category:       d.Category,
		NextOccurrence: d.NextOccurrence,
		Active:         d.Active,
		Completed:      d.Completed,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

var listSort = bson.D{
	{Key: "nextOccurrence", Value: 1},
	{Key: "createdAt", Value: 1},
	{Key: "_id", Value: 1},
}

// queryFilter translates a reminders.Query into a find filter.
func queryFilter(q reminders.Query) bson.D {
	filter := bson.D{}
	if q.Owner != "" {
		filter = append(filter, bson.E{Key: "user", Value: q.Owner})
	}
	if q.Active != nil {
		filter = append(filter, bson.E{Key: "active", Value: *q.Active})
	}
	if q.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: q.Category})
	}
	window := bson.D{}
	if !q.From.IsZero() {
		window = append(window, bson.E{Key: "$gte", Value: q.From})
	}
	if !q.To.IsZero() {
		window = append(window, bson.E{Key: "$lte", Value: q.To})
	}
	if len(window) > 0 {
		filter = append(filter, bson.E{Key: "nextOccurrence", Value: window})
	}
	return filter
}

// setDocument translates a patch into the body of a $set update.
func setDocument(p reminders.Patch, now time.Time) bson.D {
	set := bson.D{}
	if p.Text != nil {
		set = append(set, bson.E{Key: "text", Value: *p.Text})
	}
	if p.TimeOfDay != nil {
		set = append(set, bson.E{Key: "time", Value: *p.TimeOfDay})
	}
	if p.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: string(*p.Priority)})
	}
	if p.Repeat != nil {
		set = append(set, bson.E{Key: "repeat", Value: string(*p.Repeat)})
	}
	if p.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *p.Category})
	}
	if p.NextOccurrence != nil {
		set = append(set, bson.E{Key: "nextOccurrence", Value: *p.NextOccurrence})
	}
	if p.Active != nil {
		set = append(set, bson.E{Key: "active", Value: *p.Active})
	}
	if p.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: *p.Completed})
	}
	return append(set, bson.E{Key: "updatedAt", Value: now})
}

// replaceDocument is the $set body that overwrites every mutable field of r.
func replaceDocument(r *reminders.Reminder, now time.Time) bson.D {
	return bson.D{
		{Key: "text", Value: r.Text},
		{Key: "time", Value: r.TimeOfDay},
		{Key: "priority", Value: string(r.Priority)},
		{Key: "repeat", Value: string(r.Repeat)},
		{Key: "category", Value: r.Category},
		{Key: "nextOccurrence", Value: r.NextOccurrence},
		{Key: "active", Value: r.Active},
		{Key: "completed", Value: r.Completed},
		{Key: "updatedAt", Value: now},
	}
}

// reminderSchema is installed as the collection's $jsonSchema validator.
var reminderSchema = bson.M{
	"bsonType": "object",
	"required": bson.A{"user", "text", "time", "nextOccurrence", "active", "completed"},
	"properties": bson.M{
		"user":           bson.M{"bsonType": "string", "minLength": 1},
		"text":           bson.M{"bsonType": "string", "minLength": 1},
		"time":           bson.M{"bsonType": "string", "pattern": `^([01]?[0-9]|2[0-3]):[0-5][0-9]$`},
		"priority":       bson.M{"enum": bson.A{"low", "medium", "high"}},
		"repeat":         bson.M{"enum": bson.A{"none", "daily", "weekly", "monthly"}},
		"category":       bson.M{"bsonType": "string"},
		"nextOccurrence": bson.M{"bsonType": "date"},
		"active":         bson.M{"bsonType": "bool"},
		"completed":      bson.M{"bsonType": "bool"},
	},
}
