package management

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telinsights/internal/constants"
)

type AuditLogger interface {
	Record(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, configID string, limit int) ([]AuditEntry, error)
}

type MongoAuditLogger struct {
	collection *mongo.Collection
}

func NewMongoAuditLogger(db *mongo.Database) *MongoAuditLogger {
	return &MongoAuditLogger{collection: db.Collection(constants.AuditCollection)}
}

func (a *MongoAuditLogger) Record(ctx context.Context, entry *AuditEntry) error {
	if _, err := a.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries for configID first.
func (a *MongoAuditLogger) List(ctx context.Context, configID string, limit int) ([]AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := a.collection.Find(ctx, bson.M{"config_id": configID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []AuditEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

type MemoryAuditLogger struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func NewMemoryAuditLogger() *MemoryAuditLogger {
	return &MemoryAuditLogger{}
}

func (a *MemoryAuditLogger) Record(_ context.Context, entry *AuditEntry) error {
	a.mu.Lock()
	a.entries = append(a.entries, *entry)
	a.mu.Unlock()
	return nil
}

func (a *MemoryAuditLogger) List(_ context.Context, configID string, limit int) ([]AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []AuditEntry{}
	for _, e := range a.entries {
		if e.ConfigID == configID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
