package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telinsights/internal/constants"
)

// EnsureAuditIndexes creates the indexes the audit log queries rely on.
// The collection itself is created on first insert.
func EnsureAuditIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.AuditCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "config_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_alert_config_audit_config_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_alert_config_audit_user_id"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create audit indexes: %w", err)
		}
	}

	return nil
}
