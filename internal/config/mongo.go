package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson" // Use bson for index keys
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by the server, the migrator and the seed command.
const (
	ProfilesCollection       = "profiles"
	HighProfilesCollection   = "high_profile_call_girls"
	ServicesCollection       = "services"
	ExtraServicesCollection  = "extra_services"
	FinalCallGirlsCollection = "final_call_girls"
	VideoSettingsCollection  = "video_settings"
	AdminUsersCollection     = "admin_users"
	AuditLogsCollection      = "audit_logs"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = CreateIndexes(ctx, client.Database(cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

// CreateIndexes is idempotent; the migrate command calls it as well.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	newestFirst := mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	}

	for _, name := range []string{
		ProfilesCollection,
		HighProfilesCollection,
		ServicesCollection,
		FinalCallGirlsCollection,
	} {
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, newestFirst); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	extraIndexes := []mongo.IndexModel{
		newestFirst,
		{
			Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}
	if _, err := db.Collection(ExtraServicesCollection).Indexes().CreateMany(ctx, extraIndexes); err != nil {
		return fmt.Errorf("%s: %w", ExtraServicesCollection, err)
	}

	adminIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection(AdminUsersCollection).Indexes().CreateMany(ctx, adminIndexes); err != nil {
		return fmt.Errorf("%s: %w", AdminUsersCollection, err)
	}

	auditIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "resource", Value: 1}, {Key: "resource_id", Value: 1}}},
		{Keys: bson.D{{Key: "admin", Value: 1}}},
	}
	if _, err := db.Collection(AuditLogsCollection).Indexes().CreateMany(ctx, auditIndexes); err != nil {
		return fmt.Errorf("%s: %w", AuditLogsCollection, err)
	}

	return nil
}
