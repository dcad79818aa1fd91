package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"listings-cms/internal/config"
	"listings-cms/internal/store"
	"listings-cms/models"
	"listings-cms/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var listingCollections = []string{
	config.ProfilesCollection,
	config.HighProfilesCollection,
	config.ServicesCollection,
	config.ExtraServicesCollection,
	config.FinalCallGirlsCollection,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  indexes              - Create collection indexes")
		fmt.Println("  backfill-timestamps  - Set createdAt/updatedAt on documents that lack them")
		fmt.Println("  seed-video           - Re-key legacy video settings, or create the default document")
		fmt.Println("  all                  - Run every step above")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// ConnectMongoDB also creates the indexes.
	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "indexes":
		if err := config.CreateIndexes(ctx, db); err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
		fmt.Println("Indexes created")

	case "backfill-timestamps":
		if err := backfillTimestamps(ctx, db); err != nil {
			log.Fatalf("Backfill failed: %v", err)
		}

	case "seed-video":
		if err := seedVideoSettings(ctx, db, cfg); err != nil {
			log.Fatalf("Seeding video settings failed: %v", err)
		}

	case "all":
		if err := config.CreateIndexes(ctx, db); err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
		if err := backfillTimestamps(ctx, db); err != nil {
			log.Fatalf("Backfill failed: %v", err)
		}
		if err := seedVideoSettings(ctx, db, cfg); err != nil {
			log.Fatalf("Seeding video settings failed: %v", err)
		}
		fmt.Println("Migration completed successfully!")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

// backfillTimestamps derives createdAt from the ObjectID of documents written
// without one, so newest-first ordering covers legacy rows too.
func backfillTimestamps(ctx context.Context, db *mongo.Database) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"createdAt": bson.M{"$ifNull": bson.A{"$createdAt", bson.M{"$toDate": "$_id"}}}}}},
		{{Key: "$set", Value: bson.M{"updatedAt": bson.M{"$ifNull": bson.A{"$updatedAt", "$createdAt"}}}}},
	}
	missing := bson.M{"$or": bson.A{
		bson.M{"createdAt": bson.M{"$exists": false}},
		bson.M{"updatedAt": bson.M{"$exists": false}},
	}}

	for _, name := range listingCollections {
		res, err := db.Collection(name).UpdateMany(ctx, missing, pipeline)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Printf("  %s: %d documents updated\n", name, res.ModifiedCount)
	}

	for _, name := range []string{config.ProfilesCollection, config.HighProfilesCollection} {
		res, err := db.Collection(name).UpdateMany(ctx,
			bson.M{"images": bson.M{"$not": bson.M{"$type": "array"}}},
			bson.M{"$set": bson.M{"images": bson.A{}}},
		)
		if err != nil {
			return fmt.Errorf("%s images: %w", name, err)
		}
		fmt.Printf("  %s: %d image lists normalized\n", name, res.ModifiedCount)
	}
	return nil
}

// seedVideoSettings re-keys settings written by the previous deployment under
// a generated _id, then creates the default document if none exists.
func seedVideoSettings(ctx context.Context, db *mongo.Database, cfg *config.Config) error {
	singleton := store.NewSingleton[models.VideoSettings](db.Collection(config.VideoSettingsCollection), nil)
	adopted, err := singleton.AdoptLegacy(ctx)
	if err != nil {
		return err
	}
	if adopted {
		fmt.Println("Re-keyed legacy video settings document")
	}

	video := services.NewVideoService(singleton,
		services.VideoOptions{UploadsDir: cfg.UploadsDir, DefaultPhone: cfg.DefaultPhoneNumber},
	)
	settings, err := video.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Video settings: phoneNumber=%s videoUrl=%q\n", settings.PhoneNumber, settings.VideoURL)
	return nil
}
