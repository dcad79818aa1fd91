package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"listings-cms/internal/config"
	"listings-cms/services"
	"listings-cms/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	users := services.NewMongoAdminStore(mongoClient.Database(cfg.DBName).Collection(config.AdminUsersCollection))

	// Creating accounts never touches sessions, so no token manager is needed.
	admins, err := services.NewAdminService(users, nil, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to initialize admin service: %v", err)
	}

	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}

	password := cfg.AdminPassword
	generated := false
	if password == "" {
		password, err = utils.GenerateSecureRandomString(20)
		if err != nil {
			log.Fatalf("Failed to generate password: %v", err)
		}
		generated = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := admins.CreateAdmin(ctx, username, password)
	if errors.Is(err, services.ErrAdminExists) {
		fmt.Printf("Admin user %q already exists\n", username)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user created\n")
	fmt.Printf("   Username: %s\n", user.Username)
	if generated {
		fmt.Printf("   Password: %s\n", password)
		fmt.Printf("\nThe password was generated. Store it now; it is not shown again.\n")
	}
	fmt.Printf("   User ID: %s\n", user.ID.Hex())
	fmt.Printf("\nLog in with POST /api/admin/login\n")
}
