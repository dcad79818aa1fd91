package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"listings-cms/internal/auth"
	"listings-cms/models"
	"listings-cms/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAdminExists        = errors.New("admin user already exists")
)

// AdminStore persists admin accounts.
type AdminStore interface {
	FindByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	Insert(ctx context.Context, user *models.AdminUser) error
}

type MongoAdminStore struct {
	col *mongo.Collection
}

func NewMongoAdminStore(col *mongo.Collection) *MongoAdminStore {
	return &MongoAdminStore{col: col}
}

// FindByUsername returns (nil, nil) when no such admin exists.
func (s *MongoAdminStore) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := s.col.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find admin %s: %w", username, err)
	}
	return &user, nil
}

func (s *MongoAdminStore) Insert(ctx context.Context, user *models.AdminUser) error {
	_, err := s.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAdminExists
	}
	if err != nil {
		return fmt.Errorf("insert admin %s: %w", user.Username, err)
	}
	return nil
}

// AdminService verifies credentials and manages admin sessions.
type AdminService struct {
	users      AdminStore
	sessions   *auth.Manager
	bcryptCost int
	// dummyHash is compared against when the username is unknown so both
	// paths cost one bcrypt comparison.
	dummyHash string
	now       func() time.Time
}

func NewAdminService(users AdminStore, sessions *auth.Manager, bcryptCost int) (*AdminService, error) {
	dummy, err := utils.HashPassword("not-a-real-password", bcryptCost)
	if err != nil {
		return nil, err
	}
	return &AdminService{
		users:      users,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Login checks the credentials and issues a session token.
func (s *AdminService) Login(ctx context.Context, req models.LoginRequest) (*auth.Session, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		utils.CheckPassword(req.Password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.sessions.Issue(ctx, user.Username)
}

// Authenticate resolves a bearer or cookie token to its claims.
func (s *AdminService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	return s.sessions.Validate(ctx, token)
}

func (s *AdminService) Logout(ctx context.Context, claims *auth.Claims) error {
	return s.sessions.Revoke(ctx, claims)
}

func (s *AdminService) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// CreateAdmin stores a new admin with a bcrypt hash of password.
func (s *AdminService) CreateAdmin(ctx context.Context, username, password string) (*models.AdminUser, error) {
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &models.AdminUser{
		ID:           primitive.NewObjectID(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureAdmin creates the configured admin unless it already exists.
// It reports whether a new account was created.
func (s *AdminService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if _, err := s.CreateAdmin(ctx, username, password); err != nil {
		if errors.Is(err, ErrAdminExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
