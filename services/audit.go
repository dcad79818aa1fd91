package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"listings-cms/internal/logger"
	"listings-cms/models"
)

const (
	defaultAuditPageSize = 20
	maxAuditPageSize     = 100
)

// AuditStore persists audit events. Events are insert-only.
type AuditStore interface {
	Insert(ctx context.Context, event *models.AuditEvent) error
	// Last returns the newest event, or nil when the log is empty.
	Last(ctx context.Context) (*models.AuditEvent, error)
	// Find returns one page of events matching filter, newest first, and the total count.
	Find(ctx context.Context, filter bson.M, skip, limit int64) ([]models.AuditEvent, int64, error)
	// Chain returns every event oldest first.
	Chain(ctx context.Context) ([]models.AuditEvent, error)
}

type MongoAuditStore struct {
	col *mongo.Collection
}

func NewMongoAuditStore(col *mongo.Collection) *MongoAuditStore {
	return &MongoAuditStore{col: col}
}

func (s *MongoAuditStore) Insert(ctx context.Context, event *models.AuditEvent) error {
	if _, err := s.col.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *MongoAuditStore) Last(ctx context.Context) (*models.AuditEvent, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})

	var event models.AuditEvent
	err := s.col.FindOne(ctx, bson.M{}, opts).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find last audit event: %w", err)
	}
	return &event, nil
}

func (s *MongoAuditStore) Find(ctx context.Context, filter bson.M, skip, limit int64) ([]models.AuditEvent, int64, error) {
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find audit events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.AuditEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, 0, fmt.Errorf("decode audit events: %w", err)
	}
	return events, total, nil
}

func (s *MongoAuditStore) Chain(ctx context.Context) ([]models.AuditEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit chain: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.AuditEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode audit chain: %w", err)
	}
	return events, nil
}

// AuditLogger chains and stores admin audit events. Record queues events for
// a background writer; Log writes synchronously.
type AuditLogger struct {
	store  AuditStore
	events chan *models.AuditEvent
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	chainMu    sync.Mutex
	lastHash   string
	hashLoaded bool

	now func() time.Time
}

func NewAuditLogger(store AuditStore, buffer int) *AuditLogger {
	if buffer <= 0 {
		buffer = 256
	}
	return &AuditLogger{
		store:  store,
		events: make(chan *models.AuditEvent, buffer),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the background writer until Close.
func (a *AuditLogger) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for event := range a.events {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := a.Log(ctx, event); err != nil {
				logger.Error("audit write failed", "action", event.Action, "resource", event.Resource, "error", err)
			}
			cancel()
		}
	}()
}

// Record queues event without blocking. Events are dropped when the queue is
// full or the logger is closed.
func (a *AuditLogger) Record(event *models.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.events <- event:
	default:
		logger.Warn("audit queue full, dropping event", "action", event.Action, "resource", event.Resource)
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (a *AuditLogger) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()
	a.wg.Wait()
}

// Log appends event to the chain and stores it.
func (a *AuditLogger) Log(ctx context.Context, event *models.AuditEvent) error {
	a.chainMu.Lock()
	defer a.chainMu.Unlock()

	if !a.hashLoaded {
		last, err := a.store.Last(ctx)
		if err != nil {
			return err
		}
		if last != nil {
			a.lastHash = last.CurrentHash
		}
		a.hashLoaded = true
	}

	event.ID = primitive.NewObjectID()
	event.Timestamp = a.now().Truncate(time.Millisecond)
	event.PreviousHash = a.lastHash
	event.CurrentHash = event.ComputeHash()

	if err := a.store.Insert(ctx, event); err != nil {
		return err
	}
	a.lastHash = event.CurrentHash
	return nil
}

func (a *AuditLogger) Query(ctx context.Context, q models.AuditQuery) (*models.AuditPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > maxAuditPageSize {
		q.PageSize = defaultAuditPageSize
	}

	filter := bson.M{}
	if q.Admin != "" {
		filter["admin"] = q.Admin
	}
	if q.Action != "" {
		filter["action"] = q.Action
	}
	if q.Resource != "" {
		filter["resource"] = q.Resource
	}

	events, total, err := a.store.Find(ctx, filter, int64((q.Page-1)*q.PageSize), int64(q.PageSize))
	if err != nil {
		return nil, err
	}
	return &models.AuditPage{Events: events, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// Verify walks the chain oldest first and reports the first event whose
// hashes do not match.
func (a *AuditLogger) Verify(ctx context.Context) (*models.AuditVerification, error) {
	events, err := a.store.Chain(ctx)
	if err != nil {
		return nil, err
	}

	previous := ""
	for i := range events {
		e := &events[i]
		if e.PreviousHash != previous || e.CurrentHash != e.ComputeHash() {
			logger.Warn("audit chain broken", "event_id", e.ID.Hex(), "position", i)
			return &models.AuditVerification{Valid: false, Events: len(events), Broken: e.ID.Hex()}, nil
		}
		previous = e.CurrentHash
	}
	return &models.AuditVerification{Valid: true, Events: len(events)}, nil
}
