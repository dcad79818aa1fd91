package storetest

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"listings-cms/models"
)

// MemoryAuditStore keeps audit events in insertion order. Filters support
// equality on admin, action and resource.
type MemoryAuditStore struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Insert(_ context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *MemoryAuditStore) Last(_ context.Context) (*models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil, nil
	}
	e := s.events[len(s.events)-1]
	return &e, nil
}

func (s *MemoryAuditStore) Find(_ context.Context, filter bson.M, skip, limit int64) ([]models.AuditEvent, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []models.AuditEvent{}
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if auditMatches(e, filter) {
			matched = append(matched, e)
		}
	}
	total := int64(len(matched))

	if skip >= total {
		return []models.AuditEvent{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return matched[skip:end], total, nil
}

func (s *MemoryAuditStore) Chain(_ context.Context) ([]models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.AuditEvent(nil), s.events...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Tamper replaces the event at index i, for chain verification tests.
func (s *MemoryAuditStore) Tamper(i int, mutate func(*models.AuditEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.events[i])
}

func (s *MemoryAuditStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func auditMatches(e models.AuditEvent, filter bson.M) bool {
	fields := map[string]string{"admin": e.Admin, "action": e.Action, "resource": e.Resource}
	for k, v := range filter {
		if fields[k] != v {
			return false
		}
	}
	return true
}
