// Package repository stores the generation log.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps ListRecent when the caller passes no limit.
const DefaultListLimit = 20

// MaxListLimit is the largest accepted ListRecent limit.
const MaxListLimit = 100

// GenerationRecord is one logged generation call.
type GenerationRecord struct {
	ID        uuid.UUID `json:"id"`
	Service   string    `json:"service"`
	UserID    string    `json:"user_id,omitempty"`
	Items     []string  `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerationRepository persists generation records.
type GenerationRepository interface {
	Create(ctx context.Context, rec *GenerationRecord) error
	ListRecent(ctx context.Context, service string, limit int) ([]*GenerationRecord, error)
}

// NormalizeLimit maps limit into [1, MaxListLimit], 0 meaning the default.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

// prepare fills the ID and timestamp when missing.
func prepare(rec *GenerationRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Items == nil {
		rec.Items = []string{}
	}
}

// InMemoryGenerationRepository keeps a bounded log per service in memory.
type InMemoryGenerationRepository struct {
	mu         sync.RWMutex
	perService int
	data       map[string][]*GenerationRecord
}

// NewInMemoryGenerationRepository keeps at most perService records for
// each service; values below 1 mean MaxListLimit.
func NewInMemoryGenerationRepository(perService int) *InMemoryGenerationRepository {
	if perService < 1 {
		perService = MaxListLimit
	}
	return &InMemoryGenerationRepository{
		perService: perService,
		data:       make(map[string][]*GenerationRecord),
	}
}

// Create appends rec, evicting the oldest record beyond the bound.
func (r *InMemoryGenerationRepository) Create(_ context.Context, rec *GenerationRecord) error {
	prepare(rec)
	cp := *rec
	cp.Items = append([]string(nil), rec.Items...)

	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.data[rec.Service], &cp)
	if over := len(list) - r.perService; over > 0 {
		list = list[over:]
	}
	r.data[rec.Service] = list
	return nil
}

// ListRecent returns the newest records first.
func (r *InMemoryGenerationRepository) ListRecent(_ context.Context, service string, limit int) ([]*GenerationRecord, error) {
	limit = NormalizeLimit(limit)

	r.mu.RLock()
	list := append([]*GenerationRecord(nil), r.data[service]...)
	r.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
