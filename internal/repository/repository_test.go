package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestInMemoryCreateFillsDefaults(t *testing.T) {
	repo := NewInMemoryGenerationRepository(0)
	rec := &GenerationRecord{Service: "word_flash"}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == uuid.Nil || rec.CreatedAt.IsZero() || rec.Items == nil {
		t.Fatalf("defaults not filled: %+v", rec)
	}
}

func TestInMemoryListRecent(t *testing.T) {
	repo := NewInMemoryGenerationRepository(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &GenerationRecord{
			Service:   "phrase_maker",
			Items:     []string{fmt.Sprintf("p%d", i)},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(context.Background(), rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	repo.Create(context.Background(), &GenerationRecord{Service: "other"})

	got, err := repo.ListRecent(context.Background(), "phrase_maker", 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("records: want=3 got=%d", len(got))
	}
	if got[0].Items[0] != "p4" || got[2].Items[0] != "p2" {
		t.Fatalf("order: want newest first, got %s..%s", got[0].Items[0], got[2].Items[0])
	}

	got, _ = repo.ListRecent(context.Background(), "phrase_maker", 1)
	if len(got) != 1 {
		t.Fatalf("limit: want=1 got=%d", len(got))
	}
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{7, 7},
		{500, MaxListLimit},
	}
	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Fatalf("NormalizeLimit(%d): want=%d got=%d", tt.in, tt.want, got)
		}
	}
}

func TestPostgresRepositoryWithoutDatabase(t *testing.T) {
	repo := NewPostgresGenerationRepository(nil)
	if err := repo.Create(context.Background(), &GenerationRecord{Service: "x"}); err == nil {
		t.Fatalf("Create: want error without database")
	}
	if _, err := repo.ListRecent(context.Background(), "x", 5); err == nil {
		t.Fatalf("ListRecent: want error without database")
	}
}
