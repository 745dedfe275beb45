// services/query_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

type fakeQueryRepo struct {
	queries []*models.MonitoringQuery
	err     error
}

func (r *fakeQueryRepo) ListActive(ctx context.Context, brandID uuid.UUID) ([]*models.MonitoringQuery, error) {
	return r.queries, r.err
}

func TestSelectActiveQueries(t *testing.T) {
	want := testQueries(3)
	svc := NewQueryService(&fakeQueryRepo{queries: want})

	got, err := svc.SelectActiveQueries(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("SelectActiveQueries() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d queries, want 3", len(got))
	}
}

func TestSelectActiveQueriesEmptyIsNotAnError(t *testing.T) {
	svc := NewQueryService(&fakeQueryRepo{})

	got, err := svc.SelectActiveQueries(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("empty query set must not error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d queries, want 0", len(got))
	}
}

func TestSelectActiveQueriesRepoError(t *testing.T) {
	svc := NewQueryService(&fakeQueryRepo{err: errors.New("connection reset")})

	if _, err := svc.SelectActiveQueries(context.Background(), uuid.New()); err == nil {
		t.Error("repository errors must surface to the caller")
	}
}
