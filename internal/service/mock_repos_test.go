package service

import (
	"context"
	"sync"

	"github.com/cjenwere4/5590-check-in-app/internal/geo"
	"github.com/cjenwere4/5590-check-in-app/internal/model"
)

// ── Mock CheckInRepository ──

type mockCheckInRepo struct {
	mu      sync.Mutex
	records []model.CheckIn
	err     error
}

func newMockCheckInRepo() *mockCheckInRepo {
	return &mockCheckInRepo{}
}

func (m *mockCheckInRepo) Create(_ context.Context, rec *model.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockCheckInRepo) ListByEvent(_ context.Context, eventLabel string) ([]model.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var result []model.CheckIn
	for _, r := range m.records {
		if eventLabel == "" || r.EventLabel == eventLabel {
			result = append(result, r)
		}
	}
	return result, nil
}

// ── Mock remote.Client ──

type mockRemote struct {
	mu       sync.Mutex
	inserted []*model.CheckIn
	err      error
}

func (m *mockRemote) Insert(_ context.Context, rec *model.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, rec)
	return nil
}

func (m *mockRemote) Name() string { return "mock" }

// ── Mock geo.Geocoder ──

type mockGeocoder struct {
	place *geo.Place
	err   error
}

func (m *mockGeocoder) Reverse(ctx context.Context, _, _ float64) (*geo.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.place, m.err
}
