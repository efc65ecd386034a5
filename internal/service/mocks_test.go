package service

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

// MockProviderCatalog is a mock implementation of domain.ProviderCatalog
type MockProviderCatalog struct {
	mock.Mock
}

func (m *MockProviderCatalog) ListActiveProviders(ctx context.Context) ([]domain.ProviderRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProviderRecord), args.Error(1)
}

func (m *MockProviderCatalog) GetProvider(ctx context.Context, id string) (*domain.ProviderRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderRecord), args.Error(1)
}

// MockAlertStore is a mock implementation of domain.AlertStore
type MockAlertStore struct {
	mock.Mock
}

func (m *MockAlertStore) Save(ctx context.Context, alert *domain.EmergencyAlert) error {
	return m.Called(ctx, alert).Error(0)
}

func (m *MockAlertStore) Get(ctx context.Context, id string) (*domain.EmergencyAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmergencyAlert), args.Error(1)
}

func (m *MockAlertStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.EmergencyAlert, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmergencyAlert), args.Error(1)
}

func (m *MockAlertStore) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.EmergencyAlert, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmergencyAlert), args.Error(1)
}

func (m *MockAlertStore) Close() error {
	return m.Called().Error(0)
}

// MockAlertPublisher is a mock implementation of domain.AlertPublisher
type MockAlertPublisher struct {
	mock.Mock
}

func (m *MockAlertPublisher) Publish(ctx context.Context, event *domain.AlertEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockAlertPublisher) Close() error {
	return m.Called().Error(0)
}

type stubExporter struct {
	payload string
	got     []*domain.EmergencyAlert
}

func (s *stubExporter) Export(w io.Writer, alerts []*domain.EmergencyAlert) error {
	s.got = alerts
	_, err := io.WriteString(w, s.payload)
	return err
}
