package services

import (
	"context"
	"time"

	"stagepass/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	args := m.Called(ctx, stream)
	return args.Error(0)
}

func (m *MockStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stream), args.Error(1)
}

func (m *MockStreamRepository) UpdateStatus(ctx context.Context, id domain.StreamID, status domain.StreamStatus, now time.Time) (*domain.Stream, error) {
	args := m.Called(ctx, id, status, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stream), args.Error(1)
}

func (m *MockStreamRepository) AddViewer(ctx context.Context, id domain.StreamID, viewerID domain.UserID, now time.Time) (*domain.JoinResult, error) {
	args := m.Called(ctx, id, viewerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JoinResult), args.Error(1)
}

type MockIdentityRepository struct {
	mock.Mock
}

func (m *MockIdentityRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockIdentityRepository) Upsert(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordCredentialIssued(role domain.Role) {
	m.Called(role)
}

func (m *MockMetricsRecorder) RecordViewerJoin(streamID domain.StreamID, result string, viewerCount int) {
	m.Called(streamID, result, viewerCount)
}

func (m *MockMetricsRecorder) RecordAccessDenied(operation string) {
	m.Called(operation)
}

func (m *MockMetricsRecorder) RecordStreamEnded(streamID domain.StreamID) {
	m.Called(streamID)
}
