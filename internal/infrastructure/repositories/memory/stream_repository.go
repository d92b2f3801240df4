package memory

import (
	"context"
	"sync"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
)

// MemoryStreamRepository keeps stream sessions in process. Every mutation of a
// viewer set and its counter happens under one write lock.
type MemoryStreamRepository struct {
	streams map[domain.StreamID]*domain.Stream
	mu      sync.RWMutex
}

func NewMemoryStreamRepository() ports.StreamRepository {
	return &MemoryStreamRepository{
		streams: make(map[domain.StreamID]*domain.Stream),
	}
}

func (r *MemoryStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[stream.ID]; exists {
		return domain.ErrStreamExists
	}

	r.streams[stream.ID] = stream.Clone()
	return nil
}

func (r *MemoryStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stream, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}

	return stream.Clone(), nil
}

func (r *MemoryStreamRepository) UpdateStatus(ctx context.Context, id domain.StreamID, status domain.StreamStatus, now time.Time) (*domain.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}
	if !stream.Status.CanTransition(status) {
		return nil, domain.ErrInvalidTransition
	}

	stream.Status = status
	stream.LastUpdated = now
	return stream.Clone(), nil
}

func (r *MemoryStreamRepository) AddViewer(ctx context.Context, id domain.StreamID, viewerID domain.UserID, now time.Time) (*domain.JoinResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stream, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}
	if !stream.IsLive() {
		return nil, domain.ErrStreamNotLive
	}
	if stream.HasViewer(viewerID) {
		return &domain.JoinResult{Joined: true, AlreadyPresent: true, ViewerCount: stream.ViewerCount}, nil
	}

	stream.Viewers[viewerID] = struct{}{}
	stream.ViewerCount++
	stream.LastUpdated = now

	return &domain.JoinResult{Joined: true, ViewerCount: stream.ViewerCount}, nil
}
