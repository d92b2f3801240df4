package ports

import (
	"context"
	"time"

	"stagepass/internal/core/domain"
)

type StreamRepository interface {
	Create(ctx context.Context, stream *domain.Stream) error
	GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	UpdateStatus(ctx context.Context, id domain.StreamID, status domain.StreamStatus, now time.Time) (*domain.Stream, error)
	// AddViewer registers viewerID on a live stream. Existence, status and
	// membership are re-checked and the set, count and timestamp are written
	// as one unit. The result carries the count as of that unit.
	AddViewer(ctx context.Context, id domain.StreamID, viewerID domain.UserID, now time.Time) (*domain.JoinResult, error)
}

type IdentityRepository interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.Identity, error)
	Upsert(ctx context.Context, identity *domain.Identity) error
}
