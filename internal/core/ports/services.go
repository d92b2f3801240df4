package ports

import (
	"context"

	"stagepass/internal/core/domain"
)

type CredentialService interface {
	Issue(ctx context.Context, req domain.IssueRequest) (*domain.Credential, error)
	AppID() string
}

type StreamService interface {
	CreateStream(ctx context.Context, id domain.StreamID, name string, owner domain.UserID) (*domain.Stream, error)
	GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	UpdateStreamStatus(ctx context.Context, id domain.StreamID, status string) (*domain.Stream, error)
	JoinStream(ctx context.Context, id domain.StreamID, viewerID domain.UserID) (*domain.JoinResult, error)
}

type AccessService interface {
	RequireAdmin(ctx context.Context, callerID domain.UserID) error
	CheckPermissions(ctx context.Context, callerID domain.UserID) (*domain.Permissions, error)
	UpdateRules(ctx context.Context, callerID domain.UserID) (string, error)
}

// MetricsRecorder is the slice of the Prometheus collector the services use.
type MetricsRecorder interface {
	RecordCredentialIssued(role domain.Role)
	RecordViewerJoin(streamID domain.StreamID, result string, viewerCount int)
	RecordAccessDenied(operation string)
	// RecordStreamEnded releases per-stream series once a stream can no longer change.
	RecordStreamEnded(streamID domain.StreamID)
}
