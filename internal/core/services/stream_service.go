package services

import (
	"context"
	"errors"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/pkg/circuitbreaker"
	apperrors "stagepass/pkg/errors"
	"stagepass/pkg/tracing"
	"stagepass/pkg/utils"
	"stagepass/pkg/validation"

	"go.uber.org/zap"
)

// Join outcomes reported to the metrics recorder.
const (
	JoinResultJoined         = "joined"
	JoinResultAlreadyPresent = "already_present"
	JoinResultNotLive        = "not_live"
	JoinResultNotFound       = "not_found"
	JoinResultError          = "error"
)

type streamService struct {
	streamRepo ports.StreamRepository
	metrics    ports.MetricsRecorder
	logger     *zap.SugaredLogger
	now        func() time.Time
}

func NewStreamService(
	streamRepo ports.StreamRepository,
	metrics ports.MetricsRecorder, // may be nil
	logger *zap.SugaredLogger,
) ports.StreamService {
	return &streamService{
		streamRepo: streamRepo,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *streamService) CreateStream(ctx context.Context, id domain.StreamID, name string, owner domain.UserID) (*domain.Stream, error) {
	ctx, span := tracing.TraceServiceOperation(ctx, "stream", "create", tracing.StreamIDKey.String(string(id)))
	defer span.End()

	if err := validation.ValidateStreamID(string(id)); err != nil {
		return nil, apperrors.NewInvalidArgumentError(err.Error())
	}
	name = utils.SanitizeString(name)
	if err := validation.ValidateStreamName(name); err != nil {
		return nil, apperrors.NewInvalidArgumentError(err.Error())
	}

	stream := domain.NewStream(id, name, owner, s.now().UTC())
	if err := s.streamRepo.Create(ctx, stream); err != nil {
		if errors.Is(err, domain.ErrStreamExists) {
			return nil, apperrors.NewFailedPreconditionError("Stream already exists")
		}
		return nil, s.internal(ctx, "failed to create stream", id, err)
	}

	s.logger.Infow("stream created",
		"stream_id", id,
		"owner_id", owner,
	)
	return stream, nil
}

func (s *streamService) GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	if err := validation.ValidateStreamID(string(id)); err != nil {
		return nil, apperrors.NewInvalidArgumentError(err.Error())
	}

	stream, err := s.streamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotFound) {
			return nil, apperrors.NewNotFoundError("Stream")
		}
		return nil, s.internal(ctx, "failed to get stream", id, err)
	}
	return stream, nil
}

func (s *streamService) UpdateStreamStatus(ctx context.Context, id domain.StreamID, status string) (*domain.Stream, error) {
	ctx, span := tracing.TraceServiceOperation(ctx, "stream", "update_status", tracing.StreamIDKey.String(string(id)))
	defer span.End()

	if err := validation.ValidateStreamID(string(id)); err != nil {
		return nil, apperrors.NewInvalidArgumentError(err.Error())
	}
	next, err := domain.ParseStreamStatus(status)
	if err != nil {
		return nil, apperrors.NewInvalidArgumentError(err.Error())
	}

	stream, err := s.streamRepo.UpdateStatus(ctx, id, next, s.now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStreamNotFound):
		return nil, apperrors.NewNotFoundError("Stream")
	case errors.Is(err, domain.ErrInvalidTransition):
		return nil, apperrors.NewFailedPreconditionError("Invalid stream status transition").
			WithContext("status", status)
	default:
		return nil, s.internal(ctx, "failed to update stream status", id, err)
	}

	if next == domain.StreamEnded && s.metrics != nil {
		s.metrics.RecordStreamEnded(id)
	}

	s.logger.Infow("stream status updated",
		"stream_id", id,
		"status", next,
	)
	return stream, nil
}

// JoinStream registers viewerID as a viewer of a live stream. A repeat join
// is reported as already present and leaves the stream untouched.
func (s *streamService) JoinStream(ctx context.Context, id domain.StreamID, viewerID domain.UserID) (*domain.JoinResult, error) {
	ctx, span := tracing.TraceServiceOperation(ctx, "stream", "join",
		tracing.StreamIDKey.String(string(id)),
		tracing.UserIDKey.String(string(viewerID)),
	)
	defer span.End()

	if viewerID == "" {
		return nil, apperrors.NewUnauthenticatedError("User must be authenticated")
	}
	if id == "" {
		return nil, apperrors.NewInvalidArgumentError("Stream ID is required")
	}
	if err := validation.ValidateStreamID(string(id)); err != nil {
		return nil, apperrors.NewInvalidArgumentError(err.Error())
	}

	// Cheap pre-read so common rejections and rejoins skip the transaction.
	stream, err := s.streamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.joinError(ctx, id, err)
	}
	if !stream.IsLive() {
		return nil, s.joinError(ctx, id, domain.ErrStreamNotLive)
	}
	if stream.HasViewer(viewerID) {
		s.recordJoin(id, JoinResultAlreadyPresent, stream.ViewerCount)
		return &domain.JoinResult{Joined: true, AlreadyPresent: true, ViewerCount: stream.ViewerCount}, nil
	}

	result, err := s.streamRepo.AddViewer(ctx, id, viewerID, s.now().UTC())
	if err != nil {
		return nil, s.joinError(ctx, id, err)
	}

	if result.AlreadyPresent {
		s.recordJoin(id, JoinResultAlreadyPresent, result.ViewerCount)
	} else {
		s.recordJoin(id, JoinResultJoined, result.ViewerCount)
		s.logger.Infow("viewer joined stream",
			"stream_id", id,
			"viewer_id", viewerID,
			"viewer_count", result.ViewerCount,
		)
	}
	return result, nil
}

func (s *streamService) joinError(ctx context.Context, id domain.StreamID, err error) error {
	switch {
	case errors.Is(err, domain.ErrStreamNotFound):
		s.recordJoin(id, JoinResultNotFound, 0)
		return apperrors.NewNotFoundError("Stream")
	case errors.Is(err, domain.ErrStreamNotLive):
		s.recordJoin(id, JoinResultNotLive, 0)
		return apperrors.NewFailedPreconditionError("Stream is not live")
	default:
		s.recordJoin(id, JoinResultError, 0)
		return s.internal(ctx, "failed to add viewer", id, err)
	}
}

func (s *streamService) recordJoin(id domain.StreamID, result string, viewerCount int) {
	if s.metrics != nil {
		s.metrics.RecordViewerJoin(id, result, viewerCount)
	}
}

func (s *streamService) internal(ctx context.Context, msg string, id domain.StreamID, err error) error {
	tracing.RecordError(ctx, err)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		s.logger.Warnw(msg,
			"stream_id", id,
			"error", err,
		)
		return storeUnavailable()
	}
	s.logger.Errorw(msg,
		"stream_id", id,
		"error", err,
	)
	return apperrors.NewInternalError("Failed to process stream request", err)
}

func storeUnavailable() error {
	return apperrors.NewServiceUnavailableError("Storage is temporarily unavailable")
}
