package services

import (
	"context"
	"errors"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/pkg/circuitbreaker"
	apperrors "stagepass/pkg/errors"

	"go.uber.org/zap"
)

const rulesUpdatedMessage = "Security rules updated (demonstration only)"

type accessService struct {
	identityRepo ports.IdentityRepository
	metrics      ports.MetricsRecorder
	logger       *zap.SugaredLogger
}

func NewAccessService(
	identityRepo ports.IdentityRepository,
	metrics ports.MetricsRecorder, // may be nil
	logger *zap.SugaredLogger,
) ports.AccessService {
	return &accessService{
		identityRepo: identityRepo,
		metrics:      metrics,
		logger:       logger,
	}
}

// RequireAdmin succeeds only for callers whose identity record has is_admin
// set. A missing record is denied the same way as a non-admin one.
func (s *accessService) RequireAdmin(ctx context.Context, callerID domain.UserID) error {
	if callerID == "" {
		return apperrors.NewUnauthenticatedError("User must be authenticated")
	}

	identity, err := s.identityRepo.GetByID(ctx, callerID)
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		return s.lookupFailed(callerID, err)
	}
	if identity == nil || !identity.IsAdmin {
		s.denied("require_admin", callerID)
		return apperrors.NewPermissionDeniedError("Only admins can perform this operation")
	}
	return nil
}

func (s *accessService) CheckPermissions(ctx context.Context, callerID domain.UserID) (*domain.Permissions, error) {
	if callerID == "" {
		return nil, apperrors.NewUnauthenticatedError("User must be authenticated")
	}

	identity, err := s.identityRepo.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, apperrors.NewNotFoundError("User")
		}
		return nil, s.lookupFailed(callerID, err)
	}
	return identity.Permissions(), nil
}

// UpdateRules is an admin-only acknowledgment; no rules engine sits behind it.
func (s *accessService) UpdateRules(ctx context.Context, callerID domain.UserID) (string, error) {
	if err := s.RequireAdmin(ctx, callerID); err != nil {
		return "", err
	}
	s.logger.Infow("rules update requested", "user_id", callerID)
	return rulesUpdatedMessage, nil
}

func (s *accessService) lookupFailed(callerID domain.UserID, err error) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		s.logger.Warnw("identity store unavailable", "user_id", callerID)
		return storeUnavailable()
	}
	s.logger.Errorw("failed to load identity",
		"user_id", callerID,
		"error", err,
	)
	return apperrors.NewInternalError("Failed to check permissions", err)
}

func (s *accessService) denied(operation string, callerID domain.UserID) {
	if s.metrics != nil {
		s.metrics.RecordAccessDenied(operation)
	}
	s.logger.Warnw("access denied",
		"operation", operation,
		"user_id", callerID,
	)
}
