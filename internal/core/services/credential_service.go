package services

import (
	"context"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	apperrors "stagepass/pkg/errors"
	"stagepass/pkg/rtctoken"
	"stagepass/pkg/tracing"
	"stagepass/pkg/validation"

	"go.uber.org/zap"
)

// anonymousSubject is the subject used when neither a uid nor a caller is known.
const anonymousSubject = "0"

type CredentialConfig struct {
	Lifetime    time.Duration
	DefaultRole domain.Role
	// Now defaults to time.Now.
	Now func() time.Time
}

type credentialService struct {
	encoder     *rtctoken.Encoder
	lifetime    time.Duration
	defaultRole domain.Role
	now         func() time.Time
	metrics     ports.MetricsRecorder
	logger      *zap.SugaredLogger
}

func NewCredentialService(
	encoder *rtctoken.Encoder,
	cfg CredentialConfig,
	metrics ports.MetricsRecorder, // may be nil
	logger *zap.SugaredLogger,
) ports.CredentialService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &credentialService{
		encoder:     encoder,
		lifetime:    cfg.Lifetime,
		defaultRole: cfg.DefaultRole,
		now:         now,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *credentialService) AppID() string {
	return s.encoder.AppID()
}

func (s *credentialService) Issue(ctx context.Context, req domain.IssueRequest) (*domain.Credential, error) {
	ctx, span := tracing.TraceServiceOperation(ctx, "credential", "issue",
		tracing.ChannelKey.String(req.Channel),
	)
	defer span.End()

	if req.RequireCaller && req.CallerID == "" {
		return nil, apperrors.NewUnauthenticatedError("The function must be called while authenticated.")
	}
	if req.Channel == "" {
		return nil, apperrors.NewInvalidArgumentError("channelName is required")
	}
	if err := validation.ValidateChannelName(req.Channel); err != nil {
		return nil, apperrors.NewInvalidArgumentError(err.Error())
	}

	subject := req.SubjectID
	if subject == "" {
		subject = string(req.CallerID)
	}
	if subject == "" {
		subject = anonymousSubject
	}
	if err := validation.ValidateSubjectID(subject); err != nil {
		return nil, apperrors.NewInvalidArgumentError(err.Error())
	}

	role := req.Role
	if role == 0 {
		role = s.defaultRole
	}
	if !role.Valid() {
		return nil, apperrors.NewInvalidArgumentError("role must be 1 (publisher) or 2 (subscriber)")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.lifetime)

	token, err := s.encoder.Build(subject, req.Channel, role, issuedAt, expiresAt)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.logger.Errorw("failed to build credential",
			"channel", req.Channel,
			"subject", subject,
			"role", role.String(),
			"error", err,
		)
		return nil, apperrors.NewInternalError("Failed to generate token", err)
	}

	tracing.AddSpanAttributes(ctx,
		tracing.UserIDKey.String(subject),
		tracing.RoleKey.Int(int(role)),
	)
	if s.metrics != nil {
		s.metrics.RecordCredentialIssued(role)
	}
	s.logger.Infow("credential issued",
		"channel", req.Channel,
		"subject", subject,
		"role", role.String(),
		"expires_at", expiresAt,
	)

	return &domain.Credential{
		Token:     token,
		AppID:     s.encoder.AppID(),
		Channel:   req.Channel,
		SubjectID: subject,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
