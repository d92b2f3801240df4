package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	apperrors "stagepass/pkg/errors"
	"stagepass/pkg/rtctoken"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCredentialService(t *testing.T, metrics ports.MetricsRecorder) (ports.CredentialService, *rtctoken.Encoder) {
	t.Helper()
	encoder, err := rtctoken.New("app-123", "cert-secret")
	require.NoError(t, err)

	svc := NewCredentialService(encoder, CredentialConfig{
		Lifetime:    time.Hour,
		DefaultRole: domain.RolePublisher,
		Now:         func() time.Time { return fixedNow.Add(400 * time.Millisecond) },
	}, metrics, zap.NewNop().Sugar())
	return svc, encoder
}

func TestCredentialService_DefaultsForAuthenticatedCaller(t *testing.T) {
	metrics := new(MockMetricsRecorder)
	metrics.On("RecordCredentialIssued", domain.RolePublisher).Once()
	svc, encoder := newTestCredentialService(t, metrics)

	cred, err := svc.Issue(context.Background(), domain.IssueRequest{
		CallerID:      "user-42",
		RequireCaller: true,
		Channel:       "test",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RolePublisher, cred.Role)
	assert.Equal(t, "user-42", cred.SubjectID)
	assert.Equal(t, "app-123", cred.AppID)
	assert.Equal(t, "test", cred.Channel)
	assert.Equal(t, time.Hour, cred.Lifetime())
	assert.Equal(t, fixedNow, cred.IssuedAt)
	assert.Equal(t, fixedNow.Add(time.Hour), cred.ExpiresAt)

	claims, err := encoder.Parse(cred.Token, jwt.WithTimeFunc(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	assert.Equal(t, "test", claims.Channel)
	assert.Equal(t, domain.RolePublisher, claims.Role)
	assert.Equal(t, "user-42", claims.Subject)

	metrics.AssertExpectations(t)
}

func TestCredentialService_Deterministic(t *testing.T) {
	svc, _ := newTestCredentialService(t, nil)
	req := domain.IssueRequest{CallerID: "u1", Channel: "room", SubjectID: "77", Role: domain.RoleSubscriber}

	first, err := svc.Issue(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, domain.RoleSubscriber, first.Role)
	assert.Equal(t, "77", first.SubjectID)
}

func TestCredentialService_AnonymousSubject(t *testing.T) {
	svc, _ := newTestCredentialService(t, nil)

	cred, err := svc.Issue(context.Background(), domain.IssueRequest{Channel: "lobby"})
	require.NoError(t, err)
	assert.Equal(t, "0", cred.SubjectID)
	assert.Equal(t, domain.RolePublisher, cred.Role)
}

func TestCredentialService_Rejections(t *testing.T) {
	svc, _ := newTestCredentialService(t, nil)

	tests := []struct {
		name string
		req  domain.IssueRequest
		code apperrors.ErrorCode
	}{
		{
			name: "caller required",
			req:  domain.IssueRequest{RequireCaller: true, Channel: "test"},
			code: apperrors.ErrCodeUnauthenticated,
		},
		{
			name: "empty channel",
			req:  domain.IssueRequest{CallerID: "u1", RequireCaller: true},
			code: apperrors.ErrCodeInvalidArgument,
		},
		{
			name: "channel too long",
			req:  domain.IssueRequest{CallerID: "u1", Channel: strings.Repeat("a", 65)},
			code: apperrors.ErrCodeInvalidArgument,
		},
		{
			name: "channel with forbidden characters",
			req:  domain.IssueRequest{CallerID: "u1", Channel: "bad\nname"},
			code: apperrors.ErrCodeInvalidArgument,
		},
		{
			name: "role outside enum",
			req:  domain.IssueRequest{CallerID: "u1", Channel: "test", Role: 7},
			code: apperrors.ErrCodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := svc.Issue(context.Background(), tt.req)
			assert.Nil(t, cred)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestCredentialService_AppID(t *testing.T) {
	svc, _ := newTestCredentialService(t, nil)
	assert.Equal(t, "app-123", svc.AppID())
}
