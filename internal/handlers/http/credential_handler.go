package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/internal/infrastructure/middleware"
	"stagepass/pkg/errors"

	"github.com/gin-gonic/gin"
)

type CredentialHandler struct {
	credentialService ports.CredentialService
}

func NewCredentialHandler(credentialService ports.CredentialService) *CredentialHandler {
	return &CredentialHandler{
		credentialService: credentialService,
	}
}

// uidParam accepts a uid sent either as a JSON string or a JSON number.
type uidParam struct {
	value   string
	numeric bool
}

func (u *uidParam) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		u.value = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	u.value, u.numeric = n.String(), true
	return nil
}

// subject returns "" for an absent, empty or numeric-zero uid so the caller's
// identity is used. The string "0" is an explicit subject.
func (u uidParam) subject() string {
	if u.numeric {
		if f, err := strconv.ParseFloat(u.value, 64); err == nil && f == 0 {
			return ""
		}
	}
	return u.value
}

type IssueCredentialRequest struct {
	ChannelName string   `json:"channelName"`
	UID         uidParam `json:"uid"`
	Role        int      `json:"role"`
}

// uidValue renders numeric subjects as JSON numbers.
func uidValue(subject string) interface{} {
	if n, err := strconv.ParseUint(subject, 10, 32); err == nil {
		return n
	}
	return subject
}

// IssueCredential handles POST /api/v1/credentials for authenticated callers.
func (h *CredentialHandler) IssueCredential(c *gin.Context) {
	var req IssueCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidArgumentError("invalid request format"))
		return
	}

	cred, err := h.credentialService.Issue(c.Request.Context(), domain.IssueRequest{
		CallerID:      middleware.UserID(c),
		RequireCaller: true,
		Channel:       req.ChannelName,
		SubjectID:     req.UID.subject(),
		Role:          domain.Role(req.Role),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                 true,
		"appId":                   cred.AppID,
		"channelName":             cred.Channel,
		"uid":                     uidValue(cred.SubjectID),
		"role":                    int(cred.Role),
		"expirationTimeInSeconds": int64(cred.Lifetime().Seconds()),
		"token":                   cred.Token,
	})
}

// GetToken handles the public GET /token endpoint. Errors use the
// {error, details} body that existing clients of this endpoint parse.
func (h *CredentialHandler) GetToken(c *gin.Context) {
	channel := c.Query("channelName")
	if channel == "" {
		channel = c.Query("channel")
	}
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channelName or channel query parameter is required"})
		return
	}

	var role domain.Role
	if raw := c.Query("role"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be an integer"})
			return
		}
		role = domain.Role(n)
	}

	cred, err := h.credentialService.Issue(c.Request.Context(), domain.IssueRequest{
		CallerID:  middleware.UserID(c),
		Channel:   channel,
		SubjectID: c.Query("uid"),
		Role:      role,
	})
	if err != nil {
		appErr := errors.GetAppError(err)
		if appErr != nil && appErr.HTTPStatus < http.StatusInternalServerError {
			c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
			return
		}
		_ = c.Error(err)
		details := "internal error"
		if appErr != nil && appErr.Cause != nil {
			details = appErr.Cause.Error()
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate token",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       cred.Token,
		"appId":       cred.AppID,
		"channelName": cred.Channel,
		"uid":         uidValue(cred.SubjectID),
		"role":        int(cred.Role),
		"expires":     cred.ExpiresAt.Unix(),
		"expiresIn":   int64(cred.Lifetime().Seconds()),
	})
}
