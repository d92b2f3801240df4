package http

import (
	"net/http"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/ports"
	"stagepass/internal/infrastructure/middleware"
	"stagepass/pkg/errors"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	streamService ports.StreamService
}

func NewStreamHandler(streamService ports.StreamService) *StreamHandler {
	return &StreamHandler{
		streamService: streamService,
	}
}

type JoinStreamRequest struct {
	StreamID string `json:"streamId"`
}

type CreateStreamRequest struct {
	StreamID string `json:"streamId"`
	Name     string `json:"name"`
}

type UpdateStreamStatusRequest struct {
	Status string `json:"status"`
}

type streamResponse struct {
	ID          domain.StreamID     `json:"id"`
	Name        string              `json:"name"`
	OwnerID     domain.UserID       `json:"ownerId"`
	Status      domain.StreamStatus `json:"status"`
	Viewers     []domain.UserID     `json:"viewers"`
	ViewerCount int                 `json:"viewerCount"`
	CreatedAt   int64               `json:"createdAt"`
	LastUpdated int64               `json:"lastUpdated"`
}

func newStreamResponse(s *domain.Stream) streamResponse {
	return streamResponse{
		ID:          s.ID,
		Name:        s.Name,
		OwnerID:     s.OwnerID,
		Status:      s.Status,
		Viewers:     s.ViewerList(),
		ViewerCount: s.ViewerCount,
		CreatedAt:   s.CreatedAt.Unix(),
		LastUpdated: s.LastUpdated.Unix(),
	}
}

// JoinStream handles POST /api/v1/streams/join.
func (h *StreamHandler) JoinStream(c *gin.Context) {
	var req JoinStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidArgumentError("invalid request format"))
		return
	}

	result, err := h.streamService.JoinStream(c.Request.Context(), domain.StreamID(req.StreamID), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := gin.H{
		"success":     true,
		"viewerCount": result.ViewerCount,
	}
	if result.AlreadyPresent {
		resp["alreadyViewing"] = true
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StreamHandler) GetStream(c *gin.Context) {
	stream, err := h.streamService.GetStream(c.Request.Context(), domain.StreamID(c.Param("id")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newStreamResponse(stream))
}

func (h *StreamHandler) CreateStream(c *gin.Context) {
	var req CreateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidArgumentError("invalid request format"))
		return
	}

	stream, err := h.streamService.CreateStream(c.Request.Context(), domain.StreamID(req.StreamID), req.Name, middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, newStreamResponse(stream))
}

func (h *StreamHandler) UpdateStreamStatus(c *gin.Context) {
	var req UpdateStreamStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidArgumentError("invalid request format"))
		return
	}

	stream, err := h.streamService.UpdateStreamStatus(c.Request.Context(), domain.StreamID(c.Param("id")), req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newStreamResponse(stream))
}
