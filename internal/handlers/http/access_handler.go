package http

import (
	"net/http"

	"stagepass/internal/core/ports"
	"stagepass/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

type AccessHandler struct {
	accessService ports.AccessService
}

func NewAccessHandler(accessService ports.AccessService) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
	}
}

// CheckPermissions reports the caller's flags. The privileged role is
// exposed as isAstrologer, the name mobile clients already read.
func (h *AccessHandler) CheckPermissions(c *gin.Context) {
	perms, err := h.accessService.CheckPermissions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"isAdmin":      perms.IsAdmin,
		"isAstrologer": perms.IsPrivilegedRole,
		"roles":        perms.Roles,
	})
}

func (h *AccessHandler) UpdateRules(c *gin.Context) {
	msg, err := h.accessService.UpdateRules(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msg,
	})
}
