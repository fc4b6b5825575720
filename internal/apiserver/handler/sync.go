package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/frotalog/registro/internal/common/dto"
	"github.com/frotalog/registro/internal/common/validate"
)

var errNoClaims = errors.New("no claims in context")

// Pull handles GET /sync/pull
func (h *Handler) Pull(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	watermark, err := validate.PullWatermark(c.Query("lastPulledAt"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changes, timestamp, err := h.syncSvc.Pull(c.Request.Context(), watermark, claims.EmpresaID)
	if err != nil {
		h.logger.Error("pull failed", zap.Uint("empresa_id", claims.EmpresaID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pull failed"})
		return
	}

	if h.metrics != nil {
		h.metrics.PullDone(watermark == nil)
	}
	c.JSON(http.StatusOK, dto.PullResponse{Changes: changes, Timestamp: timestamp})
}

// Push handles POST /sync/push
func (h *Handler) Push(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req dto.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.PushRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rejected, err := h.syncSvc.Push(c.Request.Context(), req.Changes, claims.EmpresaID)
	if err != nil {
		h.logger.Error("push failed", zap.Uint("empresa_id", claims.EmpresaID), zap.Error(err))
		if h.metrics != nil {
			h.metrics.PushDone("error", 0)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "push failed"})
		return
	}

	if h.metrics != nil {
		h.metrics.PushDone("ok", len(rejected))
		for table, tc := range req.Changes {
			h.metrics.PushRows(table, "created", len(tc.Created))
			h.metrics.PushRows(table, "updated", len(tc.Updated))
			h.metrics.PushRows(table, "deleted", len(tc.Deleted))
		}
	}

	resp := dto.PushResponse{}
	if len(rejected) > 0 {
		resp.RejectedIDs = rejected
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /health, used by clients as a reachability probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
