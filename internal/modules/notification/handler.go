package notification

import (
	"errors"
	"net/http"
	"strconv"

	"medalert/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	{
		g.POST("", h.Dispatch)
		g.GET("", h.List)
		g.PATCH("/:id/read", h.MarkRead)
		g.GET("/stats", h.Stats)
		g.POST("/receipts/check", h.CheckReceipts)
	}
}

// Dispatch is called by the alert workflow on stage transitions.
func (h *Handler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid dispatch payload")
		return
	}

	n, err := h.service.Dispatch(c.Request.Context(), req.ToIntent())
	if err != nil {
		switch {
		case errors.Is(err, ErrRecipientNotFound):
			response.Error(c, http.StatusNotFound, "RECIPIENT_NOT_FOUND", "Recipient does not exist")
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid notification intent")
		default:
			response.Error(c, http.StatusInternalServerError, "DISPATCH_FAILED", "Failed to dispatch notification")
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"notification": n})
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := recipientID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_RECIPIENT", "recipient_id is required")
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
			if limit > 100 {
				limit = 100
			}
		}
	}

	list, err := h.service.ListForRecipient(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get notifications")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) MarkRead(c *gin.Context) {
	userID, ok := recipientID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_RECIPIENT", "recipient_id is required")
		return
	}

	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}

	n, err := h.service.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Notification not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark as read")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"notification": n})
}

func (h *Handler) Stats(c *gin.Context) {
	var userID *int64
	if s := c.Query("recipient_id"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_RECIPIENT", "Invalid recipient_id")
			return
		}
		userID = &v
	}

	stats, err := h.service.DeliveryStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "STATS_FAILED", "Failed to aggregate stats")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// CheckReceipts triggers an immediate receipt reconciliation run.
func (h *Handler) CheckReceipts(c *gin.Context) {
	if err := h.service.CheckReceipts(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, "RECEIPT_CHECK_FAILED", "Receipt check failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "completed"})
}

func recipientID(c *gin.Context) (int64, bool) {
	v, err := strconv.ParseInt(c.Query("recipient_id"), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
