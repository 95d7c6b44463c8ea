package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campus-facility-backend/internal/model"
)

type personalItemRequest struct {
	SubjectID    string     `json:"subject_id" binding:"required"`
	ItemType     string     `json:"item_type" binding:"required"`
	Brand        string     `json:"brand"`
	Model        string     `json:"model"`
	SerialNumber string     `json:"serial_number"`
	Description  string     `json:"description"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// ListPersonalItems handles GET /api/gate/items?subject_id=.
func (h *Handler) ListPersonalItems(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.svc.PersonalItems(c.Query("subject_id"))))
}

// RegisterPersonalItem handles POST /api/gate/items.
func (h *Handler) RegisterPersonalItem(c *gin.Context) {
	var req personalItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	item, err := h.svc.RegisterPersonalItem(c.Request.Context(), model.PersonalItem{
		SubjectID:    req.SubjectID,
		ItemType:     req.ItemType,
		Brand:        req.Brand,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		Description:  req.Description,
		ExpiresAt:    req.ExpiresAt,
	}, staffID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) RenewPersonalItem(c *gin.Context) {
	item, err := h.svc.RenewPersonalItem(c.Request.Context(), c.Param("item_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) RemovePersonalItem(c *gin.Context) {
	if err := h.svc.RemovePersonalItem(c.Request.Context(), c.Param("item_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
