package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type borrowRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
	ItemID    string `json:"item_id" binding:"required"`
}

func (h *Handler) LibraryEnter(c *gin.Context) {
	visit, err := h.svc.LibraryEnter(c.Request.Context(), c.Param("subject_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, visit)
}

func (h *Handler) LibraryExit(c *gin.Context) {
	visit, err := h.svc.LibraryExit(c.Request.Context(), c.Param("subject_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

// ListItems returns the catalog with availability.
func (h *Handler) ListItems(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Allocator().Items())
}

// ListLoans handles GET /api/library/loans?subject_id=. Without a subject
// every loan is returned.
func (h *Handler) ListLoans(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.svc.Allocator().Loans(c.Query("subject_id"))))
}

func (h *Handler) Borrow(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	loan, err := h.svc.Borrow(c.Request.Context(), req.SubjectID, req.ItemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *Handler) Return(c *gin.Context) {
	loan, err := h.svc.Return(c.Request.Context(), c.Param("loan_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}
