package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-facility-backend/internal/model"
)

type registerSubjectRequest struct {
	ID    string `json:"id" binding:"required,max=64"`
	Name  string `json:"name" binding:"required,max=128"`
	Email string `json:"email" binding:"omitempty,email"`
	Role  string `json:"role" binding:"required"`
}

// SubjectDetail is a subject with its standing across facilities.
type SubjectDetail struct {
	model.Subject
	Violations  int          `json:"violations"`
	Room        *model.Room  `json:"room,omitempty"`
	ActiveLoans []model.Loan `json:"active_loans"`
}

// ListSubjects handles GET /api/subjects?role=.
func (h *Handler) ListSubjects(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.svc.Subjects().List(c.Query("role"))))
}

// RegisterSubject handles POST /api/subjects.
func (h *Handler) RegisterSubject(c *gin.Context) {
	var req registerSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	sub, err := h.svc.RegisterSubject(c.Request.Context(), model.Subject{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}, staffID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// GetSubject handles GET /api/subjects/:subject_id.
func (h *Handler) GetSubject(c *gin.Context) {
	id := c.Param("subject_id")
	sub, err := h.svc.Subjects().Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	detail := SubjectDetail{
		Subject:     sub,
		Violations:  h.svc.Violations().Count(id),
		ActiveLoans: []model.Loan{},
	}
	if room, ok := h.svc.Allocator().RoomOf(id); ok {
		detail.Room = &room
	}
	for _, l := range h.svc.Allocator().Loans(id) {
		if l.IsActive() {
			detail.ActiveLoans = append(detail.ActiveLoans, l)
		}
	}
	c.JSON(http.StatusOK, detail)
}
