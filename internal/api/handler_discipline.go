package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-facility-backend/internal/discipline"
	"campus-facility-backend/internal/model"
)

type complaintRequest struct {
	SubjectID   string   `json:"subject_id" binding:"required"`
	Source      string   `json:"source" binding:"required"`
	Severity    string   `json:"severity" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Evidence    []string `json:"evidence"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type appealDecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// bindOptional binds a JSON body when one was sent. Action endpoints accept
// an empty POST.
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

// ListViolations handles GET /api/discipline/violations?subject_id=.
func (h *Handler) ListViolations(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.svc.Violations().Violations(c.Query("subject_id"))))
}

// ListComplaints handles GET /api/discipline/complaints?subject_id=&status=&source=&severity=.
func (h *Handler) ListComplaints(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.svc.Discipline().Complaints(discipline.Filter{
		SubjectID: c.Query("subject_id"),
		Status:    model.ComplaintStatus(c.Query("status")),
		Source:    model.ComplaintSource(c.Query("source")),
		Severity:  model.ComplaintSeverity(c.Query("severity")),
	})))
}

// FileComplaint handles POST /api/discipline/complaints.
func (h *Handler) FileComplaint(c *gin.Context) {
	var req complaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	complaint, err := h.svc.FileComplaint(c.Request.Context(), model.Complaint{
		SubjectID:   req.SubjectID,
		Source:      model.ComplaintSource(req.Source),
		Severity:    model.ComplaintSeverity(req.Severity),
		Description: req.Description,
		Evidence:    req.Evidence,
	}, staffID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	complaint, err := h.svc.Discipline().Complaint(c.Param("complaint_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// ReviewComplaint moves a pending complaint under review.
func (h *Handler) ReviewComplaint(c *gin.Context) {
	var req noteRequest
	if !bindOptional(c, &req) {
		return
	}
	complaint, err := h.svc.ReviewComplaint(c.Request.Context(), c.Param("complaint_id"), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func (h *Handler) AddComplaintNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	complaint, err := h.svc.AddComplaintNote(c.Request.Context(), c.Param("complaint_id"), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func (h *Handler) DismissComplaint(c *gin.Context) {
	var req reasonRequest
	if !bindOptional(c, &req) {
		return
	}
	complaint, err := h.svc.DismissComplaint(c.Request.Context(), c.Param("complaint_id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// TakeAction handles POST /api/discipline/complaints/:complaint_id/actions.
// A suspension or dismissal suspends the subject in the same write.
func (h *Handler) TakeAction(c *gin.Context) {
	var in discipline.ActionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.TakeAction(c.Request.Context(), c.Param("complaint_id"), in, staffID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListActions handles GET /api/discipline/actions?subject_id=, newest first.
func (h *Handler) ListActions(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.svc.Discipline().Actions(c.Query("subject_id"))))
}

func (h *Handler) FileAppeal(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	action, err := h.svc.FileAppeal(c.Request.Context(), c.Param("action_id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, action)
}

// DecideAppeal upholds or overturns an appeal. Overturning a suspension
// reinstates the subject.
func (h *Handler) DecideAppeal(c *gin.Context) {
	var req appealDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.DecideAppeal(c.Request.Context(), c.Param("action_id"), model.AppealStatus(req.Decision), req.Notes, staffID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reinstate lifts a suspension after the discipline office has reviewed it.
// The reinstatement is recorded as a disciplinary action.
func (h *Handler) Reinstate(c *gin.Context) {
	var req reasonRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.svc.Reinstate(c.Request.Context(), c.Param("subject_id"), req.Reason, staffID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DisciplinarySummary handles GET /api/discipline/subjects/:subject_id/summary.
func (h *Handler) DisciplinarySummary(c *gin.Context) {
	summary, err := h.svc.DisciplinarySummary(c.Param("subject_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
