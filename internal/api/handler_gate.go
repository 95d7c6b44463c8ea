package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type gatePassRequest struct {
	ItemIDs []string `json:"item_ids" binding:"max=20,dive,required"`
}

// GateEntry handles POST /api/gate/:subject_id/entry. An after-hours pass
// still answers 200; the violation is in the body. Listed personal items are
// checked back in with the pass.
func (h *Handler) GateEntry(c *gin.Context) {
	var req gatePassRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.svc.GateEntry(c.Request.Context(), c.Param("subject_id"), req.ItemIDs...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GateExit handles POST /api/gate/:subject_id/exit.
func (h *Handler) GateExit(c *gin.Context) {
	var req gatePassRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.svc.GateExit(c.Request.Context(), c.Param("subject_id"), req.ItemIDs...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
