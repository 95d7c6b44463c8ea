package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-facility-backend/internal/apperr"
)

type subjectRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
}

// ListBlocks handles GET /api/dorm/blocks.
func (h *Handler) ListBlocks(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Allocator().Blocks())
}

// ListRooms handles GET /api/dorm/blocks/:block_id/rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	blockID := c.Param("block_id")
	rooms := h.svc.Allocator().Rooms(blockID)
	if len(rooms) == 0 {
		respondError(c, apperr.NotFound(apperr.CodeRoomNotFound, "block %s has no rooms", blockID))
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *Handler) AssignRoom(c *gin.Context) {
	var req subjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	room, err := h.svc.AssignRoom(c.Request.Context(), req.SubjectID, c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) ReleaseRoom(c *gin.Context) {
	var req subjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	room, err := h.svc.ReleaseRoom(c.Request.Context(), req.SubjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// SetMaintenance empties the room; the evicted subjects are returned so staff
// can re-house them.
func (h *Handler) SetMaintenance(c *gin.Context) {
	evicted, err := h.svc.SetRoomMaintenance(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if evicted == nil {
		evicted = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"room_id": c.Param("room_id"), "evicted": evicted})
}

func (h *Handler) ClearMaintenance(c *gin.Context) {
	room, err := h.svc.ClearRoomMaintenance(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
