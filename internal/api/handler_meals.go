package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type serveMealRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
	MealType  string `json:"meal_type" binding:"required"`
}

// CurrentMeal reports the active meal window, or the next one and how far away it is.
func (h *Handler) CurrentMeal(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CurrentMeal())
}

// ListMeals handles GET /api/meals?subject_id=&date=.
func (h *Handler) ListMeals(c *gin.Context) {
	c.JSON(http.StatusOK, nonNil(h.svc.Meals(c.Query("subject_id"), h.dateParam(c))))
}

// ServeMeal handles POST /api/meals.
func (h *Handler) ServeMeal(c *gin.Context) {
	var req serveMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.svc.ServeMeal(c.Request.Context(), req.SubjectID, req.MealType, staffID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}
