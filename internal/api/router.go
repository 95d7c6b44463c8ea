package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"campus-facility-backend/config"
	"campus-facility-backend/internal/model"
	"campus-facility-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.Default()

	// Cached reads are dropped on every engine change, so the TTL only bounds memory.
	cacheTTL := cfg.CacheTTL()
	cacheStore := cache.New(cacheTTL, 10*time.Minute)
	h.svc.Bus().Subscribe(cacheStore.Flush)
	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cacheTTL > 0 {
		caching = mw.Cache(cacheStore, cacheTTL)
	}

	api := r.Group("/api")
	if cfg.RateLimitPerSec > 0 {
		api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader))
	}
	{
		api.POST("/auth/login", h.Login)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		staff := api.Group("", mw.JWTAuth(h.auth))

		staff.GET("/changes", h.Changes)
		staff.GET("/subjects/:subject_id", h.GetSubject)

		staff.GET("/subscriptions", h.GetSubscription)
		staff.PUT("/subscriptions", h.PutSubscription)
		staff.DELETE("/subscriptions", h.DeleteSubscription)

		admin := staff.Group("", mw.RequireRole(model.RoleAdmin))
		admin.GET("/subjects", h.ListSubjects)
		admin.POST("/subjects", h.RegisterSubject)

		gate := staff.Group("/gate", mw.RequireRole(model.RoleSecurity))
		gate.POST("/:subject_id/entry", h.GateEntry)
		gate.POST("/:subject_id/exit", h.GateExit)
		gate.GET("/items", h.ListPersonalItems)
		gate.POST("/items", h.RegisterPersonalItem)
		gate.POST("/items/:item_id/renew", h.RenewPersonalItem)
		gate.DELETE("/items/:item_id", h.RemovePersonalItem)

		meals := staff.Group("/meals", mw.RequireRole(model.RoleCafe))
		meals.GET("/current", h.CurrentMeal)
		meals.GET("", h.ListMeals)
		meals.POST("", h.ServeMeal)

		library := staff.Group("/library", mw.RequireRole(model.RoleLibrary))
		library.POST("/visits/:subject_id/entry", h.LibraryEnter)
		library.POST("/visits/:subject_id/exit", h.LibraryExit)
		library.GET("/items", caching, h.ListItems)
		library.GET("/loans", h.ListLoans)
		library.POST("/loans", h.Borrow)
		library.POST("/loans/:loan_id/return", h.Return)

		dorm := staff.Group("/dorm", mw.RequireRole(model.RoleDormitory))
		dorm.GET("/blocks", caching, h.ListBlocks)
		dorm.GET("/blocks/:block_id/rooms", caching, h.ListRooms)
		dorm.POST("/rooms/:room_id/assign", h.AssignRoom)
		dorm.POST("/release", h.ReleaseRoom)
		dorm.POST("/rooms/:room_id/maintenance", h.SetMaintenance)
		dorm.DELETE("/rooms/:room_id/maintenance", h.ClearMaintenance)

		discipline := staff.Group("/discipline", mw.RequireRole(model.RoleDiscipline))
		discipline.GET("/violations", h.ListViolations)
		discipline.GET("/complaints", h.ListComplaints)
		discipline.POST("/complaints", h.FileComplaint)
		discipline.GET("/complaints/:complaint_id", h.GetComplaint)
		discipline.POST("/complaints/:complaint_id/review", h.ReviewComplaint)
		discipline.POST("/complaints/:complaint_id/notes", h.AddComplaintNote)
		discipline.POST("/complaints/:complaint_id/dismiss", h.DismissComplaint)
		discipline.POST("/complaints/:complaint_id/actions", h.TakeAction)
		discipline.GET("/actions", h.ListActions)
		discipline.POST("/actions/:action_id/appeal", h.FileAppeal)
		discipline.POST("/actions/:action_id/appeal/decision", h.DecideAppeal)
		discipline.POST("/subjects/:subject_id/reinstate", h.Reinstate)
		discipline.GET("/subjects/:subject_id/summary", h.DisciplinarySummary)
	}

	return r
}
