package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-facility-backend/internal/auth"
	"campus-facility-backend/internal/model"
)

// Context keys set by JWTAuth.
const (
	CtxStaffID   = "sub"
	CtxStaffRole = "role"
	CtxStaffName = "name"
)

// JWTAuth rejects requests without a valid bearer token. Browsers' EventSource
// cannot set headers, so an access_token query parameter is accepted too.
func JWTAuth(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tok = strings.TrimPrefix(h, "Bearer ")
		} else if q := c.Query("access_token"); q != "" {
			tok = q
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing bearer token"})
			return
		}
		claims, err := a.ParseValidate(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
		c.Set(CtxStaffID, claims.Sub)
		c.Set(CtxStaffRole, claims.Role)
		c.Set(CtxStaffName, claims.Name)
		c.Next()
	}
}

// RequireRole admits the listed roles. Admins pass every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{model.RoleAdmin: {}}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(CtxStaffRole)
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "role not permitted"})
			return
		}
		c.Next()
	}
}
