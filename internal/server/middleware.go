package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/groupchat/internal/principal"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRoles = "X-User-Roles"
)

// PrincipalFromHeaders trusts identity asserted by the gateway in front of
// this service. Requests without a user id pass through unauthenticated and
// are rejected by the chat core.
func PrincipalFromHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.Next()
			return
		}

		var roles []string
		for _, role := range strings.Split(c.GetHeader(HeaderUserRoles), ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}

		ctx := principal.WithPrincipal(c.Request.Context(), principal.Principal{ID: userID, Roles: roles})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
