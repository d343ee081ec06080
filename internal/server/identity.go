package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the authenticating proxy in front of the API.
const (
	HeaderUser  = "X-Forwarded-User"
	HeaderAdmin = "X-Forwarded-Admin"
)

const (
	ctxUser  = "user"
	ctxAdmin = "admin"
)

// identify copies the proxy identity headers into the request context.
func identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxUser, strings.TrimSpace(c.GetHeader(HeaderUser)))
		c.Set(ctxAdmin, strings.EqualFold(c.GetHeader(HeaderAdmin), "true"))
		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + HeaderUser})
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator only"})
			return
		}
		c.Next()
	}
}

func user(c *gin.Context) string { return c.GetString(ctxUser) }

func isAdmin(c *gin.Context) bool { return c.GetBool(ctxAdmin) }
