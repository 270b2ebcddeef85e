package handlers

import (
	"net/http"
	"strings"

	"thermostab/internal/service"

	"github.com/gin-gonic/gin"
)

// operatorIDKey holds the authenticated operator id in the gin context.
const operatorIDKey = "operatorId"

func (h *Handler) operatorIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	operatorId, err := h.services.ParseToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(operatorIDKey, operatorId)
	c.Request = c.Request.WithContext(service.WithOperator(c.Request.Context(), operatorId))
	c.Next()
}
