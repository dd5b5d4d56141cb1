package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type listAuditLogsQuery struct {
	Limit string `form:"limit"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	var limit int
	if parsed, err := parseOptionalInt(query.Limit); err != nil {
		AbortWithError(c, errInvalidLimit)
		return
	} else if parsed != nil {
		limit = *parsed
	}

	logs, err := s.chat.ListAuditLog(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}
