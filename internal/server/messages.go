package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type postMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

type reportMessageRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type listMessagesQuery struct {
	AfterSeq string `form:"after_seq"`
	Limit    string `form:"limit"`
}

func (s *Server) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	view, err := s.chat.PostMessage(c.Request.Context(), c.Param("id"), req.Content, req.Type)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": view})
}

func (s *Server) ListMessages(c *gin.Context) {
	var query listMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	var afterSeq int64
	if parsed, err := parseOptionalInt64(query.AfterSeq); err != nil {
		AbortWithError(c, errInvalidCursor)
		return
	} else if parsed != nil {
		afterSeq = *parsed
	}

	var limit int
	if parsed, err := parseOptionalInt(query.Limit); err != nil {
		AbortWithError(c, errInvalidLimit)
		return
	} else if parsed != nil {
		limit = *parsed
	}

	result, err := s.chat.ListMessages(c.Request.Context(), c.Param("id"), afterSeq, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        result.Messages,
		"next_cursor": result.NextCursor,
		"has_more":    result.HasMore,
	})
}

func (s *Server) EditMessage(c *gin.Context) {
	seq, ok := parseSeq(c.Param("seq"))
	if !ok {
		AbortWithError(c, errInvalidSeq)
		return
	}

	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	view, err := s.chat.EditMessage(c.Request.Context(), c.Param("id"), seq, req.Content)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) DeleteMessage(c *gin.Context) {
	seq, ok := parseSeq(c.Param("seq"))
	if !ok {
		AbortWithError(c, errInvalidSeq)
		return
	}

	view, err := s.chat.DeleteMessage(c.Request.Context(), c.Param("id"), seq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) ReportMessage(c *gin.Context) {
	seq, ok := parseSeq(c.Param("seq"))
	if !ok {
		AbortWithError(c, errInvalidSeq)
		return
	}

	var req reportMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	report, err := s.chat.ReportMessage(c.Request.Context(), c.Param("id"), seq, req.Reason, req.Description)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": report})
}
