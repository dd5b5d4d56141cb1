package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	group, err := s.chat.CreateGroup(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": group})
}

func (s *Server) ListGroups(c *gin.Context) {
	groups, err := s.chat.ListGroupsForUser(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": groups})
}

func (s *Server) DiscoverGroups(c *gin.Context) {
	groups, err := s.chat.DiscoverGroups(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": groups})
}

func (s *Server) GetGroup(c *gin.Context) {
	details, err := s.chat.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": details})
}

func (s *Server) UpdateGroup(c *gin.Context) {
	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	group, err := s.chat.UpdateGroup(c.Request.Context(), c.Param("id"), req.Name, req.Description)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": group})
}

func (s *Server) DeactivateGroup(c *gin.Context) {
	if err := s.chat.DeactivateGroup(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) JoinGroup(c *gin.Context) {
	membership, err := s.chat.JoinGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": membership})
}

func (s *Server) LeaveGroup(c *gin.Context) {
	result, err := s.chat.LeaveGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"group_deactivated": result.GroupDeactivated}})
}

func (s *Server) ListMembers(c *gin.Context) {
	members, err := s.chat.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (s *Server) SetMemberRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	membership, err := s.chat.SetRole(c.Request.Context(), c.Param("id"), c.Param("userId"), req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": membership})
}
