package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "divvy/internal/errors"
	"divvy/internal/pagination"
	"divvy/internal/services"
)

// GroupHandler handles group-related requests
type GroupHandler struct {
	groupService services.GroupServicer
	audit        services.AuditServicer
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupService services.GroupServicer, audit services.AuditServicer) *GroupHandler {
	return &GroupHandler{groupService: groupService, audit: audit}
}

// CreateGroupRequest represents the group creation payload
type CreateGroupRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	ImageURL string `json:"image_url" binding:"omitempty,url,max=512"`
}

// AddMemberRequest represents the member addition payload
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// CreateGroup creates a new group
// @Summary     Create a group
// @Description Create a group with the authenticated user as its first member
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGroupRequest true "Group data"
// @Success     201 {object} models.Group "Created group"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	group, err := h.groupService.CreateGroup(userID, req.Name, req.ImageURL)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "create", "group", group.ID, c.ClientIP(), map[string]interface{}{"name": group.Name})

	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// GetGroup returns one group
// @Summary     Get a group
// @Description Get a group the authenticated user belongs to
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Success     200 {object} models.Group "Group with members"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Router      /groups/{id} [get]
func (h *GroupHandler) GetGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.GetGroupByID(userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// ListGroups returns the user's groups
// @Summary     List groups
// @Description List the groups the authenticated user belongs to
// @Tags        groups
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Group] "Groups"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /groups [get]
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	groups, err := h.groupService.GetUserGroups(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

// AddMember adds a user to a group
// @Summary     Add a group member
// @Description Add a user to a group the authenticated user belongs to
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Group ID"
// @Param       request body AddMemberRequest true "Member data"
// @Success     201 {object} models.GroupMember "Added member"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Group or user not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /groups/{id}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.groupService.AddMember(userID, groupID, req.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "add_member", "group", groupID, c.ClientIP(), map[string]interface{}{"user_id": req.UserID})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}
