package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "divvy/internal/errors"
	"divvy/internal/models"
	"divvy/internal/pagination"
)

// groupService handles group-related business logic.
type groupService struct {
	db *gorm.DB
}

// NewGroupService creates a new GroupServicer.
func NewGroupService(db *gorm.DB) GroupServicer {
	return &groupService{db: db}
}

// CreateGroup creates a group with the creator as its first member.
func (s *groupService) CreateGroup(creatorID, name, imageURL string) (*models.Group, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group name is required")
	}

	group := &models.Group{
		Name:      name,
		CreatedBy: creatorID,
		ImageURL:  imageURL,
	}
	err := s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Create(group).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member := &models.GroupMember{GroupID: group.ID, UserID: creatorID}
		if err := dbtx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getByID(group.ID)
}

// GetGroupByID retrieves a group the user is a member of.
func (s *groupService) GetGroupByID(userID, groupID string) (*models.Group, error) {
	if err := s.RequireMember(groupID, userID); err != nil {
		return nil, err
	}
	return s.getByID(groupID)
}

func (s *groupService) getByID(groupID string) (*models.Group, error) {
	var group models.Group
	err := s.db.Preload("Members.User").Where("id = ?", groupID).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGroupNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &group, nil
}

// GetUserGroups lists the groups the user belongs to, newest first.
func (s *groupService) GetUserGroups(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Group], error) {
	page.Defaults()
	query := s.db.Model(&models.Group{}).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var groups []models.Group
	err := query.Preload("Members.User").
		Order("groups.created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&groups).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	resp := pagination.NewPageResponse(groups, page.Page, page.PageSize, total)
	return &resp, nil
}

// AddMember adds a user to a group. Only existing members may add others.
func (s *groupService) AddMember(callerID, groupID, userID string) (*models.GroupMember, error) {
	if err := s.RequireMember(groupID, callerID); err != nil {
		return nil, err
	}

	var count int64
	s.db.Model(&models.User{}).Where("id = ? AND is_active = ?", userID, true).Count(&count)
	if count == 0 {
		return nil, apperrors.ErrUserNotFound
	}

	s.db.Model(&models.GroupMember{}).Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateMember
	}

	member := &models.GroupMember{GroupID: groupID, UserID: userID}
	if err := s.db.Create(member).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return member, nil
}

// RequireMember returns ErrGroupNotFound for an unknown group and
// ErrNotGroupMember when the user does not belong to it.
func (s *groupService) RequireMember(groupID, userID string) error {
	var count int64
	if err := s.db.Model(&models.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrGroupNotFound
	}
	if err := s.db.Model(&models.GroupMember{}).Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrNotGroupMember
	}
	return nil
}
