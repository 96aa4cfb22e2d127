package services

import (
	"errors"
	"strings"

	"github.com/diewo77/interflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrGroupNotFound = errors.New("group_not_found")
	ErrGroupIDTaken  = errors.New("group_id_taken")
)

// GroupService manages the organizational tags tickets can reference.
type GroupService struct{ DB *gorm.DB }

func NewGroupService(db *gorm.DB) *GroupService { return &GroupService{DB: db} }

// GroupWithCount pairs a group with its ticket count for list views.
type GroupWithCount struct {
	models.Group
	TicketCount int64
}

// NewCode produces an 8-char uppercase group code.
func NewCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Create persists a group. The code may be user-supplied; when empty one is
// generated. A taken code surfaces as ErrGroupIDTaken even when two creates
// race: the insert itself is the uniqueness check, not a prior read.
func (s *GroupService) Create(id, name string) (*models.Group, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		id = NewCode()
	}
	g := models.Group{ID: id, Name: name}
	if err := s.DB.Create(&g).Error; err != nil {
		var existing models.Group
		if lookupErr := s.DB.Where("id = ?", id).First(&existing).Error; lookupErr == nil {
			return nil, ErrGroupIDTaken
		}
		return nil, err
	}
	return &g, nil
}

// List returns all groups with their ticket counts, oldest first.
func (s *GroupService) List() ([]GroupWithCount, error) {
	var groups []models.Group
	if err := s.DB.Order("created_at asc").Find(&groups).Error; err != nil {
		return nil, err
	}
	out := make([]GroupWithCount, 0, len(groups))
	for _, g := range groups {
		var count int64
		if err := s.DB.Model(&models.Ticket{}).Where("group_id = ?", g.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		out = append(out, GroupWithCount{Group: g, TicketCount: count})
	}
	return out, nil
}

// Rename changes a group's display name.
func (s *GroupService) Rename(id, name string) (*models.Group, error) {
	var g models.Group
	if err := s.DB.Where("id = ?", id).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	g.Name = name
	if err := s.DB.Save(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// Delete removes a group and detaches its tickets, so no ticket keeps a
// dangling group reference.
func (s *GroupService) Delete(id string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Ticket{}).Where("group_id = ?", id).Update("group_id", "").Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Group{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGroupNotFound
		}
		return nil
	})
}
