package services

import (
	"errors"
	"strings"
	"time"

	"github.com/diewo77/interflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrGrantInvalid = errors.New("grant_invalid")

// GrantTTL bounds how long a visitor can keep filling a form after
// identifying. Grants are never revoked through the UI, they just lapse.
const GrantTTL = 24 * time.Hour

// AccessService issues and verifies intervention-form access grants.
type AccessService struct{ DB *gorm.DB }

func NewAccessService(db *gorm.DB) *AccessService { return &AccessService{DB: db} }

// Grant records that the visitor identified against the given ticket and
// returns the grant whose token goes into the signed cookie.
func (s *AccessService) Grant(ticket *models.Ticket, firstName, lastName, companyName string) (*models.AccessGrant, error) {
	now := time.Now().UTC()
	g := models.AccessGrant{
		Token:       strings.ReplaceAll(uuid.NewString(), "-", ""),
		TicketID:    ticket.ID,
		FirstName:   firstName,
		LastName:    lastName,
		CompanyName: companyName,
		AccessedAt:  now,
		ExpiresAt:   now.Add(GrantTTL),
	}
	if err := s.DB.Create(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// Verify resolves a cookie token to a live grant. Unknown and expired tokens
// are indistinguishable to the caller.
func (s *AccessService) Verify(token string) (*models.AccessGrant, error) {
	if token == "" {
		return nil, ErrGrantInvalid
	}
	var g models.AccessGrant
	if err := s.DB.Where("token = ?", token).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGrantInvalid
		}
		return nil, err
	}
	if g.Expired(time.Now().UTC()) {
		return nil, ErrGrantInvalid
	}
	return &g, nil
}
