package services

import (
	"errors"
	"strings"
	"time"

	"github.com/diewo77/interflow/internal/formdata"
	"github.com/diewo77/interflow/internal/models"
	"github.com/diewo77/interflow/internal/schema"
	"github.com/diewo77/interflow/validation"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	ErrTicketNotFound = errors.New("ticket_not_found")
	ErrRefTooShort    = errors.New("ref_too_short")
	ErrNotOwner       = errors.New("not_owner")
)

// Visitors must supply at least this many characters of the identifier.
const MinPartialRefLen = 8

// TicketService encapsulates ticket business logic: authoring validation via
// the dynamic schema, partial-identifier lookup, and the technician
// submission flow.
type TicketService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

func NewTicketService(db *gorm.DB, log zerolog.Logger) *TicketService {
	return &TicketService{DB: db, Log: log}
}

// CreateInput carries the authoring form. Predefined toggles default to the
// fields the client actually sent; CustomFields/Values come from the dynamic
// form builder.
type CreateInput struct {
	Title        string
	Description  string
	Type         string
	Priority     string
	AssignedTo   string
	Status       string
	GroupID      string
	CreatedBy    uint
	Predefined   []schema.Toggle
	CustomFields []formdata.CustomField
	Values       map[string]string
}

func (in *CreateInput) baseValues() map[string]string {
	return map[string]string{
		"title":       in.Title,
		"description": in.Description,
		"type":        in.Type,
		"priority":    in.Priority,
		"assigned_to": in.AssignedTo,
		"status":      in.Status,
	}
}

// buildSchema derives the validation schema for this input configuration.
func buildSchema(in *CreateInput) (*schema.Schema, validation.Violations) {
	toggles := in.Predefined
	if toggles == nil {
		toggles = schema.DefaultToggles()
	}
	s, err := schema.NewBuilder().Base().Predefined(toggles).CustomFields(in.CustomFields).Build()
	if err != nil {
		return nil, validation.Violations{"customFields": err.Error()}
	}
	return s, nil
}

// Create validates the input against the derived schema and persists the
// ticket with its serialized form definition.
func (s *TicketService) Create(in CreateInput) (*models.Ticket, validation.Violations, error) {
	sch, v := buildSchema(&in)
	if v != nil {
		return nil, v, nil
	}
	values := in.baseValues()
	for k, val := range in.Values {
		values[k] = val
	}
	if violations := sch.Validate(values); !violations.Empty() {
		return nil, violations, nil
	}
	// Drop in-flight values for fields no longer in the schema before
	// anything is persisted under a stale key.
	clean := sch.Clean(values)

	customValues := map[string]string{}
	for _, f := range in.CustomFields {
		if val, ok := clean[f.Name]; ok {
			customValues[f.Name] = val
		}
	}
	blob, err := formdata.Marshal(formdata.Document{CustomFields: in.CustomFields, Values: customValues})
	if err != nil {
		return nil, nil, err
	}

	t := models.Ticket{
		Title:       in.Title,
		Description: in.Description,
		Status:      clean["status"],
		Type:        clean["type"],
		Priority:    clean["priority"],
		AssignedTo:  clean["assigned_to"],
		GroupID:     in.GroupID,
		CreatedBy:   in.CreatedBy,
		FormData:    blob,
	}
	if t.Type == "" {
		t.Type = models.DefaultType
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if err := s.DB.Create(&t).Error; err != nil {
		return nil, nil, err
	}
	return &t, nil, nil
}

// List returns tickets ordered by creation time descending, optionally
// filtered by group, with the total for pagination.
func (s *TicketService) List(groupID string, limit, offset int) ([]models.Ticket, int64, error) {
	q := s.DB.Model(&models.Ticket{})
	if groupID != "" {
		q = q.Where("group_id = ?", groupID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tickets []models.Ticket
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&tickets).Error; err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// Get loads one ticket by full identifier.
func (s *TicketService) Get(id string) (*models.Ticket, error) {
	var t models.Ticket
	if err := s.DB.Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// escapeLike neutralizes the LIKE metacharacters in a visitor-supplied
// string. Without this, eight underscores match any identifier.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// FindByPartialRef resolves a visitor-supplied identifier. A full 36-char
// identifier matches exactly; 8..35 characters match as a prefix, first row
// in creation order winning; anything shorter is refused before any query.
func (s *TicketService) FindByPartialRef(ref string) (*models.Ticket, error) {
	if len(ref) < MinPartialRefLen {
		return nil, ErrRefTooShort
	}
	var t models.Ticket
	q := s.DB.Order("created_at asc")
	if len(ref) == 36 {
		q = q.Where("id = ?", ref)
	} else {
		q = q.Where(`id LIKE ? ESCAPE '\'`, escapeLike(ref)+"%")
	}
	if err := q.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// UpdateInput is a partial update: nil pointers leave the column untouched.
type UpdateInput struct {
	Title        *string
	Description  *string
	Status       *string
	Type         *string
	Priority     *string
	AssignedTo   *string
	GroupID      *string
	CustomFields []formdata.CustomField
	Values       map[string]string
}

// ownedBy enforces the creator-only mutation rule: only the user who
// authored a ticket may change or remove it.
func ownedBy(t *models.Ticket, uid uint) error {
	if t.CreatedBy != uid {
		return ErrNotOwner
	}
	return nil
}

// Update applies a partial update from the ticket owner. When the field list
// is provided the form definition is re-serialized, preserving the
// submission state already recorded on the ticket.
func (s *TicketService) Update(id string, uid uint, in UpdateInput) (*models.Ticket, validation.Violations, error) {
	t, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if err := ownedBy(t, uid); err != nil {
		return nil, nil, err
	}
	updates := map[string]any{}
	set := func(col string, p *string) {
		if p != nil {
			updates[col] = *p
		}
	}
	set("title", in.Title)
	set("description", in.Description)
	set("status", in.Status)
	set("type", in.Type)
	set("priority", in.Priority)
	set("assigned_to", in.AssignedTo)
	set("group_id", in.GroupID)

	if in.CustomFields != nil {
		if _, err := schema.NewBuilder().Base().Predefined(schema.DefaultToggles()).CustomFields(in.CustomFields).Build(); err != nil {
			return nil, validation.Violations{"customFields": err.Error()}, nil
		}
		doc := formdata.Rehydrate(s.Log, t.FormData)
		doc.CustomFields = in.CustomFields
		if in.Values != nil {
			doc.Values = in.Values
		}
		blob, merr := formdata.Marshal(doc)
		if merr != nil {
			return nil, nil, merr
		}
		updates["form_data"] = blob
	}
	if len(updates) == 0 {
		return t, nil, nil
	}
	if err := s.DB.Model(t).Updates(updates).Error; err != nil {
		return nil, nil, err
	}
	updated, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	return updated, nil, nil
}

// Delete removes the caller's ticket permanently. There is no soft delete
// or audit trail on tickets.
func (s *TicketService) Delete(id string, uid uint) error {
	t, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := ownedBy(t, uid); err != nil {
		return err
	}
	res := s.DB.Where("id = ?", id).Delete(&models.Ticket{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// RecordAccess transitions a ticket to "En cours" on first technician
// access, unless the work is already finished.
func (s *TicketService) RecordAccess(t *models.Ticket) error {
	if t.Status == models.StatusDone || t.Status == models.StatusInProgress {
		return nil
	}
	if err := s.DB.Model(t).Update("status", models.StatusInProgress).Error; err != nil {
		return err
	}
	t.Status = models.StatusInProgress
	return nil
}

// Submit records the technician's values, marks the form submitted and
// closes the ticket. Required custom fields must be filled.
func (s *TicketService) Submit(id string, values map[string]string, grant *models.AccessGrant) (*models.Ticket, validation.Violations, error) {
	t, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	doc := formdata.Rehydrate(s.Log, t.FormData)
	if doc.Submitted {
		return t, nil, nil
	}
	sch, err := schema.NewBuilder().CustomFields(doc.CustomFields).Build()
	if err == nil {
		if violations := sch.Validate(values); !violations.Empty() {
			return nil, violations, nil
		}
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}
	for _, f := range doc.CustomFields {
		if val, ok := values[f.Name]; ok {
			doc.Values[f.Name] = val
		}
	}
	doc.Submitted = true
	doc.SubmittedBy = &formdata.Submitter{
		FirstName:   grant.FirstName,
		LastName:    grant.LastName,
		CompanyName: grant.CompanyName,
		SubmittedAt: time.Now().UTC(),
	}
	blob, merr := formdata.Marshal(doc)
	if merr != nil {
		return nil, nil, merr
	}
	if err := s.DB.Model(t).Updates(map[string]any{"form_data": blob, "status": models.StatusDone}).Error; err != nil {
		return nil, nil, err
	}
	t.FormData = blob
	t.Status = models.StatusDone
	return t, nil, nil
}
