// Package formdata implements the serialized form definition embedded in a
// ticket's form_data column: the custom field descriptors, the submitted
// values, and the submission state.
package formdata

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Field kinds as stored on the wire.
const (
	KindInput    = "input"
	KindTextarea = "textarea"
	KindSelect   = "select"
)

// CustomField describes one dynamic form field defined by the ticket author.
type CustomField struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"` // input | textarea | select
	Name         string   `json:"name"`
	Label        string   `json:"label"`
	Required     bool     `json:"required"`
	Options      []string `json:"options,omitempty"`
	DefaultValue string   `json:"defaultValue,omitempty"`
}

// Submitter identifies the technician/client who completed the form.
type Submitter struct {
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	CompanyName string    `json:"companyName"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Document is the decoded form_data blob.
type Document struct {
	CustomFields []CustomField     `json:"customFields"`
	Values       map[string]string `json:"values"`
	Submitted    bool              `json:"submitted"`
	SubmittedBy  *Submitter        `json:"submittedBy,omitempty"`
}

// Empty returns a blank document with a usable value map.
func Empty() Document {
	return Document{CustomFields: []CustomField{}, Values: map[string]string{}}
}

// wireField tolerates legacy blobs: older revisions stored the default under
// "value" and sometimes omitted "id".
type wireField struct {
	CustomField
	LegacyValue string `json:"value"`
}

type wireDocument struct {
	CustomFields []wireField       `json:"customFields"`
	Values       map[string]string `json:"values"`
	Submitted    bool              `json:"submitted"`
	SubmittedBy  *Submitter        `json:"submittedBy"`
}

// Parse decodes a form_data blob. Callers that must not fail on bad data
// should use Rehydrate instead.
func Parse(raw string) (Document, error) {
	var wire wireDocument
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Empty(), err
	}
	doc := Document{
		CustomFields: make([]CustomField, 0, len(wire.CustomFields)),
		Values:       wire.Values,
		Submitted:    wire.Submitted,
		SubmittedBy:  wire.SubmittedBy,
	}
	for _, f := range wire.CustomFields {
		cf := f.CustomField
		if cf.ID == "" {
			cf.ID = cf.Name
		}
		if cf.DefaultValue == "" {
			cf.DefaultValue = f.LegacyValue
		}
		doc.CustomFields = append(doc.CustomFields, cf)
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}
	return doc, nil
}

// Rehydrate reconstructs form state from a ticket's form_data. The contract
// is fail-soft: an empty or malformed blob yields an empty document and is
// only logged, never surfaced to the caller.
func Rehydrate(log zerolog.Logger, raw string) Document {
	if raw == "" {
		return Empty()
	}
	doc, err := Parse(raw)
	if err != nil {
		log.Warn().Err(err).Msg("form_data illisible, formulaire vide")
		return Empty()
	}
	return doc
}

// Marshal serializes a document back to the wire format.
func Marshal(doc Document) (string, error) {
	if doc.CustomFields == nil {
		doc.CustomFields = []CustomField{}
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
