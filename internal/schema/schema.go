// Package schema derives the validation contract for the ticket-authoring
// form from three sources: the fixed base fields, the enabled predefined
// fields, and the user-defined custom fields. The result is evaluated once
// per configuration change, never during validation itself.
package schema

import (
	"fmt"
	"strings"

	"github.com/diewo77/interflow/internal/formdata"
	"github.com/diewo77/interflow/validation"
)

// Kind is the constraint family of a field spec.
type Kind int

const (
	RequiredString Kind = iota
	OptionalString
	Enum
)

// FieldSpec is one entry of the derived schema.
type FieldSpec struct {
	Name     string
	Label    string
	Kind     Kind
	MinLen   int      // only meaningful for RequiredString
	Options  []string // only meaningful for Enum
	Required bool     // for Enum: whether a value must be chosen
	Message  string   // violation text when the constraint fails
	Default  string
}

// Toggle enables one of the predefined ticket fields.
type Toggle struct {
	Name    string // "type" | "priority" | "assigned_to"
	Enabled bool
}

// DefaultToggles enables every predefined field, matching the authoring page.
func DefaultToggles() []Toggle {
	return []Toggle{{Name: "type", Enabled: true}, {Name: "priority", Enabled: true}, {Name: "assigned_to", Enabled: true}}
}

// Schema is the compiled validation contract.
type Schema struct {
	specs  []FieldSpec
	byName map[string]FieldSpec
}

type Builder struct {
	specs []FieldSpec
	dupes []string
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) add(s FieldSpec) *Builder {
	for _, existing := range b.specs {
		if existing.Name == s.Name {
			b.dupes = append(b.dupes, s.Name)
			return b
		}
	}
	b.specs = append(b.specs, s)
	return b
}

// Base adds the fixed fields every ticket carries.
func (b *Builder) Base() *Builder {
	b.add(FieldSpec{Name: "title", Label: "Titre", Kind: RequiredString, MinLen: 2,
		Message: "Le titre doit contenir au moins 2 caractères"})
	b.add(FieldSpec{Name: "description", Label: "Description", Kind: RequiredString, MinLen: 10,
		Message: "La description doit contenir au moins 10 caractères"})
	b.add(FieldSpec{Name: "status", Label: "Statut", Kind: OptionalString, Default: "En attente"})
	return b
}

// Predefined adds the enabled toggles. Type is required when enabled;
// priority and assigned_to stay optional.
func (b *Builder) Predefined(toggles []Toggle) *Builder {
	for _, t := range toggles {
		if !t.Enabled {
			continue
		}
		switch t.Name {
		case "type":
			b.add(FieldSpec{Name: "type", Label: "Type", Kind: RequiredString, MinLen: 1, Message: "Le type est requis"})
		case "priority":
			b.add(FieldSpec{Name: "priority", Label: "Priorité", Kind: OptionalString})
		case "assigned_to":
			b.add(FieldSpec{Name: "assigned_to", Label: "Technicien assigné", Kind: OptionalString})
		}
	}
	return b
}

// CustomFields adds the user-defined field descriptors.
func (b *Builder) CustomFields(fields []formdata.CustomField) *Builder {
	for _, f := range fields {
		spec := FieldSpec{Name: f.Name, Label: f.Label, Default: f.DefaultValue}
		switch {
		case f.Type == formdata.KindSelect:
			spec.Kind = Enum
			spec.Options = f.Options
			spec.Required = f.Required
			spec.Message = fmt.Sprintf("%s est requis", f.Label)
		case f.Required:
			spec.Kind = RequiredString
			spec.MinLen = 1
			spec.Message = fmt.Sprintf("%s est requis", f.Label)
		default:
			spec.Kind = OptionalString
		}
		b.add(spec)
	}
	return b
}

// Build compiles the schema. Colliding field names are an error: silently
// overwriting one constraint with another hides a required field from
// validation entirely.
func (b *Builder) Build() (*Schema, error) {
	if len(b.dupes) > 0 {
		return nil, fmt.Errorf("noms de champs en double: %s", strings.Join(b.dupes, ", "))
	}
	s := &Schema{specs: b.specs, byName: make(map[string]FieldSpec, len(b.specs))}
	for _, spec := range b.specs {
		s.byName[spec.Name] = spec
	}
	return s, nil
}

// Validate checks the submitted values against the schema. Violation values
// are user-facing messages, already naming the field's label.
func (s *Schema) Validate(values map[string]string) validation.Violations {
	v := validation.Violations{}
	for _, spec := range s.specs {
		val := values[spec.Name]
		inner := validation.Violations{}
		switch spec.Kind {
		case RequiredString:
			validation.MinLen(spec.Name, val, spec.MinLen, inner)
			if !inner.Empty() {
				v[spec.Name] = spec.Message
			}
		case Enum:
			validation.Required(spec.Name, val, inner)
			if !inner.Empty() {
				if spec.Required {
					v[spec.Name] = spec.Message
				}
				continue
			}
			validation.OneOf(spec.Name, val, spec.Options, inner)
			if !inner.Empty() {
				v[spec.Name] = fmt.Sprintf("%s: valeur non autorisée", spec.Label)
			}
		case OptionalString:
			// no constraint
		}
	}
	return v
}

// Clean returns a copy of values restricted to schema fields, with defaults
// applied for absent entries that declare one. In-flight values for fields
// that were disabled or removed must not survive a rebuild.
func (s *Schema) Clean(values map[string]string) map[string]string {
	out := make(map[string]string, len(s.specs))
	for _, spec := range s.specs {
		if val, ok := values[spec.Name]; ok && val != "" {
			out[spec.Name] = val
		} else if spec.Default != "" {
			out[spec.Name] = spec.Default
		}
	}
	return out
}

// Has reports whether the schema defines a field with that name.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Fields returns the compiled specs in declaration order.
func (s *Schema) Fields() []FieldSpec { return s.specs }
