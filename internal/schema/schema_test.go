package schema

import (
	"strings"
	"testing"

	"github.com/diewo77/interflow/internal/formdata"
)

func TestBaseValidationMessages(t *testing.T) {
	s, err := NewBuilder().Base().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	v := s.Validate(map[string]string{"title": "a", "description": "court"})
	if v["title"] != "Le titre doit contenir au moins 2 caractères" {
		t.Fatalf("title message: %q", v["title"])
	}
	if v["description"] != "La description doit contenir au moins 10 caractères" {
		t.Fatalf("description message: %q", v["description"])
	}
	v = s.Validate(map[string]string{"title": "ok", "description": "une description assez longue"})
	if !v.Empty() {
		t.Fatalf("expected no violations, got %#v", v)
	}
}

func TestMinLenCountsRunes(t *testing.T) {
	s, _ := NewBuilder().Base().Build()
	// 2 runes but 3 bytes: must pass the title constraint.
	v := s.Validate(map[string]string{"title": "éa", "description": "une description assez longue"})
	if _, bad := v["title"]; bad {
		t.Fatalf("rune-length title rejected: %#v", v)
	}
}

func TestPredefinedToggles(t *testing.T) {
	on := []Toggle{{Name: "type", Enabled: true}}
	s, _ := NewBuilder().Base().Predefined(on).Build()
	v := s.Validate(map[string]string{"title": "ok", "description": "une description assez longue"})
	if v["type"] != "Le type est requis" {
		t.Fatalf("enabled type must be required, got %#v", v)
	}

	off := []Toggle{{Name: "type", Enabled: false}}
	s, _ = NewBuilder().Base().Predefined(off).Build()
	v = s.Validate(map[string]string{"title": "ok", "description": "une description assez longue"})
	if !v.Empty() {
		t.Fatalf("disabled type must not be validated, got %#v", v)
	}
	if s.Has("type") {
		t.Fatal("disabled toggle leaked into schema")
	}
}

func TestCustomFieldValidation(t *testing.T) {
	fields := []formdata.CustomField{
		{Name: "serial", Label: "Numéro de série", Type: formdata.KindInput, Required: true},
		{Name: "notes", Label: "Notes", Type: formdata.KindTextarea},
		{Name: "etat", Label: "État", Type: formdata.KindSelect, Options: []string{"OK", "KO"}, Required: true},
	}
	s, err := NewBuilder().CustomFields(fields).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	v := s.Validate(map[string]string{})
	if v["serial"] != "Numéro de série est requis" {
		t.Fatalf("serial message: %q", v["serial"])
	}
	if v["etat"] != "État est requis" {
		t.Fatalf("etat message: %q", v["etat"])
	}
	if _, bad := v["notes"]; bad {
		t.Fatalf("optional field flagged: %#v", v)
	}
	v = s.Validate(map[string]string{"serial": "X", "etat": "Hors liste"})
	if !strings.Contains(v["etat"], "valeur non autorisée") {
		t.Fatalf("enum must reject values outside options, got %#v", v)
	}
}

func TestDuplicateNamesRejected(t *testing.T) {
	fields := []formdata.CustomField{
		{Name: "title", Label: "Titre bis", Type: formdata.KindInput},
	}
	_, err := NewBuilder().Base().CustomFields(fields).Build()
	if err == nil {
		t.Fatal("expected duplicate-name error")
	}
	if !strings.Contains(err.Error(), "noms de champs en double") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "title") {
		t.Fatalf("error must name the colliding field: %v", err)
	}
}

func TestCleanAppliesDefaultsAndDropsUnknown(t *testing.T) {
	s, _ := NewBuilder().Base().Build()
	out := s.Clean(map[string]string{"title": "ok", "ghost": "stale"})
	if _, present := out["ghost"]; present {
		t.Fatal("unknown field survived Clean")
	}
	if out["status"] != "En attente" {
		t.Fatalf("status default not applied: %#v", out)
	}
	out = s.Clean(map[string]string{"status": "En cours"})
	if out["status"] != "En cours" {
		t.Fatalf("explicit status overwritten by default: %#v", out)
	}
}
