// Package pdf renders the intervention summary document: the ticket's core
// attributes, its dynamic field/value pairs, the description, and the
// submission identity once the form has been completed.
package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Placeholder strings for missing data.
const (
	notProvided   = "Non renseigné"
	notAssigned   = "Non assigné"
	noDescription = "Aucune description fournie."
)

var (
	headerFill = props.Color{Red: 93, Green: 93, Blue: 134}
	stripeFill = props.Color{Red: 240, Green: 240, Blue: 245}
	white      = props.Color{Red: 255, Green: 255, Blue: 255}
)

// FieldValue is one dynamic field/value pair, already resolved against the
// ticket's value map.
type FieldValue struct {
	Label string
	Value string
}

// InterventionData is everything the document needs, flattened by the caller.
type InterventionData struct {
	ShortRef    string
	Date        string
	Title       string
	Type        string
	Status      string
	AssignedTo  string
	Fields      []FieldValue
	Description string
	Submitted   bool
	Submitter   string
	Company     string
	SubmittedAt string
}

// InterventionPDF renders the stacked-table document. Sections flow
// top-to-bottom; maroto measures each row so every table starts where the
// previous one ended.
func InterventionPDF(data InterventionData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(14).
		WithRightMargin(14).
		WithTopMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12, text.NewCol(12, fmt.Sprintf("Intervention #%s", data.ShortRef),
		props.Text{Size: 18, Style: fontstyle.Bold}))
	m.AddRow(6, text.NewCol(12, fmt.Sprintf("Date: %s", data.Date), props.Text{Size: 9}))

	m.AddRow(10, sectionTitle("Informations générales"))
	m.AddRows(kvTable([]FieldValue{
		{Label: "Titre", Value: data.Title},
		{Label: "Type", Value: data.Type},
		{Label: "Statut", Value: data.Status},
		{Label: "Technicien", Value: orElse(data.AssignedTo, notAssigned)},
	})...)

	if len(data.Fields) > 0 {
		rows := make([]FieldValue, 0, len(data.Fields))
		for _, f := range data.Fields {
			rows = append(rows, FieldValue{Label: f.Label, Value: orElse(f.Value, notProvided)})
		}
		m.AddRow(10, sectionTitle("Champs spécifiques"))
		m.AddRows(kvTable(rows)...)
	}

	m.AddRow(10, sectionTitle("Description"))
	m.AddRow(8, text.NewCol(12, orElse(data.Description, noDescription), props.Text{Size: 10}))

	if data.Submitted {
		m.AddRow(10, sectionTitle("Informations de soumission"))
		m.AddRows(plainTable([]FieldValue{
			{Label: "Nom", Value: data.Submitter},
			{Label: "Entreprise", Value: data.Company},
			{Label: "Date de soumission", Value: data.SubmittedAt},
		})...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func sectionTitle(label string) core.Col {
	return text.NewCol(12, label, props.Text{Size: 12, Style: fontstyle.Bold, Top: 3})
}

// kvTable renders a striped two-column table with a colored header row.
func kvTable(pairs []FieldValue) []core.Row {
	rows := []core.Row{
		row.New(7).Add(
			text.NewCol(4, "Champ", props.Text{Style: fontstyle.Bold, Color: &white, Left: 2, Top: 1.5}),
			text.NewCol(8, "Valeur", props.Text{Style: fontstyle.Bold, Color: &white, Left: 2, Top: 1.5}),
		).WithStyle(&props.Cell{BackgroundColor: &headerFill}),
	}
	rows = append(rows, plainTable(pairs)...)
	return rows
}

func plainTable(pairs []FieldValue) []core.Row {
	rows := make([]core.Row, 0, len(pairs))
	for i, p := range pairs {
		r := row.New(7).Add(
			text.NewCol(4, p.Label, props.Text{Style: fontstyle.Bold, Size: 10, Left: 2, Top: 1.5}),
			text.NewCol(8, p.Value, props.Text{Size: 10, Left: 2, Top: 1.5}),
		)
		if i%2 == 0 {
			r.WithStyle(&props.Cell{BackgroundColor: &stripeFill})
		}
		rows = append(rows, r)
	}
	return rows
}

func orElse(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
