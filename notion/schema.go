package notion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-qrsync/core"
)

// PropertySchema names the database properties that carry the identifiers
// and the artifact.
type PropertySchema struct {
	IDProperty       string
	UUIDProperty     string
	ArtifactProperty string
}

func NewPropertySchema(cfg core.PropertyConfig) PropertySchema {
	return PropertySchema{
		IDProperty:       strings.TrimSpace(cfg.ID),
		UUIDProperty:     strings.TrimSpace(cfg.UUID),
		ArtifactProperty: strings.TrimSpace(cfg.Artifact),
	}
}

// Reference maps a page to a record reference. A missing identifier is a
// data error naming the absent property.
func (s PropertySchema) Reference(page Page) (core.RecordReference, error) {
	ref := core.RecordReference{
		RecordID:    strings.TrimSpace(page.ID),
		ExternalKey: s.ExternalKey(page),
		StableUUID:  s.StableUUID(page),
	}
	var missing []string
	if ref.ExternalKey == "" {
		missing = append(missing, fmt.Sprintf("%q", s.IDProperty))
	}
	if ref.StableUUID == "" {
		missing = append(missing, fmt.Sprintf("%q", s.UUIDProperty))
	}
	if len(missing) > 0 {
		err := core.NewDataError(ref.RecordID, "notion: page has no value for property "+strings.Join(missing, ", "))
		err.ExternalKey = ref.ExternalKey
		return ref, err
	}
	if err := ref.Validate(); err != nil {
		return ref, err
	}
	return ref, nil
}

// ExternalKey reads the composite identifier. unique_id renders as
// PREFIX-NUMBER; text, formula and number properties are read as text.
func (s PropertySchema) ExternalKey(page Page) string {
	prop, ok := page.Properties[s.IDProperty]
	if !ok {
		return ""
	}
	switch prop.Type {
	case PropertyTypeUniqueID:
		return prop.UniqueID.String()
	case PropertyTypeTitle:
		return plainText(prop.Title)
	case PropertyTypeRichText:
		return plainText(prop.RichText)
	case PropertyTypeFormula:
		return formulaText(prop.Formula)
	case PropertyTypeNumber:
		return numberText(prop.Number)
	default:
		return ""
	}
}

func (s PropertySchema) StableUUID(page Page) string {
	prop, ok := page.Properties[s.UUIDProperty]
	if !ok {
		return ""
	}
	switch prop.Type {
	case PropertyTypeFormula:
		return formulaText(prop.Formula)
	case PropertyTypeRichText:
		return plainText(prop.RichText)
	case PropertyTypeTitle:
		return plainText(prop.Title)
	default:
		return ""
	}
}

// HasArtifact reports whether the artifact property already references a file.
func (s PropertySchema) HasArtifact(page Page) bool {
	prop, ok := page.Properties[s.ArtifactProperty]
	return ok && len(prop.Files) > 0
}

func formulaText(formula *Formula) string {
	if formula == nil {
		return ""
	}
	if formula.String != nil {
		return strings.TrimSpace(*formula.String)
	}
	return numberText(formula.Number)
}

func numberText(number *float64) string {
	if number == nil {
		return ""
	}
	return strconv.FormatFloat(*number, 'f', -1, 64)
}
