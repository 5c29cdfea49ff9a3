package companies

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldType is the closed set of dynamic field kinds.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldDate      FieldType = "date"
	FieldNumber    FieldType = "number"
	FieldSelect    FieldType = "select"
	FieldMultiline FieldType = "multiline"
	FieldBoolean   FieldType = "boolean"
)

// DateLayout is the wire format for date fields.
const DateLayout = "2006-01-02"

type fieldSpec struct {
	input    string
	validate func(def FieldDef, raw string) error
}

// fieldSpecs is the dispatch table every field kind goes through.
var fieldSpecs = map[FieldType]fieldSpec{
	FieldText:      {input: "text", validate: validateAny},
	FieldMultiline: {input: "textarea", validate: validateAny},
	FieldDate: {input: "date", validate: func(_ FieldDef, raw string) error {
		if _, err := time.Parse(DateLayout, raw); err != nil {
			return fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
		return nil
	}},
	FieldNumber: {input: "number", validate: func(_ FieldDef, raw string) error {
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Errorf("must be a number")
		}
		return nil
	}},
	FieldSelect: {input: "select", validate: func(def FieldDef, raw string) error {
		for _, opt := range def.Options {
			if opt == raw {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(def.Options, ", "))
	}},
	FieldBoolean: {input: "checkbox", validate: func(_ FieldDef, raw string) error {
		if _, err := strconv.ParseBool(raw); err != nil {
			return fmt.Errorf("must be true or false")
		}
		return nil
	}},
}

func validateAny(FieldDef, string) error { return nil }

// Valid reports whether t is a known field kind.
func (t FieldType) Valid() bool {
	_, ok := fieldSpecs[t]
	return ok
}

// Input names the form widget used to edit the field.
func (t FieldType) Input() string {
	return fieldSpecs[t].input
}

// Check validates the definition itself.
func (d FieldDef) Check() error {
	if strings.TrimSpace(d.Key) == "" {
		return fmt.Errorf("field key is required")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("field %s: unknown type %q", d.Key, d.Type)
	}
	if d.Type == FieldSelect && len(d.Options) == 0 {
		return fmt.Errorf("field %s: select requires options", d.Key)
	}
	return nil
}

// Validate checks one submitted value against the definition.
func (d FieldDef) Validate(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if d.Required {
			return fmt.Errorf("is required")
		}
		return nil
	}
	spec, ok := fieldSpecs[d.Type]
	if !ok {
		return fmt.Errorf("unknown type %q", d.Type)
	}
	return spec.validate(d, raw)
}

// ValidateValues checks values against defs and returns per-key messages.
func ValidateValues(defs []FieldDef, values map[string]string) map[string]string {
	problems := map[string]string{}
	for _, def := range defs {
		if err := def.Validate(values[def.Key]); err != nil {
			problems[def.Key] = err.Error()
		}
	}
	return problems
}
