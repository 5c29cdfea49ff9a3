package companies

import "testing"

func TestFieldValidateDispatch(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		def     FieldDef
		raw     string
		wantErr bool
	}{
		{name: "text anything", def: FieldDef{Key: "k", Type: FieldText}, raw: "ABC-123"},
		{name: "multiline anything", def: FieldDef{Key: "k", Type: FieldMultiline}, raw: "line1\nline2"},
		{name: "date ok", def: FieldDef{Key: "k", Type: FieldDate}, raw: "2027-02-28"},
		{name: "date bad", def: FieldDef{Key: "k", Type: FieldDate}, raw: "28/02/2027", wantErr: true},
		{name: "number ok", def: FieldDef{Key: "k", Type: FieldNumber}, raw: "12.5"},
		{name: "number bad", def: FieldDef{Key: "k", Type: FieldNumber}, raw: "twelve", wantErr: true},
		{name: "select ok", def: FieldDef{Key: "k", Type: FieldSelect, Options: []string{"A", "B"}}, raw: "B"},
		{name: "select bad", def: FieldDef{Key: "k", Type: FieldSelect, Options: []string{"A", "B"}}, raw: "C", wantErr: true},
		{name: "boolean ok", def: FieldDef{Key: "k", Type: FieldBoolean}, raw: "true"},
		{name: "boolean bad", def: FieldDef{Key: "k", Type: FieldBoolean}, raw: "maybe", wantErr: true},
		{name: "required empty", def: FieldDef{Key: "k", Type: FieldText, Required: true}, raw: "  ", wantErr: true},
		{name: "optional empty", def: FieldDef{Key: "k", Type: FieldDate}, raw: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.def.Validate(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestEveryFieldTypeHasInput(t *testing.T) {
	for _, ft := range []FieldType{FieldText, FieldDate, FieldNumber, FieldSelect, FieldMultiline, FieldBoolean} {
		if !ft.Valid() || ft.Input() == "" {
			t.Fatalf("field type %s missing from dispatch table", ft)
		}
	}
	if FieldType("color").Valid() {
		t.Fatalf("expected unknown type to be invalid")
	}
}

func TestFieldDefCheck(t *testing.T) {
	if err := (FieldDef{Key: "class", Type: FieldSelect}).Check(); err == nil {
		t.Fatalf("expected select without options to fail")
	}
	if err := (FieldDef{Key: "", Type: FieldText}).Check(); err == nil {
		t.Fatalf("expected empty key to fail")
	}
}

func TestValidateValuesReportsPerKey(t *testing.T) {
	defs := []FieldDef{
		{Key: "class", Type: FieldSelect, Options: []string{"A", "B"}, Required: true},
		{Key: "endorsements", Type: FieldText},
	}
	problems := ValidateValues(defs, map[string]string{"class": "Z"})
	if len(problems) != 1 || problems["class"] == "" {
		t.Fatalf("unexpected problems %v", problems)
	}
}
