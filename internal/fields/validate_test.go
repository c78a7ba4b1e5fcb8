package fields

import (
	"testing"

	"docksign/internal/errcode"
)

func intPtr(v int) *int { return &v }

func TestValidateLayout_RejectsDuplicateIDs(t *testing.T) {
	flds := []Field{
		{ID: "name", Type: TypeText, Label: "Name"},
		{ID: "name", Type: TypeText, Label: "Name again"},
	}
	err := ValidateLayout(flds)
	if err == nil {
		t.Fatal("expected error for duplicate ids")
	}
	if errcode.KindOf(err) != errcode.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateLayout_RejectsMissingLabel(t *testing.T) {
	err := ValidateLayout([]Field{{ID: "f1", Type: TypeText, Label: "  "}})
	if err == nil {
		t.Fatal("expected error for blank label")
	}
}

func TestValidateLayout_RejectsNegativePosition(t *testing.T) {
	err := ValidateLayout([]Field{{
		ID: "f1", Type: TypeText, Label: "F1",
		Position: Position{X: -1},
	}})
	if err == nil {
		t.Fatal("expected error for negative position")
	}
}

func TestValidateLayout_DropdownNeedsOptions(t *testing.T) {
	err := ValidateLayout([]Field{{
		ID: "choice", Type: TypeDropdown, Label: "Choice",
		Config: &Config{},
	}})
	if err == nil {
		t.Fatal("expected error for dropdown without options")
	}
}

func TestValidateLayout_RejectsUnknownShowWhenOperator(t *testing.T) {
	err := ValidateLayout([]Field{{
		ID: "f2", Type: TypeText, Label: "F2",
		Config: &Config{ShowWhen: &ShowWhen{FieldID: "f1", Operator: "startsWith", Value: "x"}},
	}})
	if err == nil {
		t.Fatal("expected error for unknown operator")
	}
}

func TestValidateValue_Checkbox(t *testing.T) {
	f := Field{ID: "agree", Type: TypeCheckbox, Label: "Agree"}
	if err := ValidateValue(f, true); err != nil {
		t.Fatalf("bool value should pass: %v", err)
	}
	if err := ValidateValue(f, "yes"); err == nil {
		t.Fatal("string value should be rejected for checkbox")
	}
}

func TestValidateValue_DropdownMustMatchOption(t *testing.T) {
	f := Field{
		ID: "color", Type: TypeDropdown, Label: "Color",
		Config: &Config{Options: []Option{{Label: "Red", Value: "red"}, {Label: "Blue", Value: "blue"}}},
	}
	if err := ValidateValue(f, "red"); err != nil {
		t.Fatalf("configured option should pass: %v", err)
	}
	if err := ValidateValue(f, "green"); err == nil {
		t.Fatal("unlisted option should be rejected")
	}
}

func TestValidateValue_Date(t *testing.T) {
	f := Field{ID: "due", Type: TypeDate, Label: "Due"}
	for _, ok := range []string{"2026-08-30", "2026-08-30T10:00:00Z"} {
		if err := ValidateValue(f, ok); err != nil {
			t.Fatalf("%q should be a valid date: %v", ok, err)
		}
	}
	if err := ValidateValue(f, "30/08/2026"); err == nil {
		t.Fatal("non-ISO date should be rejected")
	}
}

func TestValidateValue_TextLengthAndPattern(t *testing.T) {
	f := Field{
		ID: "code", Type: TypeText, Label: "Code",
		Config: &Config{MinLength: intPtr(3), MaxLength: intPtr(5), Pattern: "^[A-Z]+$"},
	}
	if err := ValidateValue(f, "ABCD"); err != nil {
		t.Fatalf("value within bounds should pass: %v", err)
	}
	if err := ValidateValue(f, "AB"); err == nil {
		t.Fatal("too-short value should be rejected")
	}
	if err := ValidateValue(f, "abcd"); err == nil {
		t.Fatal("pattern mismatch should be rejected")
	}
}

func TestValidateValue_NilAlwaysPasses(t *testing.T) {
	f := Field{ID: "sig", Type: TypeSignature, Label: "Signature", Required: true}
	if err := ValidateValue(f, nil); err != nil {
		t.Fatalf("nil should always be legal: %v", err)
	}
}

func TestValidateContent_RejectsUnknownKeys(t *testing.T) {
	flds := []Field{{ID: "name", Type: TypeText, Label: "Name"}}
	err := ValidateContent(flds, map[string]any{"surname": "x"})
	if err == nil {
		t.Fatal("expected error for key without a field")
	}
}

func TestVisible_ShowWhenEquals(t *testing.T) {
	f := Field{
		ID: "details", Type: TypeTextarea, Label: "Details",
		Config: &Config{ShowWhen: &ShowWhen{FieldID: "has_details", Operator: OpEquals, Value: true}},
	}
	if Visible(f, map[string]any{}) {
		t.Fatal("missing referenced value should hide the field")
	}
	if !Visible(f, map[string]any{"has_details": true}) {
		t.Fatal("matching value should show the field")
	}
	if Visible(f, map[string]any{"has_details": false}) {
		t.Fatal("non-matching value should hide the field")
	}
}

func TestIncomplete_SkipsHiddenAndOptionalFields(t *testing.T) {
	flds := []Field{
		{ID: "name", Type: TypeText, Label: "Name", Required: true},
		{ID: "nickname", Type: TypeText, Label: "Nickname"},
		{
			ID: "reason", Type: TypeTextarea, Label: "Reason", Required: true,
			Config: &Config{ShowWhen: &ShowWhen{FieldID: "declined", Operator: OpEquals, Value: true}},
		},
		{ID: "signature", Type: TypeSignature, Label: "Sign here", Required: true},
	}

	missing := Incomplete(flds, map[string]any{"name": "Ada"})
	want := []string{"signature"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("missing = %v, want %v", missing, want)
		}
	}
}

func TestIncomplete_PreservesDeclarationOrder(t *testing.T) {
	flds := []Field{
		{ID: "b", Type: TypeText, Label: "B", Required: true},
		{ID: "a", Type: TypeText, Label: "A", Required: true},
	}
	missing := Incomplete(flds, map[string]any{})
	if len(missing) != 2 || missing[0] != "b" || missing[1] != "a" {
		t.Fatalf("missing = %v, want [b a]", missing)
	}
}

func TestClone_IsolatesConfig(t *testing.T) {
	orig := []Field{{
		ID: "f1", Type: TypeDropdown, Label: "F1",
		Config: &Config{
			Options:   []Option{{Label: "One", Value: "1"}},
			MinLength: intPtr(1),
		},
	}}

	copied := Clone(orig)
	copied[0].Config.Options[0].Value = "changed"
	*copied[0].Config.MinLength = 99

	if orig[0].Config.Options[0].Value != "1" {
		t.Fatal("clone shares option slice with original")
	}
	if *orig[0].Config.MinLength != 1 {
		t.Fatal("clone shares MinLength pointer with original")
	}
}
