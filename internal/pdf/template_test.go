package pdf

import (
	"strings"
	"testing"
	"time"

	"docksign/internal/fields"
)

func baseView(flds []fields.Field, content map[string]any) DocumentView {
	return DocumentView{
		Title:     "Test Document",
		Status:    "draft",
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 2, 11, 0, 0, 0, time.UTC),
		Fields:    flds,
		Content:   content,
	}
}

func TestBuildDocumentHTML_GroupsFieldsByPage(t *testing.T) {
	flds := []fields.Field{
		{ID: "a", Type: fields.TypeText, Label: "Page one", Position: fields.Position{Page: 1}},
		{ID: "b", Type: fields.TypeText, Label: "Page two", Position: fields.Position{Page: 2}},
	}
	html, err := BuildDocumentHTML(baseView(flds, map[string]any{"a": "x", "b": "y"}))
	if err != nil {
		t.Fatalf("build html: %v", err)
	}
	if got := strings.Count(html, `class="a4-page"`); got != 2 {
		t.Fatalf("page count = %d, want 2", got)
	}
	if !strings.Contains(html, "Test Document") {
		t.Fatal("title missing from output")
	}
}

func TestBuildDocumentHTML_SkipsHiddenFields(t *testing.T) {
	flds := []fields.Field{
		{ID: "toggle", Type: fields.TypeCheckbox, Label: "Toggle"},
		{
			ID: "hidden", Type: fields.TypeText, Label: "Hidden Detail",
			Config: &fields.Config{ShowWhen: &fields.ShowWhen{
				FieldID: "toggle", Operator: fields.OpEquals, Value: true,
			}},
		},
	}
	html, err := BuildDocumentHTML(baseView(flds, map[string]any{"toggle": false}))
	if err != nil {
		t.Fatalf("build html: %v", err)
	}
	if strings.Contains(html, "Hidden Detail") {
		t.Fatal("conditionally hidden field rendered")
	}
}

func TestBuildDocumentHTML_EmptyFieldsStillRendersOnePage(t *testing.T) {
	html, err := BuildDocumentHTML(baseView(nil, nil))
	if err != nil {
		t.Fatalf("build html: %v", err)
	}
	if got := strings.Count(html, `class="a4-page"`); got != 1 {
		t.Fatalf("page count = %d, want 1", got)
	}
}

func TestDisplayValue_Checkbox(t *testing.T) {
	f := fields.Field{ID: "agree", Type: fields.TypeCheckbox, Label: "Agree"}
	if v, _ := displayValue(f, map[string]any{"agree": true}); v != "☑" {
		t.Fatalf("checked = %q", v)
	}
	if v, _ := displayValue(f, map[string]any{"agree": false}); v != "☐" {
		t.Fatalf("unchecked = %q", v)
	}
}

func TestDisplayValue_SignatureTimestamp(t *testing.T) {
	f := fields.Field{ID: "sig", Type: fields.TypeSignature, Label: "Signature"}
	v, missing := displayValue(f, map[string]any{"sig": "2026-08-30T10:30:00Z"})
	if missing {
		t.Fatal("signed value flagged missing")
	}
	if !strings.HasPrefix(v, "Signed at ") {
		t.Fatalf("value = %q", v)
	}
}

func TestDisplayValue_DropdownUsesOptionLabel(t *testing.T) {
	f := fields.Field{
		ID: "color", Type: fields.TypeDropdown, Label: "Color",
		Config: &fields.Config{Options: []fields.Option{{Label: "Deep Red", Value: "red"}}},
	}
	if v, _ := displayValue(f, map[string]any{"color": "red"}); v != "Deep Red" {
		t.Fatalf("value = %q, want option label", v)
	}
}

func TestDisplayValue_RequiredMissing(t *testing.T) {
	f := fields.Field{ID: "name", Type: fields.TypeText, Label: "Name", Required: true}
	v, missing := displayValue(f, map[string]any{})
	if !missing || v != "Not provided" {
		t.Fatalf("value = %q missing = %v", v, missing)
	}
}
