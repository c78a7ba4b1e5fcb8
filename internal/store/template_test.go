package store

import (
	"context"
	"testing"

	"docksign/internal/database"
	"docksign/internal/errcode"
	"docksign/internal/fields"
)

const (
	ownerID = "11111111-1111-4111-8111-111111111111"
	otherID = "22222222-2222-4222-8222-222222222222"
)

func sampleFields() []fields.Field {
	return []fields.Field{
		{ID: "name", Type: fields.TypeText, Label: "Full name", Required: true},
		{
			ID: "color", Type: fields.TypeDropdown, Label: "Color",
			Config: &fields.Config{Options: []fields.Option{{Label: "Red", Value: "red"}}},
		},
	}
}

func TestTemplateCreate_Defaults(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t))

	tpl, err := s.Create(ctx, ownerID, TemplateParams{Name: "NDA", Fields: sampleFields()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tpl.Visibility != database.VisibilityPrivate {
		t.Fatalf("visibility = %q, want private", tpl.Visibility)
	}
	if !tpl.IsActive {
		t.Fatal("new template should be active")
	}
	if tpl.CreatedBy != ownerID {
		t.Fatalf("createdBy = %q", tpl.CreatedBy)
	}
}

func TestTemplateCreate_RejectsInvalidLayout(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t))

	_, err := s.Create(ctx, ownerID, TemplateParams{
		Name:   "Broken",
		Fields: []fields.Field{{ID: "", Type: fields.TypeText, Label: "X"}},
	})
	if errcode.KindOf(err) != errcode.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTemplateCreate_RejectsUnknownVisibility(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t))

	_, err := s.Create(ctx, ownerID, TemplateParams{Name: "X", Visibility: "public"})
	if errcode.KindOf(err) != errcode.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTemplateListVisible_OwnPlusShared(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t))

	if _, err := s.Create(ctx, ownerID, TemplateParams{Name: "Mine"}); err != nil {
		t.Fatalf("create mine: %v", err)
	}
	if _, err := s.Create(ctx, otherID, TemplateParams{Name: "Their shared", Visibility: database.VisibilityShared}); err != nil {
		t.Fatalf("create shared: %v", err)
	}
	if _, err := s.Create(ctx, otherID, TemplateParams{Name: "Their private"}); err != nil {
		t.Fatalf("create private: %v", err)
	}

	visible, err := s.ListVisible(ctx, ownerID, "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("visible = %d, want 2 (own + shared)", len(visible))
	}
	for _, tpl := range visible {
		if tpl.Name == "Their private" {
			t.Fatal("another user's private template leaked into the list")
		}
	}
}

func TestTemplateListVisible_NameFilterIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t))

	if _, err := s.Create(ctx, ownerID, TemplateParams{Name: "Employment Contract"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, ownerID, TemplateParams{Name: "Invoice"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.ListVisible(ctx, ownerID, "CONTRACT", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Employment Contract" {
		t.Fatalf("filter returned %v", got)
	}
}

func TestTemplateGetVisible_PrivateHiddenFromOthers(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t))

	tpl, err := s.Create(ctx, ownerID, TemplateParams{Name: "Secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.GetVisible(ctx, tpl.ID, ownerID); err != nil {
		t.Fatalf("owner should read own template: %v", err)
	}
	if _, err := s.GetVisible(ctx, tpl.ID, otherID); errcode.KindOf(err) != errcode.KindNotFound {
		t.Fatalf("expected not found for another user, got %v", err)
	}
}

func TestTemplateUpdate_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t))

	tpl, err := s.Create(ctx, ownerID, TemplateParams{Name: "Shared", Visibility: database.VisibilityShared})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Renamed"
	if _, err := s.Update(ctx, tpl.ID, otherID, TemplatePatch{Name: &name}); errcode.KindOf(err) != errcode.KindNotFound {
		t.Fatalf("non-owner update should report not found, got %v", err)
	}

	updated, err := s.Update(ctx, tpl.ID, ownerID, TemplatePatch{Name: &name})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("name = %q", updated.Name)
	}
	if updated.Visibility != database.VisibilityShared {
		t.Fatal("untouched visibility changed")
	}
}

func TestTemplateDelete_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t))

	tpl, err := s.Create(ctx, ownerID, TemplateParams{Name: "Doomed"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Delete(ctx, tpl.ID, otherID); errcode.KindOf(err) != errcode.KindNotFound {
		t.Fatalf("non-owner delete should report not found, got %v", err)
	}
	if err := s.Delete(ctx, tpl.ID, ownerID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := s.GetVisible(ctx, tpl.ID, ownerID); errcode.KindOf(err) != errcode.KindNotFound {
		t.Fatalf("deleted template still readable: %v", err)
	}
}
