package store

import (
	"context"
	"testing"

	"docksign/internal/errcode"
)

func strPtr(s string) *string { return &s }

func TestCategoryCreate_AppliesDefaults(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(newTestDB(t))

	cat, err := s.Create(ctx, CategoryParams{Name: "  Contracts  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cat.Name != "Contracts" {
		t.Fatalf("name = %q, want trimmed %q", cat.Name, "Contracts")
	}
	if cat.Color != DefaultCategoryColor {
		t.Fatalf("color = %q, want default %q", cat.Color, DefaultCategoryColor)
	}
	if cat.ID == "" {
		t.Fatal("expected generated id")
	}
	if cat.ParentID != nil {
		t.Fatal("expected top-level category")
	}
}

func TestCategoryCreate_RejectsBadColor(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(newTestDB(t))

	_, err := s.Create(ctx, CategoryParams{Name: "HR", Color: "blue"})
	if errcode.KindOf(err) != errcode.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.Create(ctx, CategoryParams{Name: "HR", Color: "#ABC"}); err != nil {
		t.Fatalf("3-digit hex should be accepted: %v", err)
	}
}

func TestCategoryCreate_RejectsMissingParent(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(newTestDB(t))

	_, err := s.Create(ctx, CategoryParams{Name: "Sub", ParentID: strPtr("00000000-0000-0000-0000-000000000009")})
	if errcode.KindOf(err) != errcode.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = s.Create(ctx, CategoryParams{Name: "Sub", ParentID: strPtr("not-a-uuid")})
	if errcode.KindOf(err) != errcode.KindValidation {
		t.Fatalf("malformed parent id should be a validation error, got %v", err)
	}
}

func TestCategoryList_ParentFilter(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(newTestDB(t))

	root, err := s.Create(ctx, CategoryParams{Name: "Root"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if _, err := s.Create(ctx, CategoryParams{Name: "Child", ParentID: &root.ID}); err != nil {
		t.Fatalf("create child: %v", err)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}

	top, err := s.List(ctx, ParentNone)
	if err != nil {
		t.Fatalf("list top: %v", err)
	}
	if len(top) != 1 || top[0].Name != "Root" {
		t.Fatalf("top-level filter returned %v", top)
	}

	children, err := s.List(ctx, root.ID)
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 1 || children[0].Name != "Child" {
		t.Fatalf("child filter returned %v", children)
	}
}

func TestCategoryUpdate_RejectsSelfParent(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(newTestDB(t))

	cat, err := s.Create(ctx, CategoryParams{Name: "Loop"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = s.Update(ctx, cat.ID, CategoryPatch{ParentID: &cat.ID})
	if errcode.KindOf(err) != errcode.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCategoryUpdate_PartialKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(newTestDB(t))

	cat, err := s.Create(ctx, CategoryParams{Name: "Legal", Description: "contracts", Color: "#112233"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := s.Update(ctx, cat.ID, CategoryPatch{Name: strPtr("Legal Docs")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Legal Docs" {
		t.Fatalf("name = %q", updated.Name)
	}
	if updated.Description != "contracts" || updated.Color != "#112233" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
}

func TestCategoryDelete_BlockedByChildren(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(newTestDB(t))

	root, err := s.Create(ctx, CategoryParams{Name: "Root"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	child, err := s.Create(ctx, CategoryParams{Name: "Child", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	if err := s.Delete(ctx, root.ID); errcode.KindOf(err) != errcode.KindConflict {
		t.Fatalf("expected conflict for category with children, got %v", err)
	}

	if err := s.Delete(ctx, child.ID); err != nil {
		t.Fatalf("delete child: %v", err)
	}
	if err := s.Delete(ctx, root.ID); err != nil {
		t.Fatalf("delete root after child removed: %v", err)
	}
}

func TestCategoryDelete_BlockedByTemplates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	categories := NewCategoryStore(db)
	templates := NewTemplateStore(db)

	cat, err := categories.Create(ctx, CategoryParams{Name: "Linked"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := templates.Create(ctx, "00000000-0000-0000-0000-000000000001", TemplateParams{
		Name:       "NDA",
		CategoryID: &cat.ID,
	}); err != nil {
		t.Fatalf("create template: %v", err)
	}

	if err := categories.Delete(ctx, cat.ID); errcode.KindOf(err) != errcode.KindConflict {
		t.Fatalf("expected conflict for referenced category, got %v", err)
	}
}

func TestCategoryGet_MalformedID(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(newTestDB(t))

	if _, err := s.Get(ctx, "nope"); errcode.KindOf(err) != errcode.KindValidation {
		t.Fatalf("expected validation error for malformed id, got %v", err)
	}
	if _, err := s.Get(ctx, "7d9f8c3e-0000-4000-8000-000000000000"); errcode.KindOf(err) != errcode.KindNotFound {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}
