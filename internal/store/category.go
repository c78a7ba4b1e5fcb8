package store

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"docksign/internal/database"
	"docksign/internal/errcode"
)

// DefaultCategoryColor 是未指定颜色时的缺省值。
const DefaultCategoryColor = "#6366F1"

// ParentNone 作为 List 的父级过滤值时只返回顶级分类。
const ParentNone = "null"

var hexColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// CategoryStore 维护模板分类的层级与引用完整性。
type CategoryStore struct {
	db *gorm.DB
}

func NewCategoryStore(db *gorm.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// CategoryParams 是创建分类的入参。
type CategoryParams struct {
	Name        string
	Description string
	Color       string
	ParentID    *string
}

// CategoryPatch 是部分更新的入参；nil 字段表示保持原值。
type CategoryPatch struct {
	Name        *string
	Description *string
	Color       *string
	ParentID    *string
}

// List 按名称升序返回分类。
// parentFilter 为空返回全部，ParentNone 只返回顶级，其余必须是合法 id 并筛选其子级。
func (s *CategoryStore) List(ctx context.Context, parentFilter string) ([]database.Category, error) {
	q := s.db.WithContext(ctx).Model(&database.Category{})

	switch parentFilter {
	case "":
	case ParentNone:
		q = q.Where("parent_id IS NULL")
	default:
		if err := validateID(parentFilter, "parent"); err != nil {
			return nil, err
		}
		q = q.Where("parent_id = ?", parentFilter)
	}

	var out []database.Category
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, errcode.Internalf(err, "list categories")
	}
	return out, nil
}

// Get 按 id 返回分类。
func (s *CategoryStore) Get(ctx context.Context, id string) (*database.Category, error) {
	if err := validateID(id, "category"); err != nil {
		return nil, err
	}
	var cat database.Category
	if err := s.db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFoundf("category not found")
		}
		return nil, errcode.Internalf(err, "query category")
	}
	return &cat, nil
}

// Create 校验并插入新分类。
func (s *CategoryStore) Create(ctx context.Context, p CategoryParams) (*database.Category, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, errcode.Validationf("category name is required")
	}

	color := p.Color
	if color == "" {
		color = DefaultCategoryColor
	} else if !hexColorPattern.MatchString(color) {
		return nil, errcode.Validationf("invalid color format, use hex color (e.g. #FF5733)")
	}

	if p.ParentID != nil {
		if err := s.checkParent(ctx, *p.ParentID, ""); err != nil {
			return nil, err
		}
	}

	cat := database.Category{
		Name:        name,
		Description: p.Description,
		Color:       color,
		ParentID:    p.ParentID,
	}
	if err := s.db.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, errcode.Internalf(err, "create category")
	}
	return &cat, nil
}

// Update 应用部分更新，校验规则与 Create 一致，另外禁止把自己设为父级。
func (s *CategoryStore) Update(ctx context.Context, id string, p CategoryPatch) (*database.Category, error) {
	cat, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, errcode.Validationf("category name is required")
		}
		updates["name"] = name
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.Color != nil {
		if !hexColorPattern.MatchString(*p.Color) {
			return nil, errcode.Validationf("invalid color format, use hex color (e.g. #FF5733)")
		}
		updates["color"] = *p.Color
	}
	if p.ParentID != nil {
		if err := s.checkParent(ctx, *p.ParentID, id); err != nil {
			return nil, err
		}
		updates["parent_id"] = *p.ParentID
	}

	if len(updates) == 0 {
		return cat, nil
	}
	if err := s.db.WithContext(ctx).Model(cat).Updates(updates).Error; err != nil {
		return nil, errcode.Internalf(err, "update category")
	}
	return s.Get(ctx, id)
}

// Delete 删除分类。仍有子分类或被模板引用时拒绝。
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	var childCount int64
	if err := s.db.WithContext(ctx).Model(&database.Category{}).
		Where("parent_id = ?", id).
		Count(&childCount).Error; err != nil {
		return errcode.Internalf(err, "count child categories")
	}
	if childCount > 0 {
		return errcode.Conflictf("cannot delete category with child categories, delete or reassign them first")
	}

	var templateCount int64
	if err := s.db.WithContext(ctx).Model(&database.Template{}).
		Where("category_id = ?", id).
		Count(&templateCount).Error; err != nil {
		return errcode.Internalf(err, "count referencing templates")
	}
	if templateCount > 0 {
		return errcode.Conflictf("category is used by one or more templates, reassign them first")
	}

	if err := s.db.WithContext(ctx).Delete(&database.Category{}, "id = ?", id).Error; err != nil {
		return errcode.Internalf(err, "delete category")
	}
	return nil
}

func (s *CategoryStore) checkParent(ctx context.Context, parentID, selfID string) error {
	if err := validateID(parentID, "parent"); err != nil {
		return err
	}
	if selfID != "" && parentID == selfID {
		return errcode.Validationf("category cannot be its own parent")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&database.Category{}).
		Where("id = ?", parentID).
		Count(&count).Error; err != nil {
		return errcode.Internalf(err, "query parent category")
	}
	if count == 0 {
		return errcode.NotFoundf("parent category not found")
	}
	return nil
}
