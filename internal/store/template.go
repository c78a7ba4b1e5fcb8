package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"docksign/internal/database"
	"docksign/internal/errcode"
	"docksign/internal/fields"
)

// TemplateStore 维护字段布局模板。读取遵循 "自己的 ∪ shared"，
// 变更永远只允许创建者。
type TemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// TemplateParams 是创建模板的入参。
type TemplateParams struct {
	Name        string
	Description string
	Fields      []fields.Field
	Visibility  string
	CategoryID  *string
	Metadata    map[string]any
}

// TemplatePatch 是部分更新的入参；nil 字段表示保持原值。
type TemplatePatch struct {
	Name        *string
	Description *string
	Fields      []fields.Field
	Visibility  *string
	CategoryID  *string
	IsActive    *bool
	Metadata    map[string]any
}

// Create 插入新模板。Visibility 缺省 private，字段列表缺省为空。
func (s *TemplateStore) Create(ctx context.Context, requesterID string, p TemplateParams) (*database.Template, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, errcode.Validationf("template name is required")
	}

	visibility := p.Visibility
	if visibility == "" {
		visibility = database.VisibilityPrivate
	}
	if err := validateVisibility(visibility); err != nil {
		return nil, err
	}

	if err := fields.ValidateLayout(p.Fields); err != nil {
		return nil, err
	}
	if p.CategoryID != nil {
		if err := s.checkCategory(ctx, *p.CategoryID); err != nil {
			return nil, err
		}
	}

	encoded, err := fields.Encode(p.Fields)
	if err != nil {
		return nil, errcode.Internalf(err, "encode template fields")
	}
	metadata, err := encodeContent(p.Metadata)
	if err != nil {
		return nil, errcode.Internalf(err, "encode template metadata")
	}

	tpl := database.Template{
		Name:        name,
		Description: p.Description,
		Fields:      encoded,
		CreatedBy:   requesterID,
		Visibility:  visibility,
		CategoryID:  p.CategoryID,
		IsActive:    true,
		Metadata:    metadata,
	}
	if err := s.db.WithContext(ctx).Create(&tpl).Error; err != nil {
		return nil, errcode.Internalf(err, "create template")
	}
	return &tpl, nil
}

// ListVisible 返回请求者自己的模板与所有 shared 模板。
// nameFilter 做大小写无关的子串匹配，visibilityFilter 做精确匹配。
func (s *TemplateStore) ListVisible(ctx context.Context, requesterID, nameFilter, visibilityFilter string) ([]database.Template, error) {
	q := s.db.WithContext(ctx).
		Where("created_by = ? OR visibility = ?", requesterID, database.VisibilityShared)

	if nameFilter != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(nameFilter)+"%")
	}
	if visibilityFilter != "" {
		if err := validateVisibility(visibilityFilter); err != nil {
			return nil, err
		}
		q = q.Where("visibility = ?", visibilityFilter)
	}

	var out []database.Template
	if err := q.Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, errcode.Internalf(err, "list templates")
	}
	return out, nil
}

// GetVisible 返回创建者自己的模板或 shared 模板。
// 私有模板对其他用户一律按 NotFound 上报，不暴露存在性。
func (s *TemplateStore) GetVisible(ctx context.Context, id, requesterID string) (*database.Template, error) {
	if err := validateID(id, "template"); err != nil {
		return nil, err
	}
	var tpl database.Template
	err := s.db.WithContext(ctx).
		Where("id = ? AND (created_by = ? OR visibility = ?)", id, requesterID, database.VisibilityShared).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFoundf("template not found")
		}
		return nil, errcode.Internalf(err, "query template")
	}
	return &tpl, nil
}

// Update 应用部分更新，仅限创建者。未出现在 patch 里的字段保持原值。
func (s *TemplateStore) Update(ctx context.Context, id, requesterID string, p TemplatePatch) (*database.Template, error) {
	tpl, err := s.getOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, errcode.Validationf("template name is required")
		}
		updates["name"] = name
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.Visibility != nil {
		if err := validateVisibility(*p.Visibility); err != nil {
			return nil, err
		}
		updates["visibility"] = *p.Visibility
	}
	if p.CategoryID != nil {
		if err := s.checkCategory(ctx, *p.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *p.CategoryID
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}
	if p.Fields != nil {
		if err := fields.ValidateLayout(p.Fields); err != nil {
			return nil, err
		}
		encoded, err := fields.Encode(p.Fields)
		if err != nil {
			return nil, errcode.Internalf(err, "encode template fields")
		}
		updates["fields"] = encoded
	}
	if p.Metadata != nil {
		metadata, err := encodeContent(p.Metadata)
		if err != nil {
			return nil, errcode.Internalf(err, "encode template metadata")
		}
		updates["metadata"] = metadata
	}

	if len(updates) == 0 {
		return tpl, nil
	}
	if err := s.db.WithContext(ctx).Model(tpl).Updates(updates).Error; err != nil {
		return nil, errcode.Internalf(err, "update template")
	}
	return s.getOwned(ctx, id, requesterID)
}

// Delete 删除模板，仅限创建者。
// 已派生的文档持有字段拷贝，不受影响，因此这里不做依赖检查。
func (s *TemplateStore) Delete(ctx context.Context, id, requesterID string) error {
	if _, err := s.getOwned(ctx, id, requesterID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&database.Template{}, "id = ?", id).Error; err != nil {
		return errcode.Internalf(err, "delete template")
	}
	return nil
}

func (s *TemplateStore) getOwned(ctx context.Context, id, requesterID string) (*database.Template, error) {
	if err := validateID(id, "template"); err != nil {
		return nil, err
	}
	var tpl database.Template
	err := s.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, requesterID).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFoundf("template not found")
		}
		return nil, errcode.Internalf(err, "query template")
	}
	return &tpl, nil
}

func (s *TemplateStore) checkCategory(ctx context.Context, categoryID string) error {
	if err := validateID(categoryID, "category"); err != nil {
		return err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&database.Category{}).
		Where("id = ?", categoryID).
		Count(&count).Error; err != nil {
		return errcode.Internalf(err, "query category")
	}
	if count == 0 {
		return errcode.Validationf("category does not exist")
	}
	return nil
}

func validateVisibility(v string) error {
	if v != database.VisibilityPrivate && v != database.VisibilityShared {
		return errcode.Validationf("visibility must be %q or %q", database.VisibilityPrivate, database.VisibilityShared)
	}
	return nil
}
