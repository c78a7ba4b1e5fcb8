package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"docksign/internal/database"
	"docksign/internal/errcode"
	"docksign/internal/fields"
)

// DocumentStore 维护文档实例。所有读写都以创建者身份过滤，
// 他人的文档一律按 NotFound 上报。
type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Signer 是文档的签署参与方（透传存储，不参与访问控制）。
type Signer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FromTemplateParams 是从模板实例化文档的入参。
type FromTemplateParams struct {
	Title       string
	Description string
	Content     map[string]any
	Signers     []Signer
}

// FileMeta 描述上传文件的元数据；二进制由对象存储协作方持有。
type FileMeta struct {
	Name string
	Type string
	Size int64
	Key  string
}

// UploadParams 是上传路径创建文档的入参。
type UploadParams struct {
	Title       string
	Description string
	File        FileMeta
}

// CreateFromTemplate 从对请求者可见的模板实例化文档。
// 字段列表按值深拷贝，模板后续编辑不回溯影响已有文档。
func (s *DocumentStore) CreateFromTemplate(ctx context.Context, templateID, requesterID string, p FromTemplateParams) (*database.Document, error) {
	templates := NewTemplateStore(s.db)
	tpl, err := templates.GetVisible(ctx, templateID, requesterID)
	if err != nil {
		return nil, err
	}

	tplFields, err := fields.Decode(tpl.Fields)
	if err != nil {
		return nil, errcode.Internalf(err, "decode template fields")
	}
	if p.Content != nil {
		if err := fields.ValidateContent(tplFields, p.Content); err != nil {
			return nil, err
		}
	}

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = fmt.Sprintf("%s Document", tpl.Name)
	}
	description := p.Description
	if description == "" {
		description = tpl.Description
	}

	copied, err := fields.Encode(fields.Clone(tplFields))
	if err != nil {
		return nil, errcode.Internalf(err, "encode document fields")
	}
	content, err := encodeContent(p.Content)
	if err != nil {
		return nil, errcode.Internalf(err, "encode document content")
	}
	signers := p.Signers
	if signers == nil {
		signers = []Signer{}
	}
	signersJSON, err := encodeJSON(signers)
	if err != nil {
		return nil, errcode.Internalf(err, "encode signers")
	}

	templateID = tpl.ID
	doc := database.Document{
		Title:       title,
		Description: description,
		Fields:      copied,
		Content:     content,
		Status:      database.StatusDraft,
		CreatedBy:   requesterID,
		TemplateID:  &templateID,
		Signers:     signersJSON,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, errcode.Internalf(err, "create document")
	}
	return &doc, nil
}

// CreateFromUpload 以上传文件的元数据创建文档，没有字段集。
func (s *DocumentStore) CreateFromUpload(ctx context.Context, requesterID string, p UploadParams) (*database.Document, error) {
	title := strings.TrimSpace(p.Title)
	if len(title) < 2 {
		return nil, errcode.Validationf("title must be at least 2 characters")
	}
	if p.File.Name == "" || p.File.Key == "" {
		return nil, errcode.Validationf("document file is required")
	}

	doc := database.Document{
		Title:       title,
		Description: p.Description,
		Status:      database.StatusDraft,
		CreatedBy:   requesterID,
		FileName:    p.File.Name,
		FileType:    p.File.Type,
		FileSize:    p.File.Size,
		FileKey:     p.File.Key,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, errcode.Internalf(err, "create document")
	}
	return &doc, nil
}

// List 返回请求者的全部文档，最新的在前。
func (s *DocumentStore) List(ctx context.Context, requesterID string) ([]database.Document, error) {
	var out []database.Document
	if err := s.db.WithContext(ctx).
		Where("created_by = ?", requesterID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, errcode.Internalf(err, "list documents")
	}
	return out, nil
}

// Get 返回请求者自己的文档。
func (s *DocumentStore) Get(ctx context.Context, id, requesterID string) (*database.Document, error) {
	if err := validateID(id, "document"); err != nil {
		return nil, err
	}
	var doc database.Document
	err := s.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, requesterID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFoundf("document not found")
		}
		return nil, errcode.Internalf(err, "query document")
	}
	return &doc, nil
}

// MetaPatch 是标题/描述的部分更新；nil 字段保持原值。
type MetaPatch struct {
	Title       *string
	Description *string
}

// UpdateMeta 更新文档的标题与描述。
func (s *DocumentStore) UpdateMeta(ctx context.Context, id, requesterID string, p MetaPatch) (*database.Document, error) {
	doc, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, errcode.Validationf("title must not be empty")
		}
		updates["title"] = title
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if len(updates) == 0 {
		return doc, nil
	}
	if err := s.db.WithContext(ctx).Model(doc).Updates(updates).Error; err != nil {
		return nil, errcode.Internalf(err, "update document")
	}
	return s.Get(ctx, id, requesterID)
}

// UpdateContent 把 patch 合并进现有 content，未出现的键保持原值。
// 合同语义上不限制 draft 状态；编辑界面只对 draft 开放。
func (s *DocumentStore) UpdateContent(ctx context.Context, id, requesterID string, patch map[string]any) (*database.Document, error) {
	doc, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return doc, nil
	}

	docFields, err := fields.Decode(doc.Fields)
	if err != nil {
		return nil, errcode.Internalf(err, "decode document fields")
	}
	if len(docFields) == 0 {
		return nil, errcode.Validationf("document has no fillable fields")
	}
	if err := fields.ValidateContent(docFields, patch); err != nil {
		return nil, err
	}

	merged, err := decodeContent(doc.Content)
	if err != nil {
		return nil, errcode.Internalf(err, "decode document content")
	}
	for k, v := range patch {
		merged[k] = v
	}
	encoded, err := encodeContent(merged)
	if err != nil {
		return nil, errcode.Internalf(err, "encode document content")
	}

	if err := s.db.WithContext(ctx).Model(doc).Update("content", encoded).Error; err != nil {
		return nil, errcode.Internalf(err, "update document content")
	}
	return s.Get(ctx, id, requesterID)
}

// Submit 以提供的映射整体替换 content 并把状态置为 submitted。
// 重复提交不被拒绝，后写覆盖先写。必填但缺值的字段 id 一并返回，仅作提示。
func (s *DocumentStore) Submit(ctx context.Context, id, requesterID string, content map[string]any) (*database.Document, []string, error) {
	doc, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return nil, nil, err
	}

	docFields, err := fields.Decode(doc.Fields)
	if err != nil {
		return nil, nil, errcode.Internalf(err, "decode document fields")
	}
	if content == nil {
		content = map[string]any{}
	}
	if len(docFields) > 0 {
		if err := fields.ValidateContent(docFields, content); err != nil {
			return nil, nil, err
		}
	} else if len(content) > 0 {
		return nil, nil, errcode.Validationf("document has no fillable fields")
	}

	encoded, err := encodeContent(content)
	if err != nil {
		return nil, nil, errcode.Internalf(err, "encode document content")
	}

	updates := map[string]any{
		"content": encoded,
		"status":  database.StatusSubmitted,
	}
	if err := s.db.WithContext(ctx).Model(doc).Updates(updates).Error; err != nil {
		return nil, nil, errcode.Internalf(err, "submit document")
	}

	missing := fields.Incomplete(docFields, content)
	updated, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return nil, nil, err
	}
	return updated, missing, nil
}

// SetArtifact 记录异步导出产物的对象存储键。
func (s *DocumentStore) SetArtifact(ctx context.Context, id, objectKey string) error {
	if err := validateID(id, "document"); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&database.Document{}).
		Where("id = ?", id).
		Update("artifact_key", objectKey).Error
	if err != nil {
		return errcode.Internalf(err, "set document artifact")
	}
	return nil
}

// Delete 删除文档记录并返回被删除的文档，
// 以便调用方尽力清理关联的存储对象。
func (s *DocumentStore) Delete(ctx context.Context, id, requesterID string) (*database.Document, error) {
	doc, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&database.Document{}, "id = ?", id).Error; err != nil {
		return nil, errcode.Internalf(err, "delete document")
	}
	return doc, nil
}
