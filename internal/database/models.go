package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Model 是所有实体共享的基础列。主键是存储侧生成的 UUID，
// 对外作为不透明字符串标识符暴露。
type Model struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate 在插入前补齐 UUID 主键。
func (m *Model) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// User 表示系统中的账号信息。
type User struct {
	Model
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
}

// Category 是模板的层级标签，最多一层嵌套（ParentID 指向顶级分类）。
type Category struct {
	Model
	Name        string  `gorm:"size:255"`
	Description string  `gorm:"size:1024"`
	Color       string  `gorm:"size:16"`
	ParentID    *string `gorm:"type:uuid;index"`
}

// Template 可见性取值。
const (
	VisibilityPrivate = "private"
	VisibilityShared  = "shared"
)

// Template 表示可复用的字段布局。Fields 以 JSONB 保存有序列表，
// 私有模板仅创建者可见，shared 模板对所有登录用户只读开放。
type Template struct {
	Model
	Name        string         `gorm:"size:255"`
	Description string         `gorm:"size:1024"`
	Fields      datatypes.JSON `gorm:"type:jsonb"`
	CreatedBy   string         `gorm:"type:uuid;index"`
	Visibility  string         `gorm:"size:16;index"`
	CategoryID  *string        `gorm:"type:uuid;index"`
	IsActive    bool           `gorm:"default:true"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
}

// Document 状态机：draft --submit--> submitted，没有其他迁移。
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// Document 是模板的一次实例化，或一次文件上传。
// 两条创建路径互斥：模板派生的文档持有字段拷贝与 content，
// 上传派生的文档只持有文件元数据（二进制在对象存储里）。
type Document struct {
	Model
	Title       string         `gorm:"size:255"`
	Description string         `gorm:"size:1024"`
	Fields      datatypes.JSON `gorm:"type:jsonb"`
	Content     datatypes.JSON `gorm:"type:jsonb"`
	Status      string         `gorm:"size:32;index"`
	CreatedBy   string         `gorm:"type:uuid;index"`
	TemplateID  *string        `gorm:"type:uuid;index"`
	Signers     datatypes.JSON `gorm:"type:jsonb"`

	// 上传路径的文件元数据。FileKey 是对象存储定位符。
	FileName string `gorm:"size:255"`
	FileType string `gorm:"size:128"`
	FileSize int64
	FileKey  string `gorm:"size:512"`

	// 异步导出的 PDF 产物（对象存储键），为空表示尚未导出。
	ArtifactKey string `gorm:"size:512"`
}
