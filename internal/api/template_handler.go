package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"docksign/internal/database"
	"docksign/internal/fields"
	"docksign/internal/store"
)

// TemplateHandler 负责模板相关的 API。
type TemplateHandler struct {
	store *store.TemplateStore
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{store: store.NewTemplateStore(db)}
}

type createTemplateRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	Fields      []fields.Field `json:"fields"`
	Visibility  string         `json:"visibility"`
	CategoryID  *string        `json:"categoryId"`
	Metadata    map[string]any `json:"metadata"`
}

type updateTemplateRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Fields      []fields.Field `json:"fields"`
	Visibility  *string        `json:"visibility"`
	CategoryID  *string        `json:"categoryId"`
	IsActive    *bool          `json:"isActive"`
	Metadata    map[string]any `json:"metadata"`
}

type templateResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Fields      datatypes.JSON `json:"fields"`
	CreatedBy   string         `json:"createdBy"`
	Visibility  string         `json:"visibility"`
	CategoryID  *string        `json:"categoryId,omitempty"`
	IsActive    bool           `json:"isActive"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func newTemplateResponse(tpl database.Template) templateResponse {
	return templateResponse{
		ID:          tpl.ID,
		Name:        tpl.Name,
		Description: tpl.Description,
		Fields:      tpl.Fields,
		CreatedBy:   tpl.CreatedBy,
		Visibility:  tpl.Visibility,
		CategoryID:  tpl.CategoryID,
		IsActive:    tpl.IsActive,
		Metadata:    tpl.Metadata,
		CreatedAt:   tpl.CreatedAt,
		UpdatedAt:   tpl.UpdatedAt,
	}
}

// POST /v1/templates
// 创建模板：可见性缺省 private，Owner 为当前用户。
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	tpl, err := h.store.Create(c.Request.Context(), userID, store.TemplateParams{
		Name:        req.Name,
		Description: req.Description,
		Fields:      req.Fields,
		Visibility:  req.Visibility,
		CategoryID:  req.CategoryID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTemplateResponse(*tpl))
}

// GET /v1/templates?name=&visibility=
// 列表：返回当前用户模板 ∪ 所有 shared 模板，支持名称子串与可见性过滤。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	templates, err := h.store.ListVisible(c.Request.Context(), userID, c.Query("name"), c.Query("visibility"))
	if err != nil {
		FromError(c, err)
		return
	}

	items := make([]templateResponse, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, newTemplateResponse(tpl))
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/templates/:id
// 详情：允许 Owner 访问，或 shared 模板允许任何已登录用户访问。
// 他人的私有模板按 404 处理，不暴露存在性。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	tpl, err := h.store.GetVisible(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTemplateResponse(*tpl))
}

// PUT /v1/templates/:id
// 部分更新：patch 中缺席的字段保持原值，仅限创建者。
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	tpl, err := h.store.Update(c.Request.Context(), c.Param("id"), userID, store.TemplatePatch{
		Name:        req.Name,
		Description: req.Description,
		Fields:      req.Fields,
		Visibility:  req.Visibility,
		CategoryID:  req.CategoryID,
		IsActive:    req.IsActive,
		Metadata:    req.Metadata,
	})
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTemplateResponse(*tpl))
}

// DELETE /v1/templates/:id
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if err := h.store.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "template deleted"})
}
