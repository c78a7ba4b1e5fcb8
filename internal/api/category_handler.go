package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"docksign/internal/database"
	"docksign/internal/store"
)

// CategoryHandler 负责分类相关的 API。
type CategoryHandler struct {
	store *store.CategoryStore
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{store: store.NewCategoryStore(db)}
}

type categoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	ParentID    *string `json:"parentId"`
}

type categoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	ParentID    *string   `json:"parentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newCategoryResponse(cat database.Category) categoryResponse {
	return categoryResponse{
		ID:          cat.ID,
		Name:        cat.Name,
		Description: cat.Description,
		Color:       cat.Color,
		ParentID:    cat.ParentID,
		CreatedAt:   cat.CreatedAt,
		UpdatedAt:   cat.UpdatedAt,
	}
}

// POST /v1/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	params := store.CategoryParams{ParentID: req.ParentID}
	if req.Name != nil {
		params.Name = *req.Name
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.Color != nil {
		params.Color = *req.Color
	}

	cat, err := h.store.Create(c.Request.Context(), params)
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCategoryResponse(*cat))
}

// GET /v1/categories?parentId=
// parentId 缺省返回全部，"null" 只返回顶级，具体 id 返回其子级。
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	cats, err := h.store.List(c.Request.Context(), c.Query("parentId"))
	if err != nil {
		FromError(c, err)
		return
	}

	items := make([]categoryResponse, 0, len(cats))
	for _, cat := range cats {
		items = append(items, newCategoryResponse(cat))
	}
	c.JSON(http.StatusOK, items)
}

// PUT /v1/categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	cat, err := h.store.Update(c.Request.Context(), c.Param("id"), store.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		ParentID:    req.ParentID,
	})
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryResponse(*cat))
}

// DELETE /v1/categories/:id
// 仍有子分类或被模板引用的分类不可删除。
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}
