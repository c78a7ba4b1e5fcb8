package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docksign/internal/api/middleware"
	"docksign/internal/config"
	"docksign/internal/database"
)

const (
	testUserID  = "11111111-1111-4111-8111-111111111111"
	otherUserID = "22222222-2222-4222-8222-222222222222"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&database.User{},
		&database.Category{},
		&database.Template{},
		&database.Document{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testContext 构造带 JSON 请求体的 Gin 测试上下文。
// userID 非空时模拟鉴权中间件注入的身份。
func testContext(t *testing.T, method, target, userID string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = &bytes.Buffer{}
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if userID != "" {
		c.Set(middleware.UserIDKey, userID)
	}
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func newDocHandler(t *testing.T, db *gorm.DB) *DocumentHandler {
	t.Helper()
	return NewDocumentHandler(db, nil, nil, config.UploadConfig{MaxBytes: 1024}, slog.Default())
}

func TestCategoryHandler_RequiresAuth(t *testing.T) {
	h := NewCategoryHandler(newTestDB(t))

	c, w := testContext(t, http.MethodGet, "/v1/categories", "", nil)
	h.ListCategories(c)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestCategoryHandler_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	h := NewCategoryHandler(db)

	c, w := testContext(t, http.MethodPost, "/v1/categories", testUserID, map[string]any{
		"name": "Contracts",
	})
	h.CreateCategory(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	if created["color"] != "#6366F1" {
		t.Fatalf("default color = %v", created["color"])
	}

	c, w = testContext(t, http.MethodGet, "/v1/categories?parentId=null", testUserID, nil)
	h.ListCategories(c)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200 got %d", w.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
}

func TestCategoryHandler_DeleteConflictIs400(t *testing.T) {
	db := newTestDB(t)
	h := NewCategoryHandler(db)

	c, w := testContext(t, http.MethodPost, "/v1/categories", testUserID, map[string]any{"name": "Root"})
	h.CreateCategory(c)
	rootID := decodeBody(t, w)["id"].(string)

	c, w = testContext(t, http.MethodPost, "/v1/categories", testUserID, map[string]any{
		"name": "Child", "parentId": rootID,
	})
	h.CreateCategory(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("create child: %d body=%s", w.Code, w.Body.String())
	}

	c, w = testContext(t, http.MethodDelete, "/v1/categories/"+rootID, testUserID, nil)
	c.Params = gin.Params{{Key: "id", Value: rootID}}
	h.DeleteCategory(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for category with children, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestCategoryHandler_MalformedIDIs400(t *testing.T) {
	h := NewCategoryHandler(newTestDB(t))

	c, w := testContext(t, http.MethodDelete, "/v1/categories/abc", testUserID, nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.DeleteCategory(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", w.Code)
	}
}

func createTemplateViaHandler(t *testing.T, h *TemplateHandler, userID string, body map[string]any) map[string]any {
	t.Helper()
	c, w := testContext(t, http.MethodPost, "/v1/templates", userID, body)
	h.CreateTemplate(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("create template: %d body=%s", w.Code, w.Body.String())
	}
	return decodeBody(t, w)
}

func TestTemplateHandler_VisibilityRules(t *testing.T) {
	db := newTestDB(t)
	h := NewTemplateHandler(db)

	createTemplateViaHandler(t, h, testUserID, map[string]any{"name": "Mine"})
	createTemplateViaHandler(t, h, otherUserID, map[string]any{
		"name": "Shared", "visibility": "shared",
	})
	createTemplateViaHandler(t, h, otherUserID, map[string]any{"name": "Hidden"})

	c, w := testContext(t, http.MethodGet, "/v1/templates", testUserID, nil)
	h.ListTemplates(c)
	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("visible templates = %d, want 2", len(items))
	}

	// 他人的私有模板按 404 处理。
	hiddenID := ""
	cList, wList := testContext(t, http.MethodGet, "/v1/templates", otherUserID, nil)
	h.ListTemplates(cList)
	var theirItems []map[string]any
	if err := json.Unmarshal(wList.Body.Bytes(), &theirItems); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	for _, item := range theirItems {
		if item["name"] == "Hidden" {
			hiddenID = item["id"].(string)
		}
	}
	if hiddenID == "" {
		t.Fatal("hidden template not found in owner list")
	}

	c, w = testContext(t, http.MethodGet, "/v1/templates/"+hiddenID, testUserID, nil)
	c.Params = gin.Params{{Key: "id", Value: hiddenID}}
	h.GetTemplate(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for hidden template, got %d", w.Code)
	}
}

func TestDocumentFlow_FromTemplateToSubmit(t *testing.T) {
	db := newTestDB(t)
	templates := NewTemplateHandler(db)
	documents := newDocHandler(t, db)

	tpl := createTemplateViaHandler(t, templates, testUserID, map[string]any{
		"name": "Offer",
		"fields": []map[string]any{
			{"id": "name", "type": "text", "label": "Full name", "required": true},
			{"id": "agree", "type": "checkbox", "label": "Agree", "required": true},
		},
	})
	tplID := tpl["id"].(string)

	c, w := testContext(t, http.MethodPost, "/v1/documents/from-template/"+tplID, testUserID, map[string]any{})
	c.Params = gin.Params{{Key: "templateId", Value: tplID}}
	documents.CreateFromTemplate(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("create document: %d body=%s", w.Code, w.Body.String())
	}
	doc := decodeBody(t, w)
	if doc["title"] != "Offer Document" {
		t.Fatalf("default title = %v", doc["title"])
	}
	docID := doc["id"].(string)

	// 部分填写：合并语义。
	c, w = testContext(t, http.MethodPatch, "/v1/documents/"+docID, testUserID, map[string]any{
		"content": map[string]any{"name": "Ada"},
	})
	c.Params = gin.Params{{Key: "id", Value: docID}}
	documents.UpdateDocument(c)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d body=%s", w.Code, w.Body.String())
	}

	// 他人的文档按 404 处理，不泄露存在性。
	c, w = testContext(t, http.MethodGet, "/v1/documents/"+docID, otherUserID, nil)
	c.Params = gin.Params{{Key: "id", Value: docID}}
	documents.GetDocument(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's document, got %d", w.Code)
	}

	// 提交：整体替换，缺失的必填字段只提示。
	c, w = testContext(t, http.MethodPost, "/v1/documents/"+docID+"/submit", testUserID, map[string]any{
		"content": map[string]any{"name": "Ada Lovelace"},
	})
	c.Params = gin.Params{{Key: "id", Value: docID}}
	documents.SubmitDocument(c)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: %d body=%s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	submitted := resp["document"].(map[string]any)
	if submitted["status"] != "submitted" {
		t.Fatalf("status = %v", submitted["status"])
	}
	missing, _ := resp["incompleteFields"].([]any)
	if len(missing) != 1 || missing[0] != "agree" {
		t.Fatalf("incompleteFields = %v, want [agree]", resp["incompleteFields"])
	}
}

func TestDocumentHandler_ContentPatchWithUnknownKeyIs400(t *testing.T) {
	db := newTestDB(t)
	templates := NewTemplateHandler(db)
	documents := newDocHandler(t, db)

	tpl := createTemplateViaHandler(t, templates, testUserID, map[string]any{
		"name": "T",
		"fields": []map[string]any{
			{"id": "name", "type": "text", "label": "Name"},
		},
	})
	tplID := tpl["id"].(string)

	c, w := testContext(t, http.MethodPost, "/v1/documents/from-template/"+tplID, testUserID, map[string]any{})
	c.Params = gin.Params{{Key: "templateId", Value: tplID}}
	documents.CreateFromTemplate(c)
	docID := decodeBody(t, w)["id"].(string)

	c, w = testContext(t, http.MethodPatch, "/v1/documents/"+docID, testUserID, map[string]any{
		"content": map[string]any{"surname": "x"},
	})
	c.Params = gin.Params{{Key: "id", Value: docID}}
	documents.UpdateDocument(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown content key, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestDocumentHandler_DownloadLinkNotReadyIs409(t *testing.T) {
	db := newTestDB(t)
	templates := NewTemplateHandler(db)
	documents := newDocHandler(t, db)

	tpl := createTemplateViaHandler(t, templates, testUserID, map[string]any{"name": "T"})
	tplID := tpl["id"].(string)

	c, w := testContext(t, http.MethodPost, "/v1/documents/from-template/"+tplID, testUserID, map[string]any{})
	c.Params = gin.Params{{Key: "templateId", Value: tplID}}
	documents.CreateFromTemplate(c)
	docID := decodeBody(t, w)["id"].(string)

	c, w = testContext(t, http.MethodGet, "/v1/documents/"+docID+"/download-link", testUserID, nil)
	c.Params = gin.Params{{Key: "id", Value: docID}}
	documents.GetDownloadLink(c)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 before export, got %d body=%s", w.Code, w.Body.String())
	}
}
