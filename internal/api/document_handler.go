package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"docksign/internal/api/middleware"
	"docksign/internal/config"
	"docksign/internal/database"
	"docksign/internal/fields"
	"docksign/internal/pdf"
	"docksign/internal/storage"
	"docksign/internal/store"
	"docksign/internal/tasks"
)

// DocumentHandler 负责文档实例相关的 API，
// 覆盖模板实例化、文件上传、填写、提交与 PDF 导出。
type DocumentHandler struct {
	store       *store.DocumentStore
	storage     *storage.Client
	asynqClient *asynq.Client
	upload      config.UploadConfig
	logger      *slog.Logger
}

func NewDocumentHandler(db *gorm.DB, storageClient *storage.Client, asynqClient *asynq.Client, upload config.UploadConfig, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:       store.NewDocumentStore(db),
		storage:     storageClient,
		asynqClient: asynqClient,
		upload:      upload,
		logger:      logger,
	}
}

type fromTemplateRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Content     map[string]any `json:"content"`
	Signers     []store.Signer `json:"signers"`
}

type updateDocumentRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Content     map[string]any `json:"content"`
}

type submitDocumentRequest struct {
	Content map[string]any `json:"content"`
}

type documentFileResponse struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
	Key  string `json:"key"`
}

type documentResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Fields      datatypes.JSON        `json:"fields"`
	Content     datatypes.JSON        `json:"content"`
	Status      string                `json:"status"`
	CreatedBy   string                `json:"createdBy"`
	TemplateID  *string               `json:"templateId,omitempty"`
	Signers     datatypes.JSON        `json:"signers"`
	File        *documentFileResponse `json:"file,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

func newDocumentResponse(doc database.Document) documentResponse {
	resp := documentResponse{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Fields:      doc.Fields,
		Content:     doc.Content,
		Status:      doc.Status,
		CreatedBy:   doc.CreatedBy,
		TemplateID:  doc.TemplateID,
		Signers:     doc.Signers,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if doc.FileKey != "" {
		resp.File = &documentFileResponse{
			Name: doc.FileName,
			Type: doc.FileType,
			Size: doc.FileSize,
			Key:  doc.FileKey,
		}
	}
	return resp
}

// POST /v1/documents/from-template/:templateId
// 从可见模板实例化文档。字段布局按值拷贝，之后与模板脱钩。
func (h *DocumentHandler) CreateFromTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req fromTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, err := h.store.CreateFromTemplate(c.Request.Context(), c.Param("templateId"), userID, store.FromTemplateParams{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Signers:     req.Signers,
	})
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDocumentResponse(*doc))
}

// POST /v1/documents
// multipart 上传创建文档：扫描病毒后把文件写入对象存储，只存元数据。
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if h.upload.MaxBytes > 0 && file.Size > h.upload.MaxBytes {
		BadRequest(c, fmt.Sprintf("file exceeds %d bytes", h.upload.MaxBytes))
		return
	}

	if h.upload.ClamdAddr != "" {
		if ok, err := h.scanUpload(file); err != nil {
			h.logger.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		} else if !ok {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer fileReader.Close()

	objectKey := fmt.Sprintf("uploaded-documents/%s/%s%s", userID, uuid.NewString(), path.Ext(file.Filename))
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, fileReader, file.Size, contentType); err != nil {
		h.logger.Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	doc, err := h.store.CreateFromUpload(c.Request.Context(), userID, store.UploadParams{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		File: store.FileMeta{
			Name: file.Filename,
			Type: contentType,
			Size: file.Size,
			Key:  objectKey,
		},
	})
	if err != nil {
		// 记录已经落进对象存储，尽力回收。
		if cleanupErr := h.storage.DeleteObject(c.Request.Context(), objectKey); cleanupErr != nil {
			h.logger.Warn("cleanup orphan object", slog.String("objectKey", objectKey), slog.String("error", cleanupErr.Error()))
		}
		FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDocumentResponse(*doc))
}

func (h *DocumentHandler) scanUpload(file *multipart.FileHeader) (bool, error) {
	clamdClient := clamd.NewClamd(h.upload.ClamdAddr)

	fileReader, err := file.Open()
	if err != nil {
		return false, err
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		return false, err
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}

// GET /v1/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	docs, err := h.store.List(c.Request.Context(), userID)
	if err != nil {
		FromError(c, err)
		return
	}

	items := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, newDocumentResponse(doc))
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.store.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(*doc))
}

// PATCH /v1/documents/:id
// 部分更新标题、描述与 content。content 是合并语义，
// 只覆盖出现的键，状态不变。
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	doc, err := h.store.UpdateMeta(ctx, id, userID, store.MetaPatch{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		FromError(c, err)
		return
	}
	if len(req.Content) > 0 {
		doc, err = h.store.UpdateContent(ctx, id, userID, req.Content)
		if err != nil {
			FromError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, newDocumentResponse(*doc))
}

// POST /v1/documents/:id/submit
// 整体替换 content 并置 submitted。必填但缺值的字段只提示不拦截。
func (h *DocumentHandler) SubmitDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req submitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, missing, err := h.store.Submit(c.Request.Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document":         newDocumentResponse(*doc),
		"incompleteFields": missing,
	})
}

// DELETE /v1/documents/:id
// 删除记录后尽力清理关联的存储对象，清理失败不影响结果。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.store.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		FromError(c, err)
		return
	}

	for _, key := range []string{doc.FileKey, doc.ArtifactKey} {
		if key == "" {
			continue
		}
		if err := h.storage.DeleteObject(c.Request.Context(), key); err != nil {
			h.logger.Warn("cleanup document object", slog.String("objectKey", key), slog.String("error", err.Error()))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

// GET /v1/documents/:id/download
// 同步渲染 PDF 并直接返回字节流。上传类文档则回源对象存储。
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.store.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		FromError(c, err)
		return
	}

	if doc.FileKey != "" {
		h.streamStoredFile(c, doc)
		return
	}

	docFields, err := fields.Decode(doc.Fields)
	if err != nil {
		h.logger.Error("decode document fields", slog.String("error", err.Error()))
		Internal(c, "failed to decode document")
		return
	}
	var content map[string]any
	if len(doc.Content) > 0 {
		if err := json.Unmarshal(doc.Content, &content); err != nil {
			h.logger.Error("decode document content", slog.String("error", err.Error()))
			Internal(c, "failed to decode document")
			return
		}
	}

	html, err := pdf.BuildDocumentHTML(pdf.DocumentView{
		Title:       doc.Title,
		Description: doc.Description,
		Status:      doc.Status,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Fields:      docFields,
		Content:     content,
	})
	if err != nil {
		h.logger.Error("build document html", slog.String("error", err.Error()))
		Internal(c, "failed to render document")
		return
	}

	pdfBytes, err := pdf.GeneratePDFFromHTML(html)
	if err != nil {
		h.logger.Error("generate pdf", slog.String("error", err.Error()))
		Internal(c, "failed to render document")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Title+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func (h *DocumentHandler) streamStoredFile(c *gin.Context, doc *database.Document) {
	obj, err := h.storage.GetObject(c.Request.Context(), doc.FileKey)
	if err != nil {
		h.logger.Error("get stored file", slog.String("objectKey", doc.FileKey), slog.String("error", err.Error()))
		Internal(c, "failed to fetch document file")
		return
	}
	defer obj.Close()

	contentType := doc.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj); err != nil {
		h.logger.Error("stream stored file", slog.String("objectKey", doc.FileKey), slog.String("error", err.Error()))
	}
}

// POST /v1/documents/:id/export
// 把 PDF 导出任务入队并立即返回 202，结果经 WebSocket 通知。
func (h *DocumentHandler) ExportDocument(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.store.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		FromError(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewDocumentExportTask(doc.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue pdf export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "PDF export request accepted",
		"task_id": info.ID,
	})
}

// GET /v1/documents/:id/download-link
// 返回已导出产物的预签名链接；尚未导出则返回冲突。
func (h *DocumentHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.store.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		FromError(c, err)
		return
	}

	if doc.ArtifactKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), doc.ArtifactKey, 5*time.Minute)
	if err != nil {
		h.logger.Error("generate download link", slog.String("error", err.Error()))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
