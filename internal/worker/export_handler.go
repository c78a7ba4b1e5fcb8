package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docksign/internal/database"
	"docksign/internal/errcode"
	"docksign/internal/fields"
	"docksign/internal/pdf"
	"docksign/internal/storage"
	"docksign/internal/store"
	"docksign/internal/tasks"
)

// ExportTaskHandler 负责消费文档 PDF 导出任务。
type ExportTaskHandler struct {
	db          *gorm.DB
	documents   *store.DocumentStore
	storage     *storage.Client
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(db *gorm.DB, storageClient *storage.Client, redisClient *redis.Client, logger *slog.Logger) *ExportTaskHandler {
	return &ExportTaskHandler{
		db:          db,
		documents:   store.NewDocumentStore(db),
		storage:     storageClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.DocumentExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("document_id", payload.DocumentID),
	)
	log.Info("starting document export task")

	var doc database.Document
	if err := h.db.WithContext(ctx).First(&doc, "id = ?", payload.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("document not found, skipping task")
			return nil
		}
		log.Error("query document failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.String("user_id", doc.CreatedBy))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := ExportNotifyMessage{
			Status:        "error",
			DocumentID:    doc.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishExportNotify(ctx, doc.CreatedBy, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	docFields, err := fields.Decode(doc.Fields)
	if err != nil {
		log.Error("decode document fields failed", slog.Any("error", err))
		return err
	}
	var content map[string]any
	if len(doc.Content) > 0 {
		if err := json.Unmarshal(doc.Content, &content); err != nil {
			log.Error("decode document content failed", slog.Any("error", err))
			return err
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
		log.Error("build document html failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := pdf.GeneratePDFFromHTML(html)
	if err != nil {
		log.Error("generate pdf failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("exported-documents/%s/%s.pdf", doc.CreatedBy, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.documents.SetArtifact(ctx, doc.ID, objectName); err != nil {
		log.Error("update document artifact failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Status:        "completed",
		DocumentID:    doc.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.publishExportNotify(ctx, doc.CreatedBy, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("document export task completed")
	return nil
}

func (h *ExportTaskHandler) publishExportNotify(ctx context.Context, userID string, notify ExportNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%s", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
