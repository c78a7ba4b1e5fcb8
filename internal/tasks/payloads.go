package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeDocumentExport = "document:export"
)

// DocumentExportPayload 描述导出文档 PDF 所需的最小信息。
type DocumentExportPayload struct {
	DocumentID    string `json:"document_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewDocumentExportTask 构造一个新的文档 PDF 导出任务。
func NewDocumentExportTask(documentID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentExportPayload{
		DocumentID:    documentID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDocumentExport, payload), nil
}
