package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"docksign/internal/errcode"
)

// 标识符对外是不透明字符串，存储侧生成 UUID。
// 格式非法应当返回 400，而不是落到数据库层变成 500。
func validateID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errcode.Validationf("invalid %s id format", what)
	}
	return nil
}

func decodeContent(raw datatypes.JSON) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func encodeContent(content map[string]any) (datatypes.JSON, error) {
	if content == nil {
		content = map[string]any{}
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return datatypes.JSON(data), nil
}

func encodeJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return datatypes.JSON(data), nil
}
