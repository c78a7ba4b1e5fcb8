package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"docksign/internal/errcode"
)

// ValidateLayout 校验字段定义本身：id 唯一、标签非空、位置非负、
// 候选项完整。模板创建与更新的入口都会经过它。
func ValidateLayout(flds []Field) error {
	seen := make(map[string]struct{}, len(flds))
	for i, f := range flds {
		if strings.TrimSpace(f.ID) == "" {
			return errcode.Validationf("field %d: id is required", i)
		}
		if _, dup := seen[f.ID]; dup {
			return errcode.Validationf("field %q: duplicate id", f.ID)
		}
		seen[f.ID] = struct{}{}

		if strings.TrimSpace(f.Label) == "" {
			return errcode.Validationf("field %q: label is required", f.ID)
		}
		p := f.Position
		if p.X < 0 || p.Y < 0 || p.Width < 0 || p.Height < 0 || p.Page < 0 {
			return errcode.Validationf("field %q: position values must be non-negative", f.ID)
		}
		if f.Config != nil {
			if err := validateConfig(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateConfig(f Field) error {
	cfg := f.Config
	if cfg.MinLength != nil && *cfg.MinLength < 0 {
		return errcode.Validationf("field %q: minLength must be non-negative", f.ID)
	}
	if cfg.MinLength != nil && cfg.MaxLength != nil && *cfg.MaxLength < *cfg.MinLength {
		return errcode.Validationf("field %q: maxLength is below minLength", f.ID)
	}
	if cfg.Pattern != "" {
		if _, err := regexp.Compile(cfg.Pattern); err != nil {
			return errcode.Validationf("field %q: invalid pattern: %v", f.ID, err)
		}
	}
	if (f.Type == TypeDropdown || f.Type == TypeRadio) && len(cfg.Options) == 0 {
		return errcode.Validationf("field %q: %s requires at least one option", f.ID, f.Type)
	}
	for _, opt := range cfg.Options {
		if opt.Value == "" {
			return errcode.Validationf("field %q: option value must not be empty", f.ID)
		}
	}
	if cfg.ShowWhen != nil {
		switch cfg.ShowWhen.Operator {
		case OpEquals, OpNotEquals, OpContains, OpNotContains, OpGreaterThan, OpLessThan:
		default:
			return errcode.Validationf("field %q: unknown showWhen operator %q", f.ID, cfg.ShowWhen.Operator)
		}
		if cfg.ShowWhen.FieldID == "" {
			return errcode.Validationf("field %q: showWhen.fieldId is required", f.ID)
		}
	}
	return nil
}

// ValidateValue 按字段声明的类型校验单个值。
// nil 值始终合法（缺失由 Incomplete 单独上报，不阻断提交）。
func ValidateValue(f Field, value any) error {
	if value == nil {
		return nil
	}

	switch f.Type {
	case TypeCheckbox:
		if _, ok := value.(bool); !ok {
			return errcode.Validationf("field %q: expected boolean", f.ID)
		}
		return nil

	case TypeDropdown, TypeRadio:
		s, ok := value.(string)
		if !ok {
			return errcode.Validationf("field %q: expected string option", f.ID)
		}
		if s == "" {
			return nil
		}
		if f.Config == nil {
			return errcode.Validationf("field %q: no options configured", f.ID)
		}
		for _, opt := range f.Config.Options {
			if opt.Value == s {
				return nil
			}
		}
		return errcode.Validationf("field %q: %q is not a configured option", f.ID, s)

	case TypeDate:
		s, ok := value.(string)
		if !ok {
			return errcode.Validationf("field %q: expected ISO date string", f.ID)
		}
		if s == "" {
			return nil
		}
		if !isISODate(s) {
			return errcode.Validationf("field %q: %q is not an ISO date", f.ID, s)
		}
		return nil

	case TypeSignature:
		s, ok := value.(string)
		if !ok {
			return errcode.Validationf("field %q: expected signature timestamp", f.ID)
		}
		if s == "" {
			return nil
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return errcode.Validationf("field %q: %q is not a valid signed-at timestamp", f.ID, s)
		}
		return nil

	case TypeText, TypeTextarea:
		return validateStringValue(f, value)

	default:
		// 扩展类型：仅要求字符串值，其余交给上层消费方。
		if _, ok := value.(string); !ok {
			return errcode.Validationf("field %q: expected string", f.ID)
		}
		return nil
	}
}

func validateStringValue(f Field, value any) error {
	s, ok := value.(string)
	if !ok {
		return errcode.Validationf("field %q: expected string", f.ID)
	}
	if f.Config == nil || s == "" {
		return nil
	}
	n := len([]rune(s))
	if f.Config.MinLength != nil && n < *f.Config.MinLength {
		return errcode.Validationf("field %q: value shorter than %d characters", f.ID, *f.Config.MinLength)
	}
	if f.Config.MaxLength != nil && n > *f.Config.MaxLength {
		return errcode.Validationf("field %q: value longer than %d characters", f.ID, *f.Config.MaxLength)
	}
	if f.Type == TypeText && f.Config.Pattern != "" {
		re, err := regexp.Compile(f.Config.Pattern)
		if err != nil {
			return errcode.Validationf("field %q: invalid pattern: %v", f.ID, err)
		}
		if !re.MatchString(s) {
			return errcode.Validationf("field %q: value does not match pattern", f.ID)
		}
	}
	return nil
}

// ValidateContent 对 content 映射逐字段校验；content 中指向未知字段的键被拒绝。
func ValidateContent(flds []Field, content map[string]any) error {
	byID := make(map[string]Field, len(flds))
	for _, f := range flds {
		byID[f.ID] = f
	}
	for id, value := range content {
		f, ok := byID[id]
		if !ok {
			return errcode.Validationf("content key %q does not match any field", id)
		}
		if err := ValidateValue(f, value); err != nil {
			return err
		}
	}
	return nil
}

// Visible 解析字段的条件显示规则。没有规则即始终可见；
// 被引用字段缺值时按不可见处理，与编辑器行为一致。
func Visible(f Field, content map[string]any) bool {
	if f.Config == nil || f.Config.ShowWhen == nil {
		return true
	}
	sw := f.Config.ShowWhen
	actual, ok := content[sw.FieldID]
	if !ok || actual == nil {
		return false
	}

	switch sw.Operator {
	case OpEquals:
		return valueString(actual) == valueString(sw.Value)
	case OpNotEquals:
		return valueString(actual) != valueString(sw.Value)
	case OpContains:
		return strings.Contains(valueString(actual), valueString(sw.Value))
	case OpNotContains:
		return !strings.Contains(valueString(actual), valueString(sw.Value))
	case OpGreaterThan:
		a, b, ok := valueNumbers(actual, sw.Value)
		return ok && a > b
	case OpLessThan:
		a, b, ok := valueNumbers(actual, sw.Value)
		return ok && a < b
	default:
		return true
	}
}

// Incomplete 返回必填但缺值的可见字段 id，保持字段声明顺序。
// 结果仅用于提示，提交不会因此被拒绝。
func Incomplete(flds []Field, content map[string]any) []string {
	var missing []string
	for _, f := range flds {
		if !f.Required || !Visible(f, content) {
			continue
		}
		if isEmptyValue(content[f.ID]) {
			missing = append(missing, f.ID)
		}
	}
	return missing
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	default:
		return false
	}
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func valueNumbers(a, b any) (float64, float64, bool) {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	return fa, fb, okA && okB
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// 日期接受 2006-01-02，或完整的 RFC3339 时间戳。
func isISODate(s string) bool {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}
