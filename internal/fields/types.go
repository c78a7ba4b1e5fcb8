package fields

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Type 是字段类型的封闭枚举。模板编辑器可能引入扩展类型，
// 未知类型按自由文本处理（见 validate.go）。
type Type string

const (
	TypeText      Type = "text"
	TypeTextarea  Type = "textarea"
	TypeCheckbox  Type = "checkbox"
	TypeDropdown  Type = "dropdown"
	TypeRadio     Type = "radio"
	TypeDate      Type = "date"
	TypeSignature Type = "signature"
)

// Known 返回类型是否属于内建词汇表。
func (t Type) Known() bool {
	switch t {
	case TypeText, TypeTextarea, TypeCheckbox, TypeDropdown, TypeRadio, TypeDate, TypeSignature:
		return true
	}
	return false
}

// Position 描述字段在页面上的摆放位置，仅用于可视化布局。
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page"`
}

// Option 是 dropdown/radio 的候选项。
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CondOperator 是条件显示规则支持的比较操作。
type CondOperator string

const (
	OpEquals      CondOperator = "equals"
	OpNotEquals   CondOperator = "notEquals"
	OpContains    CondOperator = "contains"
	OpNotContains CondOperator = "notContains"
	OpGreaterThan CondOperator = "greaterThan"
	OpLessThan    CondOperator = "lessThan"
)

// ShowWhen 让一个字段的可见性依赖另一个字段的当前值。
type ShowWhen struct {
	FieldID  string       `json:"fieldId"`
	Operator CondOperator `json:"operator"`
	Value    any          `json:"value"`
}

// Config 聚合字段级校验与展示配置，全部可选。
type Config struct {
	Options      []Option  `json:"options,omitempty"`
	MinLength    *int      `json:"minLength,omitempty"`
	MaxLength    *int      `json:"maxLength,omitempty"`
	Pattern      string    `json:"pattern,omitempty"`
	MinValue     *float64  `json:"minValue,omitempty"`
	MaxValue     *float64  `json:"maxValue,omitempty"`
	Format       string    `json:"format,omitempty"`
	DefaultValue any       `json:"defaultValue,omitempty"`
	ShowWhen     *ShowWhen `json:"showWhen,omitempty"`
}

// Field 是模板或文档中单个带标签、定位、类型化的输入单元。
// 字段被模板独占持有；实例化成文档时按值拷贝，之后互不影响。
type Field struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required"`
	Position    Position `json:"position"`
	Config      *Config  `json:"config,omitempty"`
}

// Decode 从 JSONB 列还原有序字段列表。空列返回空切片。
func Decode(raw datatypes.JSON) ([]Field, error) {
	if len(raw) == 0 {
		return []Field{}, nil
	}
	var out []Field
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if out == nil {
		out = []Field{}
	}
	return out, nil
}

// Encode 将字段列表序列化为 JSONB 列值。nil 编码为空数组，保持列表语义。
func Encode(flds []Field) (datatypes.JSON, error) {
	if flds == nil {
		flds = []Field{}
	}
	data, err := json.Marshal(flds)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return datatypes.JSON(data), nil
}

// Clone 深拷贝字段列表。文档实例化依赖它来隔离模板的后续编辑。
func Clone(flds []Field) []Field {
	out := make([]Field, len(flds))
	for i, f := range flds {
		out[i] = f
		if f.Config != nil {
			cfg := *f.Config
			if f.Config.Options != nil {
				cfg.Options = append([]Option(nil), f.Config.Options...)
			}
			if f.Config.MinLength != nil {
				v := *f.Config.MinLength
				cfg.MinLength = &v
			}
			if f.Config.MaxLength != nil {
				v := *f.Config.MaxLength
				cfg.MaxLength = &v
			}
			if f.Config.MinValue != nil {
				v := *f.Config.MinValue
				cfg.MinValue = &v
			}
			if f.Config.MaxValue != nil {
				v := *f.Config.MaxValue
				cfg.MaxValue = &v
			}
			if f.Config.ShowWhen != nil {
				sw := *f.Config.ShowWhen
				cfg.ShowWhen = &sw
			}
			out[i].Config = &cfg
		}
	}
	return out
}
