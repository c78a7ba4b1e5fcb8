package pdf

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"docksign/internal/fields"
)

// DocumentView 是渲染 PDF 所需的文档快照。
type DocumentView struct {
	Title       string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Fields      []fields.Field
	Content     map[string]any
}

type pageView struct {
	Number int
	Items  []itemView
}

type itemView struct {
	Label   string
	Value   string
	Missing bool
	X       float64
	Y       float64
	W       float64
	H       float64
}

type documentData struct {
	Title       string
	Description string
	Status      string
	CreatedAt   string
	UpdatedAt   string
	Pages       []pageView
}

// documentTemplateString 是文档 PDF 渲染的 Go HTML 模板。
// 每个字段按其声明的位置绝对定位在 A4 页面上。
const documentTemplateString = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: 'Helvetica', 'Arial', sans-serif;
            font-size: 11pt;
            color: #111;
        }
        .a4-page {
            width: 794px;  /* A4 @ 96 DPI */
            height: 1122px;
            background: white;
            position: relative;
            box-sizing: border-box;
            padding: 36px;
            page-break-after: always;
        }
        .header h1 {
            font-size: 22pt;
            margin: 0 0 8px 0;
        }
        .header .description {
            color: #555;
            margin: 0 0 4px 0;
        }
        .header .meta {
            font-size: 8pt;
            color: #888;
            margin: 0 0 16px 0;
        }
        .header hr {
            border: 0;
            border-top: 1px solid #ddd;
            margin-bottom: 16px;
        }
        .field {
            position: absolute;
            overflow: hidden;
            border-bottom: 1px dotted #ccc;
        }
        .field .label {
            font-size: 8pt;
            color: #666;
            text-transform: uppercase;
        }
        .field .value {
            font-size: 11pt;
        }
        .field .value.missing {
            color: #b91c1c;
            font-style: italic;
        }
    </style>
</head>
<body>
    {{range .Pages}}
    <div class="a4-page">
        {{if eq .Number 1}}
        <div class="header">
            <h1>{{$.Title}}</h1>
            {{if $.Description}}<p class="description">{{$.Description}}</p>{{end}}
            <p class="meta">Status: {{$.Status}} &middot; Created: {{$.CreatedAt}} &middot; Updated: {{$.UpdatedAt}}</p>
            <hr/>
        </div>
        {{end}}
        {{range .Items}}
        <div class="field" style="left: {{.X}}px; top: {{.Y}}px; width: {{.W}}px; min-height: {{.H}}px;">
            <div class="label">{{.Label}}</div>
            <div class="value{{if .Missing}} missing{{end}}">{{.Value}}</div>
        </div>
        {{end}}
    </div>
    {{end}}
</body>
</html>
`

var documentTemplate = template.Must(template.New("document").Parse(documentTemplateString))

// BuildDocumentHTML 把文档快照渲染成可打印的 HTML。
// 条件隐藏的字段不输出；必填缺值的字段标记为 missing。
func BuildDocumentHTML(v DocumentView) (string, error) {
	byPage := map[int][]itemView{}
	for _, f := range v.Fields {
		if !fields.Visible(f, v.Content) {
			continue
		}
		page := f.Position.Page
		if page < 1 {
			page = 1
		}
		value, missing := displayValue(f, v.Content)
		byPage[page] = append(byPage[page], itemView{
			Label:   f.Label,
			Value:   value,
			Missing: missing,
			X:       f.Position.X,
			Y:       f.Position.Y + headerOffset(page),
			W:       fallback(f.Position.Width, 200),
			H:       fallback(f.Position.Height, 24),
		})
	}

	pages := make([]pageView, 0, len(byPage))
	for n, items := range byPage {
		pages = append(pages, pageView{Number: n, Items: items})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	if len(pages) == 0 {
		pages = []pageView{{Number: 1}}
	}

	data := documentData{
		Title:       v.Title,
		Description: v.Description,
		Status:      v.Status,
		CreatedAt:   v.CreatedAt.Format("2006-01-02 15:04"),
		UpdatedAt:   v.UpdatedAt.Format("2006-01-02 15:04"),
		Pages:       pages,
	}

	var sb strings.Builder
	if err := documentTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute document template: %w", err)
	}
	return sb.String(), nil
}

// 首页头部占位，避免字段压住标题区域。
func headerOffset(page int) float64 {
	if page == 1 {
		return 120
	}
	return 0
}

func fallback(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func displayValue(f fields.Field, content map[string]any) (string, bool) {
	raw, ok := content[f.ID]
	if !ok || raw == nil {
		if f.Required {
			return "Not provided", true
		}
		return "", false
	}

	switch f.Type {
	case fields.TypeCheckbox:
		if b, ok := raw.(bool); ok && b {
			return "☑", false
		}
		return "☐", false

	case fields.TypeSignature:
		s, _ := raw.(string)
		if s == "" {
			if f.Required {
				return "Unsigned", true
			}
			return "Unsigned", false
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return fmt.Sprintf("Signed at %s", ts.Format("2006-01-02 15:04")), false
		}
		return fmt.Sprintf("Signed at %s", s), false

	case fields.TypeDropdown, fields.TypeRadio:
		s, _ := raw.(string)
		if f.Config != nil {
			for _, opt := range f.Config.Options {
				if opt.Value == s && opt.Label != "" {
					return opt.Label, false
				}
			}
		}
		return s, false

	default:
		s := fmt.Sprintf("%v", raw)
		if strings.TrimSpace(s) == "" && f.Required {
			return "Not provided", true
		}
		return s, false
	}
}
