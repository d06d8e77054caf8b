package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/template"
	"time"
)

//go:embed templates/default.md
var defaultMarkdownTemplate string

//go:embed templates/default.html
var defaultHTMLTemplate string

// percentileRow is one percentile presented in key order; templates cannot
// iterate a map deterministically.
type percentileRow struct {
	Key   int
	Value float64
}

// pageData is the data passed to the page templates.
type pageData struct {
	PageRequest

	FrontMatterBlock string
	GeneratedAt      time.Time
	Percentiles      []percentileRow
	TileURL          string
	Attribution      string
}

// customTemplateFuncs are the helper functions available within page
// templates, for both the embedded defaults and operator-supplied overrides.
var customTemplateFuncs = template.FuncMap{
	"num": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"num2": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 2, 64)
	},
	"formatDate": func(t time.Time, layout string) string {
		if layout == "" {
			layout = time.RFC3339
		}
		return t.Format(layout)
	},
	"htmlEscape": html.EscapeString,
}

// TemplateRenderer is the default PageRenderer. It executes a Go
// text/template per record and writes the result under the request's output
// directory. A nil Template selects the embedded default for the requested
// format.
type TemplateRenderer struct {
	// Template overrides the embedded defaults when set. The same template
	// is then used for every format.
	Template *template.Template
}

// NewTemplateRenderer returns a renderer using the embedded templates.
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{}
}

// RenderPage implements PageRenderer.
func (r *TemplateRenderer) RenderPage(ctx context.Context, req PageRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext, err := req.Format.Extension()
	if err != nil {
		return "", err
	}
	if err := req.MapStyle.Validate(); err != nil {
		return "", err
	}

	tmpl := r.Template
	if tmpl == nil {
		tmpl, err = loadDefaultTemplate(req.Format)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
		}
	}

	data := pageData{
		PageRequest: req,
		GeneratedAt: time.Now(),
		Percentiles: percentileRows(req.Stats.Percentiles),
	}
	if req.Basemap != nil {
		data.TileURL = req.Basemap.TileURL()
		data.Attribution = req.Basemap.Attribution()
	}

	// Front matter is a markdown convention; HTML pages carry the same
	// metadata in their head section instead.
	if req.FrontMatter.Enabled && req.Format == FormatMarkdown {
		block, fmErr := generateFrontMatter(buildFrontMatterData(req), req.FrontMatter.Format)
		if fmErr != nil {
			return "", fmt.Errorf("%w: %w", ErrRenderFailed, fmErr)
		}
		data.FrontMatterBlock = string(block)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, &data); err != nil {
		return "", fmt.Errorf("%w: executing template %q: %w", ErrRenderFailed, tmpl.Name(), err)
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating output directory: %w", ErrRenderFailed, err)
	}
	outPath := filepath.Join(req.OutputDir, req.BaseName+ext)
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %w", ErrRenderFailed, outPath, err)
	}
	return outPath, nil
}

func loadDefaultTemplate(format Format) (*template.Template, error) {
	var name, content string
	switch format {
	case FormatMarkdown:
		name, content = "default.md", defaultMarkdownTemplate
	case FormatHTML:
		name, content = "default.html", defaultHTMLTemplate
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
	if content == "" {
		return nil, fmt.Errorf("embedded template %s is empty", name)
	}
	tmpl, err := template.New(name).Funcs(customTemplateFuncs).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded template %s: %w", name, err)
	}
	return tmpl, nil
}

// LoadTemplateFile parses an operator-supplied template file with the same
// helper functions the embedded defaults use.
func LoadTemplateFile(path string) (*template.Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(customTemplateFuncs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", path, err)
	}
	return tmpl, nil
}

func percentileRows(p map[int]float64) []percentileRow {
	keys := make([]int, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	rows := make([]percentileRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, percentileRow{Key: k, Value: p[k]})
	}
	return rows
}
