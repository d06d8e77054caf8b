package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoatlas/atlas-reporter/pkg/report/stats"
)

func TestFormatExtension(t *testing.T) {
	tests := []struct {
		format  Format
		want    string
		wantErr bool
	}{
		{FormatMarkdown, ".md", false},
		{FormatHTML, ".html", false},
		{Format("pdf"), "", true},
		{Format(""), "", true},
	}
	for _, tt := range tests {
		ext, err := tt.format.Extension()
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownFormat, "format %q", tt.format)
		} else {
			require.NoError(t, err)
			assert.Equal(t, tt.want, ext)
		}
	}
}

func TestMapStyleValidate(t *testing.T) {
	assert.NoError(t, StyleChoropleth.Validate())
	assert.NoError(t, StyleCategorical.Validate())
	assert.NoError(t, StyleBivariate.Validate())
	assert.ErrorIs(t, MapStyle("heatmap").Validate(), ErrUnknownStyle)
}

func TestGenerateFrontMatter(t *testing.T) {
	data := map[string]any{"title": "Report", "draft": false}

	t.Run("yaml", func(t *testing.T) {
		block, err := generateFrontMatter(data, "yaml")
		require.NoError(t, err)
		s := string(block)
		assert.True(t, strings.HasPrefix(s, "---\n"))
		assert.Contains(t, s, "title: Report")
		assert.Contains(t, s, "draft: false")
		assert.True(t, strings.HasSuffix(s, "---\n\n"))
	})

	t.Run("toml", func(t *testing.T) {
		block, err := generateFrontMatter(data, "toml")
		require.NoError(t, err)
		s := string(block)
		assert.True(t, strings.HasPrefix(s, "+++\n"))
		assert.Contains(t, s, `title = "Report"`)
		assert.True(t, strings.HasSuffix(s, "+++\n\n"))
	})

	t.Run("empty data", func(t *testing.T) {
		block, err := generateFrontMatter(nil, "yaml")
		require.NoError(t, err)
		assert.Empty(t, block)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := generateFrontMatter(data, "json5")
		assert.Error(t, err)
	})
}

func TestStaticProviderAcquire(t *testing.T) {
	p := &StaticProvider{}

	t.Run("none yields no resource", func(t *testing.T) {
		b, err := p.Acquire(BasemapNone)
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("osm", func(t *testing.T) {
		b, err := p.Acquire(BasemapOSM)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, BasemapOSM, b.Kind())
		assert.Equal(t, "https://tile.openstreetmap.org/{z}/{x}/{y}.png", b.TileURL())
		assert.Contains(t, b.Attribution(), "OpenStreetMap")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := p.Acquire(BasemapKind("bing"))
		assert.Error(t, err)
	})
}

func TestBasemapCloseOnce(t *testing.T) {
	releases := 0
	p := &StaticProvider{OnRelease: func(BasemapKind) { releases++ }}
	b, err := p.Acquire(BasemapPositron)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, releases)
}

func samplePageRequest(t *testing.T, format Format) PageRequest {
	t.Helper()
	return PageRequest{
		OutputDir: t.TempDir(),
		BaseName:  "district_a",
		Format:    format,
		DPI:       150,
		Title:     "Population Atlas",
		Subtitle:  "Annual review",
		Footer:    "Internal use only",
		MapStyle:  StyleChoropleth,

		RecordID:   "A",
		RecordName: "District A",

		Stats: stats.FieldStats{
			FieldName: "pop",
			Count:     3,
			Min:       10, Max: 30, Mean: 20, Median: 20, Std: 10,
			Percentiles: map[int]float64{25: 10, 50: 20, 75: 30},
		},
		Ranking: []stats.RankEntry{
			{RecordID: "C", Name: "District C", Value: 30, Rank: 1},
			{RecordID: "B", Name: "District B", Value: 20, Rank: 2},
			{RecordID: "A", Name: "District A", Value: 10, Rank: 3},
		},
		Context: stats.FeatureContext{
			RecordID: "A", Name: "District A", Value: 10,
			Rank: 3, TotalFeatures: 3,
			DeviationFromMean: -1, Percentile: 33.3, IsMin: true,
		},
	}
}

func TestTemplateRendererMarkdown(t *testing.T) {
	req := samplePageRequest(t, FormatMarkdown)
	r := NewTemplateRenderer()

	path, err := r.RenderPage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(req.OutputDir, "district_a.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(content)
	assert.Contains(t, s, "# Population Atlas")
	assert.Contains(t, s, "## District A")
	assert.Contains(t, s, "| pop | 10 |")
	assert.Contains(t, s, "| Rank | 3 of 3 |")
	assert.Contains(t, s, "| Note | Lowest value in dataset |")
	assert.Contains(t, s, "| p50 | 20.00 |")
	assert.Contains(t, s, "| 1 | District C | 30 |")
	assert.Contains(t, s, "Internal use only")
	assert.NotContains(t, s, "---\ntitle:", "front matter disabled by default")
}

func TestTemplateRendererFrontMatter(t *testing.T) {
	req := samplePageRequest(t, FormatMarkdown)
	req.FrontMatter = FrontMatterConfig{
		Enabled: true,
		Format:  "yaml",
		Static:  map[string]any{"atlas": "pop-2026"},
	}

	path, err := NewTemplateRenderer().RenderPage(context.Background(), req)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(content)
	assert.True(t, strings.HasPrefix(s, "---\n"))
	assert.Contains(t, s, "id: A")
	assert.Contains(t, s, "name: District A")
	assert.Contains(t, s, "atlas: pop-2026")
}

func TestTemplateRendererHTML(t *testing.T) {
	req := samplePageRequest(t, FormatHTML)
	req.FrontMatter.Enabled = true // ignored for html pages

	path, err := NewTemplateRenderer().RenderPage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(req.OutputDir, "district_a.html"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(content)
	assert.Contains(t, s, "<title>Population Atlas &ndash; District A</title>")
	assert.Contains(t, s, "<td>3 of 3</td>")
	assert.NotContains(t, s, "+++")
	assert.NotContains(t, s, "\n---\n")
}

func TestTemplateRendererBasemapAttribution(t *testing.T) {
	req := samplePageRequest(t, FormatMarkdown)
	b, err := (&StaticProvider{}).Acquire(BasemapOSM)
	require.NoError(t, err)
	req.Basemap = b

	path, err := NewTemplateRenderer().RenderPage(context.Background(), req)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "OpenStreetMap contributors")
}

func TestTemplateRendererBadRequest(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		req := samplePageRequest(t, Format("pdf"))
		_, err := NewTemplateRenderer().RenderPage(context.Background(), req)
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("unknown style", func(t *testing.T) {
		req := samplePageRequest(t, FormatMarkdown)
		req.MapStyle = MapStyle("heatmap")
		_, err := NewTemplateRenderer().RenderPage(context.Background(), req)
		assert.ErrorIs(t, err, ErrUnknownStyle)
	})

	t.Run("cancelled context", func(t *testing.T) {
		req := samplePageRequest(t, FormatMarkdown)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewTemplateRenderer().RenderPage(ctx, req)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadTemplateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.md")
	require.NoError(t, os.WriteFile(path, []byte("custom: {{ .RecordID }}\n"), 0o644))

	tmpl, err := LoadTemplateFile(path)
	require.NoError(t, err)

	req := samplePageRequest(t, FormatMarkdown)
	r := &TemplateRenderer{Template: tmpl}
	out, err := r.RenderPage(context.Background(), req)
	require.NoError(t, err)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "custom: A\n", string(content))
}
