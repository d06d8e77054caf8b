package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// generateFrontMatter marshals data into a YAML or TOML front matter block,
// delimiters included. Returns an empty slice when data is empty so callers
// can prepend unconditionally.
func generateFrontMatter(data map[string]any, format string) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	switch strings.ToLower(format) {
	case "yaml", "":
		body, err := yaml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshalling front matter as yaml: %w", err)
		}
		var buf bytes.Buffer
		buf.WriteString("---\n")
		buf.Write(body)
		buf.WriteString("---\n\n")
		return buf.Bytes(), nil
	case "toml":
		var body bytes.Buffer
		if err := toml.NewEncoder(&body).Encode(data); err != nil {
			return nil, fmt.Errorf("marshalling front matter as toml: %w", err)
		}
		var buf bytes.Buffer
		buf.WriteString("+++\n")
		buf.Write(body.Bytes())
		if !bytes.HasSuffix(body.Bytes(), []byte("\n")) {
			buf.WriteString("\n")
		}
		buf.WriteString("+++\n\n")
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported front matter format %q", format)
	}
}

// buildFrontMatterData merges the static front matter keys with the page
// fields every report page carries. Static keys win over generated ones so
// operators can override titles per job.
func buildFrontMatterData(req PageRequest) map[string]any {
	data := map[string]any{
		"id":    req.RecordID,
		"title": req.Title,
	}
	if req.RecordName != "" {
		data["name"] = req.RecordName
	}
	for k, v := range req.FrontMatter.Static {
		data[k] = v
	}
	return data
}
