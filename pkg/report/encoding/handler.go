// Package encoding detects the character encoding of dataset files and
// converts their content to UTF-8. Regional statistical exports are routinely
// shipped in legacy encodings (Latin-1 / Windows-1252 field catalogs are
// common), so CSV loading cannot assume UTF-8 input.
package encoding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	// sniffLen is the number of bytes used by http.DetectContentType.
	sniffLen = 512
	// checkLen is the buffer size used for null byte checks.
	checkLen = 1024
	// nullThreshold is the null-byte fraction above which content is treated as binary.
	nullThreshold = 0.15
)

// Text-based MIME prefixes accepted by IsBinary. Delimited exports are often
// sniffed as plain text or octet-stream; the null-byte check covers the rest.
var knownTextMIMEPrefixes = map[string]bool{
	"application/json": true,
	"application/xml":  true,
	"application/csv":  true,
	"application/yaml": true,
}

// Handler detects character encodings, converts content to UTF-8, and flags
// binary payloads that cannot be a delimited dataset.
type Handler interface {
	// DetectAndDecode attempts to detect the encoding of the input content
	// and convert it to UTF-8. It returns the UTF-8 bytes, the detected
	// encoding name (IANA name), a boolean indicating whether detection was
	// certain, and any conversion error. The configured fallback encoding is
	// applied when detection is uncertain.
	DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certain bool, err error)

	// IsBinary reports whether the content is likely binary data, based on
	// MIME sniffing of the first 512 bytes and the null-byte fraction of the
	// first 1024 bytes.
	IsBinary(content []byte) bool
}

// charsetHandler implements Handler using golang.org/x/net/html/charset and
// golang.org/x/text/transform.
type charsetHandler struct {
	fallbackEncoding string
}

// NewCharsetHandler creates a Handler with the given fallback encoding name
// (e.g. "windows-1252"). An empty fallback keeps the detector's best guess.
func NewCharsetHandler(fallbackEncoding string) Handler {
	return &charsetHandler{fallbackEncoding: fallbackEncoding}
}

// DetectAndDecode implements the Handler interface.
func (h *charsetHandler) DetectAndDecode(content []byte) ([]byte, string, bool, error) {
	enc, name, certain := charset.DetermineEncoding(content, "")

	// The detector defaults to windows-1252 when nothing identifies the
	// encoding; decoding through that guess would mangle content that is
	// already valid UTF-8, so check validity before trusting it.
	if !certain && utf8.Valid(content) {
		return content, "utf-8", true, nil
	}

	if !certain && h.fallbackEncoding != "" {
		if fallback, fallbackName := charset.Lookup(h.fallbackEncoding); fallback != nil {
			enc = fallback
			name = fallbackName
			certain = true // caller asked for this fallback explicitly
		}
	}

	if enc == nil {
		if name == "" {
			name = "utf-8"
		}
		return content, name, certain, nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		if name == "" {
			name = "unknown"
		}
		return content, name, certain, fmt.Errorf("failed to convert from %q: %w", name, err)
	}
	if name == "" {
		name = "unknown"
	}
	return decoded, name, certain, nil
}

// IsBinary implements the Handler interface.
func (h *charsetHandler) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	limit := min(len(content), sniffLen)
	if !isMIMETextBased(http.DetectContentType(content[:limit])) {
		return true
	}

	limit = min(len(content), checkLen)
	nulls := bytes.Count(content[:limit], []byte{0x00})
	return float64(nulls)/float64(limit) > nullThreshold
}

func isMIMETextBased(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	if knownTextMIMEPrefixes[mimeType] {
		return true
	}
	if strings.HasSuffix(mimeType, "+xml") || strings.HasSuffix(mimeType, "+json") {
		return true
	}
	// octet-stream may still be text; rely on the null check.
	return mimeType == "application/octet-stream"
}
