package textnorm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/loqalabs/loqa-voice/internal/apperr"
)

// Document is normalized input text. It is immutable once built.
type Document struct {
	text string
}

// NewDocument normalizes raw into a Document.
func NewDocument(raw string) Document {
	return Document{text: Normalize(raw)}
}

func (d Document) Text() string { return d.text }

// Len returns the length of the normalized text in bytes.
func (d Document) Len() int { return len(d.text) }

// Blank reports whether the document has nothing but whitespace.
func (d Document) Blank() bool { return strings.TrimSpace(d.text) == "" }

// Load reads the whole file at path and normalizes it. A leading UTF-8 or
// UTF-16 byte order mark is honoured and stripped.
func Load(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, apperr.IO("read text file", err)
	}
	defer f.Close()

	return read(f, path)
}

func read(r io.Reader, name string) (Document, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return Document{}, apperr.IO("read text file", fmt.Errorf("%s: %w", name, err))
	}
	return NewDocument(string(data)), nil
}
