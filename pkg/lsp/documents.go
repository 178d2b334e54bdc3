package lsp

import (
	"strings"
	"sync"
	"unicode/utf16"
)

// Document is one open editor buffer.
type Document struct {
	URI     string
	Path    string
	Version int
	Text    string
}

// Line returns the zero-based line, or "" when out of range.
func (d *Document) Line(n int) string {
	lines := strings.Split(d.Text, "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}
	return lines[n]
}

// Lines splits the buffer once for whole-document passes.
func (d *Document) Lines() []string {
	return strings.Split(d.Text, "\n")
}

// IsPHP reports whether the buffer holds host-language source rather
// than a definition file.
func (d *Document) IsPHP() bool {
	for _, suffix := range []string{".php", ".module", ".install", ".theme", ".inc"} {
		if strings.HasSuffix(d.Path, suffix) {
			return true
		}
	}
	return false
}

// Protocol positions count UTF-16 code units; everything in this
// server indexes bytes. The two conversions below are the only place
// the difference exists.

// byteOffset converts a UTF-16 column to a byte offset in line,
// clamped to the line's end.
func byteOffset(line string, col int) int {
	units := 0
	for i, r := range line {
		if units >= col {
			return i
		}
		units += utf16.RuneLen(r)
	}
	return len(line)
}

// utf16Col converts a byte offset in line to a UTF-16 column.
func utf16Col(line string, off int) int {
	units := 0
	for i, r := range line {
		if i >= off {
			break
		}
		units += utf16.RuneLen(r)
	}
	return units
}

// DocumentStore tracks open buffers by URI.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

func (s *DocumentStore) Open(uri, text string, version int) *Document {
	doc := &Document{URI: uri, Path: uriToPath(uri), Version: version, Text: text}
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Update replaces the full text (sync kind full). Returns nil for an
// unknown document.
func (s *DocumentStore) Update(uri, text string, version int) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return nil
	}
	doc.Text = text
	doc.Version = version
	return doc
}

func (s *DocumentStore) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}
