package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestExtractTextPlain(t *testing.T) {
	path := writeSource(t, "doc.txt", "line one\nline two\n")

	got, err := ExtractText(path, "text")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "line one\nline two\n" {
		t.Errorf("ExtractText() = %q", got)
	}
}

func TestExtractTextMarkdown(t *testing.T) {
	md := "# Title\n\nA paragraph with **bold** and *italic* text.\n\n- item one\n- item two\n\n```\ncode line\n```\n"
	path := writeSource(t, "doc.md", md)

	got, err := ExtractText(path, "markdown")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}

	for _, want := range []string{"Title", "A paragraph with bold and italic text.", "item one", "item two", "code line"} {
		if !strings.Contains(got, want) {
			t.Errorf("ExtractText() missing %q in %q", want, got)
		}
	}
	for _, markup := range []string{"#", "**", "- ", "```"} {
		if strings.Contains(got, markup) {
			t.Errorf("ExtractText() leaked markup %q in %q", markup, got)
		}
	}
}

func TestExtractTextUnsupportedType(t *testing.T) {
	path := writeSource(t, "doc.bin", "data")

	if _, err := ExtractText(path, "pdf"); err == nil {
		t.Error("ExtractText() error = nil, want error for unsupported type")
	}
}

func TestExtractTextMissingFile(t *testing.T) {
	if _, err := ExtractText(filepath.Join(t.TempDir(), "absent.txt"), "text"); err == nil {
		t.Error("ExtractText() error = nil, want error for missing file")
	}
}
