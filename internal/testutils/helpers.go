// Package testutils holds fixtures shared by the command and package tests.
package testutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mdbook-dice/internal/config"
)

// CreateTempBook creates an mdBook source tree with a book.toml, a summary
// and the given chapters, keyed by path relative to src/. It returns the
// book root.
func CreateTempBook(t *testing.T, chapters map[string]string) string {
	t.Helper()
	root := t.TempDir()

	WriteFile(t, filepath.Join(root, "book.toml"), `[book]
title = "Test Book"
src = "src"

[preprocessor.dice]
command = "mdbook-dice"
`)

	summary := "# Summary\n\n"
	for name := range chapters {
		summary += "- [" + name + "](" + name + ")\n"
	}
	WriteFile(t, filepath.Join(root, "src", "SUMMARY.md"), summary)

	for name, content := range chapters {
		WriteFile(t, filepath.Join(root, "src", filepath.FromSlash(name)), content)
	}

	return root
}

// WriteFile writes content to path, creating parent directories
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// CreateTestConfig returns the default configuration with a short watch
// debounce for tests
func CreateTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Watch.Debounce = 20 * time.Millisecond
	return cfg
}

// Chapter describes a chapter for PreprocessorInput
type Chapter struct {
	Name     string
	Content  string
	SubItems []Chapter
}

// PreprocessorInput builds the [context, book] pair mdBook writes to a
// preprocessor's stdin. A nil diceTable leaves [preprocessor.dice] empty.
func PreprocessorInput(
	t *testing.T,
	mdbookVersion string,
	diceTable map[string]interface{},
	chapters ...Chapter,
) string {
	t.Helper()

	bookConfig := map[string]interface{}{
		"book": map[string]interface{}{"title": "Test Book", "src": "src"},
	}
	if diceTable != nil {
		bookConfig["preprocessor"] = map[string]interface{}{"dice": diceTable}
	}

	sections := make([]interface{}, 0, len(chapters)+1)
	for i, ch := range chapters {
		sections = append(sections, chapterItem(ch, []int{i + 1}, []string{}))
	}
	sections = append(sections, "Separator")

	input := []interface{}{
		map[string]interface{}{
			"root":             "/tmp/book",
			"config":           bookConfig,
			"renderer":         "html",
			"mdbook_version":   mdbookVersion,
			"__non_exhaustive": nil,
		},
		map[string]interface{}{
			"sections":         sections,
			"__non_exhaustive": nil,
		},
	}

	data, err := json.Marshal(input)
	require.NoError(t, err)
	return string(data)
}

func chapterItem(ch Chapter, number []int, parents []string) map[string]interface{} {
	path := ch.Name + ".md"

	subItems := make([]interface{}, 0, len(ch.SubItems))
	for i, sub := range ch.SubItems {
		subNumber := append(append([]int{}, number...), i+1)
		subParents := append(append([]string{}, parents...), ch.Name)
		subItems = append(subItems, chapterItem(sub, subNumber, subParents))
	}

	return map[string]interface{}{
		"Chapter": map[string]interface{}{
			"name":         ch.Name,
			"content":      ch.Content,
			"number":       number,
			"sub_items":    subItems,
			"path":         path,
			"source_path":  path,
			"parent_names": parents,
		},
	}
}

// WaitForFileContent waits until the file at path holds want (useful for
// testing file watchers)
func WaitForFileContent(t *testing.T, path, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	var got string
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil {
			got = string(data)
			if got == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s did not hold %q within %v (last content %q)", path, want, timeout, got)
}
