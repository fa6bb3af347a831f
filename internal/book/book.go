// Package book models the JSON that mdBook exchanges with preprocessors.
//
// mdBook writes a two-element array to a preprocessor's stdin: the
// preprocessor context and the book. The preprocessor answers with the book
// alone. Only chapter content is ever modified here, so every field this
// package does not name is kept as raw JSON and written back untouched.
package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Context is the first element of the preprocessor input.
type Context struct {
	Root          string                 `json:"root"`
	Config        map[string]interface{} `json:"config"`
	Renderer      string                 `json:"renderer"`
	MdbookVersion string                 `json:"mdbook_version"`
}

// PreprocessorTable returns the `[preprocessor.<name>]` table from the book
// configuration, or nil when the book has none.
func (c *Context) PreprocessorTable(name string) map[string]interface{} {
	if c == nil || c.Config == nil {
		return nil
	}
	preprocessors, ok := c.Config["preprocessor"].(map[string]interface{})
	if !ok {
		return nil
	}
	table, ok := preprocessors[name].(map[string]interface{})
	if !ok {
		return nil
	}
	return table
}

// Book is the book tree handed to preprocessors.
type Book struct {
	Sections []*Item

	extra map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler
func (b *Book) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	raw, ok := fields["sections"]
	if !ok {
		return fmt.Errorf("book has no sections")
	}
	if err := json.Unmarshal(raw, &b.Sections); err != nil {
		return fmt.Errorf("sections: %w", err)
	}

	delete(fields, "sections")
	b.extra = fields
	return nil
}

// MarshalJSON implements json.Marshaler
func (b *Book) MarshalJSON() ([]byte, error) {
	fields := make(map[string]interface{}, len(b.extra)+1)
	for k, v := range b.extra {
		fields[k] = v
	}

	sections := b.Sections
	if sections == nil {
		sections = []*Item{}
	}
	fields["sections"] = sections
	return marshal(fields)
}

// ForEachMut calls fn for every item in the book, visiting an item's
// children before the item itself.
func (b *Book) ForEachMut(fn func(item *Item)) {
	forEachMut(b.Sections, fn)
}

func forEachMut(items []*Item, fn func(item *Item)) {
	for _, item := range items {
		if item == nil {
			continue
		}
		if item.Chapter != nil {
			forEachMut(item.Chapter.SubItems, fn)
		}
		fn(item)
	}
}

// ForEachChapter calls fn for every chapter in the book.
func (b *Book) ForEachChapter(fn func(ch *Chapter)) {
	b.ForEachMut(func(item *Item) {
		if item.Chapter != nil {
			fn(item.Chapter)
		}
	})
}

// ParseInput decodes the `[context, book]` pair mdBook writes to stdin.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading input: %w", err)
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, nil, fmt.Errorf("unable to parse the input: %w", err)
	}
	if len(pair) != 2 {
		return nil, nil, fmt.Errorf("unable to parse the input: expected [context, book], got %d elements", len(pair))
	}

	var ctx Context
	if err := json.Unmarshal(pair[0], &ctx); err != nil {
		return nil, nil, fmt.Errorf("unable to parse the context: %w", err)
	}

	var book Book
	if err := json.Unmarshal(pair[1], &book); err != nil {
		return nil, nil, fmt.Errorf("unable to parse the book: %w", err)
	}

	return &ctx, &book, nil
}

// WriteBook encodes the book the way mdBook expects to read it back.
func WriteBook(w io.Writer, b *Book) error {
	data, err := marshal(b)
	if err != nil {
		return fmt.Errorf("encoding book: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing book: %w", err)
	}
	return nil
}

// marshal encodes v without escaping '<', '>' and '&', which chapter
// content is full of after rewriting.
func marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
