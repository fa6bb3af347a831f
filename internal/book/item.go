package book

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ItemKind tells which shape a book item has.
type ItemKind int

const (
	KindUnknown ItemKind = iota
	KindChapter
	KindSeparator
	KindPartTitle
)

// String returns the string representation of the ItemKind
func (k ItemKind) String() string {
	switch k {
	case KindChapter:
		return "Chapter"
	case KindSeparator:
		return "Separator"
	case KindPartTitle:
		return "PartTitle"
	default:
		return "unknown"
	}
}

// Item is one entry of a book's section list. Only chapters are decoded;
// every other item keeps its original JSON.
type Item struct {
	Kind    ItemKind
	Chapter *Chapter

	raw json.RawMessage
}

// NewChapterItem wraps a chapter in an item.
func NewChapterItem(ch *Chapter) *Item {
	return &Item{Kind: KindChapter, Chapter: ch}
}

// NewSeparatorItem returns a separator item.
func NewSeparatorItem() *Item {
	return &Item{Kind: KindSeparator, raw: json.RawMessage(`"Separator"`)}
}

// NewPartTitleItem returns a part title item.
func NewPartTitleItem(title string) *Item {
	raw, _ := marshal(map[string]string{"PartTitle": title})
	return &Item{Kind: KindPartTitle, raw: raw}
}

// UnmarshalJSON implements json.Unmarshaler
func (i *Item) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	i.raw = append(json.RawMessage(nil), trimmed...)

	var tag string
	if err := json.Unmarshal(trimmed, &tag); err == nil {
		if tag == "Separator" {
			i.Kind = KindSeparator
		}
		return nil
	}

	var variants map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &variants); err != nil {
		return fmt.Errorf("book item must be a string or an object: %w", err)
	}

	if raw, ok := variants["Chapter"]; ok && len(variants) == 1 {
		var ch Chapter
		if err := json.Unmarshal(raw, &ch); err != nil {
			return fmt.Errorf("chapter: %w", err)
		}
		i.Kind = KindChapter
		i.Chapter = &ch
		i.raw = nil
		return nil
	}

	if _, ok := variants["PartTitle"]; ok && len(variants) == 1 {
		i.Kind = KindPartTitle
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (i *Item) MarshalJSON() ([]byte, error) {
	if i.Chapter != nil {
		return marshal(map[string]*Chapter{"Chapter": i.Chapter})
	}
	if len(i.raw) == 0 {
		return nil, fmt.Errorf("book item of kind %s has no content", i.Kind)
	}
	return i.raw, nil
}

// Chapter is a single chapter of the book.
type Chapter struct {
	Name     string
	Content  string
	SubItems []*Item

	extra map[string]json.RawMessage
}

// NewChapter creates a chapter with the given name and content.
func NewChapter(name, content string) *Chapter {
	return &Chapter{Name: name, Content: content}
}

// Field returns the raw JSON of a chapter field that is not decoded.
func (c *Chapter) Field(name string) (json.RawMessage, bool) {
	raw, ok := c.extra[name]
	return raw, ok
}

// Path returns the chapter's source-relative path, or "" for a draft
// chapter.
func (c *Chapter) Path() string {
	raw, ok := c.Field("path")
	if !ok {
		return ""
	}
	var path *string
	if err := json.Unmarshal(raw, &path); err != nil || path == nil {
		return ""
	}
	return *path
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Chapter) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &c.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	if raw, ok := fields["content"]; ok {
		if err := json.Unmarshal(raw, &c.Content); err != nil {
			return fmt.Errorf("content: %w", err)
		}
	}
	if raw, ok := fields["sub_items"]; ok {
		if err := json.Unmarshal(raw, &c.SubItems); err != nil {
			return fmt.Errorf("sub_items: %w", err)
		}
	}

	delete(fields, "name")
	delete(fields, "content")
	delete(fields, "sub_items")
	c.extra = fields
	return nil
}

// MarshalJSON implements json.Marshaler
func (c *Chapter) MarshalJSON() ([]byte, error) {
	fields := make(map[string]interface{}, len(c.extra)+3)
	for k, v := range c.extra {
		fields[k] = v
	}

	subItems := c.SubItems
	if subItems == nil {
		subItems = []*Item{}
	}
	fields["name"] = c.Name
	fields["content"] = c.Content
	fields["sub_items"] = subItems
	return marshal(fields)
}
