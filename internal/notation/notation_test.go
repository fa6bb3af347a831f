package notation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestVariantString(t *testing.T) {
	testCases := []struct {
		variant  Variant
		expected string
		sign     string
	}{
		{Plain, "plain", ""},
		{Advantage, "advantage", "+"},
		{Disadvantage, "disadvantage", "-"},
		{Variant(42), "unknown", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.variant.String())
			assert.Equal(t, tc.sign, tc.variant.Sign())
		})
	}
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain roll",
			input:    "[[2D6]]",
			expected: "<span class='dice-roll'>2D6</span>",
		},
		{
			name:     "no leading count",
			input:    "[[D20]]",
			expected: "<span class='dice-roll'>D20</span>",
		},
		{
			name:     "advantage",
			input:    "[[+1D20]]",
			expected: "<span class='dice-roll advantage'>1D20</span>",
		},
		{
			name:     "disadvantage",
			input:    "[[-1D20]]",
			expected: "<span class='dice-roll disadvantage'>1D20</span>",
		},
		{
			name:     "fullwidth digits",
			input:    "[[1D６]]",
			expected: "<span class='dice-roll'>1D６</span>",
		},
		{
			name:     "arabic-indic count with advantage",
			input:    "[[+٢D6]]",
			expected: "<span class='dice-roll advantage'>٢D6</span>",
		},
		{
			name:     "devanagari digits with disadvantage",
			input:    "[[-१D२०]]",
			expected: "<span class='dice-roll disadvantage'>१D२०</span>",
		},
		{
			name:     "modifier inside body",
			input:    "Damage: [[1D8+3]] slashing",
			expected: "Damage: <span class='dice-roll'>1D8+3</span> slashing",
		},
		{
			name:     "multiple notations left to right",
			input:    "roll [[1D20]] then [[+2D6]]",
			expected: "roll <span class='dice-roll'>1D20</span> then <span class='dice-roll advantage'>2D6</span>",
		},
		{
			name:     "all variants on one line",
			input:    "[[-D4]] [[+D8]] [[D6]]",
			expected: "<span class='dice-roll disadvantage'>D4</span> <span class='dice-roll advantage'>D8</span> <span class='dice-roll'>D6</span>",
		},
		{
			name:     "lowercase letter is not notation",
			input:    "[[d20]]",
			expected: "[[d20]]",
		},
		{
			name:     "missing trailing digits",
			input:    "[[ABC]]",
			expected: "[[ABC]]",
		},
		{
			name:     "unknown sign",
			input:    "[[*1D6]]",
			expected: "[[*1D6]]",
		},
		{
			name:     "single brackets",
			input:    "[1D6]",
			expected: "[1D6]",
		},
		{
			name:     "body does not cross lines",
			input:    "[[1D\n6]]",
			expected: "[[1D\n6]]",
		},
		{
			name:     "markup in body is not escaped",
			input:    "[[D<b>6]]",
			expected: "<span class='dice-roll'>D<b>6</span>",
		},
		{
			name:     "shortest body wins",
			input:    "[[1D6]]]] and [[2D8]]",
			expected: "<span class='dice-roll'>1D6</span>]] and <span class='dice-roll'>2D8</span>",
		},
		{
			name:     "plain pass runs before signed passes",
			input:    "[[+A1 [[B2]]",
			expected: "[[+A1 <span class='dice-roll'>B2</span>",
		},
		{
			name:     "nested plain inside signed brackets",
			input:    "[[+[[1D6]]]]",
			expected: "[[+<span class='dice-roll'>1D6</span>]]",
		},
		{
			name:     "empty text",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rewrite(tt.input))
		})
	}
}

func TestRewriteIdentityWithoutNotation(t *testing.T) {
	inputs := []string{
		"# Chapter 1\n\nNo dice here.",
		"Links like [text](http://example.com) and [[wiki]] stay.",
		"```rust\nlet x = a[[0]];\n```",
		"unicode: ダイス 🎲",
	}

	for _, input := range inputs {
		assert.Equal(t, input, Rewrite(input))
	}
}

func TestRewriteDoesNotDoubleWrap(t *testing.T) {
	inputs := []string{
		"roll [[1D20]] then [[+2D6]]",
		"[[-D4]] [[+D8]] [[D6]]",
		"[[1D8+3]]",
	}

	for _, input := range inputs {
		once := Rewrite(input)
		assert.Equal(t, once, Rewrite(once), "second pass changed %q", once)
		assert.NotContains(t, once, "[[")
	}
}

func TestRewriteFragmentsParseAsSpans(t *testing.T) {
	out := Rewrite("<p>[[2D6]] [[+1D20]] [[-1D20]]</p>")

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)

	type span struct{ class, text string }
	var spans []span
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "span" {
			s := span{}
			for _, attr := range n.Attr {
				if attr.Key == "class" {
					s.class = attr.Val
				}
			}
			if n.FirstChild != nil {
				s.text = n.FirstChild.Data
			}
			spans = append(spans, s)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	require.Len(t, spans, 3)
	assert.Equal(t, span{"dice-roll", "2D6"}, spans[0])
	assert.Equal(t, span{"dice-roll advantage", "1D20"}, spans[1])
	assert.Equal(t, span{"dice-roll disadvantage", "1D20"}, spans[2])
}

func TestCustomClasses(t *testing.T) {
	r, err := NewRewriter(Classes{
		Plain:        "roll",
		Advantage:    "roll roll--adv",
		Disadvantage: "roll roll--dis",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"<span class='roll'>D6</span> <span class='roll roll--adv'>D8</span> <span class='roll roll--dis'>D4</span>",
		r.Rewrite("[[D6]] [[+D8]] [[-D4]]"),
	)
	assert.Equal(t, "[[d6]]", r.Rewrite("[[d6]]"))
	assert.Equal(t, "<span class='roll roll--adv'>2D6</span>", r.Fragment(Advantage, "2D6"))
}

func TestCustomClassWithDollar(t *testing.T) {
	r, err := NewRewriter(Classes{Plain: "cost$1", Advantage: "a", Disadvantage: "d"})
	require.NoError(t, err)

	assert.Equal(t, "<span class='cost$1'>D6</span>", r.Rewrite("[[D6]]"))
}

func TestClassesValidate(t *testing.T) {
	tests := []struct {
		name        string
		classes     Classes
		expectError bool
	}{
		{"defaults", DefaultClasses(), false},
		{"empty plain", Classes{Plain: " ", Advantage: "a", Disadvantage: "d"}, true},
		{"empty disadvantage", Classes{Plain: "p", Advantage: "a"}, true},
		{"quote", Classes{Plain: "p'x", Advantage: "a", Disadvantage: "d"}, true},
		{"angle bracket", Classes{Plain: "p", Advantage: "<a>", Disadvantage: "d"}, true},
		{"newline", Classes{Plain: "p", Advantage: "a", Disadvantage: "d\n"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.classes.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := NewRewriter(Classes{})
	assert.Error(t, err)
}

func TestFragment(t *testing.T) {
	assert.Equal(t, "<span class='dice-roll advantage'>2D6</span>", defaultRewriter.Fragment(Advantage, "2D6"))
	assert.Equal(t, Rewrite("[[-3D4]]"), defaultRewriter.Fragment(Disadvantage, "3D4"))
}

func TestPatterns(t *testing.T) {
	assert.Equal(t, `\[\[\+((\p{Nd}+)?[A-Z].*?\p{Nd}+)\]\]`, patterns[Advantage].String())
	assert.Equal(t, `\[\[-((\p{Nd}+)?[A-Z].*?\p{Nd}+)\]\]`, patterns[Disadvantage].String())

	assert.True(t, patterns[Plain].MatchString("[[2D6]]"))
	assert.False(t, patterns[Plain].MatchString("[[+2D6]]"))
	assert.False(t, patterns[Plain].MatchString("[[-2D6]]"))
	assert.True(t, patterns[Advantage].MatchString("[[+2D6]]"))
	assert.False(t, patterns[Advantage].MatchString("[[-2D6]]"))
	assert.True(t, patterns[Disadvantage].MatchString("[[-2D6]]"))
	assert.False(t, patterns[Disadvantage].MatchString("[[2D6]]"))
}
