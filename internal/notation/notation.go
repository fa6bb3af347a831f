// Package notation rewrites inline dice-roll notation into styled markup.
//
// A notation is written between double square brackets, optionally prefixed
// with a sign that selects the roll variant:
//
//	[[2D6]]    plain roll           -> <span class='dice-roll'>2D6</span>
//	[[+1D20]]  roll with advantage  -> <span class='dice-roll advantage'>1D20</span>
//	[[-1D20]]  roll with disadvantage -> <span class='dice-roll disadvantage'>1D20</span>
//
// The body grammar is an optional digit group, one uppercase letter, any
// characters (shortest match) and a trailing digit group, e.g. 2D6, D20 or
// 1D8+3. Anything else is left untouched.
//
// # Pass ordering
//
// Rewriting runs three independent regular-expression passes in the fixed
// order plain, advantage, disadvantage. Each pass scans the output of the
// previous one. The plain pattern rejects signed notations because its body
// must start with a digit or an uppercase letter, so a leading '+' or '-'
// never reaches the plain class. That exclusion is spelled out in bodyStart.
package notation

import (
	"fmt"
	"regexp"
	"strings"
)

// Variant identifies which roll a notation asks for.
type Variant int

const (
	Plain Variant = iota
	Advantage
	Disadvantage
)

// Variants lists every variant in pass order.
var Variants = []Variant{Plain, Advantage, Disadvantage}

// String returns the string representation of the variant
func (v Variant) String() string {
	switch v {
	case Plain:
		return "plain"
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	default:
		return "unknown"
	}
}

// Sign returns the marker written after the opening brackets.
func (v Variant) Sign() string {
	switch v {
	case Advantage:
		return "+"
	case Disadvantage:
		return "-"
	default:
		return ""
	}
}

const (
	// bodyStart is the only place a body may begin: digits, then an
	// uppercase letter. Signs are consumed outside the capture group.
	// Digits are any Unicode decimal digit (\p{Nd}), not only ASCII.
	bodyStart = `(\p{Nd}+)?[A-Z]`
	body      = `(` + bodyStart + `.*?\p{Nd}+)`
)

// patterns holds one compiled expression per variant, indexed by Variant.
var patterns = [...]*regexp.Regexp{
	Plain:        compile(Plain),
	Advantage:    compile(Advantage),
	Disadvantage: compile(Disadvantage),
}

func compile(v Variant) *regexp.Regexp {
	return regexp.MustCompile(`\[\[` + regexp.QuoteMeta(v.Sign()) + body + `\]\]`)
}

// Classes holds the class attribute written for each variant.
type Classes struct {
	Plain        string `json:"plain" yaml:"plain" mapstructure:"plain"`
	Advantage    string `json:"advantage" yaml:"advantage" mapstructure:"advantage"`
	Disadvantage string `json:"disadvantage" yaml:"disadvantage" mapstructure:"disadvantage"`
}

// DefaultClasses returns the classes used by Rewrite.
func DefaultClasses() Classes {
	return Classes{
		Plain:        "dice-roll",
		Advantage:    "dice-roll advantage",
		Disadvantage: "dice-roll disadvantage",
	}
}

// For returns the class attribute for v.
func (c Classes) For(v Variant) string {
	switch v {
	case Advantage:
		return c.Advantage
	case Disadvantage:
		return c.Disadvantage
	default:
		return c.Plain
	}
}

// Validate checks that every class can be embedded in a single-quoted
// attribute.
func (c Classes) Validate() error {
	for _, v := range Variants {
		class := c.For(v)
		if strings.TrimSpace(class) == "" {
			return fmt.Errorf("%s class cannot be empty", v)
		}
		if strings.ContainsAny(class, "'<>\r\n") {
			return fmt.Errorf("%s class %q contains forbidden characters", v, class)
		}
	}
	return nil
}

// Rewriter replaces dice notation with span fragments. The zero value is not
// usable; build one with NewRewriter.
type Rewriter struct {
	classes      Classes
	replacements [3]string
}

// NewRewriter creates a rewriter that writes the given classes.
func NewRewriter(classes Classes) (*Rewriter, error) {
	if err := classes.Validate(); err != nil {
		return nil, err
	}

	r := &Rewriter{classes: classes}
	for _, v := range Variants {
		r.replacements[v] = "<span class='" + escapeTemplate(classes.For(v)) + "'>${1}</span>"
	}
	return r, nil
}

// Rewrite applies the plain, advantage and disadvantage passes in order.
func (r *Rewriter) Rewrite(text string) string {
	for _, v := range Variants {
		text = patterns[v].ReplaceAllString(text, r.replacements[v])
	}
	return text
}

// Fragment renders the markup for one notation body.
func (r *Rewriter) Fragment(v Variant, body string) string {
	return "<span class='" + r.classes.For(v) + "'>" + body + "</span>"
}

// Scan reports the notations Rewrite would replace. Tokens of a later pass
// carry offsets into the text as rewritten by the earlier passes.
func (r *Rewriter) Scan(text string) []Token {
	var tokens []Token
	for _, v := range Variants {
		re := patterns[v]
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			tokens = append(tokens, Token{
				Variant: v,
				Body:    text[loc[2]:loc[3]],
				Raw:     text[loc[0]:loc[1]],
				Offset:  loc[0],
				Line:    strings.Count(text[:loc[0]], "\n") + 1,
			})
		}
		text = re.ReplaceAllString(text, r.replacements[v])
	}
	return tokens
}

// escapeTemplate protects '$' in class names from regexp expansion.
func escapeTemplate(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

var defaultRewriter = func() *Rewriter {
	r, err := NewRewriter(DefaultClasses())
	if err != nil {
		panic(err)
	}
	return r
}()

// Rewrite rewrites text with the default classes.
func Rewrite(text string) string {
	return defaultRewriter.Rewrite(text)
}

// Scan scans text with the default classes.
func Scan(text string) []Token {
	return defaultRewriter.Scan(text)
}
