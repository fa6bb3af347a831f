package notation

import "fmt"

// Token is one notation found in a text.
type Token struct {
	Variant Variant `json:"variant" yaml:"variant"`
	Body    string  `json:"body" yaml:"body"`
	Raw     string  `json:"raw" yaml:"raw"`
	Offset  int     `json:"offset" yaml:"offset"`
	Line    int     `json:"line" yaml:"line"`
}

// String returns the notation as it appeared in the source.
func (t Token) String() string {
	return fmt.Sprintf("%s (%s) at line %d", t.Raw, t.Variant, t.Line)
}

// MarshalText lets encoders write the variant by name.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a variant name.
func (v *Variant) UnmarshalText(text []byte) error {
	switch string(text) {
	case "plain":
		*v = Plain
	case "advantage":
		*v = Advantage
	case "disadvantage":
		*v = Disadvantage
	default:
		return fmt.Errorf("unknown variant %q", string(text))
	}
	return nil
}
