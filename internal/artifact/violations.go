package artifact

import (
	"fmt"
	"strings"

	"splice/internal/services"
)

// Violation is one reason a payload failed validation.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Reason
	}
	return v.Field + ": " + v.Reason
}

// Violations is the error returned when an artifact fails validation. It
// carries every violation found and matches services.ErrValidation.
type Violations struct {
	Kind  Kind        `json:"kind"`
	Items []Violation `json:"violations"`
}

func (v *Violations) Error() string {
	if v == nil || len(v.Items) == 0 {
		return "schema violation"
	}
	parts := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		parts = append(parts, item.String())
	}
	return fmt.Sprintf("%s schema violation (%d): %s", v.Kind, len(v.Items), strings.Join(parts, "; "))
}

func (v *Violations) Unwrap() error {
	return services.ErrValidation
}

// Has reports whether any violation names field.
func (v *Violations) Has(field string) bool {
	for _, item := range v.Items {
		if item.Field == field {
			return true
		}
	}
	return false
}

type collector struct {
	items []Violation
}

func (c *collector) add(field, format string, args ...any) {
	c.items = append(c.items, Violation{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (c *collector) empty() bool {
	return len(c.items) == 0
}

func (c *collector) err(kind Kind) error {
	if c.empty() {
		return nil
	}
	items := make([]Violation, len(c.items))
	copy(items, c.items)
	return &Violations{Kind: kind, Items: items}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
