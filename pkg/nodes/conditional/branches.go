package conditional

import "strings"

// Default branch tags of boolean conditions.
const (
	TagYes = "yes"
	TagNo  = "no"
)

// Branches maps a boolean decision to edge tags.
type Branches struct {
	YesTag string `json:"yesTag,omitempty" jsonschema:"default=yes,description=Edge tag followed when the condition holds"`
	NoTag  string `json:"noTag,omitempty"  jsonschema:"default=no,description=Edge tag followed otherwise"`
}

// Tag returns the configured tag for the decision.
func (b Branches) Tag(decision bool) string {
	if decision {
		if t := strings.TrimSpace(b.YesTag); t != "" {
			return t
		}

		return TagYes
	}

	if t := strings.TrimSpace(b.NoTag); t != "" {
		return t
	}

	return TagNo
}
