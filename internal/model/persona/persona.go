package persona

import "strings"

// LinkedInFallback stands in for the optional professional-history text when
// it cannot be read.
const LinkedInFallback = "LinkedIn profile not available."

// Bundle 是人物设定的静态资料，加载后只读。
type Bundle struct {
	Facts    map[string]any `json:"facts"`
	Summary  string         `json:"summary"`
	Style    string         `json:"style"`
	LinkedIn string         `json:"linkedin"`
}

// Card is the public face of the bundle exposed to the frontend.
type Card struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Name returns the persona's display name taken from the facts.
func (b *Bundle) Name() string {
	if b == nil {
		return ""
	}
	for _, key := range []string{"name", "full_name"} {
		if v, ok := b.Facts[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Card builds the public card for the bundle.
func (b *Bundle) Card() Card {
	if b == nil {
		return Card{}
	}
	return Card{Name: b.Name(), Summary: strings.TrimSpace(b.Summary)}
}
