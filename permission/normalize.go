package permission

import (
	"encoding/json"
	"sort"
	"strings"
)

// NormalizeOverrides converts any of the legacy override encodings to the
// canonical representation: a deduplicated, sorted set of permission strings.
// Accepted inputs: []string, []any of strings, a JSON-encoded array, a
// comma-separated string, or a single permission string. The legacy wildcard
// literal "all" becomes the [PermAll] sentinel.
//
// This is the single point of format normalization; everything downstream of
// the store boundary sees only the canonical form.
func NormalizeOverrides(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case []string:
		return NormalizeOverrideStrings(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return NormalizeOverrideStrings(parts)
	case string:
		return normalizeOverrideString(v)
	default:
		return []string{}
	}
}

// NormalizeOverrideStrings normalizes a slice of raw override values into the
// canonical set form.
func NormalizeOverrideStrings(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		p = canonicalOverride(p)
		if p == "" {
			continue
		}
		seen[p] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func normalizeOverrideString(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	// JSON-encoded array, produced by older store layers.
	if strings.HasPrefix(raw, "[") {
		var parts []string
		if err := json.Unmarshal([]byte(raw), &parts); err == nil {
			return NormalizeOverrideStrings(parts)
		}
		return []string{}
	}

	if strings.Contains(raw, ",") {
		return NormalizeOverrideStrings(strings.Split(raw, ","))
	}

	return NormalizeOverrideStrings([]string{raw})
}

func canonicalOverride(p string) string {
	p = strings.TrimSpace(p)
	if strings.EqualFold(p, "all") {
		return PermAll
	}
	return p
}
