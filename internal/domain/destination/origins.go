package destination

import "strings"

// History and favorites limits.
const (
	MaxOriginHistory   = 12
	MaxFavoriteOrigins = 8
)

// Dedupe trims values and drops empty strings and case-insensitive
// repeats, keeping the first occurrence.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		norm := strings.ToLower(v)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, v)
	}
	return out
}

// PushHistory puts origin at the front of history.
func PushHistory(history []string, origin string) []string {
	return limit(Dedupe(append([]string{origin}, history...)), MaxOriginHistory)
}

// ToggleFavorite removes origin from favorites when present and otherwise
// adds it at the front. It reports whether origin is a favorite afterwards.
func ToggleFavorite(favorites []string, origin string) ([]string, bool) {
	norm := strings.ToLower(strings.TrimSpace(origin))
	kept := make([]string, 0, len(favorites))
	removed := false
	for _, f := range favorites {
		if strings.ToLower(strings.TrimSpace(f)) == norm {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	if removed {
		return kept, false
	}
	return limit(Dedupe(append([]string{origin}, favorites...)), MaxFavoriteOrigins), true
}

func limit(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
