package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatCuisineLabel turns a raw cuisine tag such as "thai;vietnamese" or
// "fine_dining" into a display label. Only the first cuisine is used.
func FormatCuisineLabel(raw string) string {
	first, _, _ := strings.Cut(raw, ";")
	first = strings.TrimSpace(first)
	if first == "" {
		return "Restaurant"
	}

	words := strings.Split(first, "_")
	for i, w := range words {
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// FormatAddress joins "housenumber street" and city with a comma. It returns
// false when no street tag exists; a city alone is not an address.
func FormatAddress(tags Tags) (string, bool) {
	street := strings.TrimSpace(tags.Get("addr:street"))
	if street == "" {
		return "", false
	}

	line := street
	if num := strings.TrimSpace(tags.Get("addr:housenumber")); num != "" {
		line = num + " " + street
	}

	parts := []string{line}
	if city := strings.TrimSpace(tags.Get("addr:city")); city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", "), true
}

// HasStreetAddress reports whether both house number and street are tagged.
func HasStreetAddress(tags Tags) bool {
	return tags.Has("addr:street") && tags.Has("addr:housenumber")
}

// Description builds the short blurb shown under a venue name.
func Description(rawCuisine string) string {
	if strings.TrimSpace(rawCuisine) == "" {
		return "Local restaurant"
	}
	return FormatCuisineLabel(rawCuisine) + " cuisine"
}
