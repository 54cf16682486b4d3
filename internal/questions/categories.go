package questions

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var defaultDescriptions = map[string]string{
	"general":       "General knowledge questions",
	"entertainment": "Movies, music, TV and pop culture",
	"sports":        "Sports and athletics",
	"geography":     "Countries, capitals and landmarks",
	"science":       "Science and nature",
	"history":       "Historical events and figures",
	"food":          "Food, drink and cooking",
	"business":      "Business, economics and brands",
}

// DisplayName turns a category id such as "world_history" into "World History".
func DisplayName(category string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(category, "_", " "))
}

func DescriptionFor(category string) string {
	return defaultDescriptions[category]
}

// NormalizeCategories trims, lower-cases and de-duplicates categories,
// keeping first-seen order and dropping empty values.
func NormalizeCategories(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.ToLower(strings.TrimSpace(c))
		c = strings.Join(strings.Fields(c), "_")
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
