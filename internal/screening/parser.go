package screening

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/truthbyte/backend/internal/models"
)

var validRecommendations = map[string]bool{"approve": true, "reject": true, "review": true}

const maxNotesLength = 1000

// ParseVerdict decodes a screening response. Markdown code fences around the
// JSON are tolerated.
func ParseVerdict(responseBody string) (*models.ScreeningVerdict, error) {
	cleaned := stripCodeFences(responseBody)

	var v models.ScreeningVerdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	v.Recommendation = strings.ToLower(strings.TrimSpace(v.Recommendation))
	if !validRecommendations[v.Recommendation] {
		return nil, fmt.Errorf("unknown recommendation %q", v.Recommendation)
	}
	v.Notes = strings.TrimSpace(v.Notes)
	if r := []rune(v.Notes); len(r) > maxNotesLength {
		v.Notes = string(r[:maxNotesLength])
	}
	return &v, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
