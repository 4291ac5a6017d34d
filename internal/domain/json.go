package domain

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON writes a match in the shape the review UI consumes:
// every passenger locale appears as "<locale>Value" (null when missing)
// next to the full translations map.
func (m MatchResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 5+len(m.Translations))
	for locale, v := range m.Translations {
		out[locale+"Value"] = v
	}
	translations := m.Translations
	if translations == nil {
		translations = map[string]*string{}
	}
	out["key"] = m.Key
	out["value"] = m.Value
	out["translations"] = translations
	out["type"] = m.Type
	out["score"] = m.Score
	return json.Marshal(out)
}

// UnmarshalJSON reads the shape written by MarshalJSON.
func (m *MatchResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key          string             `json:"key"`
		Value        string             `json:"value"`
		Translations map[string]*string `json:"translations"`
		Type         MatchType          `json:"type"`
		Score        int                `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode match result: %w", err)
	}
	*m = MatchResult{
		Key:          raw.Key,
		Value:        raw.Value,
		Translations: raw.Translations,
		Type:         raw.Type,
		Score:        raw.Score,
	}
	return nil
}
