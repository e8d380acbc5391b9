package skills

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RankedSkill is one extracted skill.
type RankedSkill struct {
	Token      string   `json:"token"`
	Canonical  string   `json:"canonical"`
	Section    string   `json:"section"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
	Aliases    []string `json:"aliases"`
}

// Result is the cleaned extraction returned to callers.
type Result struct {
	JobSkillsRanked     []RankedSkill       `json:"job_skills_ranked"`
	BySectionTop3       map[string][]string `json:"by_section_top3"`
	SkillsFlat          []string            `json:"skills_flat"`
	KeyResponsibilities []string            `json:"key_responsibilities,omitempty"`
	CompanyValues       []string            `json:"company_values,omitempty"`
}

// extraction is the model's answer as sent.
type extraction struct {
	KeyResponsibilities []string         `json:"key_responsibilities"`
	CompanyValues       []string         `json:"company_values"`
	JobSkillsRanked     []rawSkill       `json:"job_skills_ranked"`
	BySectionTop3       map[string][]any `json:"by_section_top3"`
	Notes               []string         `json:"notes"`
}

type rawSkill struct {
	Token      string     `json:"token"`
	Canonical  string     `json:"canonical"`
	Section    string     `json:"section"`
	Confidence confidence `json:"confidence"`
	Evidence   []string   `json:"evidence"`
	Aliases    []string   `json:"aliases"`
}

// confidence accepts a JSON number or a numeric string. Anything else is zero.
type confidence float64

func (c *confidence) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = confidence(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*c = confidence(n)
			return nil
		}
	}

	*c = 0
	return nil
}
