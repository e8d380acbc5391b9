package skills

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Errors returned by the extractor.
var (
	ErrEmptyJobDescription = errors.New("job description cannot be empty")
	ErrUnparseableResponse = errors.New("LLM response is not valid JSON")
)

var (
	openFenceRegex  = regexp.MustCompile("^```(?:json)?\\s*")
	closeFenceRegex = regexp.MustCompile("\\s*```\\s*$")
)

// parseResponse decodes the model's answer. It strips code fences and, when
// the text holds more than one JSON object or trailing prose, picks the most
// complete object it can find.
func parseResponse(text string) (*extraction, error) {
	s := strings.TrimSpace(text)
	s = openFenceRegex.ReplaceAllString(s, "")
	s = closeFenceRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, `\&`, "&")

	var ex extraction
	if err := json.Unmarshal([]byte(s), &ex); err == nil {
		return &ex, nil
	}

	candidates := objectCandidates(s)
	if len(candidates) == 0 {
		if strings.Count(s, "{") > strings.Count(s, "}") {
			return nil, fmt.Errorf("%w: response appears truncated (unbalanced braces)", ErrUnparseableResponse)
		}
		return nil, ErrUnparseableResponse
	}

	best, bestScore := candidates[0], score(candidates[0])
	for _, c := range candidates[1:] {
		if sc := score(c); sc > bestScore {
			best, bestScore = c, sc
		}
	}
	return best, nil
}

// objectCandidates decodes every balanced top-level {...} span in s.
func objectCandidates(s string) []*extraction {
	var (
		out      []*extraction
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case ch == '}' && depth > 0:
			depth--
			if depth == 0 && start >= 0 {
				var ex extraction
				if err := json.Unmarshal([]byte(s[start:i+1]), &ex); err == nil {
					out = append(out, &ex)
				}
				start = -1
			}
		}
	}
	return out
}

// score ranks candidate objects by how many of the expected fields they fill.
func score(ex *extraction) int {
	n := 0
	if len(ex.JobSkillsRanked) > 0 {
		n++
	}
	if len(ex.KeyResponsibilities) > 0 {
		n++
	}
	if len(ex.BySectionTop3) > 0 {
		n++
		for _, v := range ex.BySectionTop3 {
			if len(v) > 0 {
				n++
			}
		}
	}
	return n
}
