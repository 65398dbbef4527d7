// Package practice recovers a structured question array from free-form model
// output. Gemini is asked for pure JSON but routinely wraps it in prose or
// markdown fences, so extraction is a fallback chain of heuristics.
package practice

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Question is one practice exercise. Answer and Explanation are optional;
// Question is always non-empty on a successful extraction.
type Question struct {
	Question    string `json:"question"`
	Answer      string `json:"answer,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// UnparseableError is returned when no strategy yields a non-empty question
// array. It carries the original model text so the caller can show a
// diagnostic or retry the upstream call; extraction itself is never retried.
type UnparseableError struct {
	Raw string
}

func (e *UnparseableError) Error() string {
	return "practice: no parsable question array in model response"
}

// An array literal whose first object key is "question", modulo whitespace.
// Greedy to the last closing bracket in the text.
var strictArray = regexp.MustCompile(`\[\s*\{\s*"question"[\s\S]*\]`)

// A strategy locates one JSON-array candidate inside free text.
type strategy func(raw string) (candidate string, ok bool)

// Ordered: strict pattern first, loose bracket scan as fallback. First
// candidate that parses into a non-empty array wins.
var strategies = []strategy{strictMatch, bracketScan}

func strictMatch(raw string) (string, bool) {
	m := strictArray.FindString(raw)
	return m, m != ""
}

func bracketScan(raw string) (string, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// ExtractQuestions recovers the question array from raw model text. On
// failure it returns *UnparseableError with the raw text attached; it never
// fabricates data.
func ExtractQuestions(raw string) ([]Question, error) {
	for _, locate := range strategies {
		candidate, ok := locate(raw)
		if !ok {
			continue
		}

		var questions []Question
		if err := json.Unmarshal([]byte(candidate), &questions); err != nil {
			continue
		}

		questions = dropBlank(questions)
		if len(questions) > 0 {
			return questions, nil
		}
	}

	return nil, &UnparseableError{Raw: raw}
}

// dropBlank removes records without a question; a record that asks nothing is
// not usable even if the rest of the array is.
func dropBlank(questions []Question) []Question {
	kept := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		kept = append(kept, q)
	}
	return kept
}
