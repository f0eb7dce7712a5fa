package assignment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
)

// ErrNoQuestions is returned when scoring an assignment without questions.
var ErrNoQuestions = errors.New("assignment has no questions")

// KeyKind tells how the correct answers of a question are written.
type KeyKind int

const (
	ByIndex  KeyKind = iota // "0,2": zero-based option indices
	ByLetter                // "A,C": option letters
)

func (k KeyKind) String() string {
	if k == ByIndex {
		return "index"
	}
	return "letter"
}

// AnswerKey is a correct-answer list resolved into a canonical set of option indices.
type AnswerKey struct {
	Kind    KeyKind
	Indices []int
}

// ParseAnswerKey resolves raw once: when every comma-separated token is numeric the tokens are indices,
// otherwise they are letters ("A" is option 0) and letters beyond optionCount are dropped.
func ParseAnswerKey(raw string, optionCount int) AnswerKey {
	tokens := splitTokens(raw)
	if len(tokens) > 0 && allNumeric(tokens) {
		indices := make([]int, 0, len(tokens))
		for _, tok := range tokens {
			if i, err := strconv.Atoi(tok); err == nil {
				indices = append(indices, i)
			}
		}
		return AnswerKey{Kind: ByIndex, Indices: uniqueSorted(indices)}
	}

	indices := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if i, ok := letterIndex(tok, optionCount); ok {
			indices = append(indices, i)
		}
	}
	return AnswerKey{Kind: ByLetter, Indices: uniqueSorted(indices)}
}

// NormalizeAnswers converts submitted tokens to option indices. Numeric tokens are used as is;
// any other token is read as a letter from its first character and kept if within optionCount.
func NormalizeAnswers(submitted []string, optionCount int) []int {
	indices := make([]int, 0, len(submitted))
	for _, raw := range submitted {
		for _, tok := range splitTokens(raw) {
			if isNumeric(tok) {
				if i, err := strconv.Atoi(tok); err == nil {
					indices = append(indices, i)
				}
				continue
			}
			if i, ok := letterIndex(tok, optionCount); ok {
				indices = append(indices, i)
			}
		}
	}
	return uniqueSorted(indices)
}

// IsCorrect grades one question: multiple-answer questions need the exact set,
// single-answer questions need at least one correct pick. An empty answer is never correct.
func IsCorrect(key AnswerKey, submitted []int, allowMultiple bool) bool {
	if len(submitted) == 0 {
		return false
	}
	if allowMultiple {
		if len(submitted) != len(key.Indices) {
			return false
		}
		for i := range submitted {
			if submitted[i] != key.Indices[i] {
				return false
			}
		}
		return true
	}
	for _, s := range submitted {
		for _, c := range key.Indices {
			if s == c {
				return true
			}
		}
	}
	return false
}

// ScoreQuiz scores answers, keyed by question id, out of MaxScore split evenly between questions.
func ScoreQuiz(questions []Question, answers map[int64][]string) (QuizResult, error) {
	if len(questions) == 0 {
		return QuizResult{}, ErrNoQuestions
	}

	points := MaxScore / float64(len(questions))
	result := QuizResult{
		MaxScore:        MaxScore,
		TotalQuestions:  len(questions),
		QuestionResults: make([]QuestionResult, 0, len(questions)),
	}

	var total float64
	for _, q := range questions {
		key := ParseAnswerKey(q.CorrectAnswers, len(q.Options))
		submitted := NormalizeAnswers(answers[q.ID], len(q.Options))
		correct := IsCorrect(key, submitted, q.AllowMultiple)
		if correct {
			total += points
			result.CorrectAnswers++
		}
		result.QuestionResults = append(result.QuestionResults, QuestionResult{
			QuestionID:        q.ID,
			Content:           q.Content,
			Options:           q.Options,
			CorrectAnswers:    key.Indices,
			StudentAnswers:    submitted,
			IsCorrect:         correct,
			PointsPerQuestion: core.Round2(points),
		})
	}
	result.Score = core.Round2(total)
	return result, nil
}

// Summary is the human readable outcome stored as the submission's comments.
func (r QuizResult) Summary() string {
	return fmt.Sprintf("Quiz score: %.2f/%.0f (%d/%d correct answers)", r.Score, r.MaxScore, r.CorrectAnswers, r.TotalQuestions)
}

func splitTokens(s string) []string {
	parts := strings.Split(s, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func allNumeric(tokens []string) bool {
	for _, t := range tokens {
		if !isNumeric(t) {
			return false
		}
	}
	return true
}

func letterIndex(tok string, optionCount int) (int, bool) {
	r, _ := utf8.DecodeRuneInString(tok)
	if r == utf8.RuneError {
		return 0, false
	}
	i := int(unicode.ToUpper(r) - 'A')
	if i < 0 || i >= optionCount {
		return 0, false
	}
	return i, true
}

func uniqueSorted(indices []int) []int {
	sort.Ints(indices)
	out := indices[:0]
	for i, v := range indices {
		if i == 0 || v != indices[i-1] {
			out = append(out, v)
		}
	}
	return out
}
