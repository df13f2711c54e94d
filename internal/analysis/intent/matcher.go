package intent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/aquaguard/backend/internal/model/knowledge"
)

// Outcome 标记回复来自哪一轮匹配。
type Outcome string

const (
	Exact    Outcome = "exact"
	Partial  Outcome = "partial"
	Greeting Outcome = "greeting"
	Thanks   Outcome = "thanks"
	Fallback Outcome = "fallback"
)

const (
	GreetingResponse = "Hello! I'm the AquaGuard assistant. Ask me about contaminant limits, treatment, " +
		"sensor calibration or compliance reports."
	ThanksResponse = "You're welcome! Let me know if you have any other water quality questions."
	FallbackResponse = "I can help with water quality questions: contaminant limits (lead, arsenic, nitrate, fluoride), " +
		"chlorine treatment, turbidity, bacteria, boil-water advisories, sensor calibration and compliance reports. " +
		"Try asking about one of those topics."
)

// ErrInvalidEntry 表示知识库条目无法参与匹配。
var ErrInvalidEntry = errors.New("invalid knowledge entry")

// Resolution 是一次匹配的完整结果。
type Resolution struct {
	Response string
	Outcome  Outcome
	// Entry 仅在 Exact 与 Partial 时有效。
	Entry knowledge.Entry
	Hits  int
}

// Matcher 按定义顺序在静态知识库上做关键词匹配，构造后只读，可并发调用。
type Matcher struct {
	entries []knowledge.Entry
}

// NewMatcher 校验并固化知识库。空关键词会让条目匹配任意输入，因此直接拒绝。
func NewMatcher(entries []knowledge.Entry) (*Matcher, error) {
	copied := make([]knowledge.Entry, 0, len(entries))
	for i, entry := range entries {
		if len(entry.Keywords) == 0 {
			return nil, fmt.Errorf("%w: entry %d (%s) has no keywords", ErrInvalidEntry, i, entry.ID)
		}
		for _, kw := range entry.Keywords {
			if strings.TrimSpace(kw) == "" {
				return nil, fmt.Errorf("%w: entry %d (%s) has an empty keyword", ErrInvalidEntry, i, entry.ID)
			}
			if kw != strings.ToLower(kw) {
				return nil, fmt.Errorf("%w: entry %d (%s) keyword %q is not lowercase", ErrInvalidEntry, i, entry.ID, kw)
			}
		}
		entry.Keywords = append([]string(nil), entry.Keywords...)
		copied = append(copied, entry)
	}
	return &Matcher{entries: copied}, nil
}

// MustNewMatcher 用于内置知识库，校验失败直接 panic。
func MustNewMatcher(entries []knowledge.Entry) *Matcher {
	m, err := NewMatcher(entries)
	if err != nil {
		panic(err)
	}
	return m
}

// Resolve 返回最匹配的回复文本。
func (m *Matcher) Resolve(query string) string {
	return m.Match(query).Response
}

// Match 依次执行完整匹配、最佳部分匹配与兜底三轮。
func (m *Matcher) Match(query string) Resolution {
	normalized := strings.ToLower(query)

	if strings.TrimSpace(normalized) != "" {
		for _, entry := range m.entries {
			if countHits(normalized, entry.Keywords) == len(entry.Keywords) {
				return Resolution{Response: entry.Response, Outcome: Exact, Entry: entry, Hits: len(entry.Keywords)}
			}
		}

		bestIdx, bestHits := -1, 0
		for i, entry := range m.entries {
			// 严格大于：同分时保留最先出现的条目。
			if hits := countHits(normalized, entry.Keywords); hits > bestHits {
				bestIdx, bestHits = i, hits
			}
		}
		if bestIdx >= 0 {
			entry := m.entries[bestIdx]
			return Resolution{Response: entry.Response, Outcome: Partial, Entry: entry, Hits: bestHits}
		}
	}

	switch {
	case strings.Contains(normalized, "hello") || strings.Contains(normalized, "hi"):
		return Resolution{Response: GreetingResponse, Outcome: Greeting}
	case strings.Contains(normalized, "thank"):
		return Resolution{Response: ThanksResponse, Outcome: Thanks}
	default:
		return Resolution{Response: FallbackResponse, Outcome: Fallback}
	}
}

func countHits(normalized string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			hits++
		}
	}
	return hits
}
