// Package insight derives per-conversation signals (topics, mood, question
// types, communication patterns, learning indicators) from the user-authored
// messages of a single conversation. Extraction is rule-based and pure: no
// I/O, no randomness, and it never fails — empty input yields the zero-value
// insight.
package insight

import (
	"strings"
	"unicode/utf8"

	"github.com/inima-app/inima/internal/storage"
)

// Insight is the ephemeral analysis result for one conversation. It is never
// persisted standalone; only its contribution to the aggregate profiles
// survives.
type Insight struct {
	MainTopics    []string
	UserMood      string // "positive", "negative", or "neutral"
	QuestionTypes []string
	Communication CommunicationPatterns
	Learning      LearningIndicators
}

type CommunicationPatterns struct {
	MessageLength  int // average rune length of user messages
	UsesEmojis     bool
	FormalityLevel float64 // 0..10, 5 is neutral
}

type LearningIndicators struct {
	AsksForClarification   bool
	BuildsOnPreviousTopics bool
	ShowsProgress          bool
}

// Analyzer is the seam between the aggregation layers and the classification
// rules, so the keyword tables can be swapped for a real model later without
// touching the profile builders.
type Analyzer interface {
	Analyze(conv storage.Conversation) Insight
}

// RuleAnalyzer classifies conversations with the substring rule tables.
type RuleAnalyzer struct {
	rules Rules
}

// NewAnalyzer returns a RuleAnalyzer with the default rule tables.
func NewAnalyzer() *RuleAnalyzer {
	return &RuleAnalyzer{rules: DefaultRules()}
}

// NewAnalyzerWithRules returns a RuleAnalyzer with custom tables (tests).
func NewAnalyzerWithRules(rules Rules) *RuleAnalyzer {
	return &RuleAnalyzer{rules: rules}
}

// Analyze extracts an Insight from the conversation's user messages.
func (a *RuleAnalyzer) Analyze(conv storage.Conversation) Insight {
	userMsgs := userMessages(conv.Messages)

	ins := Insight{
		UserMood: "neutral",
		Communication: CommunicationPatterns{
			FormalityLevel: 5,
		},
	}
	if len(userMsgs) == 0 {
		return ins
	}

	joined := strings.ToLower(strings.Join(userMsgs, " "))

	ins.MainTopics = a.topics(joined)
	ins.UserMood = a.mood(joined)
	ins.QuestionTypes = a.questionTypes(userMsgs)
	ins.Communication = a.communication(userMsgs)
	ins.Learning = a.learning(userMsgs)
	return ins
}

func userMessages(msgs []storage.Message) []string {
	var out []string
	for _, m := range msgs {
		if m.Sender == storage.SenderUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// topics returns every bucket with at least one keyword present as a
// substring of the joined lower-cased user text. Multiple buckets may match.
func (a *RuleAnalyzer) topics(joined string) []string {
	var out []string
	for _, bucket := range topicOrder {
		for _, kw := range a.rules.TopicBuckets[bucket] {
			if strings.Contains(joined, kw) {
				out = append(out, bucket)
				break
			}
		}
	}
	return out
}

// mood counts positive vs negative word occurrences; majority wins, tie is
// neutral.
func (a *RuleAnalyzer) mood(joined string) string {
	var pos, neg int
	for _, w := range a.rules.PositiveWords {
		pos += strings.Count(joined, w)
	}
	for _, w := range a.rules.NegativeWords {
		neg += strings.Count(joined, w)
	}
	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}

// questionTypes labels each message against the question rules and
// deduplicates the result, preserving rule order.
func (a *RuleAnalyzer) questionTypes(msgs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range a.rules.QuestionTypes {
		for _, msg := range msgs {
			lower := strings.ToLower(msg)
			matched := false
			for _, marker := range rule.Markers {
				if strings.Contains(lower, marker) {
					matched = true
					break
				}
			}
			if matched && !seen[rule.Label] {
				seen[rule.Label] = true
				out = append(out, rule.Label)
				break
			}
		}
	}
	return out
}

func (a *RuleAnalyzer) communication(msgs []string) CommunicationPatterns {
	var totalLen int
	usesEmojis := false
	formality := 5.0

	for _, msg := range msgs {
		totalLen += utf8.RuneCountInString(msg)
		if emojiPattern.MatchString(msg) {
			usesEmojis = true
		}
		lower := strings.ToLower(msg)
		for _, phrase := range a.rules.FormalPhrases {
			if strings.Contains(lower, phrase) {
				formality++
			}
		}
		for _, w := range a.rules.InformalWords {
			if strings.Contains(lower, w) {
				formality -= 0.5
			}
		}
	}

	if formality < 0 {
		formality = 0
	}
	if formality > 10 {
		formality = 10
	}

	return CommunicationPatterns{
		MessageLength:  totalLen / len(msgs),
		UsesEmojis:     usesEmojis,
		FormalityLevel: formality,
	}
}

func (a *RuleAnalyzer) learning(msgs []string) LearningIndicators {
	var ind LearningIndicators

	for _, msg := range msgs {
		lower := strings.ToLower(msg)
		for _, phrase := range a.rules.Clarification {
			if strings.Contains(lower, phrase) {
				ind.AsksForClarification = true
				break
			}
		}
		for _, phrase := range a.rules.ProgressPhrases {
			if strings.Contains(lower, phrase) {
				ind.ShowsProgress = true
				break
			}
		}
	}

	// A message builds on the previous one when they share any word longer
	// than three characters.
	for i := 1; i < len(msgs); i++ {
		if sharesLongWord(msgs[i-1], msgs[i]) {
			ind.BuildsOnPreviousTopics = true
			break
		}
	}

	return ind
}

func sharesLongWord(prev, cur string) bool {
	prevWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(prev)) {
		if utf8.RuneCountInString(w) > 3 {
			prevWords[w] = true
		}
	}
	for _, w := range strings.Fields(strings.ToLower(cur)) {
		if utf8.RuneCountInString(w) > 3 && prevWords[w] {
			return true
		}
	}
	return false
}
