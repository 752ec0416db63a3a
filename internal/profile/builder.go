package profile

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/inima-app/inima/internal/insight"
	"github.com/inima-app/inima/internal/storage"
)

const (
	shortMessageLimit = 50
	longMessageLimit  = 200

	maxTopics        = 10
	maxDomains       = 5
	maxQuestionTypes = 5

	// Words this short carry no topical signal and are dropped from the
	// frequency table.
	minTopicWordLen = 4
)

// Builder aggregates a user's full conversation history, paired 1:1 with
// per-conversation insights, into a PersonalityProfile. Given identical input
// the output is identical: no randomness, no wall-clock reads (the caller
// supplies "now").
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build recomputes the profile from scratch. prev, when non-nil, contributes
// only the fields the recomputation must not clobber: creation time and the
// opportunistically extracted personal info (name, age, occupations, hobbies).
func (b *Builder) Build(convs []storage.Conversation, insights []insight.Insight, prev *PersonalityProfile, now time.Time) PersonalityProfile {
	p := DefaultPersonality(now)
	if prev != nil {
		p.CreatedAt = prev.CreatedAt
		p.PersonalPreferences.UserName = prev.PersonalPreferences.UserName
		p.PersonalPreferences.UserAge = prev.PersonalPreferences.UserAge
		p.PersonalPreferences.Occupations = append([]string(nil), prev.PersonalPreferences.Occupations...)
		p.PersonalPreferences.Hobbies = append([]string(nil), prev.PersonalPreferences.Hobbies...)
	}
	if len(convs) == 0 {
		return p
	}

	var (
		totalMessages    int
		userMsgCount     int
		userMsgRunes     int
		shortCount       int
		longCount        int
		hourSum          int
		hourCount        int
		emojis           bool
		formalitySum     float64
		posMoods         int
		negMoods         int
		clarifyingConvs  int
		topicFreq        = map[string]int{}
		domainFreq       = map[string]int{}
		questionFreq     = map[string]int{}
		prefersSteps     bool
		buildsOnPrevious bool
		likesExamples    bool
	)

	for i, conv := range convs {
		totalMessages += len(conv.Messages)
		for _, m := range conv.Messages {
			if m.Sender != storage.SenderUser {
				continue
			}
			userMsgCount++
			n := utf8.RuneCountInString(m.Content)
			userMsgRunes += n
			if n < shortMessageLimit {
				shortCount++
			} else if n > longMessageLimit {
				longCount++
			}
			hourSum += m.CreatedAt.Hour()
			hourCount++
		}

		countTopicWords(topicFreq, conv.Subject)

		if i >= len(insights) {
			continue
		}
		ins := insights[i]

		for _, topic := range ins.MainTopics {
			countTopicWords(topicFreq, topic)
			domainFreq[topic]++
		}
		for _, qt := range ins.QuestionTypes {
			questionFreq[qt]++
			switch qt {
			case "procedură":
				prefersSteps = true
			case "exemplu":
				likesExamples = true
			}
		}
		switch ins.UserMood {
		case "positive":
			posMoods++
		case "negative":
			negMoods++
		}
		if ins.Communication.UsesEmojis {
			emojis = true
		}
		formalitySum += ins.Communication.FormalityLevel
		if ins.Learning.AsksForClarification {
			clarifyingConvs++
		}
		if ins.Learning.BuildsOnPreviousTopics {
			buildsOnPrevious = true
		}
	}

	p.TotalMessages = totalMessages
	p.TotalConversations = len(convs)

	// Communication style.
	avgFormality := formalitySum / float64(len(convs))
	switch {
	case avgFormality >= 6:
		p.CommunicationStyle.Tone = "formal"
	case avgFormality <= 4:
		p.CommunicationStyle.Tone = "casual"
	default:
		p.CommunicationStyle.Tone = "neutru"
	}
	if userMsgCount > 0 {
		p.CommunicationStyle.AverageMessageLength = userMsgRunes / userMsgCount
	}
	p.CommunicationStyle.UsesEmojis = emojis

	// Interests.
	p.Interests.Topics = topN(topicFreq, maxTopics)
	p.Interests.Domains = topN(domainFreq, maxDomains)
	p.Interests.FrequentQuestionTypes = topN(questionFreq, maxQuestionTypes)

	// Behavior patterns.
	p.BehaviorPatterns.AvgConversationLength = float64(totalMessages) / float64(len(convs))
	p.BehaviorPatterns.AvgSessionLength = p.BehaviorPatterns.AvgConversationLength
	p.BehaviorPatterns.ConversationsPerWeek = conversationsPerWeek(convs, now)
	switch {
	case shortCount > longCount:
		p.BehaviorPatterns.PreferredResponseLength = "scurt"
	case longCount > shortCount:
		p.BehaviorPatterns.PreferredResponseLength = "lung"
	}
	if hourCount > 0 {
		p.BehaviorPatterns.PreferredTimeOfDay = timeOfDay(hourSum / hourCount)
	}

	// Personal preferences.
	if avgFormality >= 6 {
		p.PersonalPreferences.AddressMode = "dumneavoastră"
	}
	if clarifyingConvs > 0 {
		p.PersonalPreferences.ExplanationStyle = "pas cu pas"
	}
	p.PersonalPreferences.LikesExamples = likesExamples

	// Emotional profile.
	switch {
	case posMoods > negMoods:
		p.EmotionalProfile.GeneralMood = "positive"
	case negMoods > posMoods:
		p.EmotionalProfile.GeneralMood = "negative"
	}
	p.EmotionalProfile.NeedsSupport = p.EmotionalProfile.GeneralMood == "negative"
	p.PersonalPreferences.NeedsEncouragement = p.EmotionalProfile.NeedsSupport
	p.EmotionalProfile.AppreciatesHumor = emojis

	// Learning style.
	p.LearningStyle.PrefersStepByStep = prefersSteps || clarifyingConvs > 0
	p.LearningStyle.AsksFollowUpQuestions = buildsOnPrevious
	p.LearningStyle.LearnsFromExamples = likesExamples
	p.LearningStyle.NeedsRepetition = clarifyingConvs >= 2

	// Trait heuristics. These formulas intentionally differ from the dynamic
	// analyzer's.
	p.Traits.Patience = clampTrait(int(p.BehaviorPatterns.AvgConversationLength / 2))
	p.Traits.Curiosity = clampTrait(len(topicFreq) / 5)
	avgLen := p.CommunicationStyle.AverageMessageLength
	switch {
	case avgLen > 0 && avgLen < shortMessageLimit:
		p.Traits.Directness = 8
	case avgLen > longMessageLimit:
		p.Traits.Directness = 3
	default:
		p.Traits.Directness = 5
	}

	p.LastAnalyzedConversationID = lastUpdatedID(convs)
	p.UpdatedAt = now
	return p
}

// countTopicWords splits text into lower-cased words and counts those long
// enough to carry meaning.
func countTopicWords(freq map[string]int, text string) {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if utf8.RuneCountInString(w) >= minTopicWordLen {
			freq[w]++
		}
	}
}

// topN returns the n highest-count keys, count descending, ties broken
// alphabetically so output is stable.
func topN(freq map[string]int, n int) []string {
	keys := make([]string, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func conversationsPerWeek(convs []storage.Conversation, now time.Time) float64 {
	earliest := convs[0].CreatedAt
	for _, c := range convs[1:] {
		if c.CreatedAt.Before(earliest) {
			earliest = c.CreatedAt
		}
	}
	weeks := now.Sub(earliest).Hours() / (24 * 7)
	if weeks < 1 {
		weeks = 1
	}
	return float64(len(convs)) / weeks
}

func lastUpdatedID(convs []storage.Conversation) string {
	best := convs[0]
	for _, c := range convs[1:] {
		if c.UpdatedAt.After(best.UpdatedAt) {
			best = c
		}
	}
	return best.ID
}

func timeOfDay(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 18:
		return TimeAfternoon
	case hour >= 18 && hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}

func clampTrait(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
