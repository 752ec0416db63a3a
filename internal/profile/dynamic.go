package profile

import (
	"time"
	"unicode/utf8"

	"github.com/inima-app/inima/internal/insight"
	"github.com/inima-app/inima/internal/storage"
)

// DynamicAnalyzer is the second, simpler aggregation pass. It shares the
// insight layer with Builder but estimates its fields with its own formulas
// and persists into a separate document. The overlap with PersonalityProfile
// is not reconciled; the two blocks are compiled into the prompt separately.
type DynamicAnalyzer struct{}

func NewDynamicAnalyzer() *DynamicAnalyzer {
	return &DynamicAnalyzer{}
}

// Analyze recomputes the dynamic profile wholesale from all conversations.
func (a *DynamicAnalyzer) Analyze(convs []storage.Conversation, insights []insight.Insight, now time.Time) DynamicProfile {
	p := DynamicProfile{
		CommunicationStyle: DynamicCommunication{
			Formality:      "informală",
			Tone:           "neutru",
			ResponseLength: "mediu",
		},
		LastAnalyzed: now,
	}
	if len(convs) == 0 {
		return p
	}

	var (
		totalMessages int
		userMsgCount  int
		userMsgRunes  int
		shortCount    int
		longCount     int
		hourSum       int
		hourCount     int
		questionHits  int
		emojis        bool
		topicFreq     = map[string]int{}
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

		if i >= len(insights) {
			continue
		}
		ins := insights[i]
		for _, topic := range ins.MainTopics {
			topicFreq[topic]++
		}
		questionHits += len(ins.QuestionTypes)
		for _, qt := range ins.QuestionTypes {
			switch qt {
			case "procedură":
				p.ProblemSolving.PrefersStepByStep = true
			case "exemplu":
				p.ProblemSolving.LikesExamples = true
			case "definiție", "cauză":
				p.LearningPreferences.Theoretical = true
			}
		}
		if ins.Learning.AsksForClarification {
			p.ProblemSolving.NeedsExplanations = true
		}
		if ins.Communication.UsesEmojis {
			emojis = true
		}
	}

	p.TotalMessages = totalMessages
	p.TotalConversations = len(convs)

	// Formality and response length come from the short/long message ratio
	// alone — nothing subtler, that is the point of this pass.
	switch {
	case longCount > shortCount:
		p.CommunicationStyle.Formality = "formală"
		p.CommunicationStyle.Tone = "serios"
		p.CommunicationStyle.ResponseLength = "lung"
	case shortCount > longCount:
		p.CommunicationStyle.ResponseLength = "scurt"
		p.CommunicationStyle.Tone = "relaxat"
	}

	p.TopicsOfInterest = topN(topicFreq, maxDomains)
	p.ConversationPatterns.MostActiveTopics = topN(topicFreq, 3)
	p.ConversationPatterns.AvgSessionLength = float64(totalMessages) / float64(len(convs))
	if hourCount > 0 {
		p.ConversationPatterns.PreferredTimeOfDay = timeOfDay(hourSum / hourCount)
	}

	p.LearningPreferences.Visual = emojis
	p.LearningPreferences.Practical = p.ProblemSolving.LikesExamples || p.ProblemSolving.PrefersStepByStep

	// Trait estimates, 1-10. Deliberately not the Builder's formulas.
	p.PersonalityTraits.Patience = clampTrait(totalMessages / 10)
	p.PersonalityTraits.Curiosity = clampTrait(questionHits)
	avgLen := 0
	if userMsgCount > 0 {
		avgLen = userMsgRunes / userMsgCount
	}
	p.PersonalityTraits.Directness = clampTrait(10 - avgLen/30)

	return p
}
