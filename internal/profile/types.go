package profile

import "time"

// PersonalityProfile is the persisted aggregate of inferred user traits, one
// per owner. It is created with defaults on first contact, fully recomputed by
// the background analysis worker, and patched opportunistically by the
// personal-info extractor.
type PersonalityProfile struct {
	CommunicationStyle  CommunicationStyle  `json:"communicationStyle"`
	Interests           Interests           `json:"interests"`
	BehaviorPatterns    BehaviorPatterns    `json:"behaviorPatterns"`
	PersonalPreferences PersonalPreferences `json:"personalPreferences"`
	EmotionalProfile    EmotionalProfile    `json:"emotionalProfile"`
	LearningStyle       LearningStyle       `json:"learningStyle"`
	Traits              Traits              `json:"personalityTraits"`

	TotalMessages              int       `json:"totalMessages"`
	TotalConversations         int       `json:"totalConversations"`
	CreatedAt                  time.Time `json:"createdAt"`
	UpdatedAt                  time.Time `json:"updatedAt"`
	LastAnalyzedConversationID string    `json:"lastAnalyzedConversationId,omitempty"`
}

type CommunicationStyle struct {
	Tone                 string `json:"tone"` // "formal", "casual", or "neutru"
	AverageMessageLength int    `json:"averageMessageLength"`
	UsesEmojis           bool   `json:"usesEmojis"`
	Language             string `json:"language"`
}

type Interests struct {
	Topics                []string `json:"topics"`  // top 10 by frequency
	Domains               []string `json:"domains"` // matched buckets, capped
	FrequentQuestionTypes []string `json:"frequentQuestionTypes"`
}

type BehaviorPatterns struct {
	ConversationsPerWeek    float64 `json:"conversationFrequencyPerWeek"`
	AvgConversationLength   float64 `json:"averageConversationLength"`
	PreferredResponseLength string  `json:"preferredResponseLength"` // "scurt", "mediu", "lung"
	PreferredTimeOfDay      string  `json:"preferredTimeOfDay"`
	AvgSessionLength        float64 `json:"averageSessionLength"`
}

type PersonalPreferences struct {
	AddressMode        string   `json:"addressMode"`      // "tu" or "dumneavoastră"
	ExplanationStyle   string   `json:"explanationStyle"` // "pas cu pas" or "concis"
	NeedsEncouragement bool     `json:"needsEncouragement"`
	LikesExamples      bool     `json:"likesExamples"`
	UserName           string   `json:"userName,omitempty"`
	UserAge            int      `json:"userAge,omitempty"`
	Occupations        []string `json:"occupations,omitempty"`
	Hobbies            []string `json:"hobbies,omitempty"`
}

type EmotionalProfile struct {
	GeneralMood      string `json:"generalMood"` // "positive", "negative", "neutral"
	NeedsSupport     bool   `json:"needsSupport"`
	AppreciatesHumor bool   `json:"appreciatesHumor"`
}

type LearningStyle struct {
	PrefersStepByStep     bool `json:"prefersStepByStep"`
	AsksFollowUpQuestions bool `json:"asksFollowUpQuestions"`
	LearnsFromExamples    bool `json:"learnsFromExamples"`
	NeedsRepetition       bool `json:"needsRepetition"`
}

// Traits are 1-10 heuristic scores. The dynamic profile carries its own set
// computed with different formulas; the two are compiled into the prompt
// independently and are not reconciled.
type Traits struct {
	Patience   int `json:"patience"`
	Curiosity  int `json:"curiosity"`
	Directness int `json:"directness"`
}

// DynamicProfile is the second, independently persisted aggregate per owner,
// recomputed wholesale whenever it is requested stale.
type DynamicProfile struct {
	CommunicationStyle   DynamicCommunication `json:"communicationStyle"`
	TopicsOfInterest     []string             `json:"topicsOfInterest"`
	ProblemSolving       ProblemSolving       `json:"problemSolvingApproach"`
	PersonalityTraits    Traits               `json:"personalityTraits"`
	ConversationPatterns ConversationPatterns `json:"conversationPatterns"`
	LearningPreferences  LearningPreferences  `json:"learningPreferences"`

	LastAnalyzed       time.Time `json:"lastAnalyzed"`
	TotalMessages      int       `json:"totalMessages"`
	TotalConversations int       `json:"totalConversations"`
}

type DynamicCommunication struct {
	Formality      string `json:"formality"` // "formală" or "informală"
	Tone           string `json:"tone"`
	ResponseLength string `json:"responseLength"`
}

type ProblemSolving struct {
	PrefersStepByStep bool `json:"prefersStepByStep"`
	LikesExamples     bool `json:"likesExamples"`
	NeedsExplanations bool `json:"needsExplanations"`
}

type ConversationPatterns struct {
	AvgSessionLength   float64  `json:"averageSessionLength"`
	PreferredTimeOfDay string   `json:"preferredTimeOfDay"`
	MostActiveTopics   []string `json:"mostActiveTopics"`
}

type LearningPreferences struct {
	Visual      bool `json:"visual"`
	Practical   bool `json:"practical"`
	Theoretical bool `json:"theoretical"`
}

// Time-of-day buckets, user-facing Romanian.
const (
	TimeMorning   = "dimineața"
	TimeAfternoon = "după-amiaza"
	TimeEvening   = "seara"
	TimeNight     = "noaptea"
)

// DefaultPersonality returns the profile created on first contact.
func DefaultPersonality(now time.Time) PersonalityProfile {
	return PersonalityProfile{
		CommunicationStyle: CommunicationStyle{
			Tone:     "neutru",
			Language: "ro",
		},
		BehaviorPatterns: BehaviorPatterns{
			PreferredResponseLength: "mediu",
		},
		PersonalPreferences: PersonalPreferences{
			AddressMode:      "tu",
			ExplanationStyle: "concis",
		},
		EmotionalProfile: EmotionalProfile{
			GeneralMood: "neutral",
		},
		Traits: Traits{
			Patience:   5,
			Curiosity:  5,
			Directness: 5,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
