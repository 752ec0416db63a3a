package profile

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/inima-app/inima/internal/insight"
	"github.com/inima-app/inima/internal/storage"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testConv(id string, createdAt time.Time, msgs ...storage.Message) storage.Conversation {
	return storage.Conversation{
		ID:        id,
		OwnerID:   "owner-1",
		Subject:   "test",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Messages:  msgs,
	}
}

func userMsgAt(content string, hour int) storage.Message {
	return storage.Message{
		ID:        "m",
		Sender:    storage.SenderUser,
		Content:   content,
		CreatedAt: time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC),
	}
}

func TestBuildEmptyHistory(t *testing.T) {
	b := NewBuilder()

	got := b.Build(nil, nil, nil, testNow)

	want := DefaultPersonality(testNow)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build(empty) = %+v, want default profile", got)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder()
	convs := []storage.Conversation{
		testConv("c1", testNow.AddDate(0, 0, -7),
			userMsgAt("am o eroare la laptop", 9),
			userMsgAt("cum pot să o repar?", 9),
		),
		testConv("c2", testNow.AddDate(0, 0, -3),
			userMsgAt("mulțumesc, a funcționat", 10),
		),
	}
	a := insight.NewAnalyzer()
	insights := []insight.Insight{a.Analyze(convs[0]), a.Analyze(convs[1])}

	first := b.Build(convs, insights, nil, testNow)
	second := b.Build(convs, insights, nil, testNow)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("two builds over identical input differ:\n%+v\n%+v", first, second)
	}
}

func TestBuildCounts(t *testing.T) {
	b := NewBuilder()
	convs := []storage.Conversation{
		testConv("c1", testNow.AddDate(0, 0, -1),
			userMsgAt("salut", 9),
			storage.Message{ID: "a1", Sender: storage.SenderAI, Content: "Bună!", CreatedAt: testNow},
		),
		testConv("c2", testNow.AddDate(0, 0, -2),
			userMsgAt("hei", 9),
		),
	}

	got := b.Build(convs, nil, nil, testNow)

	if got.TotalConversations != 2 {
		t.Errorf("TotalConversations = %d, want 2", got.TotalConversations)
	}
	if got.TotalMessages != 3 {
		t.Errorf("TotalMessages = %d, want 3", got.TotalMessages)
	}
	if got.BehaviorPatterns.AvgConversationLength != 1.5 {
		t.Errorf("AvgConversationLength = %v, want 1.5", got.BehaviorPatterns.AvgConversationLength)
	}
}

func TestBuildPreservesPersonalInfoFromPrev(t *testing.T) {
	b := NewBuilder()
	created := testNow.AddDate(0, -1, 0)
	prev := DefaultPersonality(created)
	prev.PersonalPreferences.UserName = "Maria"
	prev.PersonalPreferences.UserAge = 27
	prev.PersonalPreferences.Occupations = []string{"profesoară"}
	prev.PersonalPreferences.Hobbies = []string{"șah"}

	got := b.Build([]storage.Conversation{
		testConv("c1", testNow.AddDate(0, 0, -1), userMsgAt("salut", 9)),
	}, nil, &prev, testNow)

	if got.PersonalPreferences.UserName != "Maria" {
		t.Errorf("UserName = %q, want Maria", got.PersonalPreferences.UserName)
	}
	if got.PersonalPreferences.UserAge != 27 {
		t.Errorf("UserAge = %d, want 27", got.PersonalPreferences.UserAge)
	}
	if !reflect.DeepEqual(got.PersonalPreferences.Occupations, []string{"profesoară"}) {
		t.Errorf("Occupations = %v, want [profesoară]", got.PersonalPreferences.Occupations)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if !got.UpdatedAt.Equal(testNow) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, testNow)
	}
}

func TestBuildPreferredResponseLength(t *testing.T) {
	b := NewBuilder()
	short := strings.Repeat("a", 10)
	long := strings.Repeat("a", 250)
	medium := strings.Repeat("a", 100)

	tests := []struct {
		name     string
		contents []string
		want     string
	}{
		{"mostly short", []string{short, short, long}, "scurt"},
		{"mostly long", []string{long, long, short}, "lung"},
		{"tie keeps default", []string{short, long}, "mediu"},
		{"all medium keeps default", []string{medium, medium}, "mediu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msgs []storage.Message
			for _, c := range tt.contents {
				msgs = append(msgs, userMsgAt(c, 9))
			}
			got := b.Build([]storage.Conversation{
				testConv("c1", testNow.AddDate(0, 0, -1), msgs...),
			}, nil, nil, testNow)

			if got.BehaviorPatterns.PreferredResponseLength != tt.want {
				t.Errorf("PreferredResponseLength = %q, want %q", got.BehaviorPatterns.PreferredResponseLength, tt.want)
			}
		})
	}
}

func TestBuildPreferredTimeOfDay(t *testing.T) {
	b := NewBuilder()

	tests := []struct {
		hour int
		want string
	}{
		{7, TimeMorning},
		{13, TimeAfternoon},
		{19, TimeEvening},
		{23, TimeNight},
		{3, TimeNight},
	}

	for _, tt := range tests {
		got := b.Build([]storage.Conversation{
			testConv("c1", testNow.AddDate(0, 0, -1), userMsgAt("salut", tt.hour)),
		}, nil, nil, testNow)

		if got.BehaviorPatterns.PreferredTimeOfDay != tt.want {
			t.Errorf("hour %d: PreferredTimeOfDay = %q, want %q", tt.hour, got.BehaviorPatterns.PreferredTimeOfDay, tt.want)
		}
	}
}

func TestBuildLastAnalyzedConversation(t *testing.T) {
	b := NewBuilder()
	c1 := testConv("c1", testNow.AddDate(0, 0, -5), userMsgAt("salut", 9))
	c2 := testConv("c2", testNow.AddDate(0, 0, -1), userMsgAt("hei", 9))
	c1.UpdatedAt = testNow.AddDate(0, 0, -5)
	c2.UpdatedAt = testNow.AddDate(0, 0, -1)

	got := b.Build([]storage.Conversation{c1, c2}, nil, nil, testNow)

	if got.LastAnalyzedConversationID != "c2" {
		t.Errorf("LastAnalyzedConversationID = %q, want c2", got.LastAnalyzedConversationID)
	}
}

func TestTopN(t *testing.T) {
	freq := map[string]int{"gamma": 3, "alpha": 1, "beta": 3, "delta": 2}

	got := topN(freq, 3)
	want := []string{"beta", "gamma", "delta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topN = %v, want %v", got, want)
	}
}

func TestClampTrait(t *testing.T) {
	tests := []struct{ in, want int }{
		{-2, 1}, {0, 1}, {1, 1}, {5, 5}, {10, 10}, {17, 10},
	}
	for _, tt := range tests {
		if got := clampTrait(tt.in); got != tt.want {
			t.Errorf("clampTrait(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDynamicAnalyzeEmpty(t *testing.T) {
	a := NewDynamicAnalyzer()

	got := a.Analyze(nil, nil, testNow)

	if got.CommunicationStyle.Formality != "informală" {
		t.Errorf("Formality = %q, want informală", got.CommunicationStyle.Formality)
	}
	if got.CommunicationStyle.ResponseLength != "mediu" {
		t.Errorf("ResponseLength = %q, want mediu", got.CommunicationStyle.ResponseLength)
	}
	if !got.LastAnalyzed.Equal(testNow) {
		t.Errorf("LastAnalyzed = %v, want %v", got.LastAnalyzed, testNow)
	}
}

func TestDynamicAnalyzeFormalityFromLengthRatio(t *testing.T) {
	a := NewDynamicAnalyzer()
	long := strings.Repeat("a", 250)
	short := "da"

	got := a.Analyze([]storage.Conversation{
		testConv("c1", testNow.AddDate(0, 0, -1),
			userMsgAt(long, 9), userMsgAt(long, 9), userMsgAt(short, 9),
		),
	}, nil, testNow)

	if got.CommunicationStyle.Formality != "formală" {
		t.Errorf("Formality = %q, want formală", got.CommunicationStyle.Formality)
	}
	if got.CommunicationStyle.Tone != "serios" {
		t.Errorf("Tone = %q, want serios", got.CommunicationStyle.Tone)
	}
	if got.CommunicationStyle.ResponseLength != "lung" {
		t.Errorf("ResponseLength = %q, want lung", got.CommunicationStyle.ResponseLength)
	}
}

func TestDynamicAnalyzeTraits(t *testing.T) {
	a := NewDynamicAnalyzer()

	// 20 user messages of 30 runes each across 2 conversations.
	content := strings.Repeat("a", 30)
	var msgs []storage.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, userMsgAt(content, 9))
	}
	convs := []storage.Conversation{
		testConv("c1", testNow.AddDate(0, 0, -2), msgs...),
		testConv("c2", testNow.AddDate(0, 0, -1), msgs...),
	}
	insights := []insight.Insight{
		{QuestionTypes: []string{"procedură", "cauză"}},
		{QuestionTypes: []string{"definiție"}},
	}

	got := a.Analyze(convs, insights, testNow)

	if got.PersonalityTraits.Patience != 2 {
		t.Errorf("Patience = %d, want 2", got.PersonalityTraits.Patience)
	}
	if got.PersonalityTraits.Curiosity != 3 {
		t.Errorf("Curiosity = %d, want 3", got.PersonalityTraits.Curiosity)
	}
	if got.PersonalityTraits.Directness != 9 {
		t.Errorf("Directness = %d, want 9", got.PersonalityTraits.Directness)
	}
	if !got.ProblemSolving.PrefersStepByStep {
		t.Error("PrefersStepByStep = false, want true")
	}
	if !got.LearningPreferences.Theoretical {
		t.Error("Theoretical = false, want true")
	}
}
