package personalinfo

import (
	"reflect"
	"testing"
	"time"

	"github.com/inima-app/inima/internal/profile"
)

func TestExtractName(t *testing.T) {
	e := New()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"ma numesc", "Mă numesc Andrei", "Andrei"},
		{"ma numesc no diacritics", "ma numesc Andrei", "Andrei"},
		{"numele meu este", "Numele meu este Ana Maria", "Ana Maria"},
		{"sunt plus capitalized name", "Sunt Maria și am o întrebare", "Maria"},
		{"sunt plus lowercase word", "sunt obosit azi", ""},
		{"sunt plus capitalized stopword", "Sunt Obosit azi", ""},
		{"hyphenated name", "Mă numesc Ana-Maria", "Ana-Maria"},
		{"no match", "azi e o zi frumoasă", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.content)
			if got.Name != tt.want {
				t.Errorf("Extract(%q).Name = %q, want %q", tt.content, got.Name, tt.want)
			}
		})
	}
}

func TestExtractAge(t *testing.T) {
	e := New()

	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"with de", "Am 27 de ani", 27},
		{"without de", "am 19 ani", 19},
		{"below range", "Am 12 de ani", 0},
		{"above range", "Am 200 de ani", 0},
		{"boundary low", "Am 13 ani", 13},
		{"boundary high", "Am 120 de ani", 120},
		{"no match", "am mulți ani de experiență", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.content)
			if got.Age != tt.want {
				t.Errorf("Extract(%q).Age = %d, want %d", tt.content, got.Age, tt.want)
			}
		})
	}
}

func TestExtractOccupationAndHobbies(t *testing.T) {
	e := New()

	got := e.Extract("Lucrez ca programator. Îmi place să citesc și sunt pasionat de șah")

	if !reflect.DeepEqual(got.Occupations, []string{"programator"}) {
		t.Errorf("Occupations = %v, want [programator]", got.Occupations)
	}
	want := []string{"citesc și sunt pasionat de șah", "șah"}
	if !reflect.DeepEqual(got.Hobbies, want) {
		t.Errorf("Hobbies = %v, want %v", got.Hobbies, want)
	}
}

func TestExtractEmpty(t *testing.T) {
	e := New()

	got := e.Extract("ce mai faci?")
	if !got.Empty() {
		t.Errorf("Extract of plain chat = %+v, want empty", got)
	}
}

func TestMergeOverwritesNameAndAge(t *testing.T) {
	p := profile.DefaultPersonality(time.Now())
	p.PersonalPreferences.UserName = "Ion"
	p.PersonalPreferences.UserAge = 40

	Merge(Info{Name: "Maria", Age: 27}, &p)

	if p.PersonalPreferences.UserName != "Maria" {
		t.Errorf("UserName = %q, want Maria", p.PersonalPreferences.UserName)
	}
	if p.PersonalPreferences.UserAge != 27 {
		t.Errorf("UserAge = %d, want 27", p.PersonalPreferences.UserAge)
	}
}

func TestMergeEmptyInfoKeepsProfile(t *testing.T) {
	p := profile.DefaultPersonality(time.Now())
	p.PersonalPreferences.UserName = "Ion"

	Merge(Info{}, &p)

	if p.PersonalPreferences.UserName != "Ion" {
		t.Errorf("UserName = %q, want Ion", p.PersonalPreferences.UserName)
	}
}

func TestMergeAppendsUniqueHobbies(t *testing.T) {
	p := profile.DefaultPersonality(time.Now())
	p.PersonalPreferences.Hobbies = []string{"șah"}

	Merge(Info{Hobbies: []string{"Șah", "gătit"}}, &p)

	want := []string{"șah", "gătit"}
	if !reflect.DeepEqual(p.PersonalPreferences.Hobbies, want) {
		t.Errorf("Hobbies = %v, want %v", p.PersonalPreferences.Hobbies, want)
	}
}
