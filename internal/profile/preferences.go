package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownPreference is returned for a preference key that does not map to
// any profile field.
var ErrUnknownPreference = errors.New("unknown preference key")

// Explicit user preferences. These replace the old ambient settings store:
// every adjustable field has a dot-notation key, and updates go through the
// same merge path the analyzers use, so nothing else gets clobbered.
const (
	KeyTone             = "communication.tone"
	KeyLanguage         = "communication.language"
	KeyAddressMode      = "personal.addressMode"
	KeyExplanationStyle = "personal.explanationStyle"
	KeyUserName         = "personal.userName"
	KeyUserAge          = "personal.userAge"
	KeyResponseLength   = "behavior.preferredResponseLength"
	KeyGeneralMood      = "emotional.generalMood"
	KeyStepByStep       = "learning.prefersStepByStep"
	KeyLikesExamples    = "personal.likesExamples"
)

// PreferenceKeys lists every settable preference key, for display and
// validation.
func PreferenceKeys() []string {
	return []string{
		KeyTone,
		KeyLanguage,
		KeyAddressMode,
		KeyExplanationStyle,
		KeyUserName,
		KeyUserAge,
		KeyResponseLength,
		KeyGeneralMood,
		KeyStepByStep,
		KeyLikesExamples,
	}
}

// SetPreference applies one preference to the owner's personality profile,
// bootstrapping a default profile on first contact. Values are strings at the
// boundary; typed keys parse them and reject garbage before anything is
// written.
func (m *Manager) SetPreference(ctx context.Context, ownerID, key, value string) (PersonalityProfile, error) {
	var patch func(*PersonalityProfile)

	switch key {
	case KeyTone:
		patch = func(p *PersonalityProfile) { p.CommunicationStyle.Tone = value }
	case KeyLanguage:
		patch = func(p *PersonalityProfile) { p.CommunicationStyle.Language = value }
	case KeyAddressMode:
		patch = func(p *PersonalityProfile) { p.PersonalPreferences.AddressMode = value }
	case KeyExplanationStyle:
		patch = func(p *PersonalityProfile) { p.PersonalPreferences.ExplanationStyle = value }
	case KeyUserName:
		patch = func(p *PersonalityProfile) { p.PersonalPreferences.UserName = value }
	case KeyUserAge:
		age, err := strconv.Atoi(value)
		if err != nil || age < 13 || age > 120 {
			return PersonalityProfile{}, fmt.Errorf("invalid age %q: must be an integer between 13 and 120", value)
		}
		patch = func(p *PersonalityProfile) { p.PersonalPreferences.UserAge = age }
	case KeyResponseLength:
		if value != "scurt" && value != "mediu" && value != "lung" {
			return PersonalityProfile{}, fmt.Errorf("invalid response length %q: must be scurt, mediu, or lung", value)
		}
		patch = func(p *PersonalityProfile) { p.BehaviorPatterns.PreferredResponseLength = value }
	case KeyGeneralMood:
		patch = func(p *PersonalityProfile) { p.EmotionalProfile.GeneralMood = value }
	case KeyStepByStep:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return PersonalityProfile{}, fmt.Errorf("invalid boolean %q for %s", value, key)
		}
		patch = func(p *PersonalityProfile) { p.LearningStyle.PrefersStepByStep = b }
	case KeyLikesExamples:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return PersonalityProfile{}, fmt.Errorf("invalid boolean %q for %s", value, key)
		}
		patch = func(p *PersonalityProfile) { p.PersonalPreferences.LikesExamples = b }
	default:
		return PersonalityProfile{}, fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}

	return m.MergePersonality(ctx, ownerID, patch)
}
