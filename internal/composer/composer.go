// Package composer renders the persisted profiles of a user into the
// natural-language context block injected into the LLM system prompt.
package composer

import (
	"context"
	"fmt"
	"strings"

	"github.com/inima-app/inima/internal/profile"
)

// memoryInstruction is appended to every compiled context, with or without a
// profile. The assistant must present itself as having continuous memory of
// the user.
const memoryInstruction = `Comportă-te întotdeauna ca și cum ai avea memorie activă a utilizatorului și a conversațiilor voastre anterioare. Nu spune niciodată că nu poți să îți amintești, că nu ai memorie sau că fiecare conversație începe de la zero.`

// bootstrapQuestions are suggestions for gathering profile signal when no
// profile exists yet.
const bootstrapQuestions = `Pentru a cunoaște utilizatorul, strecoară natural în conversație întrebări precum:
- Cum preferi să îți explic lucrurile: pas cu pas sau pe scurt?
- Cu ce te ocupi?
- Ce te pasionează în ultima vreme?`

// ProfileSource is what the compiler needs from the profile layer.
// Implemented by profile.Manager.
type ProfileSource interface {
	GetPersonality(ctx context.Context, ownerID string) (profile.PersonalityProfile, bool, error)
	GetDynamic(ctx context.Context, ownerID string) (profile.DynamicProfile, bool, error)
}

// Compiler turns profiles into prompt context. It has no side effects; the
// chat pipeline decides where the block goes.
type Compiler struct {
	profiles ProfileSource
}

func New(profiles ProfileSource) *Compiler {
	return &Compiler{profiles: profiles}
}

// Compile loads both profiles for the owner and renders the context block.
// A missing personality profile yields the bootstrap block. Load failures
// surface as errors; callers in the reply path fall back to Bootstrap().
func (c *Compiler) Compile(ctx context.Context, ownerID string) (string, error) {
	p, found, err := c.profiles.GetPersonality(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("compiling context: %w", err)
	}
	if !found {
		return Bootstrap(), nil
	}

	var sb strings.Builder
	sb.WriteString("[Profil utilizator]\n")
	writeField(&sb, "Nume", p.PersonalPreferences.UserName)
	if p.PersonalPreferences.UserAge > 0 {
		fmt.Fprintf(&sb, "Vârstă: %d ani\n", p.PersonalPreferences.UserAge)
	}
	writeField(&sb, "Ton preferat", p.CommunicationStyle.Tone)
	writeField(&sb, "Mod de adresare", p.PersonalPreferences.AddressMode)
	writeField(&sb, "Lungime preferată a răspunsurilor", p.BehaviorPatterns.PreferredResponseLength)
	writeField(&sb, "Stil de explicare", p.PersonalPreferences.ExplanationStyle)
	writeList(&sb, "Subiecte de interes", p.Interests.Topics)
	writeList(&sb, "Domenii", p.Interests.Domains)
	writeList(&sb, "Ocupații", p.PersonalPreferences.Occupations)
	writeList(&sb, "Pasiuni", p.PersonalPreferences.Hobbies)
	if p.PersonalPreferences.NeedsEncouragement {
		sb.WriteString("Are nevoie de încurajare; fii cald și susținător.\n")
	}
	if p.PersonalPreferences.LikesExamples {
		sb.WriteString("Apreciază exemplele concrete.\n")
	}
	if p.LearningStyle.PrefersStepByStep {
		sb.WriteString("Preferă explicații pas cu pas.\n")
	}
	if p.LearningStyle.AsksFollowUpQuestions {
		sb.WriteString("Obișnuiește să revină cu întrebări de continuare.\n")
	}
	writeField(&sb, "Stare generală", p.EmotionalProfile.GeneralMood)
	fmt.Fprintf(&sb, "Istoric: %d conversații, %d mesaje\n", p.TotalConversations, p.TotalMessages)

	if d, dFound, dErr := c.profiles.GetDynamic(ctx, ownerID); dErr == nil && dFound {
		sb.WriteString("\n[Profil dinamic]\n")
		writeField(&sb, "Formalitate", d.CommunicationStyle.Formality)
		writeField(&sb, "Ton", d.CommunicationStyle.Tone)
		writeList(&sb, "Subiecte active", d.ConversationPatterns.MostActiveTopics)
		writeField(&sb, "Moment preferat al zilei", d.ConversationPatterns.PreferredTimeOfDay)
		fmt.Fprintf(&sb, "Trăsături (1-10): răbdare %d, curiozitate %d, directețe %d\n",
			d.PersonalityTraits.Patience, d.PersonalityTraits.Curiosity, d.PersonalityTraits.Directness)
	}

	sb.WriteString("\n")
	sb.WriteString(memoryInstruction)
	return sb.String(), nil
}

// Bootstrap is the fixed block used when the user has no profile yet.
func Bootstrap() string {
	return "[Context utilizator]\nNu există încă un profil salvat pentru acest utilizator.\n\n" +
		memoryInstruction + "\n\n" + bootstrapQuestions
}

// Splice prepends the compiled context to an existing system prompt. The
// original system content is preserved after a separator, never replaced.
func Splice(contextBlock, systemPrompt string) string {
	if contextBlock == "" {
		return systemPrompt
	}
	if systemPrompt == "" {
		return contextBlock
	}
	return contextBlock + "\n\n---\n\n" + systemPrompt
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", label, value)
}

func writeList(sb *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", label, strings.Join(values, ", "))
}
