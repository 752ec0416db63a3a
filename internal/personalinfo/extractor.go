// Package personalinfo pulls explicit self-descriptions (name, age,
// occupation, hobbies) out of a single user message with Romanian-language
// patterns. It runs fire-and-forget next to the reply flow: a miss is a
// no-op, never an error.
package personalinfo

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/inima-app/inima/internal/profile"
)

const (
	minAge = 13
	maxAge = 120
)

// Info is the result of scanning one message. Zero fields mean "nothing
// found" for that category.
type Info struct {
	Name        string
	Age         int
	Occupations []string
	Hobbies     []string
}

// Empty reports whether the scan found nothing at all.
func (i Info) Empty() bool {
	return i.Name == "" && i.Age == 0 && len(i.Occupations) == 0 && len(i.Hobbies) == 0
}

// Extractor holds the compiled patterns. Construct once, reuse.
type Extractor struct {
	namePatterns []*regexp.Regexp
	agePattern   *regexp.Regexp
	occupation   *regexp.Regexp
	hobbies      []*regexp.Regexp
}

// Patterns accept both diacritic and diacritic-free spellings; users type
// either. A name candidate must be capitalized — "sunt" introduces plenty of
// non-name phrases ("sunt bine", "sunt obosit"), so lowercase continuations
// and a stopword list are rejected.
func New() *Extractor {
	name := `(\p{Lu}\p{Ll}+(?:[ -]\p{Lu}\p{Ll}+)?)`
	freeText := `([^.,!?;\n]{2,60})`
	return &Extractor{
		// No (?i) here: under it \p{Lu} folds and the capitalization check
		// on the captured name would be lost.
		namePatterns: []*regexp.Regexp{
			regexp.MustCompile(`[Mm][ăa]\s+numesc\s+` + name),
			regexp.MustCompile(`[Nn]umele\s+meu\s+este\s+` + name),
			regexp.MustCompile(`\b[Ss]unt\s+` + name),
		},
		agePattern: regexp.MustCompile(`(?i)\bam\s+(\d{1,3})\s+(?:de\s+)?ani\b`),
		occupation: regexp.MustCompile(`(?i)\blucrez\s+ca\s+` + freeText),
		hobbies: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:îmi|imi)\s+place\s+(?:să|sa)\s+` + freeText),
			regexp.MustCompile(`(?i)\bsunt\s+pasionat[ăa]?\s+de\s+` + freeText),
		},
	}
}

// nameStopwords are common capitalized sentence-starts after "Sunt" that are
// not names.
var nameStopwords = map[string]bool{
	"bine": true, "aici": true, "trist": true, "tristă": true, "trista": true,
	"obosit": true, "obosită": true, "obosita": true, "fericit": true,
	"fericită": true, "fericita": true, "sigur": true, "sigură": true,
	"sigura": true, "gata": true, "curios": true, "curioasă": true,
	"curioasa": true, "singur": true, "singură": true, "singura": true,
	"pasionat": true, "pasionată": true, "pasionata": true, "nou": true,
	"nouă": true, "noua": true, "eu": true,
}

// Extract scans one message. It never fails; unmatched categories stay zero.
func (e *Extractor) Extract(content string) Info {
	var info Info

	for _, p := range e.namePatterns {
		m := p.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if candidate == "" || nameStopwords[strings.ToLower(firstWord(candidate))] {
			continue
		}
		info.Name = candidate
		break
	}

	if m := e.agePattern.FindStringSubmatch(content); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil && age >= minAge && age <= maxAge {
			info.Age = age
		}
	}

	if m := e.occupation.FindStringSubmatch(content); m != nil {
		if occ := normalizeFreeText(m[1]); occ != "" {
			info.Occupations = append(info.Occupations, occ)
		}
	}

	for _, p := range e.hobbies {
		for _, m := range p.FindAllStringSubmatch(content, -1) {
			if hobby := normalizeFreeText(m[1]); hobby != "" {
				info.Hobbies = append(info.Hobbies, hobby)
			}
		}
	}

	return info
}

// Merge applies extracted info to a profile with the documented semantics:
// name and age overwrite, occupations and hobbies append deduplicated.
func Merge(info Info, p *profile.PersonalityProfile) {
	if info.Name != "" {
		p.PersonalPreferences.UserName = info.Name
	}
	if info.Age != 0 {
		p.PersonalPreferences.UserAge = info.Age
	}
	p.PersonalPreferences.Occupations = appendUnique(p.PersonalPreferences.Occupations, info.Occupations)
	p.PersonalPreferences.Hobbies = appendUnique(p.PersonalPreferences.Hobbies, info.Hobbies)
}

func appendUnique(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[strings.ToLower(v)] = true
	}
	for _, v := range additions {
		if !seen[strings.ToLower(v)] {
			seen[strings.ToLower(v)] = true
			existing = append(existing, v)
		}
	}
	return existing
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

func normalizeFreeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
