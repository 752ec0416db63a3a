package insight

import "regexp"

// Rules holds the keyword and phrase tables driving the rule-based analyzer.
// The tables are Romanian-first (the platform's audience) with a handful of
// English loanwords users mix in. Matching is plain substring membership over
// lower-cased text — no tokenization, no stemming.
type Rules struct {
	TopicBuckets    map[string][]string
	PositiveWords   []string
	NegativeWords   []string
	QuestionTypes   []QuestionRule
	FormalPhrases   []string
	InformalWords   []string
	Clarification   []string
	ProgressPhrases []string
}

// QuestionRule labels a question type when any of its markers appears in a
// single message.
type QuestionRule struct {
	Label   string
	Markers []string
}

// Topic bucket labels. They feed the profile's interest lists and the
// compiled context, so they are user-facing Romanian.
const (
	TopicTechnology   = "tehnologie"
	TopicBusiness     = "afaceri"
	TopicPersonal     = "personal"
	TopicEducation    = "educație"
	TopicTechProblem  = "problemă tehnică"
	TopicCreativity   = "creativitate"
	TopicProductivity = "productivitate"
)

// topicOrder fixes the iteration order over buckets so extraction output is
// deterministic.
var topicOrder = []string{
	TopicTechnology,
	TopicBusiness,
	TopicPersonal,
	TopicEducation,
	TopicTechProblem,
	TopicCreativity,
	TopicProductivity,
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() Rules {
	return Rules{
		TopicBuckets: map[string][]string{
			TopicTechnology: {
				"tehnologie", "calculator", "laptop", "telefon", "aplicație", "aplicatie",
				"program", "software", "internet", "site", "cod", "date",
			},
			TopicBusiness: {
				"afacere", "afaceri", "firmă", "firma", "bani", "buget", "marketing",
				"vânzări", "vanzari", "carieră", "cariera", "angajat", "salariu",
			},
			TopicPersonal: {
				"familie", "prieten", "relație", "relatie", "sănătate", "sanatate",
				"emoții", "emotii", "stres", "anxietate", "somn", "singurătate", "singuratate",
			},
			TopicEducation: {
				"școală", "scoala", "facultate", "curs", "examen", "temă de casă", "tema de casa",
				"învăț", "invat", "studiu", "lecție", "lectie",
			},
			TopicTechProblem: {
				"eroare", "bug", "nu funcționează", "nu functioneaza", "nu merge",
				"s-a stricat", "defect", "se blochează", "se blocheaza",
			},
			TopicCreativity: {
				"idee", "creativ", "design", "poveste", "muzică", "muzica",
				"desen", "artă", "arta", "scriu", "pictez",
			},
			TopicProductivity: {
				"productivitate", "organizare", "planificare", "obiective",
				"deadline", "priorități", "prioritati", "obicei", "rutină", "rutina",
			},
		},
		PositiveWords: []string{
			"mulțumesc", "multumesc", "super", "excelent", "minunat", "bucuros",
			"fericit", "perfect", "grozav", "îmi place", "imi place", "bine",
		},
		NegativeWords: []string{
			"trist", "rău", "rau", "nervos", "supărat", "suparat", "frustrat",
			"obosit", "greu", "nu pot", "singur", "anxios", "stresat",
		},
		QuestionTypes: []QuestionRule{
			{Label: "definiție", Markers: []string{"ce este", "ce înseamnă", "ce inseamna"}},
			{Label: "procedură", Markers: []string{"cum pot", "cum să", "cum sa", "cum fac"}},
			{Label: "cauză", Markers: []string{"de ce"}},
			{Label: "ajutor", Markers: []string{"ajută-mă", "ajuta-ma", "am nevoie de ajutor", "mă poți ajuta", "ma poti ajuta"}},
			{Label: "exemplu", Markers: []string{"un exemplu", "de exemplu", "dă-mi un exemplu", "da-mi un exemplu"}},
		},
		FormalPhrases: []string{
			"dumneavoastră", "dumneavoastra", "vă rog", "va rog", "aș dori", "as dori",
			"cu respect", "bună ziua", "buna ziua", "mulțumesc frumos", "multumesc frumos",
		},
		InformalWords: []string{
			"salut", "hei", "hey", "bro", "frate", "mișto", "misto", "cool", "ok", "merci",
		},
		Clarification: []string{
			"nu înțeleg", "nu inteleg", "nu am înțeles", "nu am inteles",
			"poți explica", "poti explica", "ce vrei să spui", "ce vrei sa spui",
			"mai explică", "mai explica", "nu e clar",
		},
		ProgressPhrases: []string{
			"am înțeles", "am inteles", "acum înțeleg", "acum inteleg",
			"a funcționat", "a functionat", "a mers", "am reușit", "am reusit",
			"mulțumesc", "multumesc", "e clar acum",
		},
	}
}

// emojiPattern covers the common emoji blocks: emoticons, symbols and
// pictographs, transport, supplemental symbols, and the legacy dingbat range.
var emojiPattern = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F900}-\x{1F9FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`)
