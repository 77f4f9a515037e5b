package tokenizer

var englishStopWords = []string{
	// Articles
	"a", "an", "the",

	// Pronouns
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves",
	"you", "your", "yours", "yourself", "yourselves",
	"he", "him", "his", "himself", "she", "her", "hers", "herself",
	"it", "its", "itself", "they", "them", "their", "theirs", "themselves",

	// Prepositions
	"of", "at", "by", "for", "with", "about", "against", "between",
	"into", "through", "during", "before", "after", "above", "below",
	"to", "from", "up", "down", "in", "out", "on", "off", "over", "under",

	// Conjunctions
	"and", "or", "but", "if", "while", "because", "as", "until",
	"than", "so", "nor", "yet",

	// Common verbs
	"is", "am", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having",
	"do", "does", "did", "doing",
	"will", "would", "should", "could", "can", "may", "might", "must",

	// Other common words
	"this", "that", "these", "those",
	"what", "which", "who", "whom", "whose", "when", "where", "why", "how",
	"all", "each", "every", "both", "few", "more", "most", "other", "some", "such",
	"no", "not", "only", "own", "same", "then", "there", "too", "very",
}

var frenchStopWords = []string{
	"au", "aux", "avec", "ce", "ces", "dans", "de", "des", "du", "elle", "en", "et",
	"eux", "il", "ils", "je", "la", "le", "les", "leur", "lui", "ma", "mais", "me",
	"même", "mes", "moi", "mon", "ne", "nos", "notre", "nous", "on", "ou", "par",
	"pas", "pour", "qu", "que", "qui", "sa", "se", "ses", "son", "sur", "ta", "te",
	"tes", "toi", "ton", "tu", "un", "une", "vos", "votre", "vous",
	"c", "d", "j", "l", "à", "m", "n", "s", "t", "y",
	"été", "étée", "étées", "étés", "étant", "étante", "étants", "étantes",
	"suis", "es", "est", "sommes", "êtes", "sont", "serai", "seras", "sera",
	"serons", "serez", "seront", "serais", "serait", "serions", "seriez", "seraient",
	"étais", "était", "étions", "étiez", "étaient", "fus", "fut", "fûmes", "fûtes",
	"furent", "sois", "soit", "soyons", "soyez", "soient", "fusse", "fusses", "fût",
	"fussions", "fussiez", "fussent",
	"ayant", "ayante", "ayantes", "ayants", "eu", "eue", "eues", "eus",
	"ai", "as", "avons", "avez", "ont", "aurai", "auras", "aura", "aurons", "aurez",
	"auront", "aurais", "aurait", "aurions", "auriez", "auraient", "avais", "avait",
	"avions", "aviez", "avaient", "eut", "eûmes", "eûtes", "eurent", "aie", "aies",
	"ait", "ayons", "ayez", "aient", "eusse", "eusses", "eût", "eussions", "eussiez",
	"eussent",
}

var spanishStopWords = []string{
	"de", "la", "que", "el", "en", "y", "a", "los", "del", "se", "las", "por", "un",
	"para", "con", "no", "una", "su", "al", "lo", "como", "más", "pero", "sus", "le",
	"ya", "o", "este", "sí", "porque", "esta", "entre", "cuando", "muy", "sin",
	"sobre", "también", "me", "hasta", "hay", "donde", "quien", "desde", "todo",
	"nos", "durante", "todos", "uno", "les", "ni", "contra", "otros", "ese", "eso",
	"ante", "ellos", "e", "esto", "mí", "antes", "algunos", "qué", "unos", "yo",
	"otro", "otras", "otra", "él", "tanto", "esa", "estos", "mucho", "quienes",
	"nada", "muchos", "cual", "poco", "ella", "estar", "estas", "algunas", "algo",
	"nosotros", "es", "son", "fue", "ha", "han", "ser",
}

var stopWordLists = map[string][]string{
	"english": englishStopWords,
	"french":  frenchStopWords,
	"spanish": spanishStopWords,
}

// StopWords returns a fresh stopword set for language. Unknown languages
// get an empty set.
func StopWords(language string, extra ...string) map[string]bool {
	words := stopWordLists[language]
	set := make(map[string]bool, len(words)+len(extra))
	for _, word := range words {
		set[word] = true
	}
	for _, word := range extra {
		set[word] = true
	}
	return set
}
