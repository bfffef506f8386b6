package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

// sceneGroups lists release/repack group names stripped from titles.
var sceneGroups = []string{
	"CODEX", "FitGirl", "DODI", "ElAmigos", "SKIDROW", "PLAZA", "RELOADED",
	"CPY", "EMPRESS", "GOG", "TENOKE", "RUNE", "DARKSiDERS", "KaOs",
	"Razor1911", "P2P", "Repack", "HOODLUM", "FLT", "DOGE", "SiMPLEX",
}

// editions lists edition names stripped from bracketed annotations and
// trailing "<name> Edition" phrases.
var editions = []string{
	"Game of the Year", "GOTY", "Digital Deluxe", "Deluxe", "Remastered",
	"Definitive", "Complete", "Ultimate", "Gold", "Premium", "Collector's",
	"Collectors", "Enhanced", "Director's Cut", "Anniversary", "Special",
	"Legendary", "Standard",
}

var (
	groupSuffixPattern  = regexp.MustCompile(`(?i)[-\s](?:` + alternation(sceneGroups) + `)\s*$`)
	groupTokenPattern   = regexp.MustCompile(`(?i)\b(?:` + alternation(sceneGroups) + `)\b`)
	versionPattern      = regexp.MustCompile(`(?i)\bv\d+(?:\.\d+)*[a-z]?\b`)
	dottedNumberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)+\b`)
	buildPattern        = regexp.MustCompile(`(?i)\b(?:build|update)\s*#?\d+(?:\.\d+)*\b`)
	editionBracketPat   = regexp.MustCompile(`(?i)[\(\[]\s*(?:` + alternation(editions) + `)(?:\s+edition)?\s*[\)\]]`)
	editionTrailingPat  = regexp.MustCompile(`(?i)\b(?:` + alternation(editions) + `)\s+edition\s*$`)
	bracketPattern      = regexp.MustCompile(`[\(\[\{][^\(\)\[\]\{\}]*[\)\]\}]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	return strings.Join(quoted, "|")
}

// NormalizeTitle strips scene-group tags, version and build tokens, edition
// annotations and bracketed spans from a raw title. The result is stable:
// NormalizeTitle(NormalizeTitle(x)) == NormalizeTitle(x).
func NormalizeTitle(raw string) string {
	current := raw
	// Passes repeat until nothing changes; stripping one token can expose
	// another (e.g. "Gold Edition (x)").
	for range 8 {
		next := normalizePass(current)
		if next == current {
			break
		}
		current = next
	}
	return current
}

func normalizePass(title string) string {
	title = splitSeparators(title)
	title = groupSuffixPattern.ReplaceAllString(title, " ")
	title = groupTokenPattern.ReplaceAllString(title, " ")
	title = buildPattern.ReplaceAllString(title, " ")
	title = versionPattern.ReplaceAllString(title, " ")
	title = dottedNumberPattern.ReplaceAllString(title, " ")
	title = editionBracketPat.ReplaceAllString(title, " ")
	title = strings.TrimSpace(title)
	title = editionTrailingPat.ReplaceAllString(title, " ")
	for {
		stripped := bracketPattern.ReplaceAllString(title, " ")
		if stripped == title {
			break
		}
		title = stripped
	}
	title = whitespacePattern.ReplaceAllString(title, " ")
	return strings.TrimFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitSeparators turns "Some.Game_Name" into "Some Game Name". Only titles
// without whitespace are treated as filename derived; dots between two digits
// are kept so dotted versions stay intact for the version pass.
func splitSeparators(title string) string {
	if strings.IndexFunc(title, unicode.IsSpace) >= 0 {
		return title
	}
	if !strings.ContainsAny(title, "._") {
		return title
	}
	runes := []rune(title)
	var b strings.Builder
	b.Grow(len(title))
	for i, r := range runes {
		switch r {
		case '_':
			b.WriteRune(' ')
		case '.':
			if i > 0 && i < len(runes)-1 && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				b.WriteRune(r)
			} else {
				b.WriteRune(' ')
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
