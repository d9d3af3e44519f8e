// Package token implements the tokeniser: it reduces a command
// template string into a sequence of literal fragments and placeholder
// tokens that the expander later renders against a single input record.
package token

import "strings"

// Transform names the operation a placeholder applies to its field.
type Transform int

const (
	Raw Transform = iota
	StripExt
	StripSuffix
	Basename
	Dirname
	BasenameStripExt
	BasenameStripSuffix
	Slot
	JobIndex
	JobTotal
)

// Token is either a literal byte run or a placeholder reference.
type Token struct {
	IsPlaceholder bool
	Literal       string

	// Nth is the 1-based column the placeholder refers to, or 0 to mean
	// "the current input".
	Nth       int
	Transform Transform
	Suffix    string // populated for StripSuffix / BasenameStripSuffix
}

func lit(s string) Token { return Token{Literal: s} }

// Tokenize scans template left to right, splitting it into literal runs
// and placeholder references. If the result has no placeholder at all,
// an implicit trailing `{}` is appended, so a template with no reference
// to its input still receives one.
func Tokenize(template string) []Token {
	tokens := tokenizeRaw(template)
	if !hasPlaceholder(tokens) && template != "" {
		tokens = append(tokens, lit(" "))
		tokens = append(tokens, Token{IsPlaceholder: true, Transform: Raw})
	}
	return tokens
}

// TokenizeWords tokenises each word of a multi-word command template
// independently, then applies the implicit-{} rule once across the whole
// command line rather than once per word: if no word's token stream
// contains a placeholder, a single implicit trailing placeholder is
// appended as its own word. Tokenising each word with Tokenize instead
// would append a separate implicit placeholder to every placeholder-free
// word, duplicating the input into the rendered command.
func TokenizeWords(words []string) [][]Token {
	out := make([][]Token, len(words))
	any := false
	for i, w := range words {
		out[i] = tokenizeRaw(w)
		if hasPlaceholder(out[i]) {
			any = true
		}
	}
	if !any && len(words) > 0 {
		out = append(out, []Token{{IsPlaceholder: true, Transform: Raw}})
	}
	return out
}

// tokenizeRaw is Tokenize without the implicit-placeholder rule, shared by
// Tokenize and TokenizeWords so each can apply that rule at its own scope.
func tokenizeRaw(template string) []Token {
	var tokens []Token
	runes := []rune(template)
	i := 0
	litStart := 0

	flushLiteral := func(end int) {
		if end > litStart {
			tokens = append(tokens, lit(string(runes[litStart:end])))
		}
	}

	for i < len(runes) {
		if runes[i] != '{' {
			i++
			continue
		}
		// Find the matching close brace.
		j := i + 1
		for j < len(runes) && runes[j] != '}' {
			j++
		}
		if j == len(runes) {
			// Unmatched '{' — the rest of the template, from the brace
			// on, is a literal of its own.
			flushLiteral(i)
			litStart = i
			i = len(runes)
			continue
		}

		flushLiteral(i)
		body := string(runes[i+1 : j])
		if tok, ok := matchPlaceholder(body); ok {
			tokens = append(tokens, tok)
		} else {
			tokens = append(tokens, lit("{"+body+"}"))
		}
		i = j + 1
		litStart = i
	}
	flushLiteral(len(runes))

	return tokens
}

func hasPlaceholder(tokens []Token) bool {
	for _, t := range tokens {
		if t.IsPlaceholder {
			return true
		}
	}
	return false
}

// matchPlaceholder parses the interior of a `{...}` per the PH grammar:
//
//	PH := N? ( "/" "/"? | "/"? ( "." | "^" SUFFIX ) )? | "%" | "#" "#"?
func matchPlaceholder(body string) (Token, bool) {
	if body == "%" {
		return Token{IsPlaceholder: true, Transform: Slot}, true
	}
	if body == "#" {
		return Token{IsPlaceholder: true, Transform: JobIndex}, true
	}
	if body == "##" {
		return Token{IsPlaceholder: true, Transform: JobTotal}, true
	}

	rest := body
	nth := 0
	ndigits := 0
	for ndigits < len(rest) && rest[ndigits] >= '0' && rest[ndigits] <= '9' {
		ndigits++
	}
	if ndigits > 0 {
		n := 0
		for _, c := range rest[:ndigits] {
			n = n*10 + int(c-'0')
		}
		nth = n
		rest = rest[ndigits:]
	}

	switch {
	case rest == "":
		return Token{IsPlaceholder: true, Nth: nth, Transform: Raw}, true
	case rest == ".":
		return Token{IsPlaceholder: true, Nth: nth, Transform: StripExt}, true
	case rest == "//":
		// Tie-break: "//" (dirname) shadows "/." only because the
		// grammar commits after the first '/'.
		return Token{IsPlaceholder: true, Nth: nth, Transform: Dirname}, true
	case rest == "/":
		return Token{IsPlaceholder: true, Nth: nth, Transform: Basename}, true
	case rest == "/.":
		return Token{IsPlaceholder: true, Nth: nth, Transform: BasenameStripExt}, true
	case strings.HasPrefix(rest, "/^"):
		return Token{IsPlaceholder: true, Nth: nth, Transform: BasenameStripSuffix, Suffix: rest[2:]}, true
	case strings.HasPrefix(rest, "^"):
		return Token{IsPlaceholder: true, Nth: nth, Transform: StripSuffix, Suffix: rest[1:]}, true
	default:
		return Token{}, false
	}
}

// Render reconstructs the canonical textual form of a token list. Used to
// check the tokeniser is a fixed point at the text level:
// Render(Tokenize(Render(Tokenize(s)))) == Render(Tokenize(s)). The token
// lists themselves can differ, since literal runs may split differently.
func Render(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		if !t.IsPlaceholder {
			b.WriteString(t.Literal)
			continue
		}
		b.WriteByte('{')
		if t.Nth != 0 {
			b.WriteString(itoa(t.Nth))
		}
		switch t.Transform {
		case Raw:
		case StripExt:
			b.WriteByte('.')
		case StripSuffix:
			b.WriteByte('^')
			b.WriteString(t.Suffix)
		case Basename:
			b.WriteByte('/')
		case Dirname:
			b.WriteString("//")
		case BasenameStripExt:
			b.WriteString("/.")
		case BasenameStripSuffix:
			b.WriteString("/^")
			b.WriteString(t.Suffix)
		case Slot:
			b.WriteByte('%')
		case JobIndex:
			b.WriteByte('#')
		case JobTotal:
			b.WriteString("##")
		}
		b.WriteByte('}')
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
