package token

import "testing"

func TestTokenizeImplicitPlaceholder(t *testing.T) {
	toks := Tokenize("echo hi")
	if len(toks) == 0 || !toks[len(toks)-1].IsPlaceholder {
		t.Fatalf("expected an implicit placeholder appended, got %+v", toks)
	}
	if toks[len(toks)-1].Transform != Raw {
		t.Fatalf("implicit placeholder must be Raw, got %v", toks[len(toks)-1].Transform)
	}
}

func TestTokenizePlain(t *testing.T) {
	toks := Tokenize("echo {}")
	want := []Token{lit("echo "), {IsPlaceholder: true, Transform: Raw}}
	if len(toks) != len(want) {
		t.Fatalf("got %+v", toks)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Fatalf("token %d: got %+v want %+v", i, toks[i], want[i])
		}
	}
}

func TestTokenizeDirnameShadowsBaseAndExt(t *testing.T) {
	toks := Tokenize("{//}")
	if len(toks) != 1 || toks[0].Transform != Dirname {
		t.Fatalf("got %+v", toks)
	}
}

func TestTokenizeColumnReference(t *testing.T) {
	toks := Tokenize("{2.}")
	if len(toks) != 1 || toks[0].Nth != 2 || toks[0].Transform != StripExt {
		t.Fatalf("got %+v", toks)
	}
}

func TestTokenizeUnmatchedBraceIsLiteral(t *testing.T) {
	toks := Tokenize("echo {oops")
	found := false
	for _, tk := range toks {
		if !tk.IsPlaceholder && tk.Literal == "{oops" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unmatched '{' kept as literal, got %+v", toks)
	}
}

func TestTokenizeUnrecognizedBracedIsLiteral(t *testing.T) {
	toks := Tokenize("{nonsense}")
	// The braced text stays a literal; with no real placeholder in the
	// template, the implicit " {}" is still appended after it.
	if len(toks) != 3 || toks[0].IsPlaceholder || toks[0].Literal != "{nonsense}" || !toks[2].IsPlaceholder {
		t.Fatalf("got %+v", toks)
	}
}

func TestTokenizeWordsAppliesImplicitPlaceholderOnce(t *testing.T) {
	out := TokenizeWords([]string{"echo", "{}"})
	if len(out) != 2 {
		t.Fatalf("expected no implicit word appended, got %+v", out)
	}
	if hasPlaceholder(out[0]) {
		t.Fatalf("word 0 (%q) should have no placeholder, got %+v", "echo", out[0])
	}
	if !hasPlaceholder(out[1]) {
		t.Fatalf("word 1 should carry the explicit placeholder, got %+v", out[1])
	}
}

func TestTokenizeWordsAppendsImplicitWordWhenNoneHasPlaceholder(t *testing.T) {
	out := TokenizeWords([]string{"echo"})
	if len(out) != 2 {
		t.Fatalf("expected an implicit trailing word appended, got %+v", out)
	}
	if hasPlaceholder(out[0]) {
		t.Fatalf("word 0 (%q) should have no placeholder, got %+v", "echo", out[0])
	}
	if !hasPlaceholder(out[1]) || out[1][0].Transform != Raw {
		t.Fatalf("expected implicit Raw placeholder as its own word, got %+v", out[1])
	}
}

func TestIdempotentTokenization(t *testing.T) {
	for _, tmpl := range []string{"echo {}", "{2.} {/} {//} {^tmp} {%}:{#}:{##}"} {
		first := Tokenize(tmpl)
		rendered := Render(first)
		second := Tokenize(rendered)
		if Render(second) != rendered {
			t.Fatalf("not a fixed point for %q: %q vs %q", tmpl, rendered, Render(second))
		}
	}
}
