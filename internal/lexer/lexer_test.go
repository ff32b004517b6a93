package lexer

import (
	"testing"

	"github.com/englishascode/eac/internal/token"
)

func kinds(t *testing.T, toks []token.Token) []token.Kind {
	t.Helper()
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeSimpleSentence(t *testing.T) {
	toks, err := Tokenize(`Set x to 5.`)
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Kind{token.KEYWORD, token.IDENT, token.KEYWORD, token.NUMBER, token.PUNCT, token.EOF}
	got := kinds(t, toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeMoneyLiteral(t *testing.T) {
	toks, err := Tokenize(`Set price to USD 19.99.`)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, tok := range toks {
		if tok.Kind == token.MONEY {
			found = true
			mv, ok := tok.Value.(token.MoneyValue)
			if !ok {
				t.Fatalf("MONEY token value is %T, not token.MoneyValue", tok.Value)
			}
			if mv.Currency != "USD" || mv.Amount != "19.99" {
				t.Fatalf("got %+v, want USD 19.99", mv)
			}
		}
	}
	if !found {
		t.Fatal("expected a MONEY token")
	}
}

func TestTokenizeDateLiteral(t *testing.T) {
	toks, err := Tokenize(`Set d to date "2026-07-30".`)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, tok := range toks {
		if tok.Kind == token.DATE {
			found = true
			if tok.Lexeme != "2026-07-30" {
				t.Fatalf("got %q, want 2026-07-30", tok.Lexeme)
			}
		}
	}
	if !found {
		t.Fatal("expected a DATE token")
	}
}

func TestTokenizeRejectsInvalidCalendarDate(t *testing.T) {
	if _, err := Tokenize(`Set d to date "2026-02-30".`); err == nil {
		t.Fatal("expected an error for Feb 30")
	}
}

func TestTokenizeDottedIdentifierThenPeriod(t *testing.T) {
	toks, err := Tokenize(`Filter T where T.Balance.`)
	if err != nil {
		t.Fatal(err)
	}
	var sawDotted, sawTerminator bool
	for i, tok := range toks {
		if tok.Kind == token.IDENT && tok.Lexeme == "T.Balance" {
			sawDotted = true
			if i+1 < len(toks) && toks[i+1].Kind == token.PUNCT && toks[i+1].Lexeme == "." {
				sawTerminator = true
			}
		}
	}
	if !sawDotted {
		t.Fatal("expected a single dotted IDENT token \"T.Balance\"")
	}
	if !sawTerminator {
		t.Fatal("expected a trailing PUNCT \".\" terminator after the dotted identifier")
	}
}

func TestTokenizeRangeNotConfusedWithIdentifier(t *testing.T) {
	toks, err := Tokenize(`In sheet "Sheet1", treat range A1G999 as table Rows.`)
	if err != nil {
		t.Fatal(err)
	}
	var ranges int
	for _, tok := range toks {
		if tok.Kind == token.RANGE {
			ranges++
		}
	}
	if ranges != 1 {
		t.Fatalf("got %d RANGE tokens, want 1", ranges)
	}
}

func TestTokenizeRejectsInvertedRange(t *testing.T) {
	if _, err := Tokenize(`In sheet "Sheet1", treat range G999A1 as table Rows.`); err == nil {
		t.Fatal("expected an error for an inverted range (end before start)")
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	if _, err := Tokenize(`Set x to "oops`); err == nil {
		t.Fatal("expected an unterminated string error")
	}
}

func TestTokenizeLineComment(t *testing.T) {
	toks, err := Tokenize("-- a comment\nSet x to 1.")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != token.KEYWORD || toks[0].Lexeme != "Set" {
		t.Fatalf("comment was not skipped: first token is %+v", toks[0])
	}
}
