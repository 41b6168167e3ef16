package token

import "testing"

func TestKeywordsRoundTrip(t *testing.T) {
	for word, kind := range keywords {
		got, ok := LookupKeyword(word)
		if !ok || got != kind {
			t.Fatalf("LookupKeyword(%q) = %v, %v", word, got, ok)
		}
		if !kind.IsKeyword() {
			t.Fatalf("%q not classified as keyword", word)
		}
		if kind.String() != word {
			t.Fatalf("String() = %q, want %q", kind.String(), word)
		}
	}
	if _, ok := LookupKeyword("none"); ok {
		t.Fatalf("keywords must be case-sensitive")
	}
}

func TestKindPredicates(t *testing.T) {
	if !PowAssign.IsAugAssign() || Assign.IsAugAssign() || EqEq.IsAugAssign() {
		t.Fatalf("IsAugAssign misclassifies")
	}
	if !LBrace.IsOpenBracket() || !RBracket.IsCloseBracket() || Comma.IsOpenBracket() {
		t.Fatalf("bracket predicates broken")
	}
	if Newline.String() != "NEWLINE" || Arrow.String() != "->" {
		t.Fatalf("unexpected names %q %q", Newline, Arrow)
	}
}
