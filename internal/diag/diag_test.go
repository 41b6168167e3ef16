package diag

import (
	"strings"
	"testing"

	"codescope/internal/source"
)

func TestCodeCategory(t *testing.T) {
	cases := []struct {
		code Code
		cat  Category
		id   string
	}{
		{LexUnknownChar, CatSyntax, "LEX1001"},
		{SynUnexpectedToken, CatSyntax, "SYN2001"},
		{ResUnresolvedName, CatResolution, "RES3001"},
		{TypMismatch, CatType, "TYP4001"},
		{LntDependencyCycle, CatLint, "LNT5003"},
		{CpxCyclomatic, CatComplexity, "CPX6001"},
		{AnaNotConverged, CatAnalysis, "ANA7001"},
	}
	for _, tc := range cases {
		if got := tc.code.Category(); got != tc.cat {
			t.Fatalf("%v: category %v, want %v", tc.code, got, tc.cat)
		}
		if got := tc.code.ID(); got != tc.id {
			t.Fatalf("%v: id %q, want %q", tc.code, got, tc.id)
		}
	}
}

func TestBagLimitCountsDropped(t *testing.T) {
	bag := NewBag(2)
	r := BagReporter{Bag: bag}
	for i := 0; i < 5; i++ {
		ReportWarning(r, ResUnresolvedName, 1, source.Span{}, "x").Emit()
	}
	if bag.Len() != 2 || bag.Dropped() != 3 {
		t.Fatalf("len=%d dropped=%d", bag.Len(), bag.Dropped())
	}
	if bag.Items()[0].Category != CatResolution {
		t.Fatalf("category not derived from code")
	}
}

func TestSortAndDedup(t *testing.T) {
	bag := NewBag(0)
	r := BagReporter{Bag: bag}
	ReportWarning(r, LntUnusedSymbol, 3, source.Span{Start: 10, End: 11}, "b").Emit()
	ReportError(r, TypMismatch, 2, source.Span{Start: 1, End: 4}, "a").Emit()
	ReportError(r, TypMismatch, 2, source.Span{Start: 1, End: 4}, "a").Emit()
	bag.Sort()
	bag.Dedup()
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Code != TypMismatch || items[1].Code != LntUnusedSymbol {
		t.Fatalf("unexpected order: %v, %v", items[0].Code, items[1].Code)
	}
	if !bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("severity queries broken")
	}
	if n := bag.CountBy()[CatType]; n != 1 {
		t.Fatalf("CountBy type = %d", n)
	}
}

func TestDedupReporterAndFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.py", []byte("x = 1\ny = z\n"))
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{File: id, Start: 10, End: 11}
	ReportWarning(r, ResUnresolvedName, 7, sp, "unresolved name 'z'").WithNote(sp, "first use").Emit()
	ReportWarning(r, ResUnresolvedName, 7, sp, "unresolved name 'z'").Emit()
	if bag.Len() != 1 {
		t.Fatalf("dedup failed: %d", bag.Len())
	}
	got := FormatShort(bag.Items(), fs)
	want := "m.py:2:5: WARNING RES3001 unresolved name 'z'\n"
	if got != want {
		t.Fatalf("FormatShort:\n got %q\nwant %q", got, want)
	}
	if !strings.Contains(bag.Items()[0].Notes[0].Msg, "first") {
		t.Fatalf("note lost")
	}
}
