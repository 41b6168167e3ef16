package fuzztests

import (
	"testing"

	"codescope/internal/diag"
	"codescope/internal/lexer"
	"codescope/internal/source"
	"codescope/internal/token"
)

func FuzzLexer(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, data []byte) {
		input := clampSeed(data)
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.py", input))

		bag := diag.NewBag(256)
		toks := lexer.Tokenize(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
		if len(toks) == 0 {
			t.Fatalf("no tokens for %q", truncateForLog(input, 200))
		}
		if last := toks[len(toks)-1]; last.Kind != token.EOF {
			t.Fatalf("stream does not end with EOF: %v", last.Kind)
		}
		size := uint32(len(file.Content)) // #nosec G115 -- clamped to maxSeedBytes
		for i, tok := range toks {
			if tok.Span.Start > tok.Span.End || tok.Span.End > size {
				t.Fatalf("token %d (%v) has span %d..%d outside %d bytes", i, tok.Kind, tok.Span.Start, tok.Span.End, size)
			}
		}
	})
}
