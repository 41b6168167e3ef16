package fuzztests

import (
	"context"
	"testing"
	"time"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/lexer"
	"codescope/internal/parser"
	"codescope/internal/source"
)

const parseTimeout = 2 * time.Second

func FuzzParser(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, data []byte) {
		input := clampSeed(data)
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.py", input))

		bag := diag.NewBag(128)
		reporter := diag.BagReporter{Bag: bag}
		toks := lexer.Tokenize(file, lexer.Options{Reporter: reporter})

		builder := ast.NewBuilder(ast.Hints{}, nil)
		res := parser.ParseFile(builder, file, "fuzz", toks, parser.Options{
			Reporter:  reporter,
			MaxErrors: 128,
		})
		if !res.Module.IsValid() {
			t.Fatalf("no module node for %q", truncateForLog(input, 200))
		}
	})
}

// FuzzParserNoHang проверяет, что парсер всегда продвигается вперёд.
func FuzzParserNoHang(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, data []byte) {
		input := clampSeed(data)
		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			fs := source.NewFileSet()
			file := fs.Get(fs.AddVirtual("fuzz.py", input))
			bag := diag.NewBag(128)
			reporter := diag.BagReporter{Bag: bag}
			toks := lexer.Tokenize(file, lexer.Options{Reporter: reporter})
			_ = parser.ParseFile(ast.NewBuilder(ast.Hints{}, nil), file, "fuzz", toks, parser.Options{
				Reporter:  reporter,
				MaxErrors: 128,
			})
		}()

		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("parser hang detected: parsing took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], []byte("...")...)
}
