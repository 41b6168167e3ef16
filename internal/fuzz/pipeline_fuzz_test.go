package fuzztests

import (
	"context"
	"testing"
	"time"

	"codescope/internal/driver"
)

// FuzzPipeline прогоняет вход через все задачи. Ошибок анализа быть не должно:
// любые проблемы входа обязаны превращаться в диагностики.
func FuzzPipeline(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, data []byte) {
		input := clampSeed(data)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		prog, err := driver.NewProgram(ctx, []driver.Source{
			{Path: "fuzz.py", Text: string(input)},
			{Path: "caller.py", Text: "import fuzz\nfrom fuzz import *\n\n\ndef run():\n    fuzz.main()\n"},
		}, driver.LoadOptions{Jobs: 1, MaxDiagnostics: 512, MaxErrors: 64})
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		res, err := driver.Analyze(ctx, prog, driver.Options{
			Jobs:           2,
			MaxDiagnostics: 512,
			MaxSteps:       1 << 16,
		})
		if err != nil {
			t.Fatalf("analyze %q: %v", truncateForLog(input, 200), err)
		}
		if res.Partial && ctx.Err() == nil {
			t.Fatalf("partial result without cancellation for %q", truncateForLog(input, 200))
		}
	})
}
