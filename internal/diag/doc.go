// Package diag defines the diagnostic model shared by every analysis stage.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier with a stable string form (LEX/SYN,
//     RES, TYP, LNT, CPX, ANA prefixes).
//   - Category: derived from the code range; one of syntax, resolution,
//     type, lint, complexity, analysis.
//   - Node: the AST node the finding is attached to.
//   - Primary span and optional Notes for secondary locations.
//
// # Emitting diagnostics
//
// Stages report through a Reporter so that emission is decoupled from
// storage. ReportError/ReportWarning/ReportInfo build a ReportBuilder, which
// can carry notes before Emit. BagReporter stores into a Bag.
//
// Bags are single-writer. Stages that run per function in parallel give each
// worker its own Bag and merge them in a fixed order afterwards, so the final
// list does not depend on scheduling.
//
// # Consumers
//
//   - internal/diagfmt renders bags as pretty text or JSON.
//   - internal/driver owns the per-run bag.
package diag
