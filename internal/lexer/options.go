package lexer

import (
	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
)

type Options struct {
	Reporter diag.Reporter // может быть nil, тогда ошибки игнорируем (но продолжаем лексить)
	// TabWidth is the column step of a tab in indentation; 8 when zero.
	TabWidth int
}

func (lx *Lexer) report(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportError(lx.opts.Reporter, code, ast.NoNodeID, sp, msg).Emit()
	}
}

func (lx *Lexer) warn(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportWarning(lx.opts.Reporter, code, ast.NoNodeID, sp, msg).Emit()
	}
}
