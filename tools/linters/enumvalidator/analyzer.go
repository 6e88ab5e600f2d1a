// Package enumvalidator reports raw string literals assigned to struct
// fields whose type is a named string type. Those fields carry enum
// constants (model.Severity, model.DecisionKind, ...); a bare literal
// bypasses the declared value set and survives until someone greps for it.
package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var Analyzer = &analysis.Analyzer{
	Name:     "enumvalidator",
	Doc:      "checks that enum-typed struct fields are assigned constants, not string literals",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	ins := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.AssignStmt)(nil),
	}

	ins.Preorder(nodeFilter, func(n ast.Node) {
		assign := n.(*ast.AssignStmt)
		if len(assign.Lhs) != len(assign.Rhs) {
			// Tuple assignment from a call; nothing literal on the right.
			return
		}
		for i, lhs := range assign.Lhs {
			sel, ok := lhs.(*ast.SelectorExpr)
			if !ok {
				continue
			}
			lit, ok := assign.Rhs[i].(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			if !isEnumField(pass, sel) {
				continue
			}
			pass.Reportf(assign.Pos(), "enum field %s assigned string literal", sel.Sel.Name)
		}
	})

	return nil, nil
}

// isEnumField reports whether sel resolves to a struct field whose declared
// type is a named type with a string underlying type.
func isEnumField(pass *analysis.Pass, sel *ast.SelectorExpr) bool {
	selection, ok := pass.TypesInfo.Selections[sel]
	if !ok || selection.Kind() != types.FieldVal {
		return false
	}
	named, ok := selection.Type().(*types.Named)
	if !ok {
		return false
	}
	basic, ok := named.Underlying().(*types.Basic)
	return ok && basic.Kind() == types.String
}
