package ir

import "github.com/englishascode/eac/internal/ast"

// Lower translates a type-checked Program into a linear IR. Lowering
// is deterministic and preserves source order: each top-level AST
// statement emits exactly one OpRecord, and compound statements
// (ForEach, If) emit one record whose args include a nested Block.
// No constant folding or simplification is performed.
func Lower(prog *ast.Program) []OpRecord {
	var out []OpRecord
	for _, stmt := range prog.Statements {
		out = append(out, lowerStatement(stmt))
	}
	return out
}

func lowerStatement(stmt ast.Statement) OpRecord {
	switch s := stmt.(type) {
	case *ast.OpenWorkbook:
		return OpRecord{Op: OpOpenWorkbook, Pos: s.Pos, Args: map[string]Value{
			"path": Literal{s.Path},
		}}
	case *ast.TreatRange:
		return OpRecord{Op: OpReadTable, Pos: s.Pos, Args: map[string]Value{
			"sheet": Literal{s.Sheet},
			"range": Literal{s.Range},
			"table": Literal{s.TableName},
		}}
	case *ast.SetVar:
		return OpRecord{Op: OpSetVar, Pos: s.Pos, Args: map[string]Value{
			"name": Literal{s.Name},
			"expr": ExprTree{s.Expr},
		}}
	case *ast.AddColumn:
		return OpRecord{Op: OpAddColumn, Pos: s.Pos, Args: map[string]Value{
			"column": Literal{s.Column},
			"table":  TableRef{s.Table},
			"expr":   ExprTree{s.Expr},
		}}
	case *ast.Filter:
		return OpRecord{Op: OpFilter, Pos: s.Pos, Args: map[string]Value{
			"table":     TableRef{s.Table},
			"predicate": ExprTree{s.Predicate},
		}}
	case *ast.Sort:
		return OpRecord{Op: OpSort, Pos: s.Pos, Args: map[string]Value{
			"table":     TableRef{s.Table},
			"key":       ExprTree{s.Key},
			"ascending": Literal{s.Ascending},
		}}
	case *ast.Group:
		aggs := make([]Value, 0, len(s.Aggregations))
		for _, a := range s.Aggregations {
			aggs = append(aggs, Block{Ops: []OpRecord{{
				Op: OpCode("group.aggregation"),
				Args: map[string]Value{
					"name": Literal{a.Name},
					"func": Literal{a.Func},
					"arg":  ExprTree{a.Arg},
				},
			}}})
		}
		keys := make([]Value, 0, len(s.Keys))
		for _, k := range s.Keys {
			keys = append(keys, Literal{k})
		}
		return OpRecord{Op: OpGroup, Pos: s.Pos, Args: map[string]Value{
			"table":        TableRef{s.Table},
			"keys":         Literal{keys},
			"aggregations": Literal{aggs},
		}}
	case *ast.Join:
		ons := make([]Value, 0, len(s.On))
		for _, on := range s.On {
			ons = append(ons, Literal{on})
		}
		return OpRecord{Op: OpJoin, Pos: s.Pos, Args: map[string]Value{
			"left":   TableRef{s.Left},
			"right":  TableRef{s.Right},
			"result": Literal{s.ResultName},
			"on":     Literal{ons},
		}}
	case *ast.Export:
		return OpRecord{Op: OpExport, Pos: s.Pos, Args: map[string]Value{
			"source": ExprTree{s.Source},
			"path":   Literal{s.Path},
		}}
	case *ast.ForEach:
		body := Lower(&ast.Program{Statements: s.Body})
		return OpRecord{Op: OpForEach, Pos: s.Pos, Args: map[string]Value{
			"row_var": Literal{s.RowVar},
			"table":   TableRef{s.Table},
			"body":    Block{Ops: body},
		}}
	case *ast.If:
		thenOps := Lower(&ast.Program{Statements: s.Then})
		args := map[string]Value{
			"cond": ExprTree{s.Cond},
			"then": Block{Ops: thenOps},
		}
		if s.Else != nil {
			args["else"] = Block{Ops: Lower(&ast.Program{Statements: s.Else})}
		}
		return OpRecord{Op: OpIf, Pos: s.Pos, Args: args}
	case *ast.UseSystem:
		return OpRecord{Op: OpUseSystem, Pos: s.Pos, Args: map[string]Value{
			"name":    Literal{s.Name},
			"version": Literal{s.Version},
		}}
	case *ast.LogIn:
		return OpRecord{Op: OpLogin, Pos: s.Pos, Args: map[string]Value{
			"credential": Literal{s.Credential},
		}}
	case *ast.LogOut:
		return OpRecord{Op: OpLogout, Pos: s.Pos, Args: map[string]Value{}}
	case *ast.GoToPage:
		return OpRecord{Op: OpGotoPage, Pos: s.Pos, Args: map[string]Value{
			"name": Literal{s.Name},
		}}
	case *ast.EnterField:
		return OpRecord{Op: OpEnter, Pos: s.Pos, Args: map[string]Value{
			"selector": Literal{s.Selector},
			"expr":     ExprTree{s.Expr},
		}}
	case *ast.Click:
		return OpRecord{Op: OpClick, Pos: s.Pos, Args: map[string]Value{
			"selector": Literal{s.Selector},
		}}
	case *ast.Extract:
		return OpRecord{Op: OpExtract, Pos: s.Pos, Args: map[string]Value{
			"var":      Literal{s.Var},
			"selector": Literal{s.Selector},
		}}
	case *ast.Define:
		return OpRecord{Op: OpSetVar, Pos: s.Pos, Args: map[string]Value{
			"name":    Literal{s.Name},
			"declare": Literal{s.TypeName},
		}}
	case *ast.Call:
		return OpRecord{Op: OpCallResult, Pos: s.Pos, Args: map[string]Value{
			"result_name": Literal{s.ResultName},
		}}
	case *ast.OnError:
		handler := lowerStatement(s.Action)
		return OpRecord{Op: OpOnError, Pos: s.Pos, Args: map[string]Value{
			"handler": Block{Ops: []OpRecord{handler}},
		}}
	default:
		panic("ir.Lower: unhandled statement type")
	}
}
