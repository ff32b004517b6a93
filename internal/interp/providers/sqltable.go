package providers

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/interp"
	"github.com/englishascode/eac/internal/money"
)

// SQLTable is the production EffectProvider for the table-algebra
// opcode family (excel.*, table.*). It mirrors every live table into a
// table of a real modernc.org/sqlite :memory: database, using the
// standard sql.Open(driverName, dsn) convention against the
// blank-imported sqlite driver.
//
// Filter, Sort, and AddColumn are applied as Go closures compiled by
// the interpreter (interp.RowFunc) over the rows of the Go-side table
// in req.Env, then the whole result is written to the sqlite mirror
// under the original table name via DROP+CREATE+INSERT — tables are
// replaced wholesale, never mutated row by row. Group and Join are
// resolved in Go over the same Go-side rows, rather than pushed down
// as SQL GROUP BY/JOIN:
// the mirror table only stores stringified cell values, so typed
// comparisons (Money, dates) and arbitrary aggregation functions are
// easier to get right on the Go side than to express portably in SQL.
type SQLTable struct {
	db *sql.DB
}

// NewSQLTable opens a fresh in-memory sqlite database to back one interpreter run.
func NewSQLTable() (*SQLTable, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "opening in-memory sqlite database")
	}
	return &SQLTable{db: db}, nil
}

func (p *SQLTable) Open(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *SQLTable) Close() error { return p.db.Close() }

// OpenWorkbook has no sqlite-side effect; the workbook path is carried
// through the trace only. Actual sheet access is the caller's
// responsibility via a higher-level loader that calls ReadTable.
func (p *SQLTable) OpenWorkbook(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

// ReadTable materializes a named range as a table. No workbook reader
// is wired in, so it returns an empty table with no columns and no
// rows; callers embedding a real spreadsheet backend replace this
// method.
func (p *SQLTable) ReadTable(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(&interp.Table{})
}

func (p *SQLTable) Export(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *SQLTable) AddColumn(ctx context.Context, req interp.Request) interp.Result {
	column, _ := req.Args["column"].(string)
	name, _ := req.Args["table"].(string)
	fn, _ := req.Args["expr"].(interp.RowFunc)

	tbl, ok := req.Env.Tables[name]
	if !ok {
		return interp.Fail(errors.Errorf("unknown table %q", name))
	}
	out := tbl.Clone()
	for i, row := range out.Rows {
		v, err := fn(tbl.Rows[i])
		if err != nil {
			return interp.Fail(errors.Wrapf(err, "add_column %s", column))
		}
		row[column] = v
	}
	if !containsCol(out.Columns, column) {
		out.Columns = append(out.Columns, column)
	}
	if err := p.replaceTable(ctx, name, out); err != nil {
		return interp.Fail(err)
	}
	return interp.Ok(out)
}

func (p *SQLTable) FilterTable(ctx context.Context, req interp.Request) interp.Result {
	name, _ := req.Args["table"].(string)
	fn, _ := req.Args["predicate"].(interp.RowFunc)

	tbl, ok := req.Env.Tables[name]
	if !ok {
		return interp.Fail(errors.Errorf("unknown table %q", name))
	}
	out := &interp.Table{Name: name, Columns: append([]string(nil), tbl.Columns...)}
	for _, row := range tbl.Rows {
		keep, err := fn(row)
		if err != nil {
			return interp.Fail(errors.Wrap(err, "filter predicate"))
		}
		b, _ := keep.(bool)
		if b {
			out.Rows = append(out.Rows, row)
		}
	}
	if err := p.replaceTable(ctx, name, out); err != nil {
		return interp.Fail(err)
	}
	return interp.Ok(out)
}

func (p *SQLTable) SortTable(ctx context.Context, req interp.Request) interp.Result {
	name, _ := req.Args["table"].(string)
	fn, _ := req.Args["key"].(interp.RowFunc)
	ascending, _ := req.Args["ascending"].(bool)

	tbl, ok := req.Env.Tables[name]
	if !ok {
		return interp.Fail(errors.Errorf("unknown table %q", name))
	}
	out := tbl.Clone()
	keys := make([]any, len(out.Rows))
	for i, row := range out.Rows {
		k, err := fn(row)
		if err != nil {
			return interp.Fail(errors.Wrap(err, "sort key"))
		}
		keys[i] = k
	}
	idx := make([]int, len(out.Rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		less := lessAny(keys[idx[i]], keys[idx[j]])
		if ascending {
			return less
		}
		return !less && !equalAny(keys[idx[i]], keys[idx[j]])
	})
	sorted := make([]interp.Row, len(out.Rows))
	for i, j := range idx {
		sorted[i] = out.Rows[j]
	}
	out.Rows = sorted
	if err := p.replaceTable(ctx, name, out); err != nil {
		return interp.Fail(err)
	}
	return interp.Ok(out)
}

func (p *SQLTable) GroupTable(ctx context.Context, req interp.Request) interp.Result {
	name, _ := req.Args["table"].(string)
	keysArg, _ := req.Args["keys"].([]any)
	aggsArg := req.Args["aggregations"]

	tbl, ok := req.Env.Tables[name]
	if !ok {
		return interp.Fail(errors.Errorf("unknown table %q", name))
	}
	keyCols := make([]string, 0, len(keysArg))
	for _, k := range keysArg {
		s, _ := k.(string)
		keyCols = append(keyCols, s)
	}

	specs, err := interp.ResolveAggregations(req.Env, name, aggsArg)
	if err != nil {
		return interp.Fail(err)
	}

	partitions := map[string][]interp.Row{}
	var order []string
	keyValues := map[string][]any{}
	for _, row := range tbl.Rows {
		var sb strings.Builder
		vals := make([]any, len(keyCols))
		for i, c := range keyCols {
			fmt.Fprintf(&sb, "%v\x1f", row[c])
			vals[i] = row[c]
		}
		k := sb.String()
		if _, seen := partitions[k]; !seen {
			order = append(order, k)
			keyValues[k] = vals
		}
		partitions[k] = append(partitions[k], row)
	}

	out := &interp.Table{Name: name}
	out.Columns = append(out.Columns, keyCols...)
	for _, s := range specs {
		out.Columns = append(out.Columns, s.Name)
	}
	for _, k := range order {
		rows := partitions[k]
		resultRow := interp.Row{}
		for i, c := range keyCols {
			resultRow[c] = keyValues[k][i]
		}
		for _, s := range specs {
			v, err := applyAggregation(s, rows)
			if err != nil {
				return interp.Fail(errors.Wrapf(err, "group aggregation %s", s.Name))
			}
			resultRow[s.Name] = v
		}
		out.Rows = append(out.Rows, resultRow)
	}
	if err := p.replaceTable(ctx, name, out); err != nil {
		return interp.Fail(err)
	}
	return interp.Ok(out)
}

func (p *SQLTable) JoinTables(ctx context.Context, req interp.Request) interp.Result {
	left, _ := req.Args["left"].(string)
	right, _ := req.Args["right"].(string)
	result, _ := req.Args["result"].(string)
	ons, _ := req.Args["on"].([]any)

	lt, ok := req.Env.Tables[left]
	if !ok {
		return interp.Fail(errors.Errorf("unknown table %q", left))
	}
	rt, ok := req.Env.Tables[right]
	if !ok {
		return interp.Fail(errors.Errorf("unknown table %q", right))
	}

	type pair struct{ leftCol, rightCol string }
	var pairs []pair
	for _, o := range ons {
		jo, ok := joinOnFields(o)
		if !ok {
			return interp.Fail(errors.Errorf("malformed join-on clause %#v", o))
		}
		pairs = append(pairs, pair{jo.leftCol, jo.rightCol})
	}

	out := &interp.Table{Name: result}
	out.Columns = append(out.Columns, lt.Columns...)
	out.Columns = append(out.Columns, rt.Columns...)

	for _, lrow := range lt.Rows {
		for _, rrow := range rt.Rows {
			match := true
			for _, p := range pairs {
				if fmt.Sprint(lrow[p.leftCol]) != fmt.Sprint(rrow[p.rightCol]) {
					match = false
					break
				}
			}
			if !match {
				continue
			}
			merged := interp.Row{}
			for k, v := range lrow {
				merged[k] = v
			}
			for k, v := range rrow {
				merged[k] = v
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	if err := p.replaceTable(ctx, result, out); err != nil {
		return interp.Fail(err)
	}
	return interp.Ok(out)
}

func (p *SQLTable) UseSystem(ctx context.Context, req interp.Request) interp.Result { return interp.Ok(nil) }
func (p *SQLTable) Login(ctx context.Context, req interp.Request) interp.Result     { return interp.Ok(nil) }
func (p *SQLTable) Logout(ctx context.Context, req interp.Request) interp.Result    { return interp.Ok(nil) }
func (p *SQLTable) GotoPage(ctx context.Context, req interp.Request) interp.Result  { return interp.Ok(nil) }
func (p *SQLTable) Enter(ctx context.Context, req interp.Request) interp.Result     { return interp.Ok(nil) }
func (p *SQLTable) Click(ctx context.Context, req interp.Request) interp.Result     { return interp.Ok(nil) }
func (p *SQLTable) Extract(ctx context.Context, req interp.Request) interp.Result   { return interp.Ok("") }

// replaceTable persists out under name: DROP the sqlite-side mirror
// table if present, CREATE it with one TEXT column per out.Columns,
// then INSERT each row. Values are stringified (money.Money via its
// String, e.g. "USD 12.50", nil as "", everything else via
// fmt.Sprint) since the sqlite
// mirror exists to let a future SQL-pushdown path (e.g. join key
// distinctness checks) query it directly, not to hold typed data —
// canonical values live in the Go-side interp.Table the provider
// returns.
func (p *SQLTable) replaceTable(ctx context.Context, name string, tbl *interp.Table) error {
	quoted := quoteIdent(name)
	if _, err := p.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return errors.Wrapf(err, "dropping mirror table %q", name)
	}
	if len(tbl.Columns) == 0 {
		return nil
	}
	cols := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		cols[i] = quoteIdent(c) + " TEXT"
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoted, strings.Join(cols, ", "))
	if _, err := p.db.ExecContext(ctx, createStmt); err != nil {
		return errors.Wrapf(err, "creating mirror table %q", name)
	}
	if len(tbl.Rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tbl.Columns)), ", ")
	insertStmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoted, placeholders)
	for _, row := range tbl.Rows {
		args := make([]any, len(tbl.Columns))
		for i, c := range tbl.Columns {
			args[i] = stringifyCell(row[c])
		}
		if _, err := p.db.ExecContext(ctx, insertStmt, args...); err != nil {
			return errors.Wrapf(err, "inserting into mirror table %q", name)
		}
	}
	return nil
}

func stringifyCell(v any) string {
	switch x := v.(type) {
	case money.Money:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func containsCol(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}

type joinOn struct{ leftCol, rightCol string }

func joinOnFields(v any) (joinOn, bool) {
	jo, ok := v.(ast.JoinOn)
	if !ok {
		return joinOn{}, false
	}
	return joinOn{jo.LeftCol, jo.RightCol}, true
}

func lessAny(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, _ := b.(float64)
		return x < y
	case string:
		y, _ := b.(string)
		return x < y
	case money.Money:
		y, ok := b.(money.Money)
		if !ok {
			return false
		}
		cmp, err := money.Compare(x, y)
		if err != nil {
			return false
		}
		return cmp < 0
	default:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
}

// equalAny reports whether two sort keys are equal, comparing Money
// through money.Compare rather than boxed `!=`: two equal amounts can
// box *big.Rat pointers that never compare equal by identity.
func equalAny(a, b any) bool {
	switch x := a.(type) {
	case money.Money:
		y, ok := b.(money.Money)
		if !ok {
			return false
		}
		cmp, err := money.Compare(x, y)
		return err == nil && cmp == 0
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}

func applyAggregation(s interp.AggregationSpec, rows []interp.Row) (any, error) {
	switch s.Func {
	case "count":
		return float64(len(rows)), nil
	case "sum":
		var total money.Money
		var haveMoney bool
		var numTotal float64
		for _, row := range rows {
			v, err := s.Arg(row)
			if err != nil {
				return nil, err
			}
			switch x := v.(type) {
			case money.Money:
				if !haveMoney {
					total = x
					haveMoney = true
					continue
				}
				sum, err := money.Add(total, x)
				if err != nil {
					return nil, err
				}
				total = sum
			case float64:
				numTotal += x
			}
		}
		if haveMoney {
			return total, nil
		}
		return numTotal, nil
	case "avg":
		var numTotal float64
		var n int
		for _, row := range rows {
			v, err := s.Arg(row)
			if err != nil {
				return nil, err
			}
			if f, ok := v.(float64); ok {
				numTotal += f
				n++
			}
		}
		if n == 0 {
			return 0.0, nil
		}
		return numTotal / float64(n), nil
	case "min", "max":
		var best any
		for _, row := range rows {
			v, err := s.Arg(row)
			if err != nil {
				return nil, err
			}
			if best == nil {
				best = v
				continue
			}
			if s.Func == "min" && lessAny(v, best) {
				best = v
			}
			if s.Func == "max" && lessAny(best, v) {
				best = v
			}
		}
		return best, nil
	default:
		return nil, errors.Errorf("unknown aggregation function %q", s.Func)
	}
}
