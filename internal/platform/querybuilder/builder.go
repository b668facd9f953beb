package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// statement accumulates SQL text and bound arguments, handing out $N
// placeholders in bind order.
type statement struct {
	sql  strings.Builder
	args []any
}

func (s *statement) write(text string) {
	s.sql.WriteString(text)
}

func (s *statement) bind(value any) {
	s.args = append(s.args, value)
	s.sql.WriteString("$")
	s.sql.WriteString(strconv.Itoa(len(s.args)))
}

// expand writes expr with each ? replaced by the next bound placeholder.
// Surplus ? runes are written through untouched.
func (s *statement) expand(expr string, values []any) {
	if len(values) == 0 {
		s.write(expr)
		return
	}

	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && next < len(values) {
			s.bind(values[next])
			next++
			continue
		}
		s.sql.WriteByte(expr[i])
	}
}

func (s *statement) where(conditions []Condition) {
	if len(conditions) == 0 {
		return
	}
	s.write(" WHERE ")
	for i, cond := range conditions {
		if i > 0 {
			s.write(" AND ")
		}
		cond(s)
	}
}

// Condition writes one WHERE fragment into a statement.
type Condition func(s *statement)

func Eq(column string, value any) Condition {
	return func(s *statement) {
		s.write(column + " = ")
		s.bind(value)
	}
}

func In(column string, values []any) Condition {
	return func(s *statement) {
		// An empty IN list matches nothing rather than erroring.
		if len(values) == 0 {
			s.write("1=0")
			return
		}
		s.write(column + " IN (")
		for i, value := range values {
			if i > 0 {
				s.write(", ")
			}
			s.bind(value)
		}
		s.write(")")
	}
}

func IsNull(column string) Condition {
	return func(s *statement) {
		s.write(column + " IS NULL")
	}
}

// Expr embeds a raw fragment, rewriting ? placeholders to $N.
func Expr(expr string, args ...any) Condition {
	return func(s *statement) {
		s.expand(expr, args)
	}
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	groupBy []string
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) GroupBy(parts ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, parts...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var s statement
	s.write("SELECT " + strings.Join(b.columns, ", ") + " FROM " + b.table)
	s.where(b.where)
	if len(b.groupBy) > 0 {
		s.write(" GROUP BY " + strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		s.write(" ORDER BY " + strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		s.write(" LIMIT " + strconv.Itoa(b.limit))
	}

	return s.sql.String(), s.args, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends trailing SQL, typically an ON CONFLICT clause.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	var s statement
	s.write("INSERT INTO " + b.table + " (" + strings.Join(b.columns, ", ") + ") VALUES ")
	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			s.write(", ")
		}
		s.write("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				s.write(", ")
			}
			s.bind(value)
		}
		s.write(")")
	}

	if b.suffix != "" {
		s.write(" ")
		s.expand(b.suffix, nil)
	}

	return s.sql.String(), s.args, nil
}

type UpdateBuilder struct {
	table  string
	sets   []func(s *statement)
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, func(s *statement) {
		s.write(column + " = ")
		s.bind(value)
	})
	return b
}

// SetExpr assigns a raw expression, rewriting ? placeholders to $N.
func (b *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, func(s *statement) {
		s.write(column + " = ")
		s.expand(expr, args)
	})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}

	var s statement
	s.write("UPDATE " + b.table + " SET ")
	for i, set := range b.sets {
		if i > 0 {
			s.write(", ")
		}
		set(&s)
	}

	s.where(b.where)
	if b.suffix != "" {
		s.write(" ")
		s.expand(b.suffix, nil)
	}

	return s.sql.String(), s.args, nil
}

type DeleteBuilder struct {
	table string
	where []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	b.where = append(b.where, conditions...)
	return b
}

// ToSQL refuses to build an unfiltered DELETE; derived tables are replaced
// per season, never truncated wholesale.
func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("delete table is required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("delete conditions are required")
	}

	var s statement
	s.write("DELETE FROM " + b.table)
	s.where(b.where)

	return s.sql.String(), s.args, nil
}
