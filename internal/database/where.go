package database

import (
	"strconv"
	"strings"
)

// dialect captures the SQL differences between the supported engines.
type dialect struct {
	name string

	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string

	// contains renders a case-insensitive substring match of column against
	// the LIKE pattern bound at placeholder.
	contains func(column, placeholder string) string
}

var (
	postgresDialect = dialect{
		name:        "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		contains: func(column, ph string) string {
			return column + " ILIKE " + ph + ` ESCAPE '\'`
		},
	}
	// SQLite's LIKE only ignores ASCII case, so both sides are folded with
	// the Go-backed unicode_lower function first.
	sqliteDialect = dialect{
		name:        "sqlite",
		placeholder: func(int) string { return "?" },
		contains: func(column, ph string) string {
			return sqliteLowerFunc + "(" + column + ") LIKE " + sqliteLowerFunc + "(" + ph + `) ESCAPE '\'`
		},
	}
)

// WhereBuilder assembles a WHERE clause with numbered parameters.
// Conditions are joined with AND; empty values are skipped.
type WhereBuilder struct {
	d          dialect
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder for d.
func NewWhereBuilder(d dialect) *WhereBuilder {
	return &WhereBuilder{d: d, argIndex: 1}
}

// Add appends "column = value" unless value is empty.
func (wb *WhereBuilder) Add(column, value string) *WhereBuilder {
	if value == "" {
		return wb
	}
	wb.conditions = append(wb.conditions, quoteIdentifier(column)+" = "+wb.next(value))
	return wb
}

// AddContains appends a case-insensitive substring match on column.
// LIKE wildcards in term match literally.
func (wb *WhereBuilder) AddContains(column, term string) *WhereBuilder {
	if term == "" {
		return wb
	}
	pattern := "%" + escapeLike(term) + "%"
	wb.conditions = append(wb.conditions, wb.d.contains(quoteIdentifier(column), wb.next(pattern)))
	return wb
}

// Build returns the clause with a leading " WHERE " and its arguments, or
// "" and nil when nothing was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func (wb *WhereBuilder) next(v any) string {
	ph := wb.d.placeholder(wb.argIndex)
	wb.args = append(wb.args, v)
	wb.argIndex++
	return ph
}

// escapeLike escapes the LIKE metacharacters %, _ and the escape itself.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// quoteIdentifier double-quotes a column name, doubling embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
