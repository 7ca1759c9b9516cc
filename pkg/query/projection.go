// Package query builds the parameterized SELECT statements behind the
// history endpoints. Callers name fields by their view names; a
// ProjectionMap resolves them to alias-qualified columns.
package query

import "strings"

// ProjectionMap resolves view field names to qualified columns of a single
// aliased table and fixes the select-list order.
type ProjectionMap struct {
	from    string
	alias   string
	order   []string
	columns map[string]string
}

// NewProjectionMap maps fields of schema.table under alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		from:    schema + "." + table + " " + alias,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps column to the view field name. Fields are selected in the
// order they are first projected; projecting a field again remaps it in
// place.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	if _, exists := p.columns[field]; !exists {
		p.order = append(p.order, field)
	}
	p.columns[field] = p.alias + "." + column
	return p
}

// Table returns the FROM target, "schema.table alias".
func (p *ProjectionMap) Table() string {
	return p.from
}

// Column resolves a view field name. Unmapped names report false.
func (p *ProjectionMap) Column(field string) (string, bool) {
	col, ok := p.columns[field]
	return col, ok
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	cols := make([]string, len(p.order))
	for i, field := range p.order {
		cols[i] = p.columns[field]
	}
	return strings.Join(cols, ", ")
}

func (p *ProjectionMap) mustColumn(field string) string {
	col, ok := p.columns[field]
	if !ok {
		panic("query: unmapped field " + field + " on " + p.from)
	}
	return col
}
