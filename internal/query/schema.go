package query

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tells the scanner how to decode a column.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Time
	JSON
)

// Column maps a public field name onto a SQL column.
type Column struct {
	Field string
	Name  string
	Kind  Kind
}

// Schema is the allow-list of fields a resource exposes to list queries.
// Field names that are not in the schema are dropped from a plan, so no
// caller-supplied identifier ever reaches the SQL text.
type Schema struct {
	Table   string
	Columns []Column
	byField map[string]Column
}

// IDField is always part of a projection.
const IDField = "id"

// NewSchema indexes columns by field name.  The first column must be the id.
func NewSchema(table string, cols ...Column) *Schema {
	s := &Schema{Table: table, Columns: cols, byField: make(map[string]Column, len(cols))}
	for _, c := range cols {
		s.byField[c.Field] = c
	}
	if _, ok := s.byField[IDField]; !ok {
		panic(fmt.Sprintf("query: schema %s has no %q column", table, IDField))
	}
	return s
}

// Lookup returns the column for a public field name.
func (s *Schema) Lookup(field string) (Column, bool) {
	c, ok := s.byField[field]
	return c, ok
}

// Cond is a fixed equality condition the caller scopes a list with, e.g.
// reviews of one naturant.  It is applied before the plan's own filter.
type Cond struct {
	Column string
	Value  any
}

// Statement is rendered SQL plus its arguments and the projected columns in
// SELECT order.
type Statement struct {
	SQL     string
	Args    []any
	Columns []Column
}

type builder struct {
	schema  *Schema
	where   []string
	args    []any
	orderBy string
	columns []Column
	limit   string
	tail    []any
}

// Build renders plan as a SELECT against the schema's table.
func (s *Schema) Build(p Plan, scope ...Cond) Statement {
	b := &builder{schema: s}
	for _, c := range scope {
		b.where = append(b.where, c.Column+" = ?")
		b.args = append(b.args, c.Value)
	}
	b.filter(p.Filter).sort(p.Sort).project(p.Fields).paginate(p.Page, p.Limit)
	return b.statement()
}

func (b *builder) filter(f *Filter) *builder {
	if f == nil {
		return b
	}
	col, ok := b.schema.Lookup(f.Field)
	if !ok {
		return b
	}
	b.where = append(b.where, col.Name+" = ?")
	b.args = append(b.args, f.Value)
	return b
}

func (b *builder) sort(s *Sort) *builder {
	if s == nil {
		return b
	}
	col, ok := b.schema.Lookup(s.Field)
	if !ok {
		return b
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	b.orderBy = col.Name + " " + dir
	return b
}

func (b *builder) project(fields []string) *builder {
	if len(fields) == 0 {
		b.columns = b.schema.Columns
		return b
	}
	id, _ := b.schema.Lookup(IDField)
	b.columns = []Column{id}
	for _, f := range fields {
		if f == IDField {
			continue
		}
		if col, ok := b.schema.Lookup(f); ok {
			b.columns = append(b.columns, col)
		}
	}
	return b
}

func (b *builder) paginate(page, limit int) *builder {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page > MaxPage {
		page = MaxPage
	}
	b.limit = "LIMIT ? OFFSET ?"
	b.tail = []any{limit, (page - 1) * limit}
	return b
}

func (b *builder) statement() Statement {
	names := make([]string, len(b.columns))
	for i, c := range b.columns {
		names[i] = c.Name
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.schema.Table)
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}
	sb.WriteString(" ")
	sb.WriteString(b.limit)

	args := append(append([]any{}, b.args...), b.tail...)
	return Statement{SQL: sb.String(), Args: args, Columns: b.columns}
}

// Document is one projected row keyed by public field name.
type Document map[string]any

// ScanDocuments reads every row into a Document using the statement's
// projected columns.
func ScanDocuments(rows *sql.Rows, cols []Column) ([]Document, error) {
	out := []Document{}
	for rows.Next() {
		dest := make([]any, len(cols))
		for i, c := range cols {
			dest[i] = scanTarget(c.Kind)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		doc := make(Document, len(cols))
		for i, c := range cols {
			v, err := decode(c, dest[i])
			if err != nil {
				return nil, err
			}
			doc[c.Field] = v
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTarget(k Kind) any {
	switch k {
	case Int:
		return new(sql.NullInt64)
	case Float:
		return new(sql.NullFloat64)
	case Time:
		return new(sql.NullTime)
	case JSON:
		return new([]byte)
	default:
		return new(sql.NullString)
	}
}

func decode(c Column, v any) (any, error) {
	switch t := v.(type) {
	case *sql.NullInt64:
		if !t.Valid {
			return nil, nil
		}
		return t.Int64, nil
	case *sql.NullFloat64:
		if !t.Valid {
			return nil, nil
		}
		return t.Float64, nil
	case *sql.NullTime:
		if !t.Valid {
			return nil, nil
		}
		return t.Time.UTC(), nil
	case *[]byte:
		if len(*t) == 0 {
			return nil, nil
		}
		raw := json.RawMessage(append([]byte(nil), *t...))
		if !json.Valid(raw) {
			return nil, fmt.Errorf("column %s: invalid JSON document", c.Name)
		}
		return raw, nil
	case *sql.NullString:
		if !t.Valid {
			return nil, nil
		}
		return t.String, nil
	}
	return nil, fmt.Errorf("column %s: unsupported scan target %T", c.Name, v)
}
