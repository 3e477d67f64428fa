package types

import "fmt"

// Schema pairs a Tuple-shaped row type with an ordered column-name list.
// An empty column list means positional access.
type Schema struct {
	Row     Type
	Columns []string
}

// NewSchema builds a Schema after checking that row is Tuple-shaped and
// that the column list, when present, matches its arity.
func NewSchema(row Type, columns []string) (Schema, error) {
	if row.Kind != KindTuple {
		return Schema{}, fmt.Errorf("types: schema row type must be a tuple, got %s", row)
	}
	if len(columns) > 0 && len(columns) != len(row.Params) {
		return Schema{}, fmt.Errorf("types: %d columns for %d-field row", len(columns), len(row.Params))
	}
	return Schema{Row: row, Columns: columns}, nil
}

// NumFields returns the row arity.
func (s Schema) NumFields() int { return len(s.Row.Params) }

// Field returns the type of field i.
func (s Schema) Field(i int) Type { return s.Row.Params[i] }
