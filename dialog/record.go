package dialog

// AnyQuery marks a response that applies to any incoming query,
// conditioned on the conversation state only.
const AnyQuery = "{{any}}"

// Dataset column names.
const (
	ColumnQuery    = "Query"
	ColumnResponse = "Response"
	ColumnStates   = "States"
	ColumnNewState = "NewState"
)

// Record is a single dataset row.
// A nil field means the column was absent for the row; Query is also nil
// for the AnyQuery sentinel.
type Record struct {
	Query    *string `json:"Query"`
	Response *string `json:"Response,omitempty"`
	States   *string `json:"States,omitempty"`
	NewState *string `json:"NewState,omitempty"`
}

// NewRecord builds a record from a header-keyed row.
func NewRecord(fields map[string]string) Record {
	record := Record{
		Response: lookup(fields, ColumnResponse),
		States:   lookup(fields, ColumnStates),
		NewState: lookup(fields, ColumnNewState),
	}
	if query := lookup(fields, ColumnQuery); query != nil && *query != AnyQuery {
		record.Query = query
	}
	return record
}

// HasQuery reports whether the record carries query text to embed.
func (r Record) HasQuery() bool {
	return r.Query != nil
}

// Key returns the query key of r: its query and, when non-empty, its state
// constraint.
func (r Record) Key() QueryKey {
	key := QueryKey{Query: r.Query}
	if r.States != nil && *r.States != "" {
		key.States = r.States
	}
	return key
}

func lookup(fields map[string]string, name string) *string {
	value, ok := fields[name]
	if !ok {
		return nil
	}
	return &value
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
