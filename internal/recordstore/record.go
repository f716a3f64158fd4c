// Package recordstore is the client for the external spreadsheet-like record
// store: tables of records whose fields are loosely typed JSON values.
package recordstore

import (
	"context"
	"strings"
	"time"

	"opsbridge/pkg/canonical"
)

// MaxBatchSize is the largest number of records the store accepts in one create call.
const MaxBatchSize = 10

// Fields is the field map of a record as sent to or received from the store.
type Fields map[string]any

// Record is one row of a table.
type Record struct {
	ID          string    `json:"id"`
	CreatedTime time.Time `json:"createdTime"`
	Fields      Fields    `json:"fields"`
}

// Text returns the canonical string form of a field, or "" when it is null.
func (r *Record) Text(field string) string {
	if r == nil {
		return ""
	}
	return canonical.Coerce(r.Fields[field]).OrEmpty()
}

// Query selects records whose Field equals Equals. MaxRecords of zero means no limit.
type Query struct {
	Field      string
	Equals     string
	MaxRecords int
}

// Formula renders the query as a filterByFormula expression.
func (q Query) Formula() string {
	if q.Field == "" {
		return ""
	}
	return "{" + q.Field + "} = '" + escapeFormulaString(q.Equals) + "'"
}

func escapeFormulaString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// Store is the full set of operations the engine uses. Services depend on
// narrower interfaces declared next to them.
type Store interface {
	List(ctx context.Context, table string, q Query) ([]Record, error)
	Get(ctx context.Context, table, id string) (*Record, error)
	Create(ctx context.Context, table string, fields Fields) (*Record, error)
	CreateBatch(ctx context.Context, table string, batch []Fields) ([]Record, error)
	Update(ctx context.Context, table, id string, fields Fields) (*Record, error)
	Delete(ctx context.Context, table, id string) error
}

//go:generate mockgen -source=record.go -destination=mocks/mock_store.go -package=mocks Store
