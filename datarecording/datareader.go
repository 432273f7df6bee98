package datarecording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// ErrUnknownTable is returned when reading a table that was not registered
// with the reader.
var ErrUnknownTable = errors.New("unknown table")

// Table describes a recorded table.
type Table struct {
	// Row is a value of the struct type each record was written from.
	Row any

	// CycleColumn names the field that holds the cycle of a record, such as
	// Cycle or InjectedAt. Records are returned in its order. It is empty for
	// tables that are not indexed by cycle.
	CycleColumn string
}

// Filter narrows the records read from a table.
type Filter struct {
	// FromCycle and ToCycle bound the cycle column, inclusive. Zero leaves a
	// bound open. Tables without a cycle column ignore them.
	FromCycle, ToCycle uint64

	// Where is an extra condition, without the WHERE keyword. Args fill its
	// placeholders.
	Where string
	Args  []any

	// Limit caps the number of records. Zero reads them all.
	Limit int
}

// Reader reads the tables of a recorded run back into the structs they were
// written from.
type Reader struct {
	db     *sql.DB
	tables map[string]Table
}

// OpenReader opens the SQLite file of a recorded run. Only the given tables
// can be read.
func OpenReader(filename string, tables map[string]Table) (*Reader, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	return NewReaderWithDB(db, tables), nil
}

// NewReaderWithDB creates a Reader on an open database. It panics if a table
// is not described by a struct or names a cycle column the struct lacks.
func NewReaderWithDB(db *sql.DB, tables map[string]Table) *Reader {
	for name, t := range tables {
		rowType := reflect.TypeOf(t.Row)
		if rowType == nil || rowType.Kind() != reflect.Struct {
			log.Panicf("table %s: rows must be structs", name)
		}

		if t.CycleColumn == "" {
			continue
		}

		if _, ok := rowType.FieldByName(t.CycleColumn); !ok {
			log.Panicf("table %s: %s has no field %s",
				name, rowType.Name(), t.CycleColumn)
		}
	}

	return &Reader{db: db, tables: tables}
}

// Tables returns the names of the readable tables in alphabetical order.
func (r *Reader) Tables() []string {
	return slices.Sorted(maps.Keys(r.tables))
}

// Read returns pointers to the records of a table that pass the filter.
func (r *Reader) Read(ctx context.Context, table string, f Filter) ([]any, error) {
	t, ok := r.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	query, args := selectQuery(table, t.CycleColumn, f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	defer rows.Close()

	return scanRecords(rows, reflect.TypeOf(t.Row))
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}

func selectQuery(table, cycleColumn string, f Filter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if cycleColumn != "" && f.FromCycle > 0 {
		conditions = append(conditions, cycleColumn+" >= ?")
		args = append(args, f.FromCycle)
	}

	if cycleColumn != "" && f.ToCycle > 0 {
		conditions = append(conditions, cycleColumn+" <= ?")
		args = append(args, f.ToCycle)
	}

	if f.Where != "" {
		conditions = append(conditions, "("+f.Where+")")
		args = append(args, f.Args...)
	}

	query := "SELECT * FROM " + table
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if cycleColumn != "" {
		query += " ORDER BY " + cycleColumn + ", rowid"
	} else {
		query += " ORDER BY rowid"
	}

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	return query, args
}

// scanRecords fills one struct per row, matching columns to fields by name.
// Columns without a field are skipped.
func scanRecords(rows *sql.Rows, rowType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []any

	for rows.Next() {
		record := reflect.New(rowType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			field := record.Elem().FieldByName(col)
			if !field.IsValid() || !field.CanSet() {
				targets[i] = new(any)
				continue
			}

			targets[i] = field.Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		records = append(records, record.Interface())
	}

	return records, rows.Err()
}
