// Package datarecording exports lab traces into SQLite databases.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DefaultBatchSize is the number of buffered entries that triggers a flush.
const DefaultBatchSize = 10000

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables.
	ListTables() []string

	// Flush writes all buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder that writes into path.sqlite3. An empty path
// picks a unique name. The recorder is flushed at exit.
func New(path string) DataRecorder {
	w := newSQLiteWriter()
	w.dbName = path
	w.Init()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a DataRecorder on an open database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := newSQLiteWriter()
	w.DB = db

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter buffers entries per table and writes them in one transaction.
type sqliteWriter struct {
	*sql.DB

	sync.Mutex
	dbName     string
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	closed     bool
}

func newSQLiteWriter() *sqliteWriter {
	return &sqliteWriter{
		batchSize: DefaultBatchSize,
		tables:    make(map[string]*table),
	}
}

// Init opens a new database file. It refuses to overwrite an existing trace.
func (t *sqliteWriter) Init() {
	if t.dbName == "" {
		t.dbName = "embedlab_trace_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	entryType := reflect.TypeOf(entry)
	if entryType == nil || entryType.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for i := 0; i < entryType.NumField(); i++ {
		field := entryType.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s is not exported", field.Name)
		}

		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("field %s of kind %s cannot be stored",
				field.Name, field.Type.Kind())
		}
	}

	return nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(fmt.Errorf("table %s: %w", tableName, err))
	}

	t.Lock()
	defer t.Unlock()

	if _, exists := t.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	t.mustExecute("CREATE TABLE " + tableName + " (\n\t" + fields + "\n);")

	t.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
	t.tableOrder = append(t.tableOrder, tableName)
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	t.Lock()

	table, exists := t.tables[tableName]
	if !exists {
		t.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		t.Unlock()
		panic(fmt.Sprintf("table %s stores %s, got %T",
			tableName, table.structType, entry))
	}

	table.entries = append(table.entries, entry)
	t.entryCount++
	full := t.entryCount >= t.batchSize

	t.Unlock()

	if full {
		t.Flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	t.Lock()
	defer t.Unlock()

	return append([]string(nil), t.tableOrder...)
}

func (t *sqliteWriter) Flush() {
	t.Lock()
	defer t.Unlock()

	if t.entryCount == 0 || t.closed {
		return
	}

	t.mustExecute("BEGIN TRANSACTION")
	defer t.mustExecute("COMMIT TRANSACTION")

	for _, tableName := range t.tableOrder {
		table := t.tables[tableName]
		if len(table.entries) == 0 {
			continue
		}

		stmt := t.prepareInsert(tableName, table.entries[0])

		for _, entry := range table.entries {
			value := reflect.ValueOf(entry)

			row := make([]any, 0, value.NumField())
			for i := 0; i < value.NumField(); i++ {
				row = append(row, value.Field(i).Interface())
			}

			if _, err := stmt.Exec(row...); err != nil {
				panic(err)
			}
		}

		table.entries = nil

		stmt.Close()
	}

	t.entryCount = 0
}

func (t *sqliteWriter) Close() error {
	t.Flush()

	t.Lock()
	defer t.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	return t.DB.Close()
}

func (t *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (t *sqliteWriter) prepareInsert(tableName string, entry any) *sql.Stmt {
	placeholders := make([]string, len(structs.Names(entry)))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	query := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	stmt, err := t.Prepare(query)
	if err != nil {
		panic(err)
	}

	return stmt
}
