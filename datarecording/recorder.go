// Package datarecording stores what happens during a simulation run in a
// SQLite database, one table per kind of occurrence.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"
	"github.com/iti/pcktsim"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// HopEntry is a row of the hops table
type HopEntry struct {
	EventID int64
	FlowID  int64
	Kind    string
	Src     int64
	Dst     int64
	Leave   int64
	Reach   int64
}

// DeliveryEntry is a row of the deliveries table
type DeliveryEntry struct {
	EventID int64
	FlowID  int64
	Kind    string
	Node    int64
	Arrival int64
	Done    int64
	Latency int64
}

// DropEntry is a row of the drops table
type DropEntry struct {
	EventID int64
	FlowID  int64
	Kind    string
	Node    int64
	Next    int64
	At      int64
	Reason  string
}

// Table names
const (
	HopTable      = "hops"
	DeliveryTable = "deliveries"
	DropTable     = "drops"
)

var tableRows = map[string]any{
	HopTable:      HopEntry{},
	DeliveryTable: DeliveryEntry{},
	DropTable:     DropEntry{},
}

// Recorder is a hook that writes the hops, deliveries and drops of a run to
// a SQLite database.  Rows are buffered and written in batches.
type Recorder struct {
	*sql.DB

	filename  string
	batchSize int
	pending   map[string][]any
	count     int
}

// New creates the database <path>.sqlite3 and its tables.  An empty path
// selects a unique name.  An existing file is never overwritten.
func New(path string) (*Recorder, error) {
	if path == "" {
		path = "pcktsim_run_" + xid.New().String()
	}
	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}
	r := &Recorder{DB: db, filename: filename, batchSize: 10000, pending: make(map[string][]any)}
	for _, name := range r.Tables() {
		if err := r.createTable(name, tableRows[name]); err != nil {
			db.Close()
			return nil, err
		}
	}

	atexit.Register(func() { r.Flush() })
	return r, nil
}

// Filename returns the name of the database file
func (r *Recorder) Filename() string {
	return r.filename
}

// SetBatchSize sets the number of buffered rows that triggers a write
func (r *Recorder) SetBatchSize(n int) {
	if n > 0 {
		r.batchSize = n
	}
}

// Tables returns the names of the tables written
func (r *Recorder) Tables() []string {
	return []string{DeliveryTable, DropTable, HopTable}
}

func (r *Recorder) createTable(name string, sample any) error {
	fields := strings.Join(structs.Names(sample), ", \n\t")
	_, err := r.Exec(`CREATE TABLE ` + name + ` (` + "\n\t" + fields + "\n" + `);`)
	return err
}

// Func buffers a row for every hop, delivery and drop
func (r *Recorder) Func(ctx pcktsim.HookCtx) {
	evt, ok := ctx.Item.(*pcktsim.Event)
	if !ok {
		return
	}
	id, flow, kind := int64(evt.ID()), int64(evt.FlowID), evt.Kind.String()

	switch detail := ctx.Detail.(type) {
	case pcktsim.HopRecord:
		r.insert(HopTable, HopEntry{EventID: id, FlowID: flow, Kind: kind,
			Src: detail.From, Dst: detail.To, Leave: detail.Start.Micros(), Reach: detail.End.Micros()})
	case pcktsim.Delivery:
		r.insert(DeliveryTable, DeliveryEntry{EventID: id, FlowID: flow, Kind: kind,
			Node: detail.Node, Arrival: detail.Arrival.Micros(),
			Done: evt.Created().Add(detail.Latency).Micros(), Latency: detail.Latency.Micros()})
	case pcktsim.Drop:
		r.insert(DropTable, DropEntry{EventID: id, FlowID: flow, Kind: kind,
			Node: detail.Node, Next: detail.Next, At: ctx.Now.Micros(), Reason: detail.Reason.String()})
	}
}

func (r *Recorder) insert(table string, entry any) {
	r.pending[table] = append(r.pending[table], entry)
	r.count++
	if r.count >= r.batchSize {
		if err := r.Flush(); err != nil {
			panic(err)
		}
	}
}

// Flush writes the buffered rows in a single transaction
func (r *Recorder) Flush() error {
	if r.count == 0 {
		return nil
	}
	tx, err := r.Begin()
	if err != nil {
		return err
	}
	for table, entries := range r.pending {
		if len(entries) == 0 {
			continue
		}
		if err := insertAll(tx, table, entries); err != nil {
			tx.Rollback()
			return err
		}
		r.pending[table] = nil
	}
	r.count = 0
	return tx.Commit()
}

func insertAll(tx *sql.Tx, table string, entries []any) error {
	marks := make([]string, len(structs.Names(entries[0])))
	for i := range marks {
		marks[i] = "?"
	}
	stmt, err := tx.Prepare("INSERT INTO " + table + " VALUES (" + strings.Join(marks, ", ") + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of rows written to a table
func (r *Recorder) Count(table string) (int, error) {
	if _, present := tableRows[table]; !present {
		return 0, fmt.Errorf("no table %s", table)
	}
	var n int
	err := r.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	return n, err
}

// Close flushes the buffered rows and closes the database
func (r *Recorder) Close() error {
	ferr := r.Flush()
	cerr := r.DB.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}
