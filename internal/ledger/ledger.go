// Package ledger implements the resume ledger: an append-only record of
// (job_index, input_hash, exit_code, started_at, finished_at) rows,
// written by the merger as it emits each job in order. The engine opens it
// only when --resume or --joblog is passed, and consults it only for
// --resume.
//
// Uses a prepared-statement style: one
// *sqlite.Stmt per query, reused across calls and reset after each step.
package ledger

import (
	"errors"
	"os"
	"time"

	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Ledger owns one sqlite connection over the tempdir's resume database.
type Ledger struct {
	conn       *sqlite.Conn
	insertStmt *sqlite.Stmt
	doneStmt   *sqlite.Stmt
}

// Open creates (or reopens) the ledger database at path.
func Open(path string) (*Ledger, error) {
	needCreate := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		needCreate = true
	} else if err != nil {
		return nil, err
	}

	flags := sqlite.OpenReadWrite
	if needCreate {
		flags |= sqlite.OpenCreate
	}
	conn, err := sqlite.OpenConn(path, flags)
	if err != nil {
		return nil, err
	}

	if needCreate {
		if err := sqlitex.ExecuteTransient(conn,
			`CREATE TABLE IF NOT EXISTS job_log (
				job_index INTEGER PRIMARY KEY,
				input_hash TEXT,
				exit_code INTEGER,
				started_at INTEGER,
				finished_at INTEGER
			);`, nil); err != nil {
			conn.Close()
			return nil, err
		}
	}

	insertStmt, err := conn.Prepare(
		`INSERT INTO job_log (job_index, input_hash, exit_code, started_at, finished_at)
		 VALUES ($job_index, $input_hash, $exit_code, $started_at, $finished_at)
		 ON CONFLICT(job_index) DO UPDATE SET
			input_hash=excluded.input_hash, exit_code=excluded.exit_code,
			started_at=excluded.started_at, finished_at=excluded.finished_at;`)
	if err != nil {
		conn.Close()
		return nil, err
	}
	doneStmt, err := conn.Prepare(`SELECT job_index FROM job_log WHERE exit_code = 0;`)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Ledger{conn: conn, insertStmt: insertStmt, doneStmt: doneStmt}, nil
}

// HashInput returns the blake3 content hash of a materialised input
// record, used as the ledger's input_hash column.
func HashInput(encoded string) [32]byte {
	var out [32]byte
	sum := blake3.Sum256([]byte(encoded))
	copy(out[:], sum[:])
	return out
}

// Record appends (or replaces) one row for a completed job.
func (l *Ledger) Record(index uint64, inputHash [32]byte, exitCode int, started, finished time.Time) error {
	defer l.insertStmt.Reset()
	l.insertStmt.SetInt64("$job_index", int64(index))
	l.insertStmt.SetText("$input_hash", hexEncode(inputHash))
	l.insertStmt.SetInt64("$exit_code", int64(exitCode))
	l.insertStmt.SetInt64("$started_at", started.UnixNano())
	l.insertStmt.SetInt64("$finished_at", finished.UnixNano())
	_, err := l.insertStmt.Step()
	return err
}

// Completed returns the set of job indices previously recorded with a
// zero exit code, consulted by the dispatcher when --resume is set.
func (l *Ledger) Completed() (map[uint64]bool, error) {
	defer l.doneStmt.Reset()
	out := make(map[uint64]bool)
	for {
		hasRow, err := l.doneStmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			break
		}
		out[uint64(l.doneStmt.GetInt64("job_index"))] = true
	}
	return out, nil
}

// Close releases the connection.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

func hexEncode(b [32]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}
