// Package runstore persists finished Monte Carlo runs in a sqlite database,
// so that interrupted scans resume without redoing completed work.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fumin/spinmc"
)

const tableResult = "result"

// Key identifies a run.
type Key struct {
	Model   string
	Lattice string
	L, W, H int
	T       float64
	Seed    int64
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := `CREATE TABLE IF NOT EXISTS ` + tableResult + ` (
		model TEXT, lattice TEXT, l INTEGER, w INTEGER, h INTEGER, t REAL, seed INTEGER,
		name TEXT, mean REAL, stderr REAL)`
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return nil, errors.Wrap(err, "")
	}
	sqlStr = `CREATE INDEX IF NOT EXISTS result_key ON ` + tableResult + ` (model, lattice, l, w, h, t, seed)`
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return nil, errors.Wrap(err, "")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save records the results of a finished run in one transaction.
func (s *Store) Save(key Key, results []spinmc.Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr := `INSERT INTO ` + tableResult + ` (model, lattice, l, w, h, t, seed, name, mean, stderr) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, r := range results {
		if _, err1 := tx.ExecContext(ctx, sqlStr, key.Model, key.Lattice, key.L, key.W, key.H, key.T, key.Seed, r.Name, r.Mean, r.StdErr); err1 != nil && err == nil {
			err = errors.Wrap(err1, "")
		}
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "")
}

// Done reports whether results for key have been saved.
func (s *Store) Done(key Key) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sqlStr := `SELECT COUNT(*) FROM ` + tableResult + ` WHERE model=? AND lattice=? AND l=? AND w=? AND h=? AND t=? AND seed=?`
	var n int
	if err := s.db.QueryRowContext(ctx, sqlStr, key.Model, key.Lattice, key.L, key.W, key.H, key.T, key.Seed).Scan(&n); err != nil {
		return false, errors.Wrap(err, "")
	}
	return n > 0, nil
}

// Load returns the saved results of a run.
func (s *Store) Load(key Key) ([]spinmc.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sqlStr := `SELECT name, mean, stderr FROM ` + tableResult + ` WHERE model=? AND lattice=? AND l=? AND w=? AND h=? AND t=? AND seed=? ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, sqlStr, key.Model, key.Lattice, key.L, key.W, key.H, key.T, key.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	results := make([]spinmc.Result, 0)
	for rows.Next() {
		var r spinmc.Result
		if err := rows.Scan(&r.Name, &r.Mean, &r.StdErr); err != nil {
			return nil, errors.Wrap(err, "")
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return results, nil
}
