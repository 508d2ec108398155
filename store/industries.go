package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// SaveIndustries upserts industry code to name pairs.
func (d *DB) SaveIndustries(ctx context.Context, codes map[string]string) error {
	if len(codes) == 0 {
		return nil
	}
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO industries(code, name, updated_at)
VALUES(?,?,?)
ON CONFLICT(code) DO UPDATE SET
  name = excluded.name,
  updated_at = excluded.updated_at;
`)
	if err != nil {
		return eris.Wrap(err, "prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for code, name := range codes {
		if _, err := stmt.ExecContext(ctx, code, name, now); err != nil {
			return eris.Wrapf(err, "save industry %s", code)
		}
	}
	return eris.Wrap(tx.Commit(), "commit industries")
}

// Industries loads every stored code to name pair.
func (d *DB) Industries(ctx context.Context) (map[string]string, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT code, name FROM industries;`)
	if err != nil {
		return nil, eris.Wrap(err, "query industries")
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var code, name string
		if err := rows.Scan(&code, &name); err != nil {
			return nil, eris.Wrap(err, "scan industry")
		}
		out[code] = name
	}
	return out, eris.Wrap(rows.Err(), "iterate industries")
}
