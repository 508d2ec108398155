package store

import (
	"context"
	"encoding/json"
	"time"

	"companyresolver/resolver"

	"github.com/rotisserie/eris"
)

// SaveResult records the result at position pos of a batch run,
// replacing any earlier record for the same slot.
func (d *DB) SaveResult(ctx context.Context, runID string, pos int, r resolver.Result) error {
	var pageURL, profile string
	if r.Profile != nil {
		b, err := json.Marshal(r.Profile)
		if err != nil {
			return eris.Wrap(err, "encode profile")
		}
		pageURL, profile = r.Profile.PageURL, string(b)
	}

	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO results(run_id, pos, business_name, page_url, profile, error, error_kind, created_at)
VALUES(?,?,?,?,?,?,?,?)
ON CONFLICT(run_id, pos) DO UPDATE SET
  business_name = excluded.business_name,
  page_url = excluded.page_url,
  profile = excluded.profile,
  error = excluded.error,
  error_kind = excluded.error_kind,
  created_at = excluded.created_at;
`, runID, pos, r.BusinessName, pageURL, profile, r.Error, r.ErrorKind, time.Now().UTC().Format(time.RFC3339))

	return eris.Wrapf(err, "save result %s/%d", runID, pos)
}

// RunResults returns the results of a run in position order.
func (d *DB) RunResults(ctx context.Context, runID string) ([]resolver.Result, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT business_name, profile, error, error_kind
FROM results
WHERE run_id = ?
ORDER BY pos ASC;
`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "query run %s", runID)
	}
	defer rows.Close()

	var out []resolver.Result
	for rows.Next() {
		var r resolver.Result
		var profile string
		if err := rows.Scan(&r.BusinessName, &profile, &r.Error, &r.ErrorKind); err != nil {
			return nil, eris.Wrap(err, "scan result")
		}
		if profile != "" {
			r.Profile = &resolver.Profile{}
			if err := json.Unmarshal([]byte(profile), r.Profile); err != nil {
				return nil, eris.Wrapf(err, "decode profile of %q", r.BusinessName)
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "iterate results")
}
