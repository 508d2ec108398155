package store

import (
	"context"
	"path/filepath"
	"testing"

	"companyresolver/match"
	"companyresolver/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestResultsRoundTripInOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	industry := "Robotics"
	ok := resolver.Result{
		BusinessName: "Acme Robotics",
		Profile: &resolver.Profile{
			PageURL:       "https://www.linkedin.com/company/acme-robotics/",
			Industry:      &industry,
			LocationMatch: match.FullMatch,
			DomainMatch:   match.DomainMatched,
			Source:        resolver.SourceSearch,
			Query:         "acme robotics",
			QueryLevel:    1,
		},
	}
	failed := resolver.Result{BusinessName: "Zeta", Error: "no resolution", ErrorKind: resolver.KindNoResolution}

	require.NoError(t, db.SaveResult(ctx, "run", 1, failed))
	require.NoError(t, db.SaveResult(ctx, "run", 0, ok))
	require.NoError(t, db.SaveResult(ctx, "other", 0, failed))

	got, err := db.RunResults(ctx, "run")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ok, got[0])
	assert.Equal(t, failed, got[1])
}

func TestSaveResultReplacesSlot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveResult(ctx, "run", 0, resolver.Result{BusinessName: "A", Error: "x", ErrorKind: "internal"}))
	require.NoError(t, db.SaveResult(ctx, "run", 0, resolver.Result{BusinessName: "A", Error: "y", ErrorKind: "timeout"}))

	got, err := db.RunResults(ctx, "run")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "timeout", got[0].ErrorKind)
}

func TestIndustries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveIndustries(ctx, map[string]string{"4": "Software Development", "96": "IT Services"}))
	require.NoError(t, db.SaveIndustries(ctx, map[string]string{"96": "IT Services and IT Consulting"}))
	require.NoError(t, db.SaveIndustries(ctx, nil))

	got, err := db.Industries(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"4": "Software Development", "96": "IT Services and IT Consulting"}, got)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db.Pool))
	require.NoError(t, Migrate(db.Pool))
}
