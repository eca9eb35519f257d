// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/db"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// NewDB returns a migrated in-memory sqlite database closed at test end.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.NewSQLiteConnection("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(context.Background(), conn))
	return conn
}

// NewCompany inserts an active tenant whose API key is "key-"+slug.
func NewCompany(t *testing.T, conn *sqlx.DB, slug string) model.Company {
	t.Helper()

	c := model.Company{
		ID:        util.New(),
		Name:      slug,
		Slug:      slug,
		APIKey:    "key-" + slug,
		IsActive:  true,
		CreatedAt: util.Now(),
	}
	require.NoError(t, repository.NewCompaniesRepository(conn).Insert(context.Background(), nil, c))
	return c
}

// Clock is a settable time source safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC().Truncate(time.Microsecond)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
