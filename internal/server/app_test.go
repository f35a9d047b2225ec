package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/qrbind/internal/common"
	"github.com/dmitrijs2005/qrbind/internal/dbx"
	"github.com/dmitrijs2005/qrbind/internal/logging"
	"github.com/dmitrijs2005/qrbind/internal/server/config"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/originals"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/replicas"
)

type stubManager struct {
	migrateErr error
	migrated   int
}

func (m *stubManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrated++
	return m.migrateErr
}

func (m *stubManager) Originals(db dbx.DBTX) originals.Repository {
	return originals.NewPostgresRepository(db)
}

func (m *stubManager) Replicas(db dbx.DBTX) replicas.Repository {
	return replicas.NewPostgresRepository(db)
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.ShutdownTimeout = time.Second
	c.HealthCheckInterval = time.Hour
	return c
}

func newMockApp(t *testing.T, c *config.Config, m *stubManager) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newApp(c, db, m, logging.Nop{}), mock
}

func TestRun_StopsOnCancel(t *testing.T) {
	m := &stubManager{}
	app, _ := newMockApp(t, testConfig(), m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, 1, m.migrated)
}

func TestRun_MigrationFailureStopsStartup(t *testing.T) {
	boom := errors.New("boom")
	app, _ := newMockApp(t, testConfig(), &stubManager{migrateErr: boom})

	err := app.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_ServerFailureIsReturned(t *testing.T) {
	c := testConfig()
	c.EndpointAddrHTTP = "127.0.0.1:99999"
	app, _ := newMockApp(t, c, &stubManager{})

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after listen failure")
	}
}

func TestResolve_UsesResolverPath(t *testing.T) {
	app, mock := newMockApp(t, testConfig(), &stubManager{})
	mock.ExpectQuery("FROM replicas").WillReturnError(sql.ErrNoRows)

	_, err := app.Resolve(context.Background(), "unknown-token")
	assert.ErrorIs(t, err, common.ErrTokenNotFound)

	_, err = app.Resolve(context.Background(), "bad token")
	assert.ErrorIs(t, err, common.ErrMalformedToken)
}
