package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/dbgraph/config"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/internal/testschema"
	"github.com/syssam/dbgraph/query"
)

func write(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.yaml")
	write(t, path, `
dialect: mysql
mysql:
  user: app
  password: secret
  addr: db:3306
  dbname: cars
  parse_time: true
  params:
    charset: utf8mb4
pool:
  max_open_conns: 10
  conn_max_lifetime: 5m
slow_threshold: 200ms
query:
  cartesian_join_allowed: true
session:
  sql_mode: TRADITIONAL
  innodb_lock_wait_timeout: "5"
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, cfg.Dialect)
	assert.Equal(t, 10, cfg.Pool.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Pool.ConnMaxLifetime)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)
	assert.Len(t, cfg.Query.Options(), 1)
	assert.Equal(t, []sql.Setting{
		{Name: "innodb_lock_wait_timeout", Value: "5"},
		{Name: "sql_mode", Value: "TRADITIONAL"},
	}, cfg.Settings())

	mc, err := mysql.ParseDSN(cfg.DataSource())
	require.NoError(t, err)
	assert.Equal(t, "app", mc.User)
	assert.Equal(t, "secret", mc.Passwd)
	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "db:3306", mc.Addr)
	assert.Equal(t, "cars", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, "utf8mb4", mc.Params["charset"])

	name, err := cfg.DriverName()
	require.NoError(t, err)
	assert.Equal(t, "mysql", name)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"UnknownKey", "dialect: sqlite\ndsn: x\ndsnn: y\n", "field dsnn not found"},
		{"UnknownDialect", "dialect: db2\ndsn: x\n", "db2"},
		{"NoDataSource", "dialect: postgres\n", "no data source"},
		{"Empty", "", "dialect"},
		{"MySQLSection", "dialect: postgres\nmysql:\n  user: app\n", "mysql section"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.data))
			assert.ErrorContains(t, err, tt.want)
		})
	}
	_, err := config.Parse([]byte("dialect: postgres\n"))
	assert.ErrorIs(t, err, config.ErrNoDataSource)
	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDriverName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLServer, dialect.SQLite} {
		cfg := &config.Config{Dialect: name, DSN: "x"}
		got, err := cfg.DriverName()
		require.NoError(t, err, name)
		assert.Equal(t, name, got)
	}
	cfg := &config.Config{Dialect: dialect.Oracle, DSN: "x"}
	_, err := cfg.DriverName()
	assert.ErrorContains(t, err, "no database/sql driver")
	cfg.Driver = dialect.Postgres
	got, err := cfg.DriverName()
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Parse([]byte(`
dialect: sqlite
dsn: "file:config_open?mode=memory&cache=shared"
pool:
  max_open_conns: 1
slow_threshold: 1h
query:
  blank_query_allowed: true
`))
	require.NoError(t, err)
	drv, err := config.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	assert.Equal(t, dialect.SQLite, drv.Dialect())

	stats, ok := drv.(*sql.StatsDriver)
	require.True(t, ok)
	assert.Equal(t, time.Hour, stats.SlowThreshold())

	require.NoError(t, drv.Exec(ctx, `CREATE TABLE hero (uid_hero integer PRIMARY KEY AUTOINCREMENT, name text NOT NULL)`, []any{}, nil))
	hero := entity.MustNew(testschema.Hero{})
	n, err := query.New(dialect.MustLookup(cfg.Dialect), cfg.Query.Options()...).Add(hero).Count(ctx, drv)
	require.NoError(t, err)
	assert.Zero(t, n)
	snap := stats.QueryStats().Stats()
	assert.Equal(t, int64(1), snap.TotalExecs)
	assert.Equal(t, int64(1), snap.TotalQueries)

	cfg.Debug = true
	debug, err := config.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = debug.Close() })
	assert.IsType(t, &sql.DebugDriver{}, debug)
}

func TestWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.yaml")
	write(t, path, "dialect: sqlite\ndsn: one\n")
	w, err := config.NewWatcher(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		g       errgroup.Group
		changed = make(chan *config.Config, 16)
	)
	g.Go(func() error {
		return w.Run(ctx, func(cfg *config.Config, err error) {
			if err != nil {
				return
			}
			select {
			case changed <- cfg:
			default:
			}
		})
	})
	write(t, path, "dialect: postgres\ndsn: two\n")

	timeout := time.After(10 * time.Second)
	for done := false; !done; {
		select {
		case cfg := <-changed:
			done = cfg.DSN == "two"
			if done {
				assert.Equal(t, dialect.Postgres, cfg.Dialect)
			}
		case <-timeout:
			t.Fatal("configuration was not reloaded")
		}
	}
	cancel()
	require.NoError(t, g.Wait())
}
