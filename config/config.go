// Package config loads the database configuration of an application from
// YAML files and opens the configured driver.
//
//	dialect: mysql
//	mysql:
//	  user: app
//	  addr: db:3306
//	  dbname: cars
//	pool:
//	  max_open_conns: 10
//	slow_threshold: 200ms
//	session:
//	  innodb_lock_wait_timeout: "5"
package config

import (
	"bytes"
	stdsql "database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql"
	"github.com/syssam/dbgraph/query"

	// Drivers of the dialects with a pure Go driver.
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

type (
	// Config is the database configuration.
	Config struct {
		// Dialect is the name of the SQL dialect, see package dialect.
		Dialect string `yaml:"dialect"`
		// Driver is the database/sql driver name. It defaults to the dialect
		// name, and must be set for dialects without a registered driver.
		Driver string `yaml:"driver,omitempty"`
		// DSN is the data source name. MySQL DSNs may be assembled from
		// the MySQL section instead.
		DSN   string `yaml:"dsn,omitempty"`
		MySQL *MySQL `yaml:"mysql,omitempty"`
		Pool  Pool   `yaml:"pool,omitempty"`
		// Debug logs every statement.
		Debug bool `yaml:"debug,omitempty"`
		// SlowThreshold enables statistics and slow statement logging.
		SlowThreshold time.Duration `yaml:"slow_threshold,omitempty"`
		Query         Query         `yaml:"query,omitempty"`
		// Session settings applied on the connection of every statement.
		Session map[string]string `yaml:"session,omitempty"`
	}

	// MySQL holds the parts of a MySQL DSN.
	MySQL struct {
		User      string            `yaml:"user"`
		Password  string            `yaml:"password,omitempty"`
		Net       string            `yaml:"net,omitempty"`
		Addr      string            `yaml:"addr"`
		DBName    string            `yaml:"dbname"`
		ParseTime bool              `yaml:"parse_time,omitempty"`
		Params    map[string]string `yaml:"params,omitempty"`
	}

	// Pool configures the connection pool.
	Pool struct {
		MaxOpenConns    int           `yaml:"max_open_conns,omitempty"`
		MaxIdleConns    int           `yaml:"max_idle_conns,omitempty"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
	}

	// Query holds the defaults of the queries of the application.
	Query struct {
		BlankQueryAllowed    bool `yaml:"blank_query_allowed,omitempty"`
		CartesianJoinAllowed bool `yaml:"cartesian_join_allowed,omitempty"`
	}
)

// ErrNoDataSource is returned for configurations without DSN.
var ErrNoDataSource = errors.New("dbgraph: config: no data source")

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dbgraph: config: reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML configuration. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("dbgraph: config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the dialect is known and a data source is set.
func (c *Config) Validate() error {
	if _, err := dialect.Lookup(c.Dialect); err != nil {
		return fmt.Errorf("dbgraph: config: %w", err)
	}
	if c.MySQL != nil && c.Dialect != dialect.MySQL {
		return fmt.Errorf("dbgraph: config: mysql section with dialect %q", c.Dialect)
	}
	if c.DSN == "" && c.MySQL == nil {
		return ErrNoDataSource
	}
	return nil
}

// DataSource returns the DSN of the configuration.
func (c *Config) DataSource() string {
	if c.DSN != "" || c.MySQL == nil {
		return c.DSN
	}
	return c.MySQL.DSN()
}

// DSN formats the MySQL data source name.
func (m *MySQL) DSN() string {
	mc := mysql.NewConfig()
	mc.User = m.User
	mc.Passwd = m.Password
	mc.Net = m.Net
	if mc.Net == "" {
		mc.Net = "tcp"
	}
	mc.Addr = m.Addr
	mc.DBName = m.DBName
	mc.ParseTime = m.ParseTime
	mc.Params = m.Params
	return mc.FormatDSN()
}

// DriverName returns the database/sql driver used to open the database.
func (c *Config) DriverName() (string, error) {
	name := c.Driver
	if name == "" {
		name = c.Dialect
	}
	if !slices.Contains(stdsql.Drivers(), name) {
		return "", fmt.Errorf("dbgraph: config: no database/sql driver %q registered for dialect %s", name, c.Dialect)
	}
	return name, nil
}

// Settings returns the session settings sorted by name.
func (c *Config) Settings() []sql.Setting {
	names := slices.Sorted(maps.Keys(c.Session))
	set := make([]sql.Setting, len(names))
	for i, n := range names {
		set[i] = sql.Setting{Name: n, Value: c.Session[n]}
	}
	return set
}

// Options returns the query options of the configuration.
func (q Query) Options() []query.Option {
	var opts []query.Option
	if q.BlankQueryAllowed {
		opts = append(opts, query.WithBlankQueryAllowed())
	}
	if q.CartesianJoinAllowed {
		opts = append(opts, query.WithCartesianJoinAllowed())
	}
	return opts
}

// Open opens the configured database. Debug drivers log statements to
// logger, or to the default logger when it is nil. Debug takes precedence
// over SlowThreshold.
func Open(c *Config, logger *slog.Logger) (dialect.Driver, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	name, err := c.DriverName()
	if err != nil {
		return nil, err
	}
	db, err := stdsql.Open(name, c.DataSource())
	if err != nil {
		return nil, fmt.Errorf("dbgraph: config: opening %s: %w", name, err)
	}
	if c.Pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.Pool.MaxOpenConns)
	}
	if c.Pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.Pool.MaxIdleConns)
	}
	if c.Pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.Pool.ConnMaxLifetime)
	}
	if logger == nil {
		logger = slog.Default()
	}
	drv := sql.OpenDB(c.Dialect, db)
	if len(c.Session) > 0 {
		drv = drv.Session(c.Settings()...)
	}
	switch {
	case c.Debug:
		return sql.NewDebugDriver(drv, logger), nil
	case c.SlowThreshold > 0:
		return sql.NewStatsDriver(drv,
			sql.WithSlowThreshold(c.SlowThreshold),
			sql.WithSlowQueryLog(logger),
		), nil
	}
	return drv, nil
}
