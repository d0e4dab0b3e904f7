package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/syssam/dbgraph/dialect"
)

// Setting is a session setting applied on the connection of a statement,
// e.g. a lock or statement timeout.
type Setting struct {
	Name  string
	Value string
}

type settingsKey struct{}

// WithSetting returns a context holding a session setting. Statements run
// with the context apply it on their connection first:
//
//	ctx = sql.WithSetting(ctx, "lock_timeout", "2s")
//	n, err := m.MigrateAllRows(ctx, drv)
func WithSetting(ctx context.Context, name, value string) context.Context {
	set, _ := ctx.Value(settingsKey{}).([]Setting)
	set = append(slices.Clip(set), Setting{Name: name, Value: value})
	return context.WithValue(ctx, settingsKey{}, set)
}

// SettingFromContext returns the last value of the named setting in ctx.
func SettingFromContext(ctx context.Context, name string) (string, bool) {
	set, _ := ctx.Value(settingsKey{}).([]Setting)
	for i := len(set) - 1; i >= 0; i-- {
		if set[i].Name == name {
			return set[i].Value, true
		}
	}
	return "", false
}

var settingNameRe = regexp.MustCompile(`^@?[a-zA-Z_][a-zA-Z0-9_.]{0,127}$`)

// sessionSyntax holds the statements setting and restoring a setting.
// A nil reset leaves the setting on the connection.
type sessionSyntax struct {
	set   func(name, value string, tx bool) string
	reset func(name string) string
}

func quoteSetting(v string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), "'", "''") + "'"
}

var sessionSyntaxes = map[string]sessionSyntax{
	dialect.Postgres: {
		// SET LOCAL ends with the transaction.
		set: func(n, v string, tx bool) string {
			if tx {
				return fmt.Sprintf("SET LOCAL %s = %s", n, quoteSetting(v))
			}
			return fmt.Sprintf("SET %s = %s", n, quoteSetting(v))
		},
		reset: func(n string) string { return "RESET " + n },
	},
	dialect.MySQL: {
		set: func(n, v string, _ bool) string {
			if strings.HasPrefix(n, "@") {
				return fmt.Sprintf("SET %s = %s", n, quoteSetting(v))
			}
			return fmt.Sprintf("SET SESSION %s = %s", n, quoteSetting(v))
		},
		reset: func(n string) string {
			if strings.HasPrefix(n, "@") {
				return fmt.Sprintf("SET %s = NULL", n)
			}
			return fmt.Sprintf("SET SESSION %s = DEFAULT", n)
		},
	},
	dialect.SQLite: {
		set: func(n, v string, _ bool) string { return fmt.Sprintf("PRAGMA %s = %s", n, quoteSetting(v)) },
	},
}

// settings returns the settings of the connection followed by the ones
// of ctx.
func (c Conn) settings(ctx context.Context) []Setting {
	set, _ := ctx.Value(settingsKey{}).([]Setting)
	if len(c.session) == 0 {
		return set
	}
	return append(slices.Clip(c.session), set...)
}

// applySettings applies the session settings on a connection and returns
// it with the func releasing it. Outside transactions, the connection is
// taken from the pool and its settings are restored on release.
func (c Conn) applySettings(ctx context.Context) (ExecQuerier, func() error, error) {
	set := c.settings(ctx)
	if len(set) == 0 {
		return c, nil, nil
	}
	syntax, ok := sessionSyntaxes[baseDialect(c.dialect)]
	if !ok {
		return nil, nil, fmt.Errorf("session settings are not supported by dialect %q", c.dialect)
	}
	for _, s := range set {
		if !settingNameRe.MatchString(s.Name) {
			return nil, nil, fmt.Errorf("invalid session setting name: %q", s.Name)
		}
	}
	var (
		ex      ExecQuerier
		release func() error
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("acquire connection: %w", err)
		}
		ex, release = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("session settings on %T", c.ExecQuerier)
	}
	for _, s := range set {
		if _, err := ex.ExecContext(ctx, syntax.set(s.Name, s.Value, release == nil)); err != nil {
			err = fmt.Errorf("apply setting %s: %w", s.Name, err)
			if release != nil {
				err = errors.Join(err, release())
			}
			return nil, nil, err
		}
	}
	if release == nil || syntax.reset == nil {
		return ex, release, nil
	}
	var reset []string
	seen := make(map[string]bool, len(set))
	for _, s := range set {
		if !seen[s.Name] {
			seen[s.Name] = true
			reset = append(reset, syntax.reset(s.Name))
		}
	}
	closeConn := release
	release = func() error {
		// The caller's context may be done by the time rows are closed.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, q := range reset {
			if _, err := ex.ExecContext(rctx, q); err != nil {
				return errors.Join(fmt.Errorf("reset session: %w", err), closeConn())
			}
		}
		return closeConn()
	}
	return ex, release, nil
}
