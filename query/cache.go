package query

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
)

// Cache is the interface for caching query results.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// CacheKey identifies the result of a statement.
type CacheKey struct {
	Tables    []string
	Operation string
	SQL       string
}

// String returns the string representation of the cache key. Keys start
// with the table names in alias order, e.g. "car_company,marque:select:<hash>",
// so the results of the queries led by a table share a prefix.
func (k CacheKey) String() string {
	sum := sha256.Sum256([]byte(k.SQL))
	return strings.Join(k.Tables, ",") + ":" + k.Operation + ":" + hex.EncodeToString(sum[:16])
}

// CacheKey returns the key of the result of the query.
func (q *Query) CacheKey() (CacheKey, error) {
	stmt, err := q.SQL()
	if err != nil {
		return CacheKey{}, err
	}
	return CacheKey{Tables: q.Tables(), Operation: "select", SQL: stmt}, nil
}

// AllCached is like All, but the rows are read from c when present and
// stored in c for ttl otherwise. Values are encoded with msgpack, integers
// read back from the cache are converted to the Go type of their column.
func (q *Query) AllCached(ctx context.Context, ex dialect.ExecQuerier, c Cache, ttl time.Duration) ([]*Row, error) {
	key, err := q.CacheKey()
	if err != nil {
		return nil, err
	}
	k := key.String()
	b, err := c.Get(ctx, k)
	if err != nil {
		return nil, &dbgraph.QueryError{Tables: key.Tables, Op: "cache get", Err: err}
	}
	if b != nil {
		dec := msgpack.NewDecoder(bytes.NewReader(b))
		dec.UseLooseInterfaceDecoding(true)
		var values [][]any
		if err := dec.Decode(&values); err != nil {
			return nil, &dbgraph.QueryError{Tables: key.Tables, Op: "cache decode", Err: err}
		}
		return q.rows(values), nil
	}
	values, err := q.scan(ctx, ex, key.SQL, "select")
	if err != nil {
		return nil, err
	}
	if b, err = msgpack.Marshal(values); err != nil {
		return nil, &dbgraph.QueryError{Tables: key.Tables, Op: "cache encode", Err: err}
	}
	if err := c.Set(ctx, k, b, ttl); err != nil {
		return nil, &dbgraph.QueryError{Tables: key.Tables, Op: "cache set", Err: err}
	}
	return q.rows(values), nil
}
