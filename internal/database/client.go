package database

import (
	"context"
	"time"

	"github.com/nfrund/campus/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// ContextKeyQueryTimeout overrides the default timeout for read queries.
	ContextKeyQueryTimeout ContextKey = "db_query_timeout"
	// ContextKeyExecuteTimeout overrides the default timeout for writes.
	ContextKeyExecuteTimeout ContextKey = "db_execute_timeout"
)

// Connector runs a function against a live database handle.
// *Connection implements it with reconnect-and-retry.
type Connector interface {
	WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error
}

// Client is a type-safe view over one table's records.
type Client[T any] interface {
	Query(ctx context.Context, query string, params map[string]any) ([]T, error)
	// QueryOne returns nil, nil if the query matched nothing.
	QueryOne(ctx context.Context, query string, params map[string]any) (*T, error)
	Execute(ctx context.Context, query string, params map[string]any) error

	// Create inserts data into table and returns the stored record.
	Create(ctx context.Context, table string, data any) (*T, error)
	// Select retrieves a record by its full ID (e.g. "message:abc").
	// Returns ErrNotFound if no record exists with the given ID.
	Select(ctx context.Context, id string) (*T, error)
	// Upsert writes data to the record table:key, creating it if needed.
	Upsert(ctx context.Context, table, key string, data any) (*T, error)
	Delete(ctx context.Context, id string) error
}

// ClientOption customises a client.
type ClientOption[T any] func(*client[T])

// WithTimeouts overrides the timeouts taken from configuration.
func WithTimeouts[T any](query, execute time.Duration) ClientOption[T] {
	return func(c *client[T]) {
		c.queryTimeout = query
		c.executeTimeout = execute
	}
}

type client[T any] struct {
	conn           Connector
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

// NewClient creates a new type-safe database client.
func NewClient[T any](conn Connector, cfg config.Provider, opts ...ClientOption[T]) (Client[T], error) {
	if conn == nil {
		return nil, NewDBError(ErrInvalidInput, "connection cannot be nil")
	}
	if cfg == nil {
		return nil, NewDBError(ErrInvalidInput, "config provider cannot be nil")
	}

	c := &client[T]{
		conn:           conn,
		queryTimeout:   cfg.GetDBQueryTimeout(),
		executeTimeout: cfg.GetDBExecuteTimeout(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.queryTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_QUERY_TIMEOUT must be a positive duration")
	}
	if c.executeTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_EXECUTE_TIMEOUT must be a positive duration")
	}
	return c, nil
}

func (c *client[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	var rows []T
	err := c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		rows, err = Query[T](ctx, db, query, params)
		return err
	})
	return rows, err
}

func (c *client[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	var row *T
	err := c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		row, err = QueryOne[T](ctx, db, query, params)
		return err
	})
	return row, err
}

func (c *client[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	return c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		return Execute(ctx, db, query, params)
	})
}

// write runs a statement that returns the affected record under the execute timeout.
func (c *client[T]) write(ctx context.Context, query string, params map[string]any) (*T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	var row *T
	err := c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		row, err = QueryOne[T](ctx, db, query, params)
		return err
	})
	return row, err
}

func (c *client[T]) Create(ctx context.Context, table string, data any) (*T, error) {
	if table == "" {
		return nil, NewDBError(ErrInvalidInput, "table cannot be empty")
	}
	if data == nil {
		return nil, NewDBError(ErrInvalidInput, "data cannot be nil")
	}

	row, err := c.write(ctx, "CREATE type::table($table) CONTENT $data", map[string]any{"table": table, "data": data})
	if err != nil {
		return nil, NewDBError(err, "create operation failed")
	}
	if row == nil {
		return nil, NewDBError(ErrQueryFailed, "create returned no record")
	}
	return row, nil
}

func (c *client[T]) Select(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, NewDBError(ErrInvalidInput, "id cannot be empty")
	}

	row, err := c.QueryOne(ctx, "SELECT * FROM type::thing($id)", map[string]any{"id": id})
	if err != nil {
		return nil, NewDBError(err, "select operation failed")
	}
	if row == nil {
		return nil, NewDBError(ErrNotFound, "record not found")
	}
	return row, nil
}

func (c *client[T]) Upsert(ctx context.Context, table, key string, data any) (*T, error) {
	if table == "" || key == "" {
		return nil, NewDBError(ErrInvalidInput, "table and key cannot be empty")
	}
	if data == nil {
		return nil, NewDBError(ErrInvalidInput, "data cannot be nil")
	}

	row, err := c.write(ctx, "UPSERT type::thing($table, $key) CONTENT $data",
		map[string]any{"table": table, "key": key, "data": data})
	if err != nil {
		return nil, NewDBError(err, "upsert operation failed")
	}
	return row, nil
}

func (c *client[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewDBError(ErrInvalidInput, "id cannot be empty")
	}
	return c.Execute(ctx, "DELETE type::thing($id)", map[string]any{"id": id})
}

// getTimeoutFromContext applies the timeout stored under key, or the default.
func getTimeoutFromContext(ctx context.Context, defaultTimeout time.Duration, key ContextKey) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := defaultTimeout
	if v, ok := ctx.Value(key).(time.Duration); ok && v > 0 {
		timeout = v
	}
	return context.WithTimeout(ctx, timeout)
}
