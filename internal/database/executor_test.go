package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/surrealdb/surrealdb.go"
)

func TestHasLimitClause(t *testing.T) {
	assert.True(t, hasLimitClause("SELECT * FROM message LIMIT 5"))
	assert.True(t, hasLimitClause("select * from message limit $limit"))
	assert.False(t, hasLimitClause("SELECT * FROM message"))
	assert.False(t, hasLimitClause("SELECT * FROM unlimited"))
}

func TestIsSelect(t *testing.T) {
	assert.True(t, isSelect("  select * from exam"))
	assert.False(t, isSelect("UPDATE community SET messages += $ref"))
}

func TestDBError(t *testing.T) {
	cause := errors.New("boom")
	err := NewDBError(errors.Join(ErrQueryFailed, cause), "query").WithQuery("SELECT 1").WithParams(map[string]any{"a": 1})

	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "SELECT 1")
	assert.Equal(t, "SELECT 1", err.Query())
}

func TestGetTimeoutFromContext(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		ctx, cancel := getTimeoutFromContext(context.Background(), time.Minute, ContextKeyQueryTimeout)
		defer cancel()
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	})

	t.Run("override", func(t *testing.T) {
		parent := context.WithValue(context.Background(), ContextKeyQueryTimeout, time.Second)
		ctx, cancel := getTimeoutFromContext(parent, time.Minute, ContextKeyQueryTimeout)
		defer cancel()
		deadline, _ := ctx.Deadline()
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
	})
}

type stubConnector struct{}

func (stubConnector) WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error {
	return NewDBError(ErrNotConnected, "stub")
}

type timeoutConfig struct {
	query, execute time.Duration
}

func (c timeoutConfig) GetServerAddr() string              { return "" }
func (c timeoutConfig) GetAllowedOrigin() string           { return "" }
func (c timeoutConfig) GetDBURL() string                   { return "" }
func (c timeoutConfig) GetDBNs() string                    { return "" }
func (c timeoutConfig) GetDBDb() string                    { return "" }
func (c timeoutConfig) GetDBUser() string                  { return "" }
func (c timeoutConfig) GetDBPass() string                  { return "" }
func (c timeoutConfig) GetDBQueryTimeout() time.Duration   { return c.query }
func (c timeoutConfig) GetDBExecuteTimeout() time.Duration { return c.execute }
func (c timeoutConfig) GetStorageDir() string              { return "" }
func (c timeoutConfig) GetMaxFileSize() int64              { return 0 }
func (c timeoutConfig) GetAllowedMimeTypes() []string      { return nil }
func (c timeoutConfig) GetSendBufferSize() int             { return 0 }
func (c timeoutConfig) GetHistoryLimit() int               { return 0 }

func TestNewClient(t *testing.T) {
	t.Run("rejects nil connection", func(t *testing.T) {
		_, err := NewClient[struct{}](nil, timeoutConfig{time.Second, time.Second})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects non-positive timeouts", func(t *testing.T) {
		_, err := NewClient[struct{}](stubConnector{}, timeoutConfig{0, time.Second})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("option overrides configuration", func(t *testing.T) {
		c, err := NewClient[struct{}](stubConnector{}, timeoutConfig{0, 0}, WithTimeouts[struct{}](time.Second, time.Second))
		assert.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("input validation happens before the connection", func(t *testing.T) {
		c, err := NewClient[struct{}](stubConnector{}, timeoutConfig{time.Second, time.Second})
		assert.NoError(t, err)

		_, err = c.Create(context.Background(), "", map[string]any{})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = c.Select(context.Background(), "")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, c.Delete(context.Background(), ""), ErrInvalidInput)

		_, err = c.Query(context.Background(), "SELECT * FROM message", nil)
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}
