package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nfrund/campus/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// ExponentialBackoffRetryer retries an operation with exponential backoff and jitter.
type ExponentialBackoffRetryer struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     bool
}

// NewExponentialBackoffRetryer creates a retryer: 5 retries, 100ms base, 30s cap.
func NewExponentialBackoffRetryer() *ExponentialBackoffRetryer {
	return &ExponentialBackoffRetryer{
		maxRetries: 5,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   30 * time.Second,
		multiplier: 2.0,
		jitter:     true,
	}
}

// Retry executes a function with exponential backoff retry logic
func (r *ExponentialBackoffRetryer) Retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == r.maxRetries {
			break
		}

		delay := r.calculateDelay(attempt)
		slog.DebugContext(ctx, "Retry attempt failed, waiting before next attempt",
			"event", "retry_attempt", "version", "1.0",
			"attempt", attempt+1, "max_attempts", r.maxRetries+1,
			"delay_ms", delay.Milliseconds(), "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *ExponentialBackoffRetryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.baseDelay) * math.Pow(r.multiplier, float64(attempt))
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}

	if r.jitter {
		delay += rand.Float64() * delay * 0.25
	}

	return time.Duration(delay)
}

// Connection owns the SurrealDB handle, reconnecting with backoff when
// operations fail for connection reasons.
type Connection struct {
	cfg       config.Provider
	conn      *surrealdb.DB
	retryer   *ExponentialBackoffRetryer
	mu        sync.RWMutex
	healthy   bool
	done      chan struct{}
	closeOnce sync.Once

	healthInterval time.Duration
}

var _ Connector = (*Connection)(nil)

// NewConnection creates a new managed database connection
func NewConnection(cfg config.Provider) *Connection {
	return &Connection{
		cfg:     cfg,
		retryer:        NewExponentialBackoffRetryer(),
		done:           make(chan struct{}),
		healthInterval: 30 * time.Second,
	}
}

// Connect establishes the initial database connection, retrying with backoff.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.RLock()
	connected := c.conn != nil
	c.mu.RUnlock()
	if connected {
		return nil
	}

	return c.retryer.Retry(ctx, func() error {
		return c.forceReconnect(ctx)
	})
}

// WithConnection runs fn on the current handle. Failures that look like a
// dropped connection trigger a reconnect and a retry of fn.
func (c *Connection) WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error {
	conn := c.getConnection()
	if conn == nil {
		return NewDBError(ErrNotConnected, "database not connected")
	}

	err := fn(conn)
	if err == nil {
		return nil
	}

	if !isConnectionError(err) {
		return err
	}

	c.logger().Warn("Campus database query lost its connection, retrying", "event", "db_reconnect_triggered", "error", err)

	return c.retryer.Retry(ctx, func() error {
		if reconnectErr := c.forceReconnect(ctx); reconnectErr != nil {
			return fmt.Errorf("reconnection failed: %w (original error: %v)", reconnectErr, err)
		}
		return fn(c.getConnection())
	})
}

// StartMonitoring begins health checks and automatic reconnection
func (c *Connection) StartMonitoring() {
	go c.monitorConnection()
}

// Close shuts down the connection and monitoring. It is safe to call twice.
func (c *Connection) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn != nil {
			err = c.conn.Close(ctx)
			c.conn = nil
			c.healthy = false
		}
	})
	return err
}

// Shutdown closes the connection when the service container shuts down.
func (c *Connection) Shutdown(ctx context.Context) error {
	slog.InfoContext(ctx, "Closing database connection", "event", "db_shutdown", "version", "1.0")
	return c.Close(ctx)
}

// DB returns the underlying database connection if it's healthy.
// It returns an error if the connection is not available.
func (c *Connection) DB() (*surrealdb.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil || !c.healthy {
		return nil, NewDBError(ErrNotConnected, "database not connected or unhealthy")
	}
	return c.conn, nil
}

// IsHealthy returns the current connection status
func (c *Connection) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// HealthCheck reports ErrNotConnected while the connection is down.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if !c.IsHealthy() {
		return ErrNotConnected
	}
	return nil
}

func (c *Connection) getConnection() *surrealdb.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// reconnect replaces the current handle. Callers hold c.mu.
func (c *Connection) reconnect(ctx context.Context) error {
	if c.conn != nil {
		_ = c.conn.Close(ctx)
		c.conn = nil
	}
	c.healthy = false

	log := c.logger()
	log.Debug("Dialing campus database", "event", "db_connect_attempt")

	conn, err := c.dial(ctx)
	if err != nil {
		log.Error("Campus database unavailable", "event", "db_connect_failure", "error", err)
		return err
	}

	c.conn = conn
	c.healthy = true
	log.Debug("Campus database ready", "event", "db_connect_success")
	return nil
}

// dial opens a handle, signs in and selects the configured namespace.
func (c *Connection) dial(ctx context.Context) (*surrealdb.DB, error) {
	conn, err := surrealdb.FromEndpointURLString(ctx, c.cfg.GetDBURL())
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", redactDBURL(c.cfg.GetDBURL()), err)
	}

	auth := &surrealdb.Auth{Username: c.cfg.GetDBUser(), Password: c.cfg.GetDBPass()}
	if _, err := conn.SignIn(ctx, auth); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("sign in as %s: %w", c.cfg.GetDBUser(), err)
	}
	if err := conn.Use(ctx, c.cfg.GetDBNs(), c.cfg.GetDBDb()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use %s/%s: %w", c.cfg.GetDBNs(), c.cfg.GetDBDb(), err)
	}
	return conn, nil
}

func (c *Connection) logger() *slog.Logger {
	return slog.Default().With(
		"version", "1.0",
		"db_url", redactDBURL(c.cfg.GetDBURL()),
		"namespace", c.cfg.GetDBNs(),
		"database", c.cfg.GetDBDb(),
	)
}

func (c *Connection) forceReconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnect(ctx)
}

// monitorConnection pings the database every healthInterval and reconnects
// with backoff after a failed ping.
func (c *Connection) monitorConnection() {
	ticker := time.NewTicker(c.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.probe()
		}
	}
}

func (c *Connection) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.checkHealth(ctx)
	if err == nil {
		return
	}
	log := c.logger()
	log.Warn("Campus database ping failed, reconnecting", "event", "db_health_check_failure", "error", err)
	if err := c.retryer.Retry(ctx, func() error { return c.forceReconnect(ctx) }); err != nil {
		log.Error("Campus database still unreachable", "event", "db_reconnect_failure", "error", err)
	}
}

func (c *Connection) checkHealth(ctx context.Context) error {
	conn := c.getConnection()
	if conn == nil {
		c.setHealthy(false)
		return ErrNotConnected
	}
	if _, err := conn.Version(ctx); err != nil {
		c.setHealthy(false)
		return fmt.Errorf("version probe: %w", err)
	}
	c.setHealthy(true)
	return nil
}

func (c *Connection) setHealthy(v bool) {
	c.mu.Lock()
	c.healthy = v
	c.mu.Unlock()
}

// isConnectionError reports whether err looks like a lost connection rather
// than a failed query.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "broken pipe", "unexpected eof", "connection reset"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// redactDBURL masks the password in a database URL for logging.
func redactDBURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
