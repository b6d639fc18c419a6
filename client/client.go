package client

import (
	"context"
	"unicode/utf8"

	"spacekv/internal/common"
	"spacekv/internal/metrics"
	"spacekv/internal/store"
	"spacekv/internal/wire"
)

func isValidUTF8(b []byte) bool { return utf8.Valid(b) }

// Client is the typed convenience layer applications hold onto: a pooled
// set of connections to exactly one backend, TCP or embedded.
type Client struct {
	pool *pool
}

// ClientBuilder configures and constructs a Client. Exactly one of
// WithServerAddr or WithAofPath must be called before Build.
type ClientBuilder struct {
	maxPoolSize int
	serverAddr  string
	aofPath     string
	logger      *common.Logger
	metrics     *metrics.Metrics

	hasServerAddr bool
	hasAofPath    bool
}

// NewClientBuilder returns a builder with the default pool size of 1.
func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{maxPoolSize: 1, logger: common.NewLogger("client")}
}

// WithServerAddr configures a TCP backend at addr. Calling this after
// WithAofPath (or vice versa) panics immediately — a programming error
// must fail loudly before any I/O, not surface as a runtime error later.
func (b *ClientBuilder) WithServerAddr(addr string) *ClientBuilder {
	if b.hasAofPath {
		panic("client: cannot set both server_addr and aof_path")
	}
	b.serverAddr = addr
	b.hasServerAddr = true
	return b
}

// WithAofPath configures an embedded backend backed by the storage engine
// at aofPath. Calling this after WithServerAddr (or vice versa) panics.
func (b *ClientBuilder) WithAofPath(aofPath string) *ClientBuilder {
	if b.hasServerAddr {
		panic("client: cannot set both server_addr and aof_path")
	}
	b.aofPath = aofPath
	b.hasAofPath = true
	return b
}

// WithMaxPoolSize overrides the default pool size of 1.
func (b *ClientBuilder) WithMaxPoolSize(n int) *ClientBuilder {
	b.maxPoolSize = n
	return b
}

// WithMetrics mirrors the pool's total/available/waiting counts into m's
// connection gauges on every Acquire/Release/Discard. Optional — a Client
// built without this reports no pool metrics.
func (b *ClientBuilder) WithMetrics(m *metrics.Metrics) *ClientBuilder {
	b.metrics = m
	return b
}

// Build validates the configuration and constructs a Client. Neither
// backend configured is a recoverable configuration error, not a panic.
func (b *ClientBuilder) Build() (*Client, error) {
	if !b.hasServerAddr && !b.hasAofPath {
		return nil, newConfigError("neither server_addr nor aof_path was set")
	}

	var factory connFactory
	if b.hasServerAddr {
		addr := b.serverAddr
		factory = func() (Connection, error) { return dialTCP(addr) }
	} else {
		engine, err := store.NewEngine(b.aofPath, b.logger)
		if err != nil {
			return nil, newIOError(err)
		}
		factory = func() (Connection, error) { return &embeddedConnection{engine: engine}, nil }
	}

	return &Client{pool: newPool(b.maxPoolSize, factory, b.metrics)}, nil
}

// Status reports the connection pool's current counts.
func (c *Client) Status() Status { return c.pool.Status() }

// Execute acquires a connection, runs cmd, and returns it to the pool
// (or discards it if the call itself failed — a transport error likely
// means the connection is no longer usable).
func (c *Client) Execute(ctx context.Context, cmd wire.Command) (wire.Response, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := conn.Execute(ctx, cmd)
	if err != nil {
		c.pool.Discard(conn)
		return nil, err
	}
	c.pool.Release(conn)
	return resp, nil
}

// IsSpaceExists reports whether spaceName exists.
func (c *Client) IsSpaceExists(ctx context.Context, spaceName string) (bool, error) {
	resp, err := c.Execute(ctx, wire.IsSpaceExists{Space: spaceName})
	if err != nil {
		return false, err
	}
	b, ok := resp.(wire.Bool)
	if !ok {
		return false, newUnexpectedResponseError()
	}
	return b.Value, nil
}

// ListSpaces returns every known space name.
func (c *Client) ListSpaces(ctx context.Context) ([]string, error) {
	resp, err := c.Execute(ctx, wire.ListSpaces{})
	if err != nil {
		return nil, err
	}
	spaces, ok := resp.(wire.Spaces)
	if !ok {
		return nil, newUnexpectedResponseError()
	}
	return spaces.Spaces, nil
}

// CreateSpace creates a new, empty space.
func (c *Client) CreateSpace(ctx context.Context, spaceName string) error {
	resp, err := c.Execute(ctx, wire.CreateSpace{Space: spaceName})
	if err != nil {
		return err
	}
	return okOrServerError(resp)
}

// DeleteSpace removes a space and everything in it.
func (c *Client) DeleteSpace(ctx context.Context, spaceName string) error {
	resp, err := c.Execute(ctx, wire.DeleteSpace{Space: spaceName})
	if err != nil {
		return err
	}
	return okOrServerError(resp)
}

// Space returns a handle to spaceName, failing if it does not exist.
func (c *Client) Space(ctx context.Context, spaceName string) (*SpaceHandle, error) {
	exists, err := c.IsSpaceExists(ctx, spaceName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, newServerError(wire.ErrSpaceNotFound{Name: spaceName})
	}
	return &SpaceHandle{client: c, spaceName: spaceName}, nil
}

// SpaceHandle is a typed view onto one space: get/set/delete/list-keys,
// plus string convenience wrappers over the byte-string Set/Get.
type SpaceHandle struct {
	client    *Client
	spaceName string
}

// Set stores value under key.
func (s *SpaceHandle) Set(ctx context.Context, key string, value []byte) error {
	resp, err := s.client.Execute(ctx, wire.Set{Space: s.spaceName, Key: key, Value: value})
	if err != nil {
		return err
	}
	return okOrServerError(resp)
}

// SetString stores value (as UTF-8 bytes) under key.
func (s *SpaceHandle) SetString(ctx context.Context, key string, value string) error {
	return s.Set(ctx, key, []byte(value))
}

// Get returns the value stored under key, or (nil, false) if absent.
func (s *SpaceHandle) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := s.client.Execute(ctx, wire.Get{Space: s.spaceName, Key: key})
	if err != nil {
		return nil, false, err
	}
	switch r := resp.(type) {
	case wire.Value:
		return r.Bytes, r.Present, nil
	case wire.Error:
		return nil, false, newServerError(r.Err)
	default:
		return nil, false, newUnexpectedResponseError()
	}
}

// GetString returns the value stored under key decoded as UTF-8, or
// ("", false, nil) if absent. A stored value that is not valid UTF-8 is a
// protocol-level error, not a silently truncated string.
func (s *SpaceHandle) GetString(ctx context.Context, key string) (string, bool, error) {
	value, present, err := s.Get(ctx, key)
	if err != nil || !present {
		return "", present, err
	}
	if !isValidUTF8(value) {
		return "", false, newProtocolError("value for key %q is not valid UTF-8", key)
	}
	return string(value), true, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SpaceHandle) Delete(ctx context.Context, key string) error {
	resp, err := s.client.Execute(ctx, wire.Delete{Space: s.spaceName, Key: key})
	if err != nil {
		return err
	}
	return okOrServerError(resp)
}

// ListKeys returns every key currently stored in the space.
func (s *SpaceHandle) ListKeys(ctx context.Context) ([]string, error) {
	resp, err := s.client.Execute(ctx, wire.ListKeys{Space: s.spaceName})
	if err != nil {
		return nil, err
	}
	switch r := resp.(type) {
	case wire.Keys:
		return r.Keys, nil
	case wire.Error:
		return nil, newServerError(r.Err)
	default:
		return nil, newUnexpectedResponseError()
	}
}

func okOrServerError(resp wire.Response) error {
	switch r := resp.(type) {
	case wire.Ok:
		return nil
	case wire.Error:
		return newServerError(r.Err)
	default:
		return newUnexpectedResponseError()
	}
}
