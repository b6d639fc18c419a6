package client

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spacekv/internal/wire"
)

func newEmbeddedTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	c, err := NewClientBuilder().
		WithAofPath(filepath.Join(dir, "aof.rdb")).
		Build()
	require.NoError(t, err)
	return c
}

func TestBuilderRejectsBothBackends(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when both backends are configured")
		}
	}()
	NewClientBuilder().WithServerAddr("127.0.0.1:1").WithAofPath("x.rdb")
}

func TestBuilderRejectsNeitherBackend(t *testing.T) {
	_, err := NewClientBuilder().Build()
	require.Error(t, err)
}

func TestEmbeddedClientSpaceLifecycle(t *testing.T) {
	c := newEmbeddedTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateSpace(ctx, "S"))

	exists, err := c.IsSpaceExists(ctx, "S")
	require.NoError(t, err)
	require.True(t, exists)

	space, err := c.Space(ctx, "S")
	require.NoError(t, err)

	require.NoError(t, space.SetString(ctx, "k", "hello"))

	got, present, err := space.GetString(ctx, "k")
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "hello", got)

	keys, err := space.ListKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, keys)

	require.NoError(t, space.Delete(ctx, "k"))
	_, present, err = space.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, present)

	require.NoError(t, c.DeleteSpace(ctx, "S"))
	exists, err = c.IsSpaceExists(ctx, "S")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSpaceOfUnknownSpaceFails(t *testing.T) {
	c := newEmbeddedTestClient(t)
	_, err := c.Space(context.Background(), "missing")
	require.Error(t, err)

	se, ok := AsServerError(err)
	require.True(t, ok)
	require.IsType(t, wire.ErrSpaceNotFound{}, se)
}

func TestPoolStatusAccounting(t *testing.T) {
	c := newEmbeddedTestClient(t)
	status := c.Status()
	require.Equal(t, 0, status.Total)

	ctx := context.Background()
	require.NoError(t, c.CreateSpace(ctx, "S"))

	status = c.Status()
	require.Equal(t, 1, status.Total)
	require.Equal(t, 1, status.Available)
	require.Equal(t, 0, status.Waiting)
}

func TestPoolStatusConcurrentAcquireBlocksAndUnblocks(t *testing.T) {
	c := newEmbeddedTestClient(t)
	ctx := context.Background()

	conn, err := c.pool.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, Status{Total: 1, Available: 0, Waiting: 0}, c.Status())

	type acquireResult struct {
		conn Connection
		err  error
	}
	acquired := make(chan acquireResult, 1)
	go func() {
		blocked, err := c.pool.Acquire(ctx)
		acquired <- acquireResult{conn: blocked, err: err}
	}()

	require.Eventually(t, func() bool {
		return c.Status().Waiting == 1
	}, time.Second, time.Millisecond, "second Acquire never showed up as waiting")

	c.pool.Release(conn)

	select {
	case result := <-acquired:
		require.NoError(t, result.err)
		require.NotNil(t, result.conn)
	case <-time.After(time.Second):
		t.Fatal("blocked Acquire never unblocked after Release")
	}

	status := c.Status()
	require.Equal(t, 1, status.Total)
	require.Equal(t, 0, status.Waiting)
}
