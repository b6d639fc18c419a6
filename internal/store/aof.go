package store

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"spacekv/internal/common"
	"spacekv/internal/wire"
)

// aofQueueDepth bounds how many not-yet-written commands the engine may get
// ahead of the writer by before Enqueue starts blocking the caller.
const aofQueueDepth = 1024

// aofItem is what actually rides the writer's queue. ack is nil for a plain
// mutating command; Barrier uses it to learn when everything enqueued
// before it has been durably written.
type aofItem struct {
	cmd wire.Command
	ack chan struct{}
}

// aofWriter owns the single append-only file and serializes commands to it
// in arrival order, flushing after each record. A failure to open the file
// leaves it permanently dead: every subsequent Enqueue call returns
// ErrAofWriteFailed rather than panicking the engine.
type aofWriter struct {
	ch     chan aofItem
	dead   chan struct{}
	logger *common.Logger
}

func newAofWriter(path string, logger *common.Logger) *aofWriter {
	w := &aofWriter{
		ch:     make(chan aofItem, aofQueueDepth),
		dead:   make(chan struct{}),
		logger: logger,
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logger.Error("aof: open %s failed, writer disabled: %v", path, err)
		close(w.dead)
		return w
	}

	go w.run(f)
	return w
}

func (w *aofWriter) run(f *os.File) {
	defer close(w.dead)
	defer f.Close()

	bw := bufio.NewWriter(f)
	for item := range w.ch {
		if item.ack != nil {
			close(item.ack)
			continue
		}
		payload := wire.EncodeCommand(item.cmd)
		if err := wire.WriteFrame(bw, payload); err != nil {
			w.logger.Error("aof: write failed, writer exiting: %v", err)
			return
		}
		if err := bw.Flush(); err != nil {
			w.logger.Error("aof: flush failed, writer exiting: %v", err)
			return
		}
	}
}

// Enqueue hands cmd to the writer goroutine, blocking while the queue is
// full but returning ErrAofWriteFailed immediately once the writer has
// died (open or write failure), or if ctx is canceled first.
func (w *aofWriter) Enqueue(ctx context.Context, cmd wire.Command) wire.ServerError {
	select {
	case <-w.dead:
		return wire.ErrAofWriteFailed{}
	default:
	}
	select {
	case w.ch <- aofItem{cmd: cmd}:
		return nil
	case <-w.dead:
		return wire.ErrAofWriteFailed{}
	case <-ctx.Done():
		return wire.ErrAofWriteFailed{}
	}
}

// QueueDepth reports how many commands are currently buffered ahead of the
// writer, for the metrics gauge.
func (w *aofWriter) QueueDepth() int { return len(w.ch) }

// Barrier blocks until every command enqueued before this call has been
// written and flushed, or until the writer has died. Used by tests that
// need to observe the file after a known set of writes; not used on the
// engine's hot path.
func (w *aofWriter) Barrier() {
	ack := make(chan struct{})
	select {
	case w.ch <- aofItem{ack: ack}:
	case <-w.dead:
		return
	}
	select {
	case <-ack:
	case <-w.dead:
	}
}

// restoreStore rebuilds a Store from the AOF file at path, applying each
// successfully-decoded command with relaxed validation. A missing file
// yields an empty Store. A decode failure on one record is skipped, not
// fatal — the process may have crashed mid-write. A short read on the
// trailing record is treated the same way: whatever was durably recorded
// before it still applies.
func restoreStore(path string) (Store, error) {
	s := newStore()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, wire.ErrAofReadFailed{}
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for {
		payload, err := wire.ReadFrame(br, wire.MaxCommandFrame)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return s, wire.ErrAofReadFailed{}
		}
		cmd, err := wire.DecodeCommand(payload)
		if err != nil {
			continue
		}
		s, _ = applyCommand(s, cmd, true)
	}
	return s, nil
}
