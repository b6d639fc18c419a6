package store

import (
	"context"
	"sync/atomic"

	"spacekv/internal/common"
	"spacekv/internal/wire"
)

// Engine owns the authoritative Store behind an atomic swap pointer, and the
// AOF writer that durably journals every accepted mutation. It is the only
// piece of process-wide shared mutable state: readers take a snapshot with
// one atomic load, writers retry a compare-and-swap loop, and neither holds
// a lock across a suspension point.
type Engine struct {
	store  atomic.Pointer[Store]
	aof    *aofWriter
	logger *common.Logger
}

// NewEngine restores the Store from the AOF at aofPath (if present), then
// starts the background writer that journals future mutations to the same
// file.
func NewEngine(aofPath string, logger *common.Logger) (*Engine, error) {
	restored, err := restoreStore(aofPath)
	if err != nil {
		return nil, err
	}

	e := &Engine{logger: logger}
	e.store.Store(&restored)
	e.aof = newAofWriter(aofPath, logger)
	return e, nil
}

// QueueDepth reports the AOF writer's pending command count, for metrics.
func (e *Engine) QueueDepth() int { return e.aof.QueueDepth() }

// Barrier blocks until every write enqueued before this call has been
// durably flushed to the AOF. Exposed for tests; the server never needs it
// since no per-record acknowledgement is surfaced to callers.
func (e *Engine) Barrier() { e.aof.Barrier() }

// Execute runs cmd against the engine and returns its Response. It never
// panics; every failure is returned as wire.Error. ctx only bounds the AOF
// enqueue step of a write command — the CAS loop itself never suspends.
func (e *Engine) Execute(ctx context.Context, cmd wire.Command) wire.Response {
	switch c := cmd.(type) {
	case wire.Get:
		return e.executeGet(c)
	case wire.ListKeys:
		return e.executeListKeys(c)
	case wire.ListSpaces:
		return e.executeListSpaces()
	case wire.IsSpaceExists:
		return e.executeIsSpaceExists(c)
	case wire.Set, wire.Delete, wire.CreateSpace, wire.DeleteSpace:
		return e.executeWrite(ctx, cmd)
	default:
		return wire.Error{Err: wire.ErrInvalidKey{Reason: "unrecognized command"}}
	}
}

func (e *Engine) executeGet(c wire.Get) wire.Response {
	snapshot := *e.store.Load()
	space, ok := snapshot.Get(c.Space)
	if !ok {
		return wire.Error{Err: wire.ErrSpaceNotFound{Name: c.Space}}
	}
	value, ok := space.Get(NewHashedKey(c.Key))
	if !ok {
		return wire.Value{Present: false}
	}
	return wire.Value{Present: true, Bytes: value}
}

func (e *Engine) executeListKeys(c wire.ListKeys) wire.Response {
	snapshot := *e.store.Load()
	space, ok := snapshot.Get(c.Space)
	if !ok {
		return wire.Error{Err: wire.ErrSpaceNotFound{Name: c.Space}}
	}
	keys := make([]string, 0, space.Len())
	for _, hk := range space.Keys() {
		keys = append(keys, hk.Key)
	}
	return wire.Keys{Keys: keys}
}

func (e *Engine) executeListSpaces() wire.Response {
	snapshot := *e.store.Load()
	names := snapshot.Keys()
	return wire.Spaces{Spaces: names}
}

func (e *Engine) executeIsSpaceExists(c wire.IsSpaceExists) wire.Response {
	snapshot := *e.store.Load()
	_, ok := snapshot.Get(c.Space)
	return wire.Bool{Value: ok}
}

// executeWrite validates, journals, then CAS-publishes a mutating command,
// per the publish loop order spelled out alongside this engine's design:
// enqueue happens before the command is known to apply cleanly against live
// state, so a Delete/DeleteSpace/CreateSpace that loses a race can still be
// journaled even though it returns an error here. Replay tolerates exactly
// that (see aof.go / applyCommand's relaxed mode).
func (e *Engine) executeWrite(ctx context.Context, cmd wire.Command) wire.Response {
	if svcErr := validateWrite(cmd); svcErr != nil {
		return wire.Error{Err: svcErr}
	}

	if svcErr := e.aof.Enqueue(ctx, cmd); svcErr != nil {
		return wire.Error{Err: svcErr}
	}

	for {
		old := e.store.Load()
		next, svcErr := applyCommand(*old, cmd, false)
		if svcErr != nil {
			return wire.Error{Err: svcErr}
		}
		if e.store.CompareAndSwap(old, &next) {
			return wire.Ok{}
		}
	}
}

func validateWrite(cmd wire.Command) wire.ServerError {
	switch c := cmd.(type) {
	case wire.Set:
		if c.Key == "" {
			return wire.ErrInvalidKey{Reason: "key must not be empty"}
		}
		if len(c.Value) > wire.MaxValueBytes {
			return wire.ErrValueTooLarge{}
		}
	case wire.CreateSpace:
		if c.Space == "" || len(c.Space) > wire.MaxSpaceNameLen {
			return wire.ErrInvalidSpaceName{}
		}
	}
	return nil
}

// applyCommand folds cmd into s, returning the new Store (s itself for a
// non-mutating command, an error, or a relaxed-mode no-op). In relaxed mode — used only during AOF replay — the
// state-existence checks that would otherwise error instead degrade to the
// tolerant behavior replay idempotence requires: CreateSpace of an existing
// space overwrites it with an empty one, and Delete/DeleteSpace of an
// absent target is a no-op.
func applyCommand(s Store, cmd wire.Command, relaxed bool) (Store, wire.ServerError) {
	switch c := cmd.(type) {
	case wire.Set:
		space, ok := s.Get(c.Space)
		if !ok {
			space = newSpaceData()
		}
		space = space.Insert(NewHashedKey(c.Key), c.Value)
		return s.Insert(c.Space, space), nil

	case wire.Delete:
		space, ok := s.Get(c.Space)
		if !ok {
			if relaxed {
				return s, nil
			}
			return s, wire.ErrSpaceNotFound{Name: c.Space}
		}
		space = space.Remove(NewHashedKey(c.Key))
		return s.Insert(c.Space, space), nil

	case wire.CreateSpace:
		if _, ok := s.Get(c.Space); ok {
			if relaxed {
				return s.Insert(c.Space, newSpaceData()), nil
			}
			return s, wire.ErrSpaceAlreadyExists{Name: c.Space}
		}
		return s.Insert(c.Space, newSpaceData()), nil

	case wire.DeleteSpace:
		if _, ok := s.Get(c.Space); !ok {
			if relaxed {
				return s, nil
			}
			return s, wire.ErrSpaceNotFound{Name: c.Space}
		}
		return s.Remove(c.Space), nil

	default:
		return s, nil
	}
}
