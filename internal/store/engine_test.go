package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"spacekv/internal/common"
	"spacekv/internal/wire"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "aof.rdb")
	e, err := NewEngine(path, common.NewLogger("test"))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, path
}

func TestSetGetDeleteScenario(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if resp := e.Execute(ctx, wire.CreateSpace{Space: "S"}); resp != (wire.Ok{}) {
		t.Fatalf("CreateSpace: %#v", resp)
	}
	if resp := e.Execute(ctx, wire.Set{Space: "S", Key: "k", Value: []byte("hello")}); resp != (wire.Ok{}) {
		t.Fatalf("Set: %#v", resp)
	}
	got := e.Execute(ctx, wire.Get{Space: "S", Key: "k"})
	want := wire.Value{Present: true, Bytes: []byte("hello")}
	if v, ok := got.(wire.Value); !ok || !v.Present || string(v.Bytes) != "hello" {
		t.Fatalf("Get: got %#v want %#v", got, want)
	}

	if resp := e.Execute(ctx, wire.Delete{Space: "S", Key: "k"}); resp != (wire.Ok{}) {
		t.Fatalf("Delete: %#v", resp)
	}
	got = e.Execute(ctx, wire.Get{Space: "S", Key: "k"})
	if v, ok := got.(wire.Value); !ok || v.Present {
		t.Fatalf("Get after delete: got %#v", got)
	}
}

func TestGetUnknownSpace(t *testing.T) {
	e, _ := newTestEngine(t)
	got := e.Execute(context.Background(), wire.Get{Space: "unknown", Key: "k"})
	errResp, ok := got.(wire.Error)
	if !ok {
		t.Fatalf("got %#v, want Error", got)
	}
	if _, ok := errResp.Err.(wire.ErrSpaceNotFound); !ok {
		t.Fatalf("got %#v, want ErrSpaceNotFound", errResp.Err)
	}
}

func TestIsSpaceExistsNeverErrors(t *testing.T) {
	e, _ := newTestEngine(t)
	got := e.Execute(context.Background(), wire.IsSpaceExists{Space: "nope"})
	if got != (wire.Bool{Value: false}) {
		t.Fatalf("got %#v, want Bool(false)", got)
	}
}

func TestCreateSpaceDuplicate(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Execute(ctx, wire.CreateSpace{Space: "S"})
	got := e.Execute(ctx, wire.CreateSpace{Space: "S"})
	errResp, ok := got.(wire.Error)
	if !ok {
		t.Fatalf("got %#v, want Error", got)
	}
	if _, ok := errResp.Err.(wire.ErrSpaceAlreadyExists); !ok {
		t.Fatalf("got %#v, want ErrSpaceAlreadyExists", errResp.Err)
	}
}

func TestDeleteSpaceRemovesEverything(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Execute(ctx, wire.CreateSpace{Space: "S"})
	e.Execute(ctx, wire.Set{Space: "S", Key: "k", Value: []byte("v")})
	e.Execute(ctx, wire.DeleteSpace{Space: "S"})

	got := e.Execute(ctx, wire.Get{Space: "S", Key: "k"})
	errResp, ok := got.(wire.Error)
	if !ok {
		t.Fatalf("got %#v, want Error", got)
	}
	if _, ok := errResp.Err.(wire.ErrSpaceNotFound); !ok {
		t.Fatalf("got %#v, want ErrSpaceNotFound", errResp.Err)
	}
}

func TestSetEmptyKeyInvalid(t *testing.T) {
	e, _ := newTestEngine(t)
	got := e.Execute(context.Background(), wire.Set{Space: "S", Key: "", Value: []byte("v")})
	errResp, ok := got.(wire.Error)
	if !ok {
		t.Fatalf("got %#v, want Error", got)
	}
	if _, ok := errResp.Err.(wire.ErrInvalidKey); !ok {
		t.Fatalf("got %#v, want ErrInvalidKey", errResp.Err)
	}
}

func TestSetValueBoundary(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	atLimit := make([]byte, wire.MaxValueBytes)
	if resp := e.Execute(ctx, wire.Set{Space: "S", Key: "k", Value: atLimit}); resp != (wire.Ok{}) {
		t.Fatalf("Set at limit: %#v", resp)
	}

	overLimit := make([]byte, wire.MaxValueBytes+1)
	got := e.Execute(ctx, wire.Set{Space: "S", Key: "k", Value: overLimit})
	errResp, ok := got.(wire.Error)
	if !ok {
		t.Fatalf("got %#v, want Error", got)
	}
	if _, ok := errResp.Err.(wire.ErrValueTooLarge); !ok {
		t.Fatalf("got %#v, want ErrValueTooLarge", errResp.Err)
	}
}

func TestCreateSpaceNameBoundary(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	got := e.Execute(ctx, wire.CreateSpace{Space: ""})
	if _, ok := got.(wire.Error).Err.(wire.ErrInvalidSpaceName); !ok {
		t.Fatalf("empty space name: got %#v", got)
	}

	longName := make([]byte, wire.MaxSpaceNameLen+1)
	for i := range longName {
		longName[i] = 'a'
	}
	got = e.Execute(ctx, wire.CreateSpace{Space: string(longName)})
	if _, ok := got.(wire.Error).Err.(wire.ErrInvalidSpaceName); !ok {
		t.Fatalf("256-byte space name: got %#v", got)
	}

	atLimit := make([]byte, wire.MaxSpaceNameLen)
	for i := range atLimit {
		atLimit[i] = 'a'
	}
	if resp := e.Execute(ctx, wire.CreateSpace{Space: string(atLimit)}); resp != (wire.Ok{}) {
		t.Fatalf("255-byte space name: got %#v", resp)
	}
}

func TestRestoreAfterRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aof.rdb")
	logger := common.NewLogger("test")
	ctx := context.Background()

	e1, err := NewEngine(path, logger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e1.Execute(ctx, wire.CreateSpace{Space: "S"})
	e1.Execute(ctx, wire.Set{Space: "S", Key: "k1", Value: []byte("v1")})
	e1.Execute(ctx, wire.Set{Space: "S", Key: "k2", Value: []byte("v2")})
	e1.Execute(ctx, wire.Delete{Space: "S", Key: "k1"})

	e1.Barrier()

	e2, err := NewEngine(path, logger)
	if err != nil {
		t.Fatalf("NewEngine (restart): %v", err)
	}

	got := e2.Execute(ctx, wire.Get{Space: "S", Key: "k1"})
	if v, ok := got.(wire.Value); !ok || v.Present {
		t.Fatalf("k1 after restart: got %#v, want absent", got)
	}
	got = e2.Execute(ctx, wire.Get{Space: "S", Key: "k2"})
	if v, ok := got.(wire.Value); !ok || !v.Present || string(v.Bytes) != "v2" {
		t.Fatalf("k2 after restart: got %#v", got)
	}
}

func TestRestoreTruncatedTrailingRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aof.rdb")
	logger := common.NewLogger("test")
	ctx := context.Background()

	e1, err := NewEngine(path, logger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e1.Execute(ctx, wire.CreateSpace{Space: "S"})
	e1.Execute(ctx, wire.Set{Space: "S", Key: "k", Value: []byte("v")})
	e1.Barrier()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := os.Truncate(path, info.Size()-1); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	e2, err := NewEngine(path, logger)
	if err != nil {
		t.Fatalf("NewEngine (restart after truncate): %v", err)
	}
	got := e2.Execute(ctx, wire.IsSpaceExists{Space: "S"})
	if got != (wire.Bool{Value: true}) {
		t.Fatalf("got %#v, want space to exist despite truncated trailing record", got)
	}
}

func TestApplyCommandRelaxedCreateSpaceOverwritesExisting(t *testing.T) {
	s := newStore()
	s = s.Insert("S", newSpaceData().Insert(NewHashedKey("k"), []byte("v")))

	if _, ok := s.Get("S"); !ok {
		t.Fatalf("setup: space S missing before replay")
	}

	next, svcErr := applyCommand(s, wire.CreateSpace{Space: "S"}, true)
	if svcErr != nil {
		t.Fatalf("relaxed CreateSpace of existing space: %#v", svcErr)
	}
	space, ok := next.Get("S")
	if !ok {
		t.Fatalf("relaxed CreateSpace: space S missing after replay")
	}
	if space.Len() != 0 {
		t.Fatalf("relaxed CreateSpace: want space overwritten empty, got %d keys", space.Len())
	}

	if _, svcErr := applyCommand(s, wire.CreateSpace{Space: "S"}, false); svcErr == nil {
		t.Fatalf("strict CreateSpace of existing space: want ErrSpaceAlreadyExists, got nil")
	} else if _, ok := svcErr.(wire.ErrSpaceAlreadyExists); !ok {
		t.Fatalf("strict CreateSpace of existing space: got %#v, want ErrSpaceAlreadyExists", svcErr)
	}
}

func TestApplyCommandRelaxedDeleteOfAbsentTargetIsNoop(t *testing.T) {
	s := newStore()

	next, svcErr := applyCommand(s, wire.Delete{Space: "nope", Key: "k"}, true)
	if svcErr != nil {
		t.Fatalf("relaxed Delete of absent space: %#v", svcErr)
	}
	if next.Len() != s.Len() {
		t.Fatalf("relaxed Delete of absent space: store changed, want no-op")
	}

	if _, svcErr := applyCommand(s, wire.Delete{Space: "nope", Key: "k"}, false); svcErr == nil {
		t.Fatalf("strict Delete of absent space: want ErrSpaceNotFound, got nil")
	} else if _, ok := svcErr.(wire.ErrSpaceNotFound); !ok {
		t.Fatalf("strict Delete of absent space: got %#v, want ErrSpaceNotFound", svcErr)
	}
}

func TestApplyCommandRelaxedDeleteSpaceOfAbsentTargetIsNoop(t *testing.T) {
	s := newStore()

	next, svcErr := applyCommand(s, wire.DeleteSpace{Space: "nope"}, true)
	if svcErr != nil {
		t.Fatalf("relaxed DeleteSpace of absent space: %#v", svcErr)
	}
	if next.Len() != s.Len() {
		t.Fatalf("relaxed DeleteSpace of absent space: store changed, want no-op")
	}

	if _, svcErr := applyCommand(s, wire.DeleteSpace{Space: "nope"}, false); svcErr == nil {
		t.Fatalf("strict DeleteSpace of absent space: want ErrSpaceNotFound, got nil")
	} else if _, ok := svcErr.(wire.ErrSpaceNotFound); !ok {
		t.Fatalf("strict DeleteSpace of absent space: got %#v, want ErrSpaceNotFound", svcErr)
	}
}
