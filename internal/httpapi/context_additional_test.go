package httpapi

import (
	"context"
	"testing"
	"time"
)

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	// nolint:staticcheck // SA1012: this test intentionally passes nil to verify fallback behavior
	SetBaseContext(nil)
	cancel()
	if serverBaseCtx.Err() != nil {
		t.Fatal("nil must reset the base context to Background")
	}
}

func TestJoinContexts_CancelsWhenBaseDone(t *testing.T) {
	base, bc := context.WithCancel(context.Background())
	req, rc := context.WithCancel(context.Background())
	defer rc()
	j, cancelJ := joinContexts(base, req)
	defer cancelJ()
	bc()
	select {
	case <-j.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context did not cancel when base canceled")
	}
}

func TestJoinContexts_CancelsWhenRequestDone(t *testing.T) {
	base, bc := context.WithCancel(context.Background())
	defer bc()
	req, rc := context.WithCancel(context.Background())
	j, cancelJ := joinContexts(base, req)
	defer cancelJ()
	rc()
	select {
	case <-j.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context did not cancel when request canceled")
	}
}

type ctxKey struct{}

func TestJoinContexts_KeepsRequestValues(t *testing.T) {
	req := context.WithValue(context.Background(), ctxKey{}, "rid-1")
	j, cancel := joinContexts(context.Background(), req)
	defer cancel()
	if j.Value(ctxKey{}) != "rid-1" {
		t.Fatal("request values lost")
	}
}
