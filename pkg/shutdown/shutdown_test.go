package shutdown

import (
	"context"
	"testing"
	"time"
)

func TestRequestIsIdempotent(t *testing.T) {
	m := New(nil)
	m.Request()
	m.Request() // must not panic on double-close
	if !m.IsRequested() {
		t.Fatalf("expected IsRequested to be true after Request")
	}
}

func TestWaitForRequestReturnsOnRequest(t *testing.T) {
	m := New(nil)
	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Request()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.WaitForRequest(ctx)
	if !m.IsRequested() {
		t.Fatalf("expected shutdown to have been requested")
	}
}

func TestExecuteCancelsRegisteredTasks(t *testing.T) {
	m := New(nil)
	_, cancel := context.WithCancel(context.Background())
	called := false
	m.RegisterTask(func() { called = true; cancel() })

	m.Execute(context.Background(), 300*time.Millisecond)
	if !called {
		t.Fatalf("expected registered cancel func to be invoked")
	}
}

func TestExecuteRunsCleanupCallbacksInOrder(t *testing.T) {
	m := New(nil)
	var order []int
	m.RegisterCleanup(func(ctx context.Context) error {
		order = append(order, 1)
		return nil
	})
	m.RegisterCleanup(func(ctx context.Context) error {
		order = append(order, 2)
		return nil
	})

	m.Execute(context.Background(), 500*time.Millisecond)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected cleanups to run in registration order, got %v", order)
	}
}

func TestRegisterAndUnregisterChildTracksPIDs(t *testing.T) {
	m := New(nil)
	m.RegisterChild(1234)
	if !m.childPIDs[1234] {
		t.Fatalf("expected pid to be tracked")
	}
	m.UnregisterChild(1234)
	if m.childPIDs[1234] {
		t.Fatalf("expected pid to be removed")
	}
}
