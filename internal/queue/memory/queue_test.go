package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue[string]()
	if err := q.Enqueue("a", "b", "c"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if got != want {
			t.Fatalf("Dequeue() = %q, want %q", got, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}

func TestQueueDequeueWaits(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()
	result := make(chan int, 1)
	go func() {
		v, err := q.Dequeue(context.Background())
		if err == nil {
			result <- v
		}
	}()
	time.Sleep(10 * time.Millisecond)
	if err := q.Enqueue(7); err != nil {
		t.Fatal(err)
	}
	select {
	case v := <-result:
		if v != 7 {
			t.Fatalf("got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dequeue")
	}
}

func TestQueueDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestQueueCloseDrainsThenFails(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()
	if err := q.Enqueue(1, 2); err != nil {
		t.Fatal(err)
	}
	q.Close()
	q.Close()
	if err := q.Enqueue(3); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := q.Dequeue(context.Background()); err != nil {
			t.Fatalf("drain error = %v", err)
		}
	}
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestQueueCloseWakesWaiters(t *testing.T) {
	t.Parallel()

	q := NewQueue[int]()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Dequeue(context.Background())
		}()
	}
	time.Sleep(10 * time.Millisecond)
	q.Close()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters not released by Close")
	}
}
