package containers_test

import (
	"testing"

	"github.com/spaghettifunk/lavoro/engine/containers"
)

func drain(t *testing.T, rq *containers.RingQueue[int]) []int {
	t.Helper()
	var out []int
	for !rq.IsEmpty() {
		v, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("unexpected dequeue error: %v", err)
		}
		out = append(out, v)
	}
	return out
}

func TestRingQueue_FIFO(t *testing.T) {
	rq := containers.NewRingQueue[int](4)
	for i := 1; i <= 4; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := rq.Enqueue(5); err != containers.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	got := drain(t, rq)
	want := []int{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRingQueue_WrapAround(t *testing.T) {
	rq := containers.NewRingQueue[int](3)
	rq.Enqueue(1)
	rq.Enqueue(2)
	rq.Dequeue()
	rq.Enqueue(3)
	rq.Enqueue(4) // writeIndex has wrapped
	got := drain(t, rq)
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRingQueue_OffsetCapacity(t *testing.T) {
	rq := containers.NewRingQueue[int](2)
	rq.Enqueue(1)
	rq.Enqueue(2)
	rq.Dequeue()
	rq.Enqueue(3) // wrapped
	if !rq.IsFull() {
		t.Fatal("expected full queue")
	}

	rq.OffsetCapacity(2)
	if rq.IsFull() {
		t.Fatal("queue should not be full after growth")
	}
	rq.Enqueue(4)

	got := drain(t, rq)
	want := []int{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRingQueue_Erase(t *testing.T) {
	cases := []struct {
		name  string
		erase int
		want  []int
	}{
		{"head", 0, []int{2, 3, 4}},
		{"middle", 1, []int{1, 3, 4}},
		{"tail", 3, []int{1, 2, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rq := containers.NewRingQueue[int](4)
			for i := 1; i <= 4; i++ {
				rq.Enqueue(i)
			}
			rq.Erase(tc.erase)
			if rq.Len() != 3 {
				t.Fatalf("len = %d, want 3", rq.Len())
			}
			got := drain(t, rq)
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("got[%d] = %d, want %d", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestRingQueue_EraseThenEnqueue(t *testing.T) {
	rq := containers.NewRingQueue[int](3)
	rq.Enqueue(1)
	rq.Enqueue(2)
	rq.Enqueue(3)
	rq.Erase(1)
	if err := rq.Enqueue(4); err != nil {
		t.Fatalf("enqueue after erase: %v", err)
	}
	got := drain(t, rq)
	want := []int{1, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRingQueue_Swap(t *testing.T) {
	a := containers.NewRingQueue[int](2)
	b := containers.NewRingQueue[int](4)
	a.Enqueue(1)
	b.Enqueue(2)
	b.Enqueue(3)

	a.Swap(b)

	if a.Len() != 2 || b.Len() != 1 {
		t.Fatalf("after swap: a.Len()=%d b.Len()=%d", a.Len(), b.Len())
	}
	if v, _ := b.Peek(); v != 1 {
		t.Errorf("b front = %d, want 1", v)
	}
	if v, _ := a.Peek(); v != 2 {
		t.Errorf("a front = %d, want 2", v)
	}
}

func TestRingQueue_Clear(t *testing.T) {
	rq := containers.NewRingQueue[int](3)
	rq.Enqueue(1)
	rq.Enqueue(2)
	rq.Clear()
	if !rq.IsEmpty() {
		t.Fatal("expected empty queue after clear")
	}
	rq.Enqueue(9)
	if v, _ := rq.Peek(); v != 9 {
		t.Errorf("front = %d, want 9", v)
	}
}
