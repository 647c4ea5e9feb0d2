package queue

import "testing"

func TestEnqueueDequeueOrder(t *testing.T) {
	q := New[int]()
	for i := 1; i <= 5; i++ {
		q.Enqueue(i)
	}

	for i := 1; i <= 5; i++ {
		item, ok := q.Dequeue()
		if !ok {
			t.Fatalf("expected item %d, queue reported empty", i)
		}
		if item != i {
			t.Errorf("expected %d in FIFO order, got %d", i, item)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Error("expected empty queue after draining all items")
	}
}

func TestDequeueEmpty(t *testing.T) {
	q := New[string]()
	item, ok := q.Dequeue()
	if ok {
		t.Errorf("expected no item from empty queue, got %q", item)
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestDuplicatesAllowed(t *testing.T) {
	q := New[string]()
	q.Enqueue("a")
	q.Enqueue("a")
	if q.Len() != 2 {
		t.Errorf("expected 2 items (duplicates coexist), got %d", q.Len())
	}
}

func TestClear(t *testing.T) {
	q := New[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("expected empty queue after Clear, got len %d", q.Len())
	}
	if _, ok := q.Dequeue(); ok {
		t.Error("expected Dequeue to report empty after Clear")
	}
}

func TestTakeBatch(t *testing.T) {
	testCases := []struct {
		name      string
		enqueued  int
		limit     int
		wantBatch int
		wantLeft  int
	}{
		{"fewer items than limit", 3, 7, 3, 0},
		{"more items than limit", 10, 7, 7, 3},
		{"exactly at limit", 7, 7, 7, 0},
		{"empty queue", 0, 7, 0, 0},
		{"zero limit", 4, 0, 0, 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := New[int]()
			for i := 0; i < tc.enqueued; i++ {
				q.Enqueue(i)
			}
			batch := q.TakeBatch(tc.limit)
			if len(batch) != tc.wantBatch {
				t.Errorf("expected batch of %d, got %d", tc.wantBatch, len(batch))
			}
			if q.Len() != tc.wantLeft {
				t.Errorf("expected %d items left queued, got %d", tc.wantLeft, q.Len())
			}
			for i, item := range batch {
				if item != i {
					t.Errorf("batch[%d] = %d, expected enqueue order preserved", i, item)
				}
			}
		})
	}
}

func TestEnqueueAfterBatchGoesToNextBatch(t *testing.T) {
	q := New[int]()
	for i := 0; i < 3; i++ {
		q.Enqueue(i)
	}

	first := q.TakeBatch(7)
	q.Enqueue(99) // arrives while the first batch is being processed

	if len(first) != 3 {
		t.Fatalf("expected first batch of 3, got %d", len(first))
	}
	for _, item := range first {
		if item == 99 {
			t.Fatal("item enqueued after batch extraction must not appear in that batch")
		}
	}

	second := q.TakeBatch(7)
	if len(second) != 1 || second[0] != 99 {
		t.Errorf("expected late item in the next batch, got %v", second)
	}
}
