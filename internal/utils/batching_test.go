package utils

import (
	"sync"
	"testing"
)

func TestBatchBufferAddAndClear(t *testing.T) {
	b := NewBatchBuffer[int]()
	if b.HasData() {
		t.Error("fresh buffer reports data")
	}

	b.Add(1)
	b.Add(2)
	if b.Size() != 2 {
		t.Errorf("size = %d", b.Size())
	}

	batch := b.GetAndClear()
	if len(batch) != 2 || batch[0] != 1 || batch[1] != 2 {
		t.Errorf("batch = %v", batch)
	}
	if b.HasData() {
		t.Error("buffer not cleared")
	}
	if again := b.GetAndClear(); again != nil {
		t.Errorf("empty clear returned %v", again)
	}
}

func TestBatchBufferConcurrentAdds(t *testing.T) {
	b := NewBatchBuffer[int]()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Add(j)
			}
		}()
	}
	wg.Wait()

	if b.Size() != 1000 {
		t.Errorf("size = %d, want 1000", b.Size())
	}
}
