package jobs

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, Job{ID: "a", Status: StatusQueued}); err != nil {
		t.Fatal(err)
	}

	job, ok, err := s.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if job.Status != StatusQueued {
		t.Errorf("Status = %s, want queued", job.Status)
	}
	if job.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}
}

func TestMemoryStoreMissing(t *testing.T) {
	s := NewMemoryStore()
	_, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("found a job that was never stored")
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Put(ctx, Job{ID: "a", Status: StatusQueued})
	s.Put(ctx, Job{ID: "a", Status: StatusComplete, Codec: "h264-aac"})

	job, _, _ := s.Get(ctx, "a")
	if job.Status != StatusComplete || job.Codec != "h264-aac" {
		t.Errorf("overwrite lost fields: %+v", job)
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Put(ctx, Job{ID: "shared", Status: StatusRecording})
				s.Get(ctx, "shared")
			}
		}()
	}
	wg.Wait()
}
