package systems

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestJobSystem(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) {
		t.Fatalf("zero workers = %v", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Fatalf("negative channel = %v", err)
	}

	js, err := NewJobSystem(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	var ok, failed atomic.Int32
	for i := 0; i < 20; i++ {
		i := i
		js.Submit(JobTask{
			Name: "count",
			Run: func() error {
				if i%5 == 0 {
					return errors.New("boom")
				}
				return nil
			},
			OnComplete: func() { ok.Add(1) },
			OnFailure:  func(error) { failed.Add(1) },
		})
	}
	js.Wait()
	if ok.Load() != 16 || failed.Load() != 4 {
		t.Errorf("ok = %d, failed = %d", ok.Load(), failed.Load())
	}
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
}
