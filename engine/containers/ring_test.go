package containers

import "testing"

func TestRingAdvanceWraps(t *testing.T) {
	r := NewRing([]string{"a", "b", "c"})
	want := []string{"a", "b", "c", "a", "b"}
	for i, w := range want {
		if got := r.Advance(); got != w {
			t.Fatalf("advance %d = %q, want %q", i, got, w)
		}
		if r.Current() != w {
			t.Fatalf("current %d = %q, want %q", i, r.Current(), w)
		}
	}
	if r.Index() != 1 {
		t.Errorf("index = %d, want 1", r.Index())
	}
	if r.Len() != 3 || r.At(2) != "c" {
		t.Errorf("len/at mismatch")
	}

	seen := 0
	r.Each(func(i int, v string) { seen++ })
	if seen != 3 {
		t.Errorf("each visited %d", seen)
	}
}

func TestRingSingleElement(t *testing.T) {
	r := NewRing([]int{7})
	for i := 0; i < 3; i++ {
		if r.Advance() != 7 || r.Index() != 0 {
			t.Fatal("single element ring must stay on index 0")
		}
	}
}
