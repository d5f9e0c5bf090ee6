package cache

import (
	"errors"
	"strconv"
	"testing"
)

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var released []string
	c := New[string, int](2, func(k string, _ int) { released = append(released, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3) // evicts b, the least recently used

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if len(released) != 1 || released[0] != "b" {
		t.Errorf("released = %v, want [b]", released)
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestCacheSetReplaceReleasesOld(t *testing.T) {
	var released []int
	c := New[string, int](4, func(_ string, v int) { released = append(released, v) })
	c.Set("k", 1)
	c.Set("k", 2)
	if v, _ := c.Get("k"); v != 2 {
		t.Errorf("Get(k) = %d, want 2", v)
	}
	if len(released) != 1 || released[0] != 1 {
		t.Errorf("released = %v, want [1]", released)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[int, string](0, nil)
	calls := 0
	create := func() (string, error) {
		calls++
		return "v", nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate(7, create)
		if err != nil || v != "v" {
			t.Fatalf("GetOrCreate = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrCreate(8, func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if _, ok := c.Get(8); ok {
		t.Error("failed create must not be stored")
	}
	st := c.Stats()
	if st.Hits != 2 || st.Misses != 3 {
		t.Errorf("stats = %+v, want 2 hits and 3 misses", st)
	}
}

func TestCachePurgeReleasesOldestFirst(t *testing.T) {
	var released []string
	c := New[string, int](0, func(k string, _ int) { released = append(released, k) })
	for i := 0; i < 3; i++ {
		c.Set(strconv.Itoa(i), i)
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len = %d after Purge", c.Len())
	}
	want := []string{"0", "1", "2"}
	if len(released) != len(want) {
		t.Fatalf("released = %v, want %v", released, want)
	}
	for i := range want {
		if released[i] != want[i] {
			t.Errorf("released[%d] = %s, want %s", i, released[i], want[i])
		}
	}
}

func TestCacheDelete(t *testing.T) {
	n := 0
	c := New[string, int](0, func(string, int) { n++ })
	c.Set("x", 1)
	if !c.Delete("x") {
		t.Error("Delete(x) = false")
	}
	if c.Delete("x") {
		t.Error("second Delete(x) = true")
	}
	if n != 1 {
		t.Errorf("release called %d times, want 1", n)
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := New[string, int](1000, nil)
	for i := 0; i < 100; i++ {
		c.Set(strconv.Itoa(i), i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("50")
	}
}
