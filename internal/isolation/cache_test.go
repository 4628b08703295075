package isolation

import (
	"testing"
	"time"
)

func TestKey_DifferentUsersDifferentKeys(t *testing.T) {
	a := Key("alice", []string{"semantic"}, "programming", 10)
	b := Key("bob", []string{"semantic"}, "programming", 10)
	if a == b {
		t.Fatal("cache keys for different users must differ")
	}
}

func TestKey_EmptyUserPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on empty user id")
		}
	}()
	Key("", nil, "q", 10)
}

func TestCache_SetGet(t *testing.T) {
	c, err := New(Config{Enabled: true, TTL: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key := Key("alice", []string{"semantic"}, "q", 5)
	c.Set(key, "hello", 1)
	c.c.Wait()

	v, ok := c.Get(key)
	if !ok || v != "hello" {
		t.Errorf("Get = %v, %v; want hello, true", v, ok)
	}
}

func TestCache_DisabledNeverStores(t *testing.T) {
	c, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Set("k", "v", 1)
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache should never return a hit")
	}
	if c.Enabled() {
		t.Error("Enabled() should be false")
	}
}

func TestPartitionCount_RoundsUpToPowerOfTwo(t *testing.T) {
	if got := PartitionCount(5); got != 8 {
		t.Errorf("PartitionCount(5) = %d, want 8", got)
	}
	if got := PartitionCount(8); got != 8 {
		t.Errorf("PartitionCount(8) = %d, want 8", got)
	}
}

func TestPartition_Bounded(t *testing.T) {
	for _, u := range []string{"alice", "bob", "", "carol"} {
		p := Partition(u, 8)
		if p < 0 || p >= 8 {
			t.Errorf("Partition(%q, 8) = %d, out of range", u, p)
		}
	}
}
