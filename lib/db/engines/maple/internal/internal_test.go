package internal

import (
	"github.com/ValentinKolb/eKV/lib/db/util"
	"testing"
)

func TestJournal(t *testing.T) {
	j := NewJournal()

	j.Store("b", []byte("1"))
	j.Store("a", []byte("2"))
	j.Delete("b")
	j.Store("c", []byte("3"))

	if j.Len() != 3 {
		t.Fatalf("Expected 3 keys, got %d", j.Len())
	}

	p, ok := j.Lookup("b")
	if !ok || p.Type != OpTDelete {
		t.Errorf("Expected the last write to b to be a delete, got %v", p)
	}
	if _, ok := j.Lookup("missing"); ok {
		t.Errorf("Expected no pending write for an untouched key")
	}

	var order []string
	j.Range(func(key string, _ Pending) {
		order = append(order, key)
	})
	want := []string{"b", "a", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Range order: expected %v, got %v", want, order)
			break
		}
	}
}

func TestGetShard(t *testing.T) {
	shards := []*Shard{NewShard(), NewShard(), NewShard()}
	seed := util.GenerateSeed()

	for _, key := range []string{"a", "b", "some-longer-key"} {
		k := util.HashString(key, seed)
		if GetShard(k, shards) != GetShard(k, shards) {
			t.Errorf("Expected key %q to always map to the same shard", key)
		}
	}
}
