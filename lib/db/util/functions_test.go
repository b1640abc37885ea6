package util

import "testing"

func TestHashString(t *testing.T) {
	seed := GenerateSeed()

	if HashString("key", seed) != HashString("key", seed) {
		t.Errorf("HashString should be deterministic for the same seed")
	}

	if HashString("key-a", seed) == HashString("key-b", seed) {
		t.Errorf("Expected different hashes for different keys")
	}

	if HashString("key", 1) == HashString("key", 2) {
		t.Errorf("Expected different hashes for different seeds")
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey()
	b := GenerateKey()
	if a == b {
		t.Errorf("Expected two generated keys to differ")
	}
	if a == [32]byte{} {
		t.Errorf("Expected a non-zero key")
	}
}
