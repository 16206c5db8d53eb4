package storage

import (
	"io"
	"strings"
	"testing"
)

func TestProofKey(t *testing.T) {
	key := ProofKey(42, ".png")
	if !strings.HasPrefix(key, "proofs/42/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if key == ProofKey(42, ".png") {
		t.Fatal("expected unique keys for repeated uploads")
	}
	if !IsProofKey(key) {
		t.Fatalf("expected %q to be recognised as a stored proof", key)
	}
	for _, ref := range []string{"https://img.example.com/proofs/1.png", "proof-123", ""} {
		if IsProofKey(ref) {
			t.Errorf("expected %q to be treated as an external reference", ref)
		}
	}
}

func TestCountingReader(t *testing.T) {
	body := &countingReader{r: strings.NewReader("screenshot-bytes")}
	if _, err := io.Copy(io.Discard, body); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if body.n != int64(len("screenshot-bytes")) {
		t.Fatalf("expected %d bytes counted, got %d", len("screenshot-bytes"), body.n)
	}
}
