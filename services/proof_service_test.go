package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/storage"
)

// MockUploader хранит объекты в памяти.
type MockUploader struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
	Err     error
}

func newMockUploader() *MockUploader {
	return &MockUploader{Objects: make(map[string][]byte)}
}

func (u *MockUploader) Put(_ context.Context, key, _ string, reader io.Reader) (*storage.StoredObject, error) {
	if u.Err != nil {
		return nil, u.Err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Objects[key] = data
	return &storage.StoredObject{Key: key, URL: u.PublicURL(key), Size: int64(len(data))}, nil
}

func (u *MockUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.Objects, key)
	u.Deleted = append(u.Deleted, key)
	return nil
}

func (u *MockUploader) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func TestProofServiceUpload(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")

	t.Run("Given a running match When a player uploads a screenshot Then it is stored and adjudicated", func(t *testing.T) {
		env := newTestEnv(t)
		env.fund(t, 1, "100")
		env.fund(t, 2, "100")
		m := env.startSolo(t, 1, 2, "10")
		uploader := newMockUploader()
		proofs := NewProofService(env.store, env.escrow, uploader, discardLogger())

		got, err := proofs.UploadProof(context.Background(), m.ID, 2, bytes.NewReader(png), "image/png")
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		if got.State != models.StateFinalized || got.ProofRef == nil {
			t.Fatalf("expected finalized match with proof, got %s", got.State)
		}
		if !strings.HasPrefix(*got.ProofRef, "proofs/1/") || !strings.HasSuffix(*got.ProofRef, ".png") {
			t.Fatalf("unexpected proof key %q", *got.ProofRef)
		}
		if _, ok := uploader.Objects[*got.ProofRef]; !ok {
			t.Fatal("proof object was not stored")
		}
		if url := proofs.ProofURL(*got.ProofRef); url != "https://cdn.test/"+*got.ProofRef {
			t.Fatalf("unexpected public URL %q", url)
		}
	})

	t.Run("Given a stranger When uploading Then Unauthorized and nothing is stored", func(t *testing.T) {
		env := newTestEnv(t)
		env.fund(t, 1, "100")
		env.fund(t, 2, "100")
		m := env.startSolo(t, 1, 2, "10")
		uploader := newMockUploader()
		proofs := NewProofService(env.store, env.escrow, uploader, discardLogger())

		_, err := proofs.UploadProof(context.Background(), m.ID, 9, bytes.NewReader(png), "image/png")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if len(uploader.Objects) != 0 {
			t.Fatal("no object must be stored for a rejected upload")
		}
	})

	t.Run("Given a non-image When uploading Then UnsupportedProof", func(t *testing.T) {
		env := newTestEnv(t)
		proofs := NewProofService(env.store, env.escrow, newMockUploader(), discardLogger())
		_, err := proofs.UploadProof(context.Background(), 1, 1, strings.NewReader("%PDF"), "application/pdf")
		if !errors.Is(err, ErrUnsupportedProof) {
			t.Fatalf("expected ErrUnsupportedProof, got %v", err)
		}
	})

	t.Run("Given no storage When uploading Then ProofStorageOff and refs pass through", func(t *testing.T) {
		env := newTestEnv(t)
		proofs := NewProofService(env.store, env.escrow, nil, discardLogger())
		if _, err := proofs.UploadProof(context.Background(), 1, 1, bytes.NewReader(png), "image/png"); !errors.Is(err, ErrProofStorageOff) {
			t.Fatalf("expected ErrProofStorageOff, got %v", err)
		}
		if got := proofs.ProofURL("https://elsewhere/x.png"); got != "https://elsewhere/x.png" {
			t.Fatalf("external refs must pass through, got %q", got)
		}
	})
}

func TestGetExtensionFromContentType(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":    ".jpg",
		"image/png":     ".png",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}
	for ct, want := range tests {
		got, err := GetExtensionFromContentType(ct)
		if err != nil || got != want {
			t.Errorf("%s: want %s, got %s (%v)", ct, want, got, err)
		}
	}
	if _, err := GetExtensionFromContentType("text/plain"); err == nil {
		t.Error("expected error for non-image type")
	}
}
