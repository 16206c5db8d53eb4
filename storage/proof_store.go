package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const proofKeyPrefix = "proofs/"

// StoredObject описывает сохранённый скриншот результата.
type StoredObject struct {
	Key  string
	URL  string
	ETag string
	Size int64
}

// ProofStore - объектное хранилище доказательств результата матча.
type ProofStore interface {
	Put(ctx context.Context, key string, contentType string, reader io.Reader) (*StoredObject, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ProofKey строит ключ вида proofs/<matchID>/<uuid><ext>.
func ProofKey(matchID int64, ext string) string {
	return fmt.Sprintf("%s%d/%s%s", proofKeyPrefix, matchID, uuid.NewString(), ext)
}

// IsProofKey отличает ключи хранилища от внешних ссылок, присланных игроком.
func IsProofKey(ref string) bool {
	return strings.HasPrefix(ref, proofKeyPrefix)
}

// countingReader считает переданные в хранилище байты.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
