package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{"https://cdn.example.com", "proofs/1/a.png", "https://cdn.example.com/proofs/1/a.png"},
		{"https://cdn.example.com/", "/proofs/1/a.png", "https://cdn.example.com/proofs/1/a.png"},
		{"https://cdn.example.com/bucket", "proofs/2/b.jpg", "https://cdn.example.com/bucket/proofs/2/b.jpg"},
		{"https://cdn.example.com/bucket/", "proofs/2/b.jpg", "https://cdn.example.com/bucket/proofs/2/b.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.base+"+"+tt.key, func(t *testing.T) {
			base, err := parsePublicBase(tt.base)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := publicURL(base, tt.key); got != tt.want {
				t.Fatalf("want %s, got %s", tt.want, got)
			}
		})
	}

	if got := publicURL(nil, "x"); got != "" {
		t.Fatalf("expected empty URL without base, got %q", got)
	}
}

func TestNewCloudflareR2UploaderValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{BucketName: "b"}, logger); err == nil {
		t.Fatal("expected error for incomplete config")
	}
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{
		AccountID: "a", AccessKeyID: "k", SecretAccessKey: "s", BucketName: "b", PublicBaseURL: "not a url",
	}, logger)
	if err == nil {
		t.Fatal("expected error for invalid public URL")
	}
}
