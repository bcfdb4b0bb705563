package storage

import (
	"context"
	"io"
)

// Object describes a stored payment proof.
type Object struct {
	// Ref is the stable reference persisted alongside the payment record.
	Ref         string `json:"ref"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// ProofStore persists uploaded proof-of-transfer files.
type ProofStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, ref string) error
}
