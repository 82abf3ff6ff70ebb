// Package hash digests result files, batch inputs and archived artifacts.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/hash")

// sha256 and length of an artifact's content
type Digest struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

func (d Digest) String() string {
	return "sha256:" + d.SHA256
}

// Copies src into dst, digesting the bytes on the way, so a downloaded object is read once
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (Digest, error) {
	_, span := tracer.Start(ctx, "Copy")
	defer span.End()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, h), src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy content")
		return Digest{}, err
	}

	d := Digest{SHA256: hex.EncodeToString(h.Sum(nil)), Size: size}
	span.AddEvent("digested", trace.WithAttributes(
		attribute.String("sha256", d.SHA256),
		attribute.Int64("size", d.Size),
	))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "digested content")
	return d, nil
}

// Consumes r to the end
func Reader(ctx context.Context, r io.Reader) (Digest, error) {
	return Copy(ctx, io.Discard, r)
}

func Bytes(b []byte) Digest {
	sum := sha256.Sum256(b)
	return Digest{SHA256: hex.EncodeToString(sum[:]), Size: int64(len(b))}
}
