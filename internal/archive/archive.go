package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/summarybench/batcheval/internal/audit"
	"github.com/summarybench/batcheval/internal/hash"
	"github.com/summarybench/batcheval/internal/storage"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/archive")

var ErrNoContent = errors.New("tried to archive a file without a buffer or file path")

type FileMetadata struct {
	LocalFilePath *string
	Buffer        *[]byte
	ArchivedFile  types.ArchivedFile
	// Object name inside the job's archive directory. Defaults to the base name of LocalFilePath.
	Name string
}

//go:generate mockgen -destination ./mock/mock.go -package mock . Archiver

// Copies run artifacts to long term storage
type Archiver interface {
	// Returns the location the file was archived to
	ArchiveFile(ctx context.Context, auditContext audit.Context, metadata *FileMetadata) (string, error)
}

// Ensure StorageArchiver implements Archiver interface.
var _ Archiver = (*StorageArchiver)(nil)

// Archives to <dir>/<job id>/<name> in a storage backend
type StorageArchiver struct {
	backend storage.Backend
	dir     storage.Location
}

func NewStorageArchiver(backend storage.Backend, dir storage.Location) *StorageArchiver {
	return &StorageArchiver{
		backend: backend,
		dir:     dir,
	}
}

func (a *StorageArchiver) ArchiveFile(
	ctx context.Context,
	auditContext audit.Context,
	metadata *FileMetadata,
) (string, error) {
	ctx, span := tracer.Start(ctx, "ArchiveFile")
	defer span.End()

	var buffer io.ReadSeeker
	var size int64
	name := metadata.Name

	if metadata.LocalFilePath == nil && metadata.Buffer == nil {
		err := ErrNoContent
		span.SetStatus(codes.Error, "can't archive a file without a buffer or file path")
		span.RecordError(err)
		return "", err
	}

	if metadata.LocalFilePath != nil {
		span.AddEvent("archiving from local file")
		span.SetAttributes(attribute.String("path", *metadata.LocalFilePath))

		fstat, err := os.Stat(*metadata.LocalFilePath)
		if err != nil {
			span.SetStatus(codes.Error, "error statting file")
			span.RecordError(err)
			return "", err
		}

		span.AddEvent("opening file")
		f, err := os.Open(*metadata.LocalFilePath)
		if err != nil {
			span.SetStatus(codes.Error, "failed to open file for upload")
			span.RecordError(err)
			return "", err
		}
		defer f.Close()

		size = fstat.Size()
		buffer = f
		if name == "" {
			name = filepath.Base(*metadata.LocalFilePath)
		}
	} else {
		span.AddEvent("archiving from in-memory buffer")
		buffer = bytes.NewReader(*metadata.Buffer)
		size = int64(len(*metadata.Buffer))
	}

	if name == "" {
		err := errors.New("archived buffers need a name")
		span.SetStatus(codes.Error, "missing object name")
		span.RecordError(err)
		return "", err
	}

	digest, err := hash.Reader(ctx, buffer)
	if err != nil {
		span.SetStatus(codes.Error, "failed to hash file")
		span.RecordError(err)
		return "", err
	}

	dest := a.dir.Join(auditContext.JobID, name)
	span.SetAttributes(attribute.String("location", dest.String()))

	if _, err := buffer.Seek(0, io.SeekStart); err != nil {
		span.SetStatus(codes.Error, "failed to seek to start")
		span.RecordError(err)
		return "", err
	}

	if err := a.backend.Upload(ctx, buffer, size, dest.Prefix); err != nil {
		span.SetStatus(codes.Error, "failed to upload file")
		span.RecordError(err)
		return "", err
	}

	identifier, err := a.backend.StoreIdentifier(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get identifier")
		return "", err
	}

	span.AddEvent("generating audit log message")
	audit.LogFileArchived(
		auditContext,
		identifier,
		dest.Prefix,
		metadata.ArchivedFile,
		digest.SHA256,
	)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "archived file")
	return dest.String(), nil
}
