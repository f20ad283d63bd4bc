package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Eric920418/Manpower-sub002/internal/shared"
)

// Storage abstracts where upload bytes live.
type Storage interface {
	Save(src io.Reader, originalName string) (storagePath string, size int64, err error)
	Open(storagePath string) (io.ReadCloser, error)
	Remove(storagePath string) error
}

// Service coordinates byte storage with the metadata registry.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	storage Storage
	maxSize int64
}

// NewService builds a Service.
func NewService(logger *slog.Logger, repo Repository, storage Storage, maxSize int64) *Service {
	return &Service{logger: logger, repo: repo, storage: storage, maxSize: maxSize}
}

// Store saves the bytes first, then the metadata row. A failed insert rolls
// the file back off disk.
func (s *Service) Store(ctx context.Context, src io.Reader, fileName, contentType string, uploadedBy int64) (Upload, error) {
	limited := io.LimitReader(src, s.maxSize+1)
	storagePath, size, err := s.storage.Save(limited, fileName)
	if err != nil {
		return Upload{}, err
	}
	if size > s.maxSize {
		if err := s.storage.Remove(storagePath); err != nil {
			s.logger.Warn("remove oversized upload", slog.Any("error", err))
		}
		return Upload{}, fmt.Errorf("uploads: file exceeds %d bytes", s.maxSize)
	}
	upload, err := s.repo.Insert(ctx, Upload{
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		StoragePath: storagePath,
		UploadedBy:  uploadedBy,
	})
	if err != nil {
		if rmErr := s.storage.Remove(storagePath); rmErr != nil {
			s.logger.Warn("rollback stored file", slog.Any("error", rmErr))
		}
		return Upload{}, err
	}
	return upload, nil
}

// Open returns the metadata and a reader for the stored bytes.
func (s *Service) Open(ctx context.Context, id int64) (Upload, io.ReadCloser, error) {
	upload, err := s.repo.Get(ctx, id)
	if err != nil {
		return Upload{}, nil, err
	}
	reader, err := s.storage.Open(upload.StoragePath)
	if err != nil {
		return Upload{}, nil, err
	}
	return upload, reader, nil
}

// List pages through upload records, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Upload, shared.Pagination, error) {
	if perPage > 100 {
		perPage = 100
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	pagination := shared.NewPagination(page, perPage, total)
	list, err := s.repo.List(ctx, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, pagination, nil
}

// Delete removes the metadata row and then the bytes. A missing file after
// a deleted row is harmless, the reverse is an orphan, so the row goes
// first.
func (s *Service) Delete(ctx context.Context, id int64) error {
	upload, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.storage.Remove(upload.StoragePath)
}
