package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow-backend/internal/shared/storage/object"
	"docflow-backend/internal/shared/telemetry"
)

const mimePDF = "application/pdf"

// JobPurger removes the ingestion jobs tied to a document. The Postgres
// schema cascades via foreign key; the in-memory wiring needs an explicit
// hook so deleted documents never leave orphan jobs behind.
type JobPurger interface {
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Service contains business logic for documents.
type Service struct {
	Store        object.ObjectStore
	Repo         Repo
	Jobs         JobPurger
	AllowedTypes []string
	MaxBytes     int64
}

// UploadInput carries one multipart upload.
type UploadInput struct {
	OwnerID     string
	Title       string
	Description string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateInput carries the optional fields of a partial update. Nil means
// leave the field unchanged.
type UpdateInput struct {
	Title        *string
	Description  *string
	AssignedToID *string
	Status       *Status
}

// Upload validates the file against the configured MIME allow-list and size
// cap, saves the blob, and records the document with pending status. PDF page
// counts are sniffed best-effort into the metadata map.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Document{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.FileName == "" {
		return Document{}, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	if !s.typeAllowed(in.ContentType) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedType, in.ContentType)
	}
	if s.MaxBytes > 0 && in.Size > s.MaxBytes {
		return Document{}, ErrTooLarge
	}

	// Buffer the payload so PDF metadata can be sniffed after saving. The
	// handler bounds the request body, keeping this read small.
	raw, err := io.ReadAll(in.Body)
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if s.MaxBytes > 0 && int64(len(raw)) > s.MaxBytes {
		return Document{}, ErrTooLarge
	}

	storageKey, size, sniffedMime, err := s.Store.Save(ctx, in.OwnerID, in.FileName, bytes.NewReader(raw))
	if err != nil {
		return Document{}, fmt.Errorf("save blob: %w", err)
	}

	metadata := map[string]any{
		"originalName": in.FileName,
		"fileType":     in.ContentType,
		"fileSize":     size,
	}
	if in.ContentType == mimePDF || strings.HasPrefix(sniffedMime, mimePDF) {
		if pages, err := pdfPageCount(raw); err == nil {
			metadata["pageCount"] = pages
		} else {
			telemetry.Warn("documents.pdf_sniff_failed", map[string]any{"error": err.Error()})
		}
	}

	now := time.Now().UTC()
	doc := Document{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		StorageKey:  storageKey,
		Status:      StatusPending,
		CreatedByID: in.OwnerID,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		// The record failed; drop the orphaned blob.
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("documents.orphan_blob", map[string]any{"storage_key": storageKey, "error": delErr.Error()})
		}
		return Document{}, err
	}
	return doc, nil
}

// GetByID returns a document by ID.
func (s *Service) GetByID(ctx context.Context, documentID string) (Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, documentID)
}

// List returns one page of documents plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Document, int, error) {
	return s.Repo.List(ctx, filter, limit, offset)
}

// Update applies a partial update. CreatedByID and StorageKey never change.
func (s *Service) Update(ctx context.Context, documentID string, in UpdateInput) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return Document{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		doc.Title = title
	}
	if in.Description != nil {
		doc.Description = strings.TrimSpace(*in.Description)
	}
	if in.AssignedToID != nil {
		doc.AssignedToID = strings.TrimSpace(*in.AssignedToID)
	}
	if in.Status != nil {
		switch *in.Status {
		case StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
			doc.Status = *in.Status
		default:
			return Document{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *in.Status)
		}
	}
	doc.UpdatedAt = time.Now().UTC()

	if err := s.Repo.Update(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Delete removes the document record along with its ingestion jobs and
// best-effort deletes its blob. A missing blob never fails the delete.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, documentID); err != nil {
		return err
	}
	if s.Jobs != nil {
		if err := s.Jobs.DeleteByDocument(ctx, documentID); err != nil {
			return fmt.Errorf("purge jobs: %w", err)
		}
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		telemetry.Warn("documents.blob_delete_failed", map[string]any{
			"document_id": documentID,
			"storage_key": doc.StorageKey,
			"error":       err.Error(),
		})
	}
	return nil
}

// SetStatus reflects an ingestion outcome onto the document record.
func (s *Service) SetStatus(ctx context.Context, documentID string, status Status) error {
	return s.Repo.UpdateStatus(ctx, documentID, status)
}

func (s *Service) typeAllowed(contentType string) bool {
	if len(s.AllowedTypes) == 0 {
		return true
	}
	mime := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	for _, allowed := range s.AllowedTypes {
		if mime == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
