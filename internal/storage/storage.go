// Package storage defines the persistence interface for workspaces, documents, chunks and chat history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/pdfchat/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines relational persistence operations.
type Storage interface {
	// Workspace operations
	CreateWorkspace(ctx context.Context, ws *models.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]*models.Workspace, error)

	// Document operations
	UpsertDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, workspaceID string) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// Chunk operations
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)
	DeleteChunksByDocumentID(ctx context.Context, docID string) error

	// Chat operations
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListMessages(ctx context.Context, workspaceID string, limit int) ([]*models.Message, error)
	CreateFeedback(ctx context.Context, fb *models.Feedback) error

	// Stats
	CountWorkspaces(ctx context.Context) (int64, error)
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
