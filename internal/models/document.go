// Package models defines core data structures for workspaces, documents, chat messages and feedback.
package models

import "time"

// Workspace is a named collection of uploaded documents with its own vector index.
type Workspace struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Document is a file ingested into a workspace.
type Document struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Filename    string    `json:"filename" db:"filename"`
	Path        string    `json:"path" db:"path"`
	Size        int64     `json:"size" db:"size"`
	ModTime     time.Time `json:"mod_time" db:"mod_time"`
	Pages       int       `json:"pages" db:"pages"`
	Chunks      int       `json:"chunks" db:"chunks"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Chunk is one embedded passage of a document page.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Page       int       `json:"page" db:"page"`
	Text       string    `json:"text" db:"text"`
	Vector     []float32 `json:"-" db:"vector"`
	TableJSON  string    `json:"table_json,omitempty" db:"table_json"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
