package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/pdfchat/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		mod_time TIMESTAMP,
		pages INTEGER NOT NULL DEFAULT 0,
		chunks INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (workspace_id) REFERENCES workspaces(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_documents_workspace ON documents(workspace_id);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		page INTEGER NOT NULL,
		text TEXT NOT NULL,
		vector BLOB,
		table_json TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		answer_json TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_workspace ON messages(workspace_id, created_at);

	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL,
		label TEXT NOT NULL,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateWorkspace inserts a workspace.
func (s *SQLiteStorage) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	ws.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, created_at) VALUES (?, ?, ?)`,
		ws.ID, ws.Name, ws.CreatedAt,
	)
	return err
}

// GetWorkspace returns a workspace by ID.
func (s *SQLiteStorage) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var ws models.Workspace
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM workspaces WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// ListWorkspaces returns all workspaces ordered by creation time.
func (s *SQLiteStorage) ListWorkspaces(ctx context.Context) ([]*models.Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM workspaces ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Workspace
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &ws)
	}
	return out, rows.Err()
}

// UpsertDocument inserts a document or replaces the row with the same ID.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *models.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, workspace_id, filename, path, size, mod_time, pages, chunks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   workspace_id = excluded.workspace_id,
		   filename = excluded.filename,
		   path = excluded.path,
		   size = excluded.size,
		   mod_time = excluded.mod_time,
		   pages = excluded.pages,
		   chunks = excluded.chunks`,
		doc.ID, doc.WorkspaceID, doc.Filename, doc.Path, doc.Size, doc.ModTime, doc.Pages, doc.Chunks, doc.CreatedAt,
	)
	return err
}

const documentColumns = `id, workspace_id, filename, path, size, mod_time, pages, chunks, created_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var doc models.Document
	var modTime sql.NullTime
	if err := row.Scan(&doc.ID, &doc.WorkspaceID, &doc.Filename, &doc.Path, &doc.Size,
		&modTime, &doc.Pages, &doc.Chunks, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if modTime.Valid {
		doc.ModTime = modTime.Time
	}
	return &doc, nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// ListDocuments returns the documents of a workspace ordered by filename.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, workspaceID string) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE workspace_id = ? ORDER BY filename`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its chunks.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// BatchCreateChunks inserts multiple chunks in a transaction.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, page, text, vector, table_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		c.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Page, c.Text,
			encodeVector(c.Vector), nullString(c.TableJSON), c.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunksByDocumentID returns all chunks for a document in insertion order.
func (s *SQLiteStorage) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, page, text, vector, table_json, created_at
		 FROM chunks WHERE document_id = ? ORDER BY rowid`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var c models.Chunk
		var blob []byte
		var table sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Page, &c.Text, &blob, &table, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Vector = decodeVector(blob)
		c.TableJSON = table.String
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// DeleteChunksByDocumentID removes all chunks for a document.
func (s *SQLiteStorage) DeleteChunksByDocumentID(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, docID)
	return err
}

// CreateMessage inserts a chat message.
func (s *SQLiteStorage) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, workspace_id, role, content, answer_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.WorkspaceID, msg.Role, msg.Content, nullString(msg.AnswerJSON), msg.CreatedAt,
	)
	return err
}

// GetMessage returns a message by ID.
func (s *SQLiteStorage) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	var answer sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, role, content, answer_json, created_at FROM messages WHERE id = ?`, id,
	).Scan(&msg.ID, &msg.WorkspaceID, &msg.Role, &msg.Content, &answer, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	msg.AnswerJSON = answer.String
	return &msg, nil
}

// ListMessages returns up to limit most recent messages of a workspace, oldest first.
// limit <= 0 returns all.
func (s *SQLiteStorage) ListMessages(ctx context.Context, workspaceID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, role, content, answer_json, created_at FROM (
		   SELECT *, rowid AS seq FROM messages WHERE workspace_id = ?
		   ORDER BY created_at DESC, seq DESC LIMIT ?
		 ) ORDER BY created_at, seq`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var msg models.Message
		var answer sql.NullString
		if err := rows.Scan(&msg.ID, &msg.WorkspaceID, &msg.Role, &msg.Content, &answer, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.AnswerJSON = answer.String
		out = append(out, &msg)
	}
	return out, rows.Err()
}

// CreateFeedback records feedback on an existing message.
func (s *SQLiteStorage) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	if _, err := s.GetMessage(ctx, fb.MessageID); err != nil {
		return err
	}
	fb.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, message_id, label, notes, created_at) VALUES (?, ?, ?, ?, ?)`,
		fb.ID, fb.MessageID, fb.Label, nullString(fb.Notes), fb.CreatedAt,
	)
	return err
}

// CountWorkspaces returns the total number of workspaces.
func (s *SQLiteStorage) CountWorkspaces(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM workspaces`)
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM documents`)
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM chunks`)
}

func (s *SQLiteStorage) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// encodeVector stores an embedding as little-endian float32 bytes.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}
