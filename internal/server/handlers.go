package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/pdfchat/internal/extract"
	"github.com/hyperjump/pdfchat/internal/fileid"
	"github.com/hyperjump/pdfchat/internal/models"
	"github.com/hyperjump/pdfchat/internal/storage"
	"github.com/hyperjump/pdfchat/internal/vector"
	"github.com/hyperjump/pdfchat/internal/workspace"
	"github.com/hyperjump/pdfchat/pkg/utils"
)

const defaultHistoryLimit = 50

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	ws, err := s.workspaces.Create(r.Context(), name)
	if err != nil {
		s.respondErr(w, "create workspace failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"workspace_id": ws.ID})
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.workspaces.List(r.Context())
	if err != nil {
		s.respondErr(w, "list workspaces failed", err)
		return
	}
	if list == nil {
		list = []*models.Workspace{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"workspaces": list})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.workspaces.Create(r.Context(), id); err != nil {
		s.respondErr(w, "upload failed", err)
		return
	}
	if limit := s.config.Server.MaxUploadMB; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit<<20)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.config.Server.MaxUploadMB))
			return
		}
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		s.respondError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	if !extract.Supported(name) {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type: %s", filepath.Ext(name)))
		return
	}
	path, err := s.saveUpload(id, name, file)
	if err != nil {
		s.respondErr(w, "upload failed", err)
		return
	}
	s.logger.Debug("upload request", zap.String("workspace", id), zap.String("file", name), zap.Int64("size", header.Size))
	n, err := s.ingester.IngestFile(r.Context(), id, path)
	if err != nil {
		s.respondErr(w, "ingest failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "chunks_added": n})
}

// saveUpload writes the upload under a dot-prefixed temp name, which watchers
// and workspace syncs ignore, then renames it into place.
func (s *Server) saveUpload(id, name string, src io.Reader) (string, error) {
	dir := s.workspaces.Dir(id)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return dst, nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.workspaces.Get(r.Context(), id); err != nil {
		s.respondErr(w, "list documents failed", err)
		return
	}
	docs, err := s.storage.ListDocuments(r.Context(), id)
	if err != nil {
		s.respondErr(w, "list documents failed", err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := filepath.Base(chi.URLParam(r, "filename"))
	path := filepath.Join(s.workspaces.Dir(id), name)
	if _, err := s.storage.GetDocument(r.Context(), fileid.DocID(id, path)); err != nil {
		s.respondErr(w, "delete document failed", err)
		return
	}
	s.logger.Debug("delete document request", zap.String("workspace", id), zap.String("file", name))
	if err := s.ingester.RemoveFile(r.Context(), id, path); err != nil {
		s.respondErr(w, "delete document failed", err)
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove uploaded file", zap.String("path", path), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.workspaces.Get(r.Context(), id); err != nil {
		s.respondErr(w, "reindex failed", err)
		return
	}
	if err := s.ingester.Reindex(r.Context(), id); err != nil {
		s.respondErr(w, "reindex failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reindexed"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	if _, err := s.workspaces.Get(r.Context(), id); err != nil {
		s.respondErr(w, "list messages failed", err)
		return
	}
	msgs, err := s.chat.History(r.Context(), id, limit)
	if err != nil {
		s.respondErr(w, "list messages failed", err)
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("chat request", zap.String("workspace", req.WorkspaceID), zap.String("message", utils.Truncate(req.Message, 80)))
	resp, err := s.chat.Chat(r.Context(), req.WorkspaceID, req.Message)
	if err != nil {
		s.respondErr(w, "chat failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	fb, err := s.chat.Feedback(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		s.respondErr(w, "feedback failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, fb)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wsCount, err := s.storage.CountWorkspaces(ctx)
	if err != nil {
		s.respondErr(w, "status: count workspaces failed", err)
		return
	}
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.respondErr(w, "status: count documents failed", err)
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.respondErr(w, "status: count chunks failed", err)
		return
	}
	resp := map[string]interface{}{
		"workspaces":     wsCount,
		"documents":      docCount,
		"chunks":         chunkCount,
		"loaded_indexes": s.workspaces.Stats(),
	}

	configInfo := map[string]interface{}{
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"chunk_max_chars":      s.config.Chunk.MaxChars,
		"top_k":                s.config.Answer.TopK,
		"citations":            s.config.Answer.Citations,
		"data_dir":             s.config.Storage.DataDir,
		"database_path":        s.config.Storage.DatabasePath,
	}
	if t, err := vector.ResolveIndexType(s.config.Vector.IndexType); err == nil {
		configInfo["vector_index_type"] = string(t)
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.DataDir); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrInvalidName),
		errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, vector.ErrDimensionMismatch),
		errors.Is(err, vector.ErrLengthMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
