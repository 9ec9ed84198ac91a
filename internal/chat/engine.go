// Package chat answers workspace questions from the workspace's vector index
// and records the conversation.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/pdfchat/internal/answer"
	"github.com/hyperjump/pdfchat/internal/embedding"
	"github.com/hyperjump/pdfchat/internal/models"
	"github.com/hyperjump/pdfchat/internal/storage"
	"github.com/hyperjump/pdfchat/internal/vector"
	"github.com/hyperjump/pdfchat/internal/workspace"
)

// NoIndex is the answer for a workspace with nothing ingested yet.
const NoIndex = "No index yet. Upload PDFs first."

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 6

// Engine runs retrieval and answer synthesis.
type Engine struct {
	store      storage.Storage
	workspaces *workspace.Manager
	embedder   embedding.Embedder
	topK       int
	citations  int
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for chat events.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTopK sets how many passages are retrieved (default 6).
func WithTopK(k int) Option {
	return func(e *Engine) { e.topK = k }
}

// WithCitations sets how many retrieved passages the answer quotes (default 3).
func WithCitations(n int) Option {
	return func(e *Engine) { e.citations = n }
}

// NewEngine creates a chat engine with the given dependencies.
func NewEngine(store storage.Storage, workspaces *workspace.Manager, embedder embedding.Embedder, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		workspaces: workspaces,
		embedder:   embedder,
		topK:       DefaultTopK,
		citations:  answer.DefaultCitations,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Chat answers message from the workspace's documents. A workspace without a
// saved index gets the NoIndex answer and no citations.
func (e *Engine) Chat(ctx context.Context, workspaceID, message string) (*models.ChatResponse, error) {
	start := time.Now()
	if !e.workspaces.HasIndex(workspaceID) {
		return &models.ChatResponse{
			Answer:    NoIndex,
			Citations: []vector.Hit{},
			QueryTime: time.Since(start).Milliseconds(),
		}, nil
	}

	qvec, err := e.embedder.Embed(ctx, embedding.Query(message))
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	var hits []vector.Hit
	err = e.workspaces.Do(ctx, workspaceID, func(idx *vector.Index) error {
		var err error
		hits, err = idx.Search(ctx, qvec, e.topK)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ans := answer.Synthesize(message, hits, e.citations)
	resp := &models.ChatResponse{
		Answer:    ans.Text,
		Citations: ans.Citations,
		QueryTime: time.Since(start).Milliseconds(),
	}
	resp.MessageID = e.recordTurn(ctx, workspaceID, message, ans)
	e.logger.Debug("chat answered",
		zap.String("workspace", workspaceID),
		zap.Int("hits", len(hits)),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}

// recordTurn stores the question and answer and returns the assistant message ID.
// History is best effort: failures are logged, not returned.
func (e *Engine) recordTurn(ctx context.Context, workspaceID, question string, ans answer.Answer) string {
	cites, err := json.Marshal(ans.Citations)
	if err != nil {
		e.logger.Warn("failed to encode citations", zap.Error(err))
		return ""
	}
	now := time.Now()
	user := &models.Message{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Role:        models.RoleUser,
		Content:     question,
		CreatedAt:   now,
	}
	reply := &models.Message{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Role:        models.RoleAssistant,
		Content:     ans.Text,
		AnswerJSON:  string(cites),
		CreatedAt:   now,
	}
	for _, m := range []*models.Message{user, reply} {
		if err := e.store.CreateMessage(ctx, m); err != nil {
			e.logger.Warn("failed to record message", zap.String("workspace", workspaceID), zap.Error(err))
			return ""
		}
	}
	return reply.ID
}

// History returns up to limit recent messages of a workspace, oldest first.
func (e *Engine) History(ctx context.Context, workspaceID string, limit int) ([]*models.Message, error) {
	return e.store.ListMessages(ctx, workspaceID, limit)
}

// Feedback records a thumbs up/down on an assistant message.
func (e *Engine) Feedback(ctx context.Context, messageID string, req *models.FeedbackRequest) (*models.Feedback, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	fb := &models.Feedback{ID: uuid.New().String(), MessageID: messageID, Label: req.Label, Notes: req.Notes}
	if err := e.store.CreateFeedback(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}
