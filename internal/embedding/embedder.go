// Package embedding turns passages and questions into unit-length vectors.
package embedding

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"
)

// Embedder produces L2-normalized vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// e5 models are trained with these role prefixes.
const (
	queryPrefix   = "query: "
	passagePrefix = "passage: "
)

// Query prepares a chat question for embedding.
func Query(text string) string { return queryPrefix + text }

// Passage prepares a document chunk for embedding.
func Passage(text string) string { return passagePrefix + text }

// Options configures New.
type Options struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	Logger     *zap.Logger
}

// New returns an ONNX embedder for opts.ModelPath. When the model file is
// missing or ONNX Runtime is not compiled in, it logs a warning and returns a
// MockEmbedder of the same dimension so the server stays usable.
func New(opts Options) (Embedder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logger.Warn("embedding model not found, using hash embeddings",
			zap.String("path", opts.ModelPath))
		return NewMockEmbedder(opts.Dimensions), nil
	}
	emb, err := NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
	if err != nil {
		if errors.Is(err, ErrONNXUnavailable) {
			logger.Warn("ONNX runtime not available, using hash embeddings", zap.Error(err))
			return NewMockEmbedder(opts.Dimensions), nil
		}
		return nil, err
	}
	logger.Info("embedding model loaded",
		zap.String("path", opts.ModelPath),
		zap.Int("dimensions", opts.Dimensions))
	return emb, nil
}

// ErrONNXUnavailable is returned when the binary was built without CGO.
var ErrONNXUnavailable = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
