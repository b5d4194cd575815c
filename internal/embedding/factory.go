package embedding

import (
	"fmt"
)

// Provider names accepted by New.
const (
	ProviderONNX = "onnx"
	ProviderHash = "hash"
)

// ONNXOptions configures NewONNXEmbedder.
type ONNXOptions struct {
	ModelPath     string
	TokenizerPath string
	LibraryPath   string
	OutputName    string
	Pooled        bool
	Dimensions    int
	MaxTokens     int
	CacheSize     int
}

func (o ONNXOptions) withDefaults() ONNXOptions {
	if o.OutputName == "" {
		o.OutputName = "last_hidden_state"
	}
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 256
	}
	return o
}

// Options selects and configures an encoder.
type Options struct {
	Provider string
	ONNX     ONNXOptions
}

// New builds the encoder named by opts.Provider. A failing ONNX model is an
// error; there is no silent fallback to hashing, since the query vectors would
// no longer match the catalog embeddings.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderHash:
		return NewHashEmbedder(opts.ONNX.Dimensions), nil
	case ProviderONNX, "":
		if opts.ONNX.ModelPath == "" {
			return nil, fmt.Errorf("embedding: onnx provider needs a model_path")
		}
		e, err := NewONNXEmbedder(opts.ONNX)
		if err != nil {
			return nil, fmt.Errorf("embedding: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", opts.Provider)
	}
}
