// Package memory implements the case memory: embeddings, a vector index and
// a case text store, combined into a similarity retriever.
package memory

import (
	"fmt"

	"cropagent/pkg/llm"
)

// Memory bundles the opened memory components. The ingest tooling uses the
// index and store directly; the decision pipeline only needs the retriever.
type Memory struct {
	Embedder  Embedder
	Index     *FlatIndex
	Store     CaseStore
	Retriever *Retriever

	indexPath string
}

// Open builds the memory layer from configuration, loading a persisted index
// when one exists at the configured path.
func Open(cfg *Config, logger llm.Logger) (*Memory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("memory: config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.IndexType != IndexFlat {
		// Only the in-process flat index is supported here; NewIndex reports
		// the reason for other types.
		if _, err := NewIndex(cfg.IndexType, cfg.EmbeddingDim); err != nil {
			return nil, err
		}
	}

	embedder, err := NewEmbedder(cfg.Embedding, cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	index, err := OpenFlatIndex(cfg.IndexPath, cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	store, err := NewCaseStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	retriever, err := NewRetriever(embedder, index, store, cfg.TopK, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Memory{
		Embedder:  embedder,
		Index:     index,
		Store:     store,
		Retriever: retriever,
		indexPath: cfg.IndexPath,
	}, nil
}

// SaveIndex persists the vector index to its configured path.
func (m *Memory) SaveIndex() error {
	return m.Index.Save(m.indexPath)
}

// Close releases the underlying store.
func (m *Memory) Close() error {
	return m.Store.Close()
}
