package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cropagent/pkg/agent"
	"cropagent/pkg/llm"
)

// Retriever answers similarity queries over the case memory. It implements
// agent.Retriever.
type Retriever struct {
	embedder Embedder
	index    Index
	store    CaseStore
	topK     int
	logger   llm.Logger
}

// NewRetriever wires the memory components together.
func NewRetriever(embedder Embedder, index Index, store CaseStore, topK int, logger llm.Logger) (*Retriever, error) {
	if embedder == nil || index == nil || store == nil {
		return nil, fmt.Errorf("memory: retriever requires embedder, index and store")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("memory: top_k must be positive, got %d", topK)
	}
	if logger == nil {
		logger = llm.NewLogger("info")
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		topK:     topK,
		logger:   logger,
	}, nil
}

// QueryText flattens a case into the text embedded for similarity search.
// Absent sensor readings contribute empty fields so the shape is stable.
func QueryText(c agent.CaseContext) string {
	parts := []string{
		c.Crop,
		c.Disease,
		c.Severity,
		formatOptional(c.Temperature),
		formatOptional(c.Humidity),
	}
	return strings.Join(parts, " ")
}

// Retrieve returns the texts of the most similar stored cases, most similar
// first. Neighbours whose text is missing from the store are skipped.
func (r *Retriever) Retrieve(ctx context.Context, c agent.CaseContext) ([]string, error) {
	if r.index.Len() == 0 {
		return nil, nil
	}

	query := QueryText(c)
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	ids, scores, err := r.index.Search(vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("memory: search index: %w", err)
	}

	cases := make([]string, 0, len(ids))
	for i, id := range ids {
		// Index positions are 0-based, store ids start at 1.
		text, ok, err := r.store.Get(ctx, int64(id)+1)
		if err != nil {
			return nil, fmt.Errorf("memory: load case for neighbour %d: %w", id, err)
		}
		if !ok {
			r.logger.Warn(ctx, "neighbour has no stored case text", llm.Fields{
				"index_id": id,
				"score":    scores[i],
			})
			continue
		}
		cases = append(cases, text)
	}

	r.logger.Debug(ctx, "memory retrieval", llm.Fields{
		"query_digest": llm.DigestString(query),
		"neighbours":   len(ids),
		"cases":        len(cases),
	})
	return cases, nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
