package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Index stores embedding vectors and answers nearest-neighbour queries.
// Insertion order assigns ids starting at 0.
type Index interface {
	Add(vec Vector) (int, error)
	Search(vec Vector, k int) (ids []int, scores []float32, err error)
	Len() int
}

// NewIndex constructs the index named by indexType. Only the exact flat index
// is built in-process; approximate index types require an external index
// service and are rejected at construction.
func NewIndex(indexType string, dim int) (Index, error) {
	switch indexType {
	case IndexFlat:
		return NewFlatIndex(dim), nil
	case IndexHNSW:
		return nil, errors.New("memory: hnsw requires an external index service")
	default:
		return nil, fmt.Errorf("memory: unsupported index type %q", indexType)
	}
}

// FlatIndex is an exact inner-product index over normalised vectors. With
// L2-normalised inputs the inner product equals cosine similarity.
type FlatIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors []Vector
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Add appends vec and returns its id.
func (idx *FlatIndex) Add(vec Vector) (int, error) {
	if len(vec) != idx.dim {
		return 0, fmt.Errorf("memory: vector dimension %d, index expects %d", len(vec), idx.dim)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	own := make(Vector, len(vec))
	copy(own, vec)
	idx.vectors = append(idx.vectors, own)
	return len(idx.vectors) - 1, nil
}

// Search returns up to k ids ordered by descending inner product with vec.
func (idx *FlatIndex) Search(vec Vector, k int) ([]int, []float32, error) {
	if len(vec) != idx.dim {
		return nil, nil, fmt.Errorf("memory: query dimension %d, index expects %d", len(vec), idx.dim)
	}
	if k <= 0 {
		return nil, nil, errors.New("memory: k must be positive")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type hit struct {
		id    int
		score float32
	}
	hits := make([]hit, len(idx.vectors))
	for i, v := range idx.vectors {
		var dot float32
		for j := range v {
			dot += v[j] * vec[j]
		}
		hits[i] = hit{id: i, score: dot}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if k > len(hits) {
		k = len(hits)
	}
	ids := make([]int, k)
	scores := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = hits[i].id
		scores[i] = hits[i].score
	}
	return ids, scores, nil
}

// Len returns the number of stored vectors.
func (idx *FlatIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

type flatSnapshot struct {
	Dim     int      `msgpack:"dim"`
	Vectors []Vector `msgpack:"vectors"`
}

// Save persists the index to path, creating parent directories as needed.
func (idx *FlatIndex) Save(path string) error {
	idx.mu.RLock()
	snap := flatSnapshot{Dim: idx.dim, Vectors: idx.vectors}
	data, err := msgpack.Marshal(&snap)
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("memory: encode index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("memory: create index dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("memory: write index: %w", err)
	}
	return nil
}

// LoadFlatIndex reads a previously saved index from path.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read index: %w", err)
	}

	var snap flatSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("memory: decode index: %w", err)
	}
	if snap.Dim <= 0 {
		return nil, errors.New("memory: index snapshot has invalid dimension")
	}
	for i, v := range snap.Vectors {
		if len(v) != snap.Dim {
			return nil, fmt.Errorf("memory: index snapshot vector %d has dimension %d, expected %d", i, len(v), snap.Dim)
		}
	}

	return &FlatIndex{dim: snap.Dim, vectors: snap.Vectors}, nil
}

// OpenFlatIndex loads the index at path if it exists, otherwise returns a new
// empty index of the given dimension.
func OpenFlatIndex(path string, dim int) (*FlatIndex, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewFlatIndex(dim), nil
	}
	idx, err := LoadFlatIndex(path)
	if err != nil {
		return nil, err
	}
	if idx.dim != dim {
		return nil, fmt.Errorf("memory: index at %s has dimension %d, config expects %d", path, idx.dim, dim)
	}
	return idx, nil
}
