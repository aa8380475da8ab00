package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/kirillkom/grounded-assistant/internal/core/ports"
)

const keyPrefix = "ga:emb:"

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// HitRecorder counts cache lookups by result ("hit" or "miss").
type HitRecorder interface {
	RecordEmbeddingCache(result string)
}

// CachedEmbedder serves repeated texts from the store and embeds only the
// misses. Store failures degrade to a plain embedder call.
type CachedEmbedder struct {
	inner     ports.Embedder
	store     store
	namespace string
	recorder  HitRecorder
	logger    *slog.Logger
}

// NewCachedEmbedder keys entries by namespace (the embedding model) and text.
func NewCachedEmbedder(inner ports.Embedder, s store, namespace string, recorder HitRecorder, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{
		inner:     inner,
		store:     s,
		namespace: namespace,
		recorder:  recorder,
		logger:    logger,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := c.lookup(ctx, c.key(text)); ok {
			out[i] = vec
			c.record("hit")
			continue
		}
		c.record("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embed: expected %d vectors, got %d", len(missTexts), len(vectors))
	}
	for j, vec := range vectors {
		out[missIdx[j]] = vec
		c.save(ctx, c.key(missTexts[j]), vec)
	}
	return out, nil
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(c.namespace + "\x00" + text))
	return keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("embedding_cache_get_failed", "key", key, "error", err)
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	vec, err := decodeVector(data)
	if err != nil {
		c.logger.Warn("embedding_cache_corrupt", "key", key, "error", err)
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.Set(ctx, key, encodeVector(vec)); err != nil {
		c.logger.Warn("embedding_cache_set_failed", "key", key, "error", err)
	}
}

func (c *CachedEmbedder) record(result string) {
	if c.recorder != nil {
		c.recorder.RecordEmbeddingCache(result)
	}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid cached vector length %d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
