package compress

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Artifact is a memoized compression result. Artifacts live independently of
// cache entries and may be recomputed after eviction at any time.
type Artifact struct {
	Data   []byte
	Method Method
}

// artifactCache memoizes compressed bytes under a content-hash+method key so
// identical bodies are not recompressed. The LRU is safe for concurrent use.
type artifactCache struct {
	lru *lru.Cache[string, Artifact]
}

func newArtifactCache(capacity int) (*artifactCache, error) {
	c, err := lru.New[string, Artifact](capacity)
	if err != nil {
		return nil, err
	}
	return &artifactCache{lru: c}, nil
}

func artifactKey(body []byte, method Method) string {
	return strconv.FormatUint(xxhash.Sum64(body), 36) + ":" + string(method)
}

func (c *artifactCache) get(body []byte, method Method) (Artifact, bool) {
	return c.lru.Get(artifactKey(body, method))
}

func (c *artifactCache) put(body []byte, artifact Artifact) {
	c.lru.Add(artifactKey(body, artifact.Method), artifact)
}
