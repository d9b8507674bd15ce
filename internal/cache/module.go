package cache

import (
	"fmt"

	"github.com/webitel/broadcast-delivery-service/internal/config"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"go.uber.org/fx"
)

// localBackendSize bounds the in-process LRU entry count; broadcast content
// is small (a single message body), so this trades a modest memory budget
// for avoiding grid round-trips on hot ALL/ROLE broadcasts.
const localBackendSize = 4096

var Module = fx.Module("cache",
	fx.Provide(newContentCache),
)

func newContentCache(g grid.Grid, cfg *config.Config) (*ContentCache, error) {
	var backend Backend
	switch cfg.Cache.LocalBackend {
	case "lru", "":
		lruBackend, err := NewLRUBackend(localBackendSize)
		if err != nil {
			return nil, fmt.Errorf("cache: new lru backend: %w", err)
		}
		backend = lruBackend
	case "none":
		backend = NullBackend{}
	default:
		return nil, fmt.Errorf("cache: unknown local backend %q", cfg.Cache.LocalBackend)
	}
	return NewContentCache(backend, g), nil
}
