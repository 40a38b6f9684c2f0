package sdk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/quantulabs/openrep/pkg/program"
)

// mintResolver maps application-level agent identifiers to their unique
// per-agent token mints. The binding is immutable once registered, so cache
// entries are never invalidated within a process; the cache is still
// bounded (LRU) so long-lived processes resolving many agents stay flat.
//
// Concurrent resolutions of the same uncached identifier are collapsed into
// one network lookup via singleflight.
type mintResolver struct {
	chain ChainClient
	log   *zap.Logger
	cache *lru.Cache[uint64, solana.PublicKey]
	group singleflight.Group

	// config is loaded lazily on first use and kept for the resolver's
	// lifetime. A failed load is not latched: the next call retries.
	mu     sync.Mutex
	config *program.RegistryConfig
}

func newMintResolver(chain ChainClient, log *zap.Logger, cacheSize int) (*mintResolver, error) {
	cache, err := lru.New[uint64, solana.PublicKey](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create resolver cache: %w", err)
	}
	return &mintResolver{chain: chain, log: log, cache: cache}, nil
}

// ensureConfig returns the registry configuration, fetching it on first use.
func (r *mintResolver) ensureConfig(ctx context.Context) (*program.RegistryConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.config != nil {
		return r.config, nil
	}

	addr, _, err := program.ConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("%w: derive config address: %v", ErrConfigUnavailable, err)
	}
	data, err := r.chain.AccountData(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrConfigUnavailable, addr, err)
	}
	cfg, err := program.DecodeRegistryConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	r.config = cfg
	r.log.Debug("registry configuration loaded",
		zap.Stringer("authority", cfg.Authority),
		zap.Stringer("collection_mint", cfg.CollectionMint),
		zap.Uint64("agent_count", cfg.AgentCount),
	)
	return cfg, nil
}

// Resolve returns the agent's mint, from cache when possible. Unregistered
// identifiers fail with ErrAgentNotRegistered; unreachable configuration
// fails with ErrConfigUnavailable. Neither outcome poisons the cache.
func (r *mintResolver) Resolve(ctx context.Context, id uint64) (solana.PublicKey, error) {
	if mint, ok := r.cache.Get(id); ok {
		resolverCacheHits.Inc()
		return mint, nil
	}
	resolverCacheMisses.Inc()

	v, err, _ := r.group.Do(strconv.FormatUint(id, 10), func() (any, error) {
		// A concurrent flight may have populated the cache while this
		// caller was queued behind it.
		if mint, ok := r.cache.Get(id); ok {
			return mint, nil
		}
		return r.lookup(ctx, id)
	})
	if err != nil {
		return solana.PublicKey{}, err
	}
	return v.(solana.PublicKey), nil
}

func (r *mintResolver) lookup(ctx context.Context, id uint64) (solana.PublicKey, error) {
	if _, err := r.ensureConfig(ctx); err != nil {
		return solana.PublicKey{}, err
	}

	mintLookups.Inc()
	addr, _, err := program.AgentIDAddress(id)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive agent id address for %d: %w", id, err)
	}
	data, err := r.chain.AccountData(ctx, addr)
	if errors.Is(err, ErrAccountNotFound) {
		return solana.PublicKey{}, fmt.Errorf("agent %d: %w", id, ErrAgentNotRegistered)
	}
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("fetch agent id record for %d: %w", id, err)
	}
	rec, err := program.DecodeAgentIDRecord(data)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("agent id record for %d: %w", id, err)
	}
	if rec.AgentID != id {
		return solana.PublicKey{}, fmt.Errorf("agent id record at %s claims identifier %d, want %d", addr, rec.AgentID, id)
	}

	r.cache.Add(id, rec.Mint)
	r.log.Debug("resolved agent mint", zap.Uint64("agent_id", id), zap.Stringer("mint", rec.Mint))
	return rec.Mint, nil
}

// AddToCache pre-populates the identifier→mint binding, e.g. right after a
// successful registration, so the next read skips the network lookup.
func (r *mintResolver) AddToCache(id uint64, mint solana.PublicKey) {
	r.cache.Add(id, mint)
}

// Clear drops every cached binding and the cached registry configuration.
func (r *mintResolver) Clear() {
	r.cache.Purge()
	r.mu.Lock()
	r.config = nil
	r.mu.Unlock()
}
