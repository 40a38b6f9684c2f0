package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/quantulabs/openrep/pkg/program"
)

// MaxExtensionScan bounds the sequential extension fallback. No agent can
// hold more extensions than this; the bound also guarantees termination
// against corrupted layouts.
const MaxExtensionScan = 256

// extensionLoader collects an agent's metadata extension records. It
// prefers a single bulk filtered scan and falls back to bounded sequential
// per-address fetches when the connected node rejects bulk scans. The
// capability decision is made once per loader and reused.
type extensionLoader struct {
	chain ChainClient
	log   *zap.Logger

	scanUnsupported atomic.Bool
}

func newExtensionLoader(chain ChainClient, log *zap.Logger) *extensionLoader {
	return &extensionLoader{chain: chain, log: log}
}

// Load returns the agent's extension entries. Both strategies yield the
// same logical record set; discovery order may differ between them.
func (l *extensionLoader) Load(ctx context.Context, id uint64, agent solana.PublicKey) ([]program.MetadataEntry, error) {
	if !l.scanUnsupported.Load() {
		entries, err := l.loadByScan(ctx, id)
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, ErrScanUnsupported) {
			return nil, err
		}
		l.scanUnsupported.Store(true)
		extensionScanFallbacks.Inc()
		l.log.Warn("node rejected bulk account scan, using sequential extension fetches from now on",
			zap.Uint64("agent_id", id))
	}
	return l.loadSequential(ctx, agent)
}

// loadByScan issues one bulk scan matching the extension account size and
// the agent identifier at its fixed offset. Records that fail to parse are
// logged and skipped; they never abort the batch.
func (l *extensionLoader) loadByScan(ctx context.Context, id uint64) ([]program.MetadataEntry, error) {
	accounts, err := l.chain.ScanProgramAccounts(ctx, program.ID, []ScanFilter{
		SizeFilter(program.ExtensionDataSize),
		MemcmpFilter(8, program.EncodeAgentID(id)),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]program.MetadataEntry, 0, len(accounts))
	for _, acct := range accounts {
		ext, err := program.DecodeMetadataExtension(acct.Data)
		if err != nil {
			extensionParseSkips.Inc()
			l.log.Warn("skipping unparseable extension account",
				zap.Stringer("address", acct.Address),
				zap.Uint64("agent_id", id),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, ext.Entry())
	}
	return entries, nil
}

// loadSequential derives and fetches extension addresses for indices
// 0..MaxExtensionScan-1. Extensions are created densely from index 0, so
// the first absent account ends the walk. A parse failure also ends the
// walk, returning everything collected so far rather than erroring.
func (l *extensionLoader) loadSequential(ctx context.Context, agent solana.PublicKey) ([]program.MetadataEntry, error) {
	var entries []program.MetadataEntry
	for index := uint16(0); index < MaxExtensionScan; index++ {
		addr, _, err := program.ExtensionAddress(agent, index)
		if err != nil {
			return nil, fmt.Errorf("derive extension address %d: %w", index, err)
		}
		data, err := l.chain.AccountData(ctx, addr)
		if errors.Is(err, ErrAccountNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch extension %d: %w", index, err)
		}
		ext, err := program.DecodeMetadataExtension(data)
		if err != nil {
			extensionParseSkips.Inc()
			l.log.Warn("stopping sequential extension walk at unparseable account",
				zap.Stringer("address", addr),
				zap.Uint16("index", index),
				zap.Error(err),
			)
			break
		}
		entries = append(entries, ext.Entry())
	}
	return entries, nil
}
