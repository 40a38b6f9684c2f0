package sdk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"golang.org/x/time/rate"
)

// ScanFilter is a byte-level account filter for bulk scans. A zero DataSize
// means no size constraint; nil Bytes means no content constraint.
type ScanFilter struct {
	DataSize uint64
	Offset   uint64
	Bytes    []byte
}

// SizeFilter matches accounts of exactly n bytes.
func SizeFilter(n uint64) ScanFilter {
	return ScanFilter{DataSize: n}
}

// MemcmpFilter matches accounts whose data equals b at the given offset.
func MemcmpFilter(offset uint64, b []byte) ScanFilter {
	return ScanFilter{Offset: offset, Bytes: b}
}

// KeyedAccount pairs an account address with its raw data.
type KeyedAccount struct {
	Address solana.PublicKey
	Data    []byte
}

// ChainClient is the narrow view of a Solana node this SDK requires. The
// production implementation wraps an RPC client; tests substitute fakes.
type ChainClient interface {
	// AccountData fetches a single account's raw data. Absent accounts are
	// reported as ErrAccountNotFound.
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)

	// ScanProgramAccounts returns all accounts owned by programID matching
	// every filter. Nodes may disable this capability; such rejections are
	// reported as ErrScanUnsupported so callers can fall back.
	ScanProgramAccounts(ctx context.Context, programID solana.PublicKey, filters []ScanFilter) ([]KeyedAccount, error)

	// LatestBlockhash returns a recent blockhash for transaction assembly.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// SendTransaction submits a fully signed transaction.
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// rpcChain implements ChainClient against a Solana JSON-RPC node, with an
// optional client-side rate limit applied to every request.
type rpcChain struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	limiter    *rate.Limiter
}

func newRPCChain(endpoint string, commitment rpc.CommitmentType, limiter *rate.Limiter) *rpcChain {
	return &rpcChain{
		rpc:        rpc.New(endpoint),
		commitment: commitment,
		limiter:    limiter,
	}
}

func (c *rpcChain) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *rpcChain) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", address, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("fetch account %s: %w", address, err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("account %s: %w", address, ErrAccountNotFound)
	}
	return res.Value.Data.GetBinary(), nil
}

func (c *rpcChain) ScanProgramAccounts(ctx context.Context, programID solana.PublicKey, filters []ScanFilter) ([]KeyedAccount, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	rpcFilters := make([]rpc.RPCFilter, 0, len(filters))
	for _, f := range filters {
		if f.DataSize > 0 {
			rpcFilters = append(rpcFilters, rpc.RPCFilter{DataSize: f.DataSize})
		}
		if f.Bytes != nil {
			rpcFilters = append(rpcFilters, rpc.RPCFilter{
				Memcmp: &rpc.RPCFilterMemcmp{Offset: f.Offset, Bytes: solana.Base58(f.Bytes)},
			})
		}
	}
	res, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Filters:    rpcFilters,
	})
	if err != nil {
		if isScanUnsupported(err) {
			return nil, fmt.Errorf("getProgramAccounts rejected: %w", ErrScanUnsupported)
		}
		return nil, fmt.Errorf("scan program accounts: %w", err)
	}
	out := make([]KeyedAccount, 0, len(res))
	for _, item := range res {
		if item == nil || item.Account == nil {
			continue
		}
		out = append(out, KeyedAccount{
			Address: item.Pubkey,
			Data:    item.Account.Data.GetBinary(),
		})
	}
	return out, nil
}

func (c *rpcChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	res, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("fetch latest blockhash: %w", err)
	}
	return res.Value.Blockhash, nil
}

func (c *rpcChain) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

// isScanUnsupported recognizes node rejections of getProgramAccounts. RPC
// providers that disable the method answer with method-not-found (-32601)
// or a provider-specific message naming the method.
func isScanUnsupported(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == -32601 {
			return true
		}
		msg := strings.ToLower(rpcErr.Message)
		return strings.Contains(msg, "getprogramaccounts") &&
			(strings.Contains(msg, "disabled") || strings.Contains(msg, "not supported") || strings.Contains(msg, "not available"))
	}
	return false
}
