package sdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/quantulabs/openrep/pkg/program"
)

// AgentView is the composed read model for one agent: the primary record
// plus every discovered metadata extension. Metadata lists inline entries
// first, then extension entries in discovery order.
type AgentView struct {
	AgentID        uint64
	Address        solana.PublicKey
	Mint           solana.PublicKey
	Owner          solana.PublicKey
	DescriptorURI  string
	Metadata       []program.MetadataEntry
	ExtensionCount uint16
}

// Resolve maps an agent identifier to its token mint, consulting the cache
// first. Unregistered identifiers fail with ErrAgentNotRegistered.
func (c *Client) Resolve(ctx context.Context, id uint64) (solana.PublicKey, error) {
	return c.resolver.Resolve(ctx, id)
}

// AddToCache pre-populates the resolver cache, avoiding a redundant network
// lookup for an identifier whose mint is already known.
func (c *Client) AddToCache(id uint64, mint solana.PublicKey) {
	c.resolver.AddToCache(id, mint)
}

// ClearCache drops all cached resolver state, including the registry
// configuration. Long-lived processes can call it to force rediscovery.
func (c *Client) ClearCache() {
	c.resolver.Clear()
}

// RegistryConfig returns the registry configuration, loading it on first
// use. The result is cached until ClearCache.
func (c *Client) RegistryConfig(ctx context.Context) (*program.RegistryConfig, error) {
	return c.resolver.ensureConfig(ctx)
}

// LoadAgent returns the composed view of an agent, or (nil, nil) when the
// identifier is unregistered or the primary record does not exist. Errors
// are reserved for transport and configuration failures, so callers can
// branch on absence without inspecting error chains.
func (c *Client) LoadAgent(ctx context.Context, id uint64) (*AgentView, error) {
	mint, err := c.resolver.Resolve(ctx, id)
	if errors.Is(err, ErrAgentNotRegistered) {
		c.log.Debug("agent not registered", zap.Uint64("agent_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	addr, _, err := program.AgentAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive agent address: %w", err)
	}
	data, err := c.chain.AccountData(ctx, addr)
	if errors.Is(err, ErrAccountNotFound) {
		c.log.Debug("agent record absent", zap.Uint64("agent_id", id), zap.Stringer("address", addr))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acct, err := program.DecodeAgentAccount(data)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}

	extensions, err := c.exts.Load(ctx, id, addr)
	if err != nil {
		return nil, fmt.Errorf("load extensions for agent %d: %w", id, err)
	}

	merged := make([]program.MetadataEntry, 0, len(acct.Metadata)+len(extensions))
	merged = append(merged, acct.Metadata...)
	merged = append(merged, extensions...)

	return &AgentView{
		AgentID:        acct.AgentID,
		Address:        addr,
		Mint:           acct.Mint,
		Owner:          acct.Owner,
		DescriptorURI:  acct.DescriptorURI,
		Metadata:       merged,
		ExtensionCount: acct.ExtensionCount,
	}, nil
}

// LoadFeedback returns one feedback record, or (nil, nil) when absent.
func (c *Client) LoadFeedback(ctx context.Context, agent, client solana.PublicKey, nonce uint64) (*program.FeedbackAccount, error) {
	addr, _, err := program.FeedbackAddress(agent, client, nonce)
	if err != nil {
		return nil, fmt.Errorf("derive feedback address: %w", err)
	}
	data, err := c.chain.AccountData(ctx, addr)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return program.DecodeFeedbackAccount(data)
}

// LoadValidation returns a validator's record for an agent, or (nil, nil)
// when absent.
func (c *Client) LoadValidation(ctx context.Context, agent, validator solana.PublicKey) (*program.ValidationAccount, error) {
	addr, _, err := program.ValidationAddress(agent, validator)
	if err != nil {
		return nil, fmt.Errorf("derive validation address: %w", err)
	}
	data, err := c.chain.AccountData(ctx, addr)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return program.DecodeValidationAccount(data)
}
