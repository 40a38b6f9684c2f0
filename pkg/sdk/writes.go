package sdk

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/quantulabs/openrep/pkg/program"
)

// RegisterAgentParams describes a new agent registration. Owner defaults to
// the signer when zero.
type RegisterAgentParams struct {
	Owner         solana.PublicKey
	DescriptorURI string
	Metadata      []program.MetadataEntry
}

// RegisterResult reports the identity assigned to a newly registered agent.
type RegisterResult struct {
	AgentID   uint64
	Mint      solana.PublicKey
	Agent     solana.PublicKey
	Signature solana.Signature
}

// FeedbackParams describes one feedback submission. Nonce distinguishes
// multiple submissions by the same client for the same agent.
type FeedbackParams struct {
	AgentID uint64
	Score   uint8
	Tag     string
	URI     string
	Nonce   uint64
}

// ValidationParams describes one validation outcome submission.
type ValidationParams struct {
	AgentID  uint64
	Response uint8
	URI      string
}

// signAndSend assembles, signs, and submits a transaction paid by the
// configured signer. extraSigners covers instruction-level signers such as
// a freshly generated mint keypair.
func (c *Client) signAndSend(ctx context.Context, instructions []solana.Instruction, extraSigners ...solana.PrivateKey) (solana.Signature, error) {
	blockhash, err := c.chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(c.signer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("assemble transaction: %w", err)
	}

	signers := append([]solana.PrivateKey{c.signer}, extraSigners...)
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	return c.chain.SendTransaction(ctx, tx)
}

// RegisterAgent registers a new agent identity. The identifier is taken
// from the registry's current agent count; the program rejects the
// transaction if another registration lands first. On success the resolver
// cache is pre-populated so an immediate read needs no lookup.
func (c *Client) RegisterAgent(ctx context.Context, params RegisterAgentParams) (*RegisterResult, error) {
	if err := c.requireSigner(); err != nil {
		return nil, err
	}

	// Read the configuration fresh rather than from the resolver cache:
	// AgentCount advances with every registration.
	configAddr, _, err := program.ConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}
	data, err := c.chain.AccountData(ctx, configAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrConfigUnavailable, configAddr, err)
	}
	cfg, err := program.DecodeRegistryConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	owner := params.Owner
	if owner.IsZero() {
		owner = c.signer.PublicKey()
	}

	mint := solana.NewWallet()
	agentID := cfg.AgentCount

	ix, err := program.NewRegisterAgentInstruction(
		c.signer.PublicKey(), owner, mint.PublicKey(),
		agentID, params.DescriptorURI, params.Metadata,
	)
	if err != nil {
		return nil, err
	}
	sig, err := c.signAndSend(ctx, []solana.Instruction{ix}, mint.PrivateKey)
	if err != nil {
		return nil, err
	}

	agent, _, err := program.AgentAddress(mint.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("derive agent address: %w", err)
	}
	c.resolver.AddToCache(agentID, mint.PublicKey())
	c.log.Info("agent registered",
		zap.Uint64("agent_id", agentID),
		zap.Stringer("mint", mint.PublicKey()),
		zap.Stringer("signature", sig),
	)
	return &RegisterResult{
		AgentID:   agentID,
		Mint:      mint.PublicKey(),
		Agent:     agent,
		Signature: sig,
	}, nil
}

// UpdateAgentMetadata replaces an agent's descriptor URI and inline
// metadata. The signer must be the agent's owner.
func (c *Client) UpdateAgentMetadata(ctx context.Context, id uint64, descriptorURI string, metadata []program.MetadataEntry) (solana.Signature, error) {
	if err := c.requireSigner(); err != nil {
		return solana.Signature{}, err
	}
	agent, err := c.agentAddress(ctx, id)
	if err != nil {
		return solana.Signature{}, err
	}
	ix, err := program.NewUpdateMetadataInstruction(agent, c.signer.PublicKey(), descriptorURI, metadata)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.signAndSend(ctx, []solana.Instruction{ix})
}

// AddMetadataExtension appends one overflow metadata entry in a new
// extension account. The index is the agent's current extension count,
// keeping extensions densely packed from zero.
func (c *Client) AddMetadataExtension(ctx context.Context, id uint64, key string, value []byte) (solana.Signature, error) {
	if err := c.requireSigner(); err != nil {
		return solana.Signature{}, err
	}
	agent, err := c.agentAddress(ctx, id)
	if err != nil {
		return solana.Signature{}, err
	}
	data, err := c.chain.AccountData(ctx, agent)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("fetch agent record: %w", err)
	}
	acct, err := program.DecodeAgentAccount(data)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("agent %d: %w", id, err)
	}

	ix, err := program.NewAddExtensionInstruction(agent, c.signer.PublicKey(), c.signer.PublicKey(), acct.ExtensionCount, key, value)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.signAndSend(ctx, []solana.Instruction{ix})
}

// SubmitFeedback records peer feedback for an agent, signed by the client
// leaving it.
func (c *Client) SubmitFeedback(ctx context.Context, params FeedbackParams) (solana.Signature, error) {
	if err := c.requireSigner(); err != nil {
		return solana.Signature{}, err
	}
	agent, err := c.agentAddress(ctx, params.AgentID)
	if err != nil {
		return solana.Signature{}, err
	}
	ix, err := program.NewSubmitFeedbackInstruction(agent, c.signer.PublicKey(), params.Score, params.Tag, params.URI, params.Nonce)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.signAndSend(ctx, []solana.Instruction{ix})
}

// SubmitValidation records a validation outcome for an agent, signed by the
// validator.
func (c *Client) SubmitValidation(ctx context.Context, params ValidationParams) (solana.Signature, error) {
	if err := c.requireSigner(); err != nil {
		return solana.Signature{}, err
	}
	agent, err := c.agentAddress(ctx, params.AgentID)
	if err != nil {
		return solana.Signature{}, err
	}
	ix, err := program.NewSubmitValidationInstruction(agent, c.signer.PublicKey(), params.Response, params.URI)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.signAndSend(ctx, []solana.Instruction{ix})
}

// PublishDescriptor stores a descriptor document off chain and returns the
// URI to reference from the agent record. Requires WithContentStore; it is
// a write path and therefore also requires a signer.
func (c *Client) PublishDescriptor(ctx context.Context, payload []byte, contentType string) (string, error) {
	if err := c.requireSigner(); err != nil {
		return "", err
	}
	if c.store == nil {
		return "", ErrNoContentStore
	}
	uri, err := c.store.Put(ctx, payload, contentType)
	if err != nil {
		return "", fmt.Errorf("publish descriptor: %w", err)
	}
	return uri, nil
}

// agentAddress resolves an identifier and derives the primary record PDA.
func (c *Client) agentAddress(ctx context.Context, id uint64) (solana.PublicKey, error) {
	mint, err := c.resolver.Resolve(ctx, id)
	if err != nil {
		return solana.PublicKey{}, err
	}
	agent, _, err := program.AgentAddress(mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive agent address: %w", err)
	}
	return agent, nil
}
