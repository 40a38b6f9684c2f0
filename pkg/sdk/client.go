package sdk

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quantulabs/openrep/pkg/contentstore"
)

const defaultCacheSize = 4096

// Client is the OpenRep SDK entry point. Reads are always available; write
// methods require a signing key (WithSigner or WithKeypairFile) and fail
// with ErrReadOnly otherwise.
type Client struct {
	chain      ChainClient
	log        *zap.Logger
	signer     solana.PrivateKey
	store      contentstore.Store
	commitment rpc.CommitmentType
	limiter    *rate.Limiter
	cacheSize  int

	resolver *mintResolver
	exts     *extensionLoader
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithSigner sets the keypair used to sign and pay for transactions.
// Without a signer the client is read-only.
func WithSigner(key solana.PrivateKey) Option {
	return func(c *Client) error {
		if len(key) == 0 {
			return errors.New("empty signing key")
		}
		c.signer = key
		return nil
	}
}

// WithKeypairFile loads the signer from a solana-keygen JSON keypair file.
func WithKeypairFile(path string) Option {
	return func(c *Client) error {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return fmt.Errorf("load keypair from %s: %w", path, err)
		}
		c.signer = key
		return nil
	}
}

// WithContentStore attaches an off-chain content store used by
// descriptor-publishing write paths.
func WithContentStore(store contentstore.Store) Option {
	return func(c *Client) error {
		c.store = store
		return nil
	}
}

// WithLogger sets the client logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) error {
		if log == nil {
			return errors.New("nil logger")
		}
		c.log = log
		return nil
	}
}

// WithCommitment sets the commitment level for every RPC read and
// preflight. The default is confirmed. It only applies to the built-in RPC
// layer and has no effect when WithChainClient is supplied.
func WithCommitment(commitment rpc.CommitmentType) Option {
	return func(c *Client) error {
		c.commitment = commitment
		return nil
	}
}

// WithRateLimit caps outbound RPC requests, useful against public endpoints
// with strict quotas. It only applies to the built-in RPC layer and has no
// effect when WithChainClient is supplied.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 || burst <= 0 {
			return errors.New("rate limit requires positive rps and burst")
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithCacheSize bounds the resolver's identifier→mint cache.
func WithCacheSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return errors.New("cache size must be positive")
		}
		c.cacheSize = n
		return nil
	}
}

// WithChainClient substitutes the node access layer. It overrides the RPC
// endpoint entirely, along with WithCommitment and WithRateLimit, which
// configure only the built-in layer; tests use it to run against fakes.
func WithChainClient(chain ChainClient) Option {
	return func(c *Client) error {
		if chain == nil {
			return errors.New("nil chain client")
		}
		c.chain = chain
		return nil
	}
}

// New creates a Client connected to the given RPC endpoint.
//
//	c, err := sdk.New(rpc.MainNetBeta_RPC,
//	    sdk.WithKeypairFile(os.ExpandEnv("$HOME/.config/solana/id.json")),
//	    sdk.WithRateLimit(10, 5),
//	)
func New(endpoint string, opts ...Option) (*Client, error) {
	c := &Client{
		log:        zap.NewNop(),
		commitment: rpc.CommitmentConfirmed,
		cacheSize:  defaultCacheSize,
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	if c.chain == nil {
		if endpoint == "" {
			return nil, errors.New("rpc endpoint must not be empty")
		}
		c.chain = newRPCChain(endpoint, c.commitment, c.limiter)
	}

	resolver, err := newMintResolver(c.chain, c.log, c.cacheSize)
	if err != nil {
		return nil, err
	}
	c.resolver = resolver
	c.exts = newExtensionLoader(c.chain, c.log)
	return c, nil
}

// ReadOnly reports whether the client lacks signing authority.
func (c *Client) ReadOnly() bool {
	return len(c.signer) == 0
}

// Signer returns the public key of the configured signer, or the zero key
// for read-only clients.
func (c *Client) Signer() solana.PublicKey {
	if c.ReadOnly() {
		return solana.PublicKey{}
	}
	return c.signer.PublicKey()
}

func (c *Client) requireSigner() error {
	if c.ReadOnly() {
		return ErrReadOnly
	}
	return nil
}
