// Package sdk is the OpenRep Go SDK: client-side access to the on-chain
// registries tracking agent identities, peer feedback, and validation
// outcomes.
//
// # Reading an agent
//
// LoadAgent resolves the identifier, fetches and decodes the primary
// record, and merges inline metadata with every metadata extension:
//
//	c, err := sdk.New(rpc.MainNetBeta_RPC)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	agent, err := c.LoadAgent(ctx, 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if agent == nil {
//	    fmt.Println("not registered")
//	    return
//	}
//	for _, e := range agent.Metadata {
//	    fmt.Printf("%s = %s\n", e.Key, e.Value)
//	}
//
// A nil view with a nil error means the agent does not exist; errors are
// reserved for transport and configuration failures.
//
// Identifier→mint bindings are immutable once registered, so resolutions
// are cached per client for its lifetime. After registering an agent
// yourself, AddToCache skips the first lookup; ClearCache forces full
// rediscovery in long-lived processes.
//
// # Writing
//
// Writes need a signing keypair. Without one, every write method fails
// with ErrReadOnly before touching the network:
//
//	c, err := sdk.New(rpc.DevNet_RPC,
//	    sdk.WithKeypairFile(os.ExpandEnv("$HOME/.config/solana/id.json")),
//	)
//	res, err := c.RegisterAgent(ctx, sdk.RegisterAgentParams{
//	    DescriptorURI: "ipfs://...",
//	    Metadata: []program.MetadataEntry{
//	        {Key: "name", Value: []byte("Acme Translator")},
//	    },
//	})
//
// # Metadata extensions
//
// Once an agent's inline metadata capacity is exhausted, additional entries
// live in satellite extension accounts. LoadAgent collects them with a
// single bulk filtered scan; against nodes that disable getProgramAccounts
// the SDK transparently falls back to bounded per-index fetches. The
// fallback decision is made once per client and reused.
package sdk
