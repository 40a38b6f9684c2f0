package sdk_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/quantulabs/openrep/pkg/program"
	"github.com/quantulabs/openrep/pkg/sdk"
)

// ── Fake chain ──────────────────────────────────────────────────────────

// fakeChain is an in-memory ChainClient with per-method call counters, so
// tests can assert exactly how many network round-trips an operation cost.
type fakeChain struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte

	// scanErr, when set, is returned by every ScanProgramAccounts call.
	scanErr error

	accountCalls   int
	scanCalls      int
	blockhashCalls int
	sendCalls      int
	sentTxs        []*solana.Transaction
}

func newFakeChain() *fakeChain {
	return &fakeChain{accounts: make(map[solana.PublicKey][]byte)}
}

func (f *fakeChain) setAccount(addr solana.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr] = data
}

func (f *fakeChain) calls() (accounts, scans int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountCalls, f.scanCalls
}

func (f *fakeChain) AccountData(_ context.Context, addr solana.PublicKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls++
	data, ok := f.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", addr, sdk.ErrAccountNotFound)
	}
	return data, nil
}

func (f *fakeChain) ScanProgramAccounts(_ context.Context, programID solana.PublicKey, filters []sdk.ScanFilter) ([]sdk.KeyedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanCalls++
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var out []sdk.KeyedAccount
	for addr, data := range f.accounts {
		if matchesFilters(data, filters) {
			out = append(out, sdk.KeyedAccount{Address: addr, Data: data})
		}
	}
	return out, nil
}

func matchesFilters(data []byte, filters []sdk.ScanFilter) bool {
	for _, flt := range filters {
		if flt.DataSize > 0 && uint64(len(data)) != flt.DataSize {
			return false
		}
		if flt.Bytes != nil {
			end := flt.Offset + uint64(len(flt.Bytes))
			if end > uint64(len(data)) || !bytes.Equal(data[flt.Offset:end], flt.Bytes) {
				return false
			}
		}
	}
	return true
}

func (f *fakeChain) LatestBlockhash(_ context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockhashCalls++
	return solana.Hash{1, 2, 3}, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	f.sentTxs = append(f.sentTxs, tx)
	return solana.Signature{9}, nil
}

// ── Fixtures ────────────────────────────────────────────────────────────

func encodeAccount(t *testing.T, disc [8]byte, v any) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func seedConfig(t *testing.T, fc *fakeChain, agentCount uint64) {
	t.Helper()
	addr, _, err := program.ConfigAddress()
	if err != nil {
		t.Fatalf("ConfigAddress: %v", err)
	}
	fc.setAccount(addr, encodeAccount(t, program.RegistryConfigDiscriminator, program.RegistryConfig{
		Authority:      solana.NewWallet().PublicKey(),
		CollectionMint: solana.NewWallet().PublicKey(),
		AgentCount:     agentCount,
		Bump:           255,
	}))
}

// seedAgent installs the identifier record and the primary record for one
// agent, returning the agent record address.
func seedAgent(t *testing.T, fc *fakeChain, id uint64, mint solana.PublicKey, inline []program.MetadataEntry, extensionCount uint16) solana.PublicKey {
	t.Helper()

	idAddr, _, err := program.AgentIDAddress(id)
	if err != nil {
		t.Fatalf("AgentIDAddress: %v", err)
	}
	fc.setAccount(idAddr, encodeAccount(t, program.AgentIDRecordDiscriminator, program.AgentIDRecord{
		AgentID: id,
		Mint:    mint,
		Bump:    254,
	}))

	agentAddr, _, err := program.AgentAddress(mint)
	if err != nil {
		t.Fatalf("AgentAddress: %v", err)
	}
	fc.setAccount(agentAddr, encodeAccount(t, program.AgentAccountDiscriminator, program.AgentAccount{
		AgentID:        id,
		Mint:           mint,
		Owner:          solana.NewWallet().PublicKey(),
		DescriptorURI:  "ipfs://descriptor",
		Metadata:       inline,
		ExtensionCount: extensionCount,
		Bump:           253,
	}))
	return agentAddr
}

// extensionBytes assembles raw extension account data on the fixed layout.
func extensionBytes(t *testing.T, agentID uint64, key string, value []byte, index uint16) []byte {
	t.Helper()
	if len(key) > program.ExtensionKeySize || len(value) > program.ExtensionValueCap {
		t.Fatalf("fixture out of bounds: key %d, value %d", len(key), len(value))
	}
	data := make([]byte, program.ExtensionDataSize)
	copy(data[:8], program.MetadataExtensionDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], agentID)
	copy(data[16:48], key)
	binary.LittleEndian.PutUint32(data[48:52], uint32(len(value)))
	copy(data[52:], value)
	binary.LittleEndian.PutUint16(data[52+program.ExtensionValueCap:], index)
	data[program.ExtensionDataSize-1] = 252
	return data
}

func seedExtension(t *testing.T, fc *fakeChain, agent solana.PublicKey, agentID uint64, index uint16, key string, value []byte) solana.PublicKey {
	t.Helper()
	addr, _, err := program.ExtensionAddress(agent, index)
	if err != nil {
		t.Fatalf("ExtensionAddress(%d): %v", index, err)
	}
	fc.setAccount(addr, extensionBytes(t, agentID, key, value, index))
	return addr
}

func newTestClient(t *testing.T, fc *fakeChain, opts ...sdk.Option) *sdk.Client {
	t.Helper()
	c, err := sdk.New("", append([]sdk.Option{sdk.WithChainClient(fc)}, opts...)...)
	if err != nil {
		t.Fatalf("sdk.New: %v", err)
	}
	return c
}

// scanUnsupportedErr mimics the wrapped rejection the RPC chain client
// produces for nodes with getProgramAccounts disabled.
func scanUnsupportedErr() error {
	return fmt.Errorf("getProgramAccounts rejected: %w", sdk.ErrScanUnsupported)
}

// metadataSet flattens entries into a comparable key→value map.
func metadataSet(entries []program.MetadataEntry) map[string]string {
	set := make(map[string]string, len(entries))
	for _, e := range entries {
		set[e.Key] = string(e.Value)
	}
	return set
}
