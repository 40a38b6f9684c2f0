package program_test

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/quantulabs/openrep/pkg/program"
)

func TestEncodeAgentIDLittleEndian(t *testing.T) {
	got := program.EncodeAgentID(0x0102030405060708)
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if len(got) != 8 {
		t.Fatalf("EncodeAgentID returned %d bytes, want 8", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EncodeAgentID byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
	if binary.LittleEndian.Uint64(got) != 0x0102030405060708 {
		t.Fatal("round trip mismatch")
	}
}

func TestAddressDerivationIsDeterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	a1, bump1, err := program.AgentAddress(mint)
	if err != nil {
		t.Fatalf("AgentAddress: %v", err)
	}
	a2, bump2, err := program.AgentAddress(mint)
	if err != nil {
		t.Fatalf("AgentAddress (second call): %v", err)
	}
	if !a1.Equals(a2) || bump1 != bump2 {
		t.Fatalf("derivation not deterministic: %s/%d vs %s/%d", a1, bump1, a2, bump2)
	}

	other, _, err := program.AgentAddress(solana.NewWallet().PublicKey())
	if err != nil {
		t.Fatalf("AgentAddress (other mint): %v", err)
	}
	if a1.Equals(other) {
		t.Fatal("different mints derived the same agent address")
	}
}

func TestExtensionAddressVariesByIndex(t *testing.T) {
	agent := solana.NewWallet().PublicKey()

	seen := make(map[solana.PublicKey]uint16)
	for _, idx := range []uint16{0, 1, 2, 255} {
		addr, _, err := program.ExtensionAddress(agent, idx)
		if err != nil {
			t.Fatalf("ExtensionAddress(%d): %v", idx, err)
		}
		if prev, dup := seen[addr]; dup {
			t.Fatalf("indices %d and %d derived the same address %s", prev, idx, addr)
		}
		seen[addr] = idx
	}
}

func TestAgentIDAddressVariesByIdentifier(t *testing.T) {
	a, _, err := program.AgentIDAddress(1)
	if err != nil {
		t.Fatalf("AgentIDAddress(1): %v", err)
	}
	b, _, err := program.AgentIDAddress(2)
	if err != nil {
		t.Fatalf("AgentIDAddress(2): %v", err)
	}
	if a.Equals(b) {
		t.Fatal("distinct identifiers derived the same index address")
	}
}
