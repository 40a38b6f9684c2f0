package program

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// ID is the address of the deployed OpenRep registry program.
var ID = solana.MustPublicKeyFromBase58("FqsfCgsoGEUyJ5LNNoVLxyte57WKVA9XtSxM9SnCvwJs")

// PDA seed prefixes. These mirror the seeds declared in the on-chain
// program and must never change independently of it.
var (
	configSeed     = []byte("config")
	agentSeed      = []byte("agent")
	agentIDSeed    = []byte("agent-id")
	extensionSeed  = []byte("extension")
	feedbackSeed   = []byte("feedback")
	validationSeed = []byte("validation")
)

// EncodeAgentID returns the canonical 8-byte little-endian wire encoding of
// an agent identifier. It is used both as a PDA seed and as the memcmp
// filter value for bulk account scans.
func EncodeAgentID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, id)
	return buf
}

// ConfigAddress derives the singleton registry configuration PDA.
func ConfigAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{configSeed}, ID)
}

// AgentAddress derives an agent's primary record PDA from its unique
// per-agent token mint.
func AgentAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{agentSeed, mint.Bytes()}, ID)
}

// AgentIDAddress derives the identifier index PDA that maps an
// application-level agent identifier to its mint.
func AgentIDAddress(id uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{agentIDSeed, EncodeAgentID(id)}, ID)
}

// ExtensionAddress derives the metadata extension PDA for the given agent
// record and extension index.
func ExtensionAddress(agent solana.PublicKey, index uint16) (solana.PublicKey, uint8, error) {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, index)
	return solana.FindProgramAddress([][]byte{extensionSeed, agent.Bytes(), buf}, ID)
}

// FeedbackAddress derives the feedback record PDA for a (agent, client,
// nonce) triple. The nonce lets one client leave multiple feedback entries
// for the same agent.
func FeedbackAddress(agent, client solana.PublicKey, nonce uint64) (solana.PublicKey, uint8, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, nonce)
	return solana.FindProgramAddress([][]byte{feedbackSeed, agent.Bytes(), client.Bytes(), buf}, ID)
}

// ValidationAddress derives the validation record PDA for a (agent,
// validator) pair. One record per validator per agent.
func ValidationAddress(agent, validator solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{validationSeed, agent.Bytes(), validator.Bytes()}, ID)
}
