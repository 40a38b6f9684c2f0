// Package program defines the on-chain layout of the OpenRep registry
// program: deterministic account address derivation, account codecs, and
// instruction builders.
//
// Everything here is stateless and performs no network I/O. Address
// derivation is pure seed math:
//
//	mint := solana.MustPublicKeyFromBase58("...")
//	agentAddr, _, err := program.AgentAddress(mint)
//
// Account decoding takes the raw bytes returned by an account fetch:
//
//	acct, err := program.DecodeAgentAccount(data)
//
// Wire layouts must match the deployed program byte-for-byte; any change to
// the program's account structs is a breaking change for this package.
package program
