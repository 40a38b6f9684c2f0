package program

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Bounds enforced by the on-chain program.
const (
	MaxInlineMetadata = 8
	MaxMetadataKeyLen = 32
	MaxInlineValueLen = 256

	// ExtensionKeySize is the fixed width of an extension key field. Keys
	// shorter than the field are zero-padded on chain and trimmed at the
	// first zero byte on decode.
	ExtensionKeySize = 32

	// ExtensionValueCap is the fixed capacity of an extension value buffer.
	// The actual value length is carried in a u32 prefix.
	ExtensionValueCap = 512
)

// ExtensionDataSize is the fixed total byte length of a metadata extension
// account: discriminator + agent id + key + value length prefix + value
// buffer + index + bump. Bulk scans filter on this exact size.
const ExtensionDataSize = 8 + 8 + ExtensionKeySize + 4 + ExtensionValueCap + 2 + 1

// ErrDiscriminatorMismatch is returned when account bytes do not start with
// the expected 8-byte discriminator, i.e. the account exists but holds a
// different record type.
var ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")

// accountDiscriminator computes the Anchor-style discriminator for an
// account struct name.
func accountDiscriminator(name string) [8]byte {
	h := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], h[:8])
	return d
}

var (
	RegistryConfigDiscriminator    = accountDiscriminator("RegistryConfig")
	AgentAccountDiscriminator      = accountDiscriminator("AgentAccount")
	AgentIDRecordDiscriminator     = accountDiscriminator("AgentIdRecord")
	MetadataExtensionDiscriminator = accountDiscriminator("MetadataExtension")
	FeedbackAccountDiscriminator   = accountDiscriminator("FeedbackAccount")
	ValidationAccountDiscriminator = accountDiscriminator("ValidationAccount")
)

// checkDiscriminator validates the leading discriminator and returns the
// remaining account body.
func checkDiscriminator(data []byte, want [8]byte) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("account data is %d bytes, shorter than its discriminator", len(data))
	}
	if !bytes.Equal(data[:8], want[:]) {
		return nil, ErrDiscriminatorMismatch
	}
	return data[8:], nil
}

// RegistryConfig is the singleton configuration account created when the
// registry is initialized. It anchors all agent discovery.
type RegistryConfig struct {
	Authority      solana.PublicKey
	CollectionMint solana.PublicKey
	AgentCount     uint64
	Bump           uint8
}

// DecodeRegistryConfig decodes a registry configuration account.
func DecodeRegistryConfig(data []byte) (*RegistryConfig, error) {
	body, err := checkDiscriminator(data, RegistryConfigDiscriminator)
	if err != nil {
		return nil, err
	}
	var cfg RegistryConfig
	if err := bin.NewBorshDecoder(body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode registry config: %w", err)
	}
	return &cfg, nil
}

// AgentIDRecord maps an application-level agent identifier to the agent's
// unique token mint. Its address is derivable from the identifier alone,
// which makes identifier resolution a single account fetch.
type AgentIDRecord struct {
	AgentID uint64
	Mint    solana.PublicKey
	Bump    uint8
}

// DecodeAgentIDRecord decodes an identifier index account.
func DecodeAgentIDRecord(data []byte) (*AgentIDRecord, error) {
	body, err := checkDiscriminator(data, AgentIDRecordDiscriminator)
	if err != nil {
		return nil, err
	}
	var rec AgentIDRecord
	if err := bin.NewBorshDecoder(body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode agent id record: %w", err)
	}
	return &rec, nil
}

// MetadataEntry is a single metadata key/value pair, either inline in the
// agent's primary record or held by a satellite extension account.
type MetadataEntry struct {
	Key   string
	Value []byte
}

// AgentAccount is an agent's primary on-chain record.
type AgentAccount struct {
	AgentID        uint64
	Mint           solana.PublicKey
	Owner          solana.PublicKey
	DescriptorURI  string
	Metadata       []MetadataEntry
	ExtensionCount uint16
	Bump           uint8
}

// DecodeAgentAccount decodes an agent's primary record.
func DecodeAgentAccount(data []byte) (*AgentAccount, error) {
	body, err := checkDiscriminator(data, AgentAccountDiscriminator)
	if err != nil {
		return nil, err
	}
	var acct AgentAccount
	if err := bin.NewBorshDecoder(body).Decode(&acct); err != nil {
		return nil, fmt.Errorf("decode agent account: %w", err)
	}
	if len(acct.Metadata) > MaxInlineMetadata {
		return nil, fmt.Errorf("agent account carries %d inline metadata entries, program cap is %d", len(acct.Metadata), MaxInlineMetadata)
	}
	return &acct, nil
}

// MetadataExtension is a satellite record holding one overflow metadata
// entry once an agent's inline capacity is exhausted.
type MetadataExtension struct {
	AgentID uint64
	Key     string
	Value   []byte
	Index   uint16
	Bump    uint8
}

// Entry returns the extension's payload as a MetadataEntry.
func (e *MetadataExtension) Entry() MetadataEntry {
	return MetadataEntry{Key: e.Key, Value: e.Value}
}

// DecodeMetadataExtension decodes a metadata extension account. The layout
// is fixed-width: after the discriminator and the 8-byte agent identifier
// comes a 32-byte key field read as a zero-terminated string (or the full
// width when no terminator exists), a u32 little-endian value length, the
// fixed-capacity value buffer, and the index/bump trailer.
func DecodeMetadataExtension(data []byte) (*MetadataExtension, error) {
	if len(data) != ExtensionDataSize {
		return nil, fmt.Errorf("extension account is %d bytes, want %d", len(data), ExtensionDataSize)
	}
	if !bytes.Equal(data[:8], MetadataExtensionDiscriminator[:]) {
		return nil, ErrDiscriminatorMismatch
	}

	ext := &MetadataExtension{
		AgentID: binary.LittleEndian.Uint64(data[8:16]),
	}

	key := data[16 : 16+ExtensionKeySize]
	if i := bytes.IndexByte(key, 0); i >= 0 {
		ext.Key = string(key[:i])
	} else {
		ext.Key = string(key)
	}

	valueLen := binary.LittleEndian.Uint32(data[48:52])
	if valueLen > ExtensionValueCap {
		return nil, fmt.Errorf("extension value length %d exceeds capacity %d", valueLen, ExtensionValueCap)
	}
	ext.Value = make([]byte, valueLen)
	copy(ext.Value, data[52:52+valueLen])

	ext.Index = binary.LittleEndian.Uint16(data[52+ExtensionValueCap : 52+ExtensionValueCap+2])
	ext.Bump = data[ExtensionDataSize-1]
	return ext, nil
}

// FeedbackAccount is a single peer feedback record left by a client for an
// agent. Score aggregation happens on chain and in the indexer, never here.
type FeedbackAccount struct {
	AgentID   uint64
	Client    solana.PublicKey
	Score     uint8
	Tag       string
	URI       string
	CreatedAt int64
	Bump      uint8
}

// DecodeFeedbackAccount decodes a feedback record.
func DecodeFeedbackAccount(data []byte) (*FeedbackAccount, error) {
	body, err := checkDiscriminator(data, FeedbackAccountDiscriminator)
	if err != nil {
		return nil, err
	}
	var fb FeedbackAccount
	if err := bin.NewBorshDecoder(body).Decode(&fb); err != nil {
		return nil, fmt.Errorf("decode feedback account: %w", err)
	}
	return &fb, nil
}

// ValidationAccount is a validator's recorded outcome for an agent.
type ValidationAccount struct {
	AgentID   uint64
	Validator solana.PublicKey
	Response  uint8
	URI       string
	CreatedAt int64
	Bump      uint8
}

// DecodeValidationAccount decodes a validation record.
func DecodeValidationAccount(data []byte) (*ValidationAccount, error) {
	body, err := checkDiscriminator(data, ValidationAccountDiscriminator)
	if err != nil {
		return nil, err
	}
	var v ValidationAccount
	if err := bin.NewBorshDecoder(body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode validation account: %w", err)
	}
	return &v, nil
}
