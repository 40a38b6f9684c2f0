package program

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// methodDiscriminator computes the Anchor-style discriminator for a program
// method name.
func methodDiscriminator(name string) [8]byte {
	h := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], h[:8])
	return d
}

var (
	registerAgentDiscriminator    = methodDiscriminator("register_agent")
	updateMetadataDiscriminator   = methodDiscriminator("update_metadata")
	addExtensionDiscriminator     = methodDiscriminator("add_extension")
	submitFeedbackDiscriminator   = methodDiscriminator("submit_feedback")
	submitValidationDiscriminator = methodDiscriminator("submit_validation")
)

// encodeInstructionData borsh-encodes args behind a method discriminator.
func encodeInstructionData(disc [8]byte, args any) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("encode instruction args: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// validateMetadataEntry enforces the program's inline metadata bounds
// client-side so oversized entries fail before a transaction is built.
func validateMetadataEntry(e MetadataEntry) error {
	if e.Key == "" {
		return fmt.Errorf("metadata key must not be empty")
	}
	if len(e.Key) > MaxMetadataKeyLen {
		return fmt.Errorf("metadata key %q is %d bytes, cap is %d", e.Key, len(e.Key), MaxMetadataKeyLen)
	}
	if len(e.Value) > MaxInlineValueLen {
		return fmt.Errorf("metadata value for %q is %d bytes, cap is %d", e.Key, len(e.Value), MaxInlineValueLen)
	}
	return nil
}

func validateInlineMetadata(entries []MetadataEntry) error {
	if len(entries) > MaxInlineMetadata {
		return fmt.Errorf("%d inline metadata entries, program cap is %d", len(entries), MaxInlineMetadata)
	}
	for _, e := range entries {
		if err := validateMetadataEntry(e); err != nil {
			return err
		}
	}
	return nil
}

type registerAgentArgs struct {
	AgentID       uint64
	DescriptorURI string
	Metadata      []MetadataEntry
}

// NewRegisterAgentInstruction builds the register_agent instruction. The
// caller assigns agentID from the registry configuration's current agent
// count; the program re-checks the assignment on chain. mint must sign the
// transaction alongside payer.
func NewRegisterAgentInstruction(payer, owner, mint solana.PublicKey, agentID uint64, descriptorURI string, metadata []MetadataEntry) (solana.Instruction, error) {
	if err := validateInlineMetadata(metadata); err != nil {
		return nil, err
	}
	config, _, err := ConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}
	idRecord, _, err := AgentIDAddress(agentID)
	if err != nil {
		return nil, fmt.Errorf("derive agent id address: %w", err)
	}
	agent, _, err := AgentAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive agent address: %w", err)
	}
	data, err := encodeInstructionData(registerAgentDiscriminator, registerAgentArgs{
		AgentID:       agentID,
		DescriptorURI: descriptorURI,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(config, true, false),
		solana.NewAccountMeta(idRecord, true, false),
		solana.NewAccountMeta(agent, true, false),
		solana.NewAccountMeta(mint, true, true),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data), nil
}

type updateMetadataArgs struct {
	DescriptorURI string
	Metadata      []MetadataEntry
}

// NewUpdateMetadataInstruction builds the update_metadata instruction,
// replacing the agent's descriptor URI and inline metadata. owner must sign.
func NewUpdateMetadataInstruction(agent, owner solana.PublicKey, descriptorURI string, metadata []MetadataEntry) (solana.Instruction, error) {
	if err := validateInlineMetadata(metadata); err != nil {
		return nil, err
	}
	data, err := encodeInstructionData(updateMetadataDiscriminator, updateMetadataArgs{
		DescriptorURI: descriptorURI,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(agent, true, false),
		solana.NewAccountMeta(owner, false, true),
	}, data), nil
}

type addExtensionArgs struct {
	Index uint16
	Key   string
	Value []byte
}

// NewAddExtensionInstruction builds the add_extension instruction creating
// the metadata extension account at the given index. Extensions must be
// appended densely: index equals the agent's current extension count.
func NewAddExtensionInstruction(agent, owner, payer solana.PublicKey, index uint16, key string, value []byte) (solana.Instruction, error) {
	if key == "" || len(key) > ExtensionKeySize {
		return nil, fmt.Errorf("extension key must be 1..%d bytes, got %d", ExtensionKeySize, len(key))
	}
	if len(value) > ExtensionValueCap {
		return nil, fmt.Errorf("extension value is %d bytes, cap is %d", len(value), ExtensionValueCap)
	}
	extension, _, err := ExtensionAddress(agent, index)
	if err != nil {
		return nil, fmt.Errorf("derive extension address: %w", err)
	}
	data, err := encodeInstructionData(addExtensionDiscriminator, addExtensionArgs{
		Index: index,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(agent, true, false),
		solana.NewAccountMeta(extension, true, false),
		solana.NewAccountMeta(owner, false, true),
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data), nil
}

type submitFeedbackArgs struct {
	Score uint8
	Tag   string
	URI   string
	Nonce uint64
}

// NewSubmitFeedbackInstruction builds the submit_feedback instruction.
// client signs and pays for the feedback account.
func NewSubmitFeedbackInstruction(agent, client solana.PublicKey, score uint8, tag, uri string, nonce uint64) (solana.Instruction, error) {
	feedback, _, err := FeedbackAddress(agent, client, nonce)
	if err != nil {
		return nil, fmt.Errorf("derive feedback address: %w", err)
	}
	data, err := encodeInstructionData(submitFeedbackDiscriminator, submitFeedbackArgs{
		Score: score,
		Tag:   tag,
		URI:   uri,
		Nonce: nonce,
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(agent, false, false),
		solana.NewAccountMeta(feedback, true, false),
		solana.NewAccountMeta(client, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data), nil
}

type submitValidationArgs struct {
	Response uint8
	URI      string
}

// NewSubmitValidationInstruction builds the submit_validation instruction.
// validator signs and pays for the validation account.
func NewSubmitValidationInstruction(agent, validator solana.PublicKey, response uint8, uri string) (solana.Instruction, error) {
	validation, _, err := ValidationAddress(agent, validator)
	if err != nil {
		return nil, fmt.Errorf("derive validation address: %w", err)
	}
	data, err := encodeInstructionData(submitValidationDiscriminator, submitValidationArgs{
		Response: response,
		URI:      uri,
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(agent, false, false),
		solana.NewAccountMeta(validation, true, false),
		solana.NewAccountMeta(validator, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data), nil
}
