// Package interfaces defines the core interfaces and types for the
// confidential trials orchestrator. It provides the contract between the
// orchestrator and its collaborators without implementation details.
package interfaces

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TrialID identifies one enrollment in the registry contract.
type TrialID string

// NewTrialID derives a trial identifier from the creation time.
func NewTrialID(now time.Time) TrialID {
	return TrialID(fmt.Sprintf("trial-%d", now.UnixMilli()))
}

// String returns the identifier as stored on-chain.
func (id TrialID) String() string {
	return string(id)
}

// CiphertextHandle is an on-chain reference to an encrypted value.
type CiphertextHandle [32]byte

// NewCiphertextHandleFromBytes copies a 32-byte handle.
func NewCiphertextHandleFromBytes(source []byte) (CiphertextHandle, error) {
	if len(source) != 32 {
		return CiphertextHandle{}, errors.New("invalid ciphertext handle: must be 32 bytes")
	}

	var h CiphertextHandle
	copy(h[:], source)
	return h, nil
}

// NewCiphertextHandleFromHex parses a 64-character hex handle, with or without 0x prefix.
func NewCiphertextHandleFromHex(source string) (CiphertextHandle, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return CiphertextHandle{}, errors.New("invalid ciphertext handle length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return CiphertextHandle{}, fmt.Errorf("invalid hex format: %w", err)
	}
	return NewCiphertextHandleFromBytes(raw)
}

// Hex returns the 0x-prefixed hex form used by the relayer.
func (h CiphertextHandle) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String returns the hex representation.
func (h CiphertextHandle) String() string {
	return h.Hex()
}

// Trial is one registry record as exposed by the contract.
// DecryptedValue carries no meaning unless IsVerified is set; use Age.
type Trial struct {
	ID             TrialID
	Name           string
	ConditionScore uint64
	TreatmentPhase uint64
	Description    string
	Creator        common.Address
	Timestamp      time.Time
	IsVerified     bool
	DecryptedValue uint32
}

// Age returns the verified clear age. ok is false while the record is still encrypted.
func (t *Trial) Age() (age uint32, ok bool) {
	if !t.IsVerified {
		return 0, false
	}
	return t.DecryptedValue, true
}

// ShortCreator abbreviates the creator address as 0x1234...abcd.
func (t *Trial) ShortCreator() string {
	addr := t.Creator.Hex()
	return addr[:6] + "..." + addr[38:]
}

type trialJSON struct {
	ID             TrialID `json:"id"`
	Name           string  `json:"name"`
	ConditionScore uint64  `json:"condition_score"`
	TreatmentPhase uint64  `json:"treatment_phase"`
	Description    string  `json:"description"`
	Creator        string  `json:"creator"`
	Timestamp      int64   `json:"timestamp"`
	IsVerified     bool    `json:"is_verified"`
	DecryptedAge   *uint32 `json:"decrypted_age,omitempty"`
}

// MarshalJSON renders the record for the view. The clear age is only
// included once the record is verified on-chain.
func (t Trial) MarshalJSON() ([]byte, error) {
	out := trialJSON{
		ID:             t.ID,
		Name:           t.Name,
		ConditionScore: t.ConditionScore,
		TreatmentPhase: t.TreatmentPhase,
		Description:    t.Description,
		Creator:        t.Creator.Hex(),
		Timestamp:      t.Timestamp.Unix(),
		IsVerified:     t.IsVerified,
	}
	if age, ok := t.Age(); ok {
		out.DecryptedAge = &age
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *Trial) UnmarshalJSON(data []byte) error {
	var in trialJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Creator != "" && !common.IsHexAddress(in.Creator) {
		return fmt.Errorf("invalid creator address %q", in.Creator)
	}

	*t = Trial{
		ID:             in.ID,
		Name:           in.Name,
		ConditionScore: in.ConditionScore,
		TreatmentPhase: in.TreatmentPhase,
		Description:    in.Description,
		Creator:        common.HexToAddress(in.Creator),
		Timestamp:      time.Unix(in.Timestamp, 0),
		IsVerified:     in.IsVerified,
	}
	if in.DecryptedAge != nil {
		t.DecryptedValue = *in.DecryptedAge
	}
	return nil
}

// TrialInput carries the fields collected by the creation workflow.
// Age is the only field that leaves the process encrypted.
type TrialInput struct {
	Name           string `json:"name"`
	Age            uint32 `json:"age"`
	ConditionScore uint64 `json:"condition_score"`
	TreatmentPhase uint64 `json:"treatment_phase"`
	Description    string `json:"description"`
}

// Validate checks the public field ranges accepted by the registry.
func (in TrialInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: patient name is required", ErrInvalidInput)
	}
	if in.ConditionScore < 1 || in.ConditionScore > 10 {
		return fmt.Errorf("%w: condition score %d out of range 1-10", ErrInvalidInput, in.ConditionScore)
	}
	if in.TreatmentPhase > 10 {
		return fmt.Errorf("%w: treatment phase %d out of range 0-10", ErrInvalidInput, in.TreatmentPhase)
	}
	return nil
}

// EncryptedInput is the output of the FHE encryption client: an input
// handle plus the zero-knowledge proof that it encrypts a well-formed value.
type EncryptedInput struct {
	Handle CiphertextHandle
	Proof  []byte
}

// DecryptionResult holds the clear values produced by the decryption protocol.
type DecryptionResult struct {
	ClearValues map[CiphertextHandle]*big.Int
	TxHash      common.Hash
}
