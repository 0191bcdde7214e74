package interfaces

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrialID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, TrialID("trial-1700000000123"), NewTrialID(now))
}

func TestCiphertextHandle_Hex(t *testing.T) {
	h := CiphertextHandle{0xab, 0xcd}
	parsed, err := NewCiphertextHandleFromHex(h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = NewCiphertextHandleFromHex("0x1234")
	assert.Error(t, err)

	_, err = NewCiphertextHandleFromBytes(make([]byte, 31))
	assert.Error(t, err)
}

func TestTrial_AgeHiddenUntilVerified(t *testing.T) {
	trial := Trial{
		ID:             "trial-1",
		Name:           "patient",
		Creator:        common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Timestamp:      time.Unix(1700000000, 0),
		DecryptedValue: 34,
	}

	_, ok := trial.Age()
	assert.False(t, ok)

	encoded, err := json.Marshal(trial)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "decrypted_age")

	trial.IsVerified = true
	age, ok := trial.Age()
	assert.True(t, ok)
	assert.Equal(t, uint32(34), age)

	encoded, err = json.Marshal(trial)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"decrypted_age":34`)
	assert.Contains(t, string(encoded), `"timestamp":1700000000`)

	var decoded Trial
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, trial, decoded)
}

func TestTrial_ShortCreator(t *testing.T) {
	trial := Trial{Creator: common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")}
	assert.Equal(t, "0x1234...5678", trial.ShortCreator())
}

func TestTrialInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   TrialInput
		wantErr bool
	}{
		{"valid", TrialInput{Name: "p", Age: 34, ConditionScore: 7, TreatmentPhase: 2}, false},
		{"empty name", TrialInput{Name: " ", ConditionScore: 7}, true},
		{"condition too low", TrialInput{Name: "p", ConditionScore: 0}, true},
		{"condition too high", TrialInput{Name: "p", ConditionScore: 11}, true},
		{"phase too high", TrialInput{Name: "p", ConditionScore: 5, TreatmentPhase: 11}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
