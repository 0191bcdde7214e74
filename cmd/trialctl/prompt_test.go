package main

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

func TestPromptApprover(t *testing.T) {
	from := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	to := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	tx := types.NewTx(&types.LegacyTx{Nonce: 3, To: &to, Gas: 90000, GasPrice: big.NewInt(1), Data: []byte{1, 2, 3}})

	tests := []struct {
		input    string
		approved bool
		err      bool
	}{
		{"y\n", true, false},
		{"YES\n", true, false},
		{"n\n", false, false},
		{"\n", false, false},
		{"y", true, false},
		{"", false, true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		approved, err := newPromptApprover(strings.NewReader(tt.input), &out).Approve(context.Background(), from, tx)
		if tt.err {
			assert.Error(t, err)
		} else {
			require.NoError(t, err)
		}
		assert.Equal(t, tt.approved, approved, "input %q", tt.input)
		assert.Contains(t, out.String(), "nonce 3")
	}
}

func TestTerminalPassphraseRequiresTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		t.Skip("stdin is a terminal")
	}
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return nil, errors.New("unexpected read") }
	defer func() { readPassword = orig }()

	var out bytes.Buffer
	_, err := terminalPassphrase(&out)()
	assert.Error(t, err)
}
