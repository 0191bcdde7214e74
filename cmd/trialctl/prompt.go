package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/term"

	"github.com/ruteri/confidential-trials/wallet"
)

// readPassword is replaced in tests.
var readPassword = term.ReadPassword

// terminalPassphrase prompts for the keystore passphrase without echo.
func terminalPassphrase(w io.Writer) wallet.PassphraseFunc {
	return func() (string, error) {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return "", errors.New("keystore passphrase required: set --keystore-password or run in a terminal")
		}
		if _, err := fmt.Fprint(w, "Keystore passphrase: "); err != nil {
			return "", err
		}
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
}

// promptApprover asks for confirmation of every transaction.
type promptApprover struct {
	reader *bufio.Reader
	w      io.Writer
}

func newPromptApprover(r io.Reader, w io.Writer) *promptApprover {
	return &promptApprover{reader: bufio.NewReader(r), w: w}
}

func (p *promptApprover) Approve(ctx context.Context, from common.Address, tx *types.Transaction) (bool, error) {
	to := "contract creation"
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	fmt.Fprintf(p.w, "Sign transaction from %s to %s (nonce %d, gas %d, %d bytes of calldata)? [y/N]\n> ",
		from.Hex(), to, tx.Nonce(), tx.Gas(), len(tx.Data()))

	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
