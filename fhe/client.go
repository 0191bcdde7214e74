// Package fhe implements the FHE encryption and decryption/verification
// clients on top of the relayer's HTTP API.
package fhe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/atomic"

	"github.com/ruteri/confidential-trials/interfaces"
)

// Relayer API paths.
const (
	keyURLPath        = "/v1/keyurl"
	encryptPath       = "/v1/encrypt"
	publicDecryptPath = "/v1/public-decrypt"

	// encryptedBits is the width of the encrypted integer type stored by the registry.
	encryptedBits = 32
)

// RelayerClient implements interfaces.FHEClient against an FHE relayer.
// Verification transactions submitted through the callback are awaited
// with waiter before results are returned.
type RelayerClient struct {
	baseURL     string
	httpClient  *http.Client
	waiter      interfaces.TxWaiter
	log         *slog.Logger
	initialized atomic.Bool
}

// NewRelayerClient creates a client for the relayer at baseURL.
func NewRelayerClient(baseURL string, waiter interfaces.TxWaiter, log *slog.Logger) *RelayerClient {
	return &RelayerClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		waiter:     waiter,
		log:        log,
	}
}

type keyURLResponse struct {
	Status   string `json:"status"`
	Response struct {
		FheKeyInfo []json.RawMessage `json:"fhe_key_info"`
	} `json:"response"`
}

type encryptRequest struct {
	ContractAddress string `json:"contractAddress"`
	UserAddress     string `json:"userAddress"`
	Value           uint32 `json:"value"`
	Bits            int    `json:"bits"`
}

type encryptResponse struct {
	Handles    []string `json:"handles"`
	InputProof string   `json:"inputProof"`
}

type publicDecryptRequest struct {
	Handles         []string `json:"handles"`
	ContractAddress string   `json:"contractAddress"`
}

type publicDecryptResponse struct {
	AbiEncodedClearValues string `json:"abiEncodedClearValues"`
	DecryptionProof       string `json:"decryptionProof"`
}

// Initialize fetches the relayer key configuration. Once it succeeds,
// further calls return immediately.
func (c *RelayerClient) Initialize(ctx context.Context) error {
	if c.initialized.Load() {
		return nil
	}

	var resp keyURLResponse
	if err := c.do(ctx, http.MethodGet, keyURLPath, nil, &resp); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrInitialization, err)
	}
	if resp.Status != "" && resp.Status != "ready" && resp.Status != "succeeded" {
		return fmt.Errorf("%w: relayer status %q", interfaces.ErrInitialization, resp.Status)
	}

	c.initialized.Store(true)
	c.log.Info("FHE relayer initialized", "relayer", c.baseURL, "keys", len(resp.Response.FheKeyInfo))
	return nil
}

// Initialized reports whether Initialize has succeeded.
func (c *RelayerClient) Initialized() bool {
	return c.initialized.Load()
}

// Encrypt requests an input handle and proof for value, bound to contract and user.
func (c *RelayerClient) Encrypt(ctx context.Context, contract common.Address, user common.Address, value uint32) (*interfaces.EncryptedInput, error) {
	if !c.initialized.Load() {
		return nil, fmt.Errorf("%w: relayer not initialized", interfaces.ErrInitialization)
	}

	req := encryptRequest{
		ContractAddress: contract.Hex(),
		UserAddress:     user.Hex(),
		Value:           value,
		Bits:            encryptedBits,
	}

	var resp encryptResponse
	if err := c.do(ctx, http.MethodPost, encryptPath, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: encryption request: %w", interfaces.ErrSubmissionFailure, err)
	}
	if len(resp.Handles) != 1 {
		return nil, fmt.Errorf("%w: expected one input handle, got %d", interfaces.ErrSubmissionFailure, len(resp.Handles))
	}

	handle, err := interfaces.NewCiphertextHandleFromHex(resp.Handles[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrSubmissionFailure, err)
	}
	proof, err := hexutil.Decode(resp.InputProof)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid input proof: %w", interfaces.ErrSubmissionFailure, err)
	}

	c.log.Debug("Encrypted input", "contract", contract.Hex(), "user", user.Hex(), "handle", handle.Hex())
	return &interfaces.EncryptedInput{Handle: handle, Proof: proof}, nil
}

// VerifyDecryption decrypts handles through the relayer, submits the clear
// values and proof with submit, and waits for that transaction. Errors from
// submit are returned wrapped, so interfaces.ErrAlreadyVerified and
// interfaces.ErrUserRejected stay matchable.
func (c *RelayerClient) VerifyDecryption(ctx context.Context, handles []interfaces.CiphertextHandle, contract common.Address, submit interfaces.SubmitFunc) (*interfaces.DecryptionResult, error) {
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: no handles to decrypt", interfaces.ErrSubmissionFailure)
	}

	req := publicDecryptRequest{
		Handles:         make([]string, len(handles)),
		ContractAddress: contract.Hex(),
	}
	for i, h := range handles {
		req.Handles[i] = h.Hex()
	}

	var resp publicDecryptResponse
	if err := c.do(ctx, http.MethodPost, publicDecryptPath, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: decryption request: %w", interfaces.ErrSubmissionFailure, err)
	}

	clearValues, err := hexutil.Decode(resp.AbiEncodedClearValues)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid clear values: %w", interfaces.ErrSubmissionFailure, err)
	}
	proof, err := hexutil.Decode(resp.DecryptionProof)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid decryption proof: %w", interfaces.ErrSubmissionFailure, err)
	}

	decoded, err := DecodeClearValues(handles, clearValues)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrSubmissionFailure, err)
	}

	tx, err := submit(ctx, clearValues, proof)
	if err != nil {
		return nil, fmt.Errorf("submitting decryption proof: %w", err)
	}

	c.log.Info("Submitted decryption proof", "tx", tx.Hash().Hex(), "handles", len(handles))
	if _, err := c.waiter.WaitConfirmed(ctx, tx); err != nil {
		return nil, err
	}

	return &interfaces.DecryptionResult{ClearValues: decoded, TxHash: tx.Hash()}, nil
}

// DecodeClearValues unpacks one ABI-encoded uint256 per handle.
func DecodeClearValues(handles []interfaces.CiphertextHandle, encoded []byte) (map[interfaces.CiphertextHandle]*big.Int, error) {
	args, err := uint256Arguments(len(handles))
	if err != nil {
		return nil, err
	}
	values, err := args.Unpack(encoded)
	if err != nil {
		return nil, fmt.Errorf("could not decode clear values: %w", err)
	}

	out := make(map[interfaces.CiphertextHandle]*big.Int, len(handles))
	for i, h := range handles {
		out[h] = values[i].(*big.Int)
	}
	return out, nil
}

// EncodeClearValues is the inverse of DecodeClearValues.
func EncodeClearValues(values ...*big.Int) ([]byte, error) {
	args, err := uint256Arguments(len(values))
	if err != nil {
		return nil, err
	}
	packed := make([]interface{}, len(values))
	for i, v := range values {
		packed[i] = v
	}
	return args.Pack(packed...)
}

func uint256Arguments(n int) (abi.Arguments, error) {
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	args := make(abi.Arguments, n)
	for i := range args {
		args[i] = abi.Argument{Type: uint256Ty}
	}
	return args, nil
}

func (c *RelayerClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach relayer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("relayer returned non-200 response: %d", resp.StatusCode)
		}
		return fmt.Errorf("relayer returned error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse relayer response: %w", err)
	}
	return nil
}
