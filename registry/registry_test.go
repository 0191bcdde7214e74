package registry

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ruteri/confidential-trials/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContractAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")

// fakeBackend answers eth_call by ABI-encoding canned outputs per method.
// Every other backend method is left nil and panics if reached.
type fakeBackend struct {
	bind.ContractBackend

	outputs   map[string][]interface{}
	trialErrs map[string]error
	calls     []string
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method, err := ParsedABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, method.Name)

	if method.Name == methodTrial {
		if err := f.trialErrs[args[0].(string)]; err != nil {
			return nil, err
		}
	}

	outputs, ok := f.outputs[method.Name]
	if !ok {
		return nil, fmt.Errorf("unexpected call to %s", method.Name)
	}
	return method.Outputs.Pack(outputs...)
}

func (f *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

type fakeDeployBackend struct {
	bind.DeployBackend
}

func newFakeClient(t *testing.T, backend *fakeBackend) *OnchainTrialsClient {
	client, err := NewOnchainTrialsClient(backend, &fakeDeployBackend{}, testContractAddr)
	require.NoError(t, err)
	return client
}

func TestOnchainTrialsClient_Reads(t *testing.T) {
	creator := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	handle := [32]byte{0xde, 0xad, 0xbe, 0xef}

	backend := &fakeBackend{
		outputs: map[string][]interface{}{
			methodAllIDs: {[]string{"trial-1", "trial-2"}},
			methodTrial: {
				"patient-a",
				big.NewInt(7),
				big.NewInt(2),
				"mild asthma",
				creator,
				big.NewInt(1700000000),
				true,
				uint32(34),
			},
			methodHandle:    {handle},
			methodAvailable: {true},
		},
	}
	client := newFakeClient(t, backend)
	ctx := context.Background()

	ids, err := client.AllTrialIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.TrialID{"trial-1", "trial-2"}, ids)

	trial, err := client.Trial(ctx, "trial-1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.TrialID("trial-1"), trial.ID)
	assert.Equal(t, "patient-a", trial.Name)
	assert.Equal(t, uint64(7), trial.ConditionScore)
	assert.Equal(t, uint64(2), trial.TreatmentPhase)
	assert.Equal(t, "mild asthma", trial.Description)
	assert.Equal(t, creator, trial.Creator)
	assert.Equal(t, int64(1700000000), trial.Timestamp.Unix())
	assert.True(t, trial.IsVerified)
	assert.Equal(t, uint32(34), trial.DecryptedValue)

	gotHandle, err := client.CiphertextHandle(ctx, "trial-1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.CiphertextHandle(handle), gotHandle)

	available, err := client.IsAvailable(ctx)
	require.NoError(t, err)
	assert.True(t, available)

	assert.Equal(t, []string{methodAllIDs, methodTrial, methodHandle, methodAvailable}, backend.calls)
}

func TestOnchainTrialsClient_ReadErrorsAreFetchFailures(t *testing.T) {
	backend := &fakeBackend{
		outputs:   map[string][]interface{}{},
		trialErrs: map[string]error{"trial-9": errors.New("execution reverted: Business data does not exist")},
	}
	client := newFakeClient(t, backend)

	_, err := client.Trial(context.Background(), "trial-9")
	assert.ErrorIs(t, err, interfaces.ErrFetchFailure)

	_, err = client.AllTrialIDs(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrFetchFailure)
}

func TestOnchainTrialsClient_WritesRequireSigner(t *testing.T) {
	client := newFakeClient(t, &fakeBackend{})

	_, err := client.CreateTrial(context.Background(), "trial-1", interfaces.TrialInput{}, &interfaces.EncryptedInput{})
	assert.ErrorIs(t, err, ErrNoTransactOpts)

	_, err = client.SubmitVerification(context.Background(), "trial-1", nil, nil)
	assert.ErrorIs(t, err, ErrNoTransactOpts)
}

func TestOnchainTrialsClient_CreateTrialTransaction(t *testing.T) {
	backend, auth, _, err := SetupTestChain()
	require.NoError(t, err)
	defer backend.Close()

	client, err := NewOnchainTrialsClient(backend.Client(), backend.Client(), testContractAddr)
	require.NoError(t, err)

	// No code is deployed at the address; a fixed gas limit skips estimation
	// so the calldata can be inspected on the mined transaction.
	auth.GasLimit = 1_000_000
	writer := client.BindSigner(auth)

	encrypted := &interfaces.EncryptedInput{
		Handle: interfaces.CiphertextHandle{0x01, 0x02, 0x03},
		Proof:  []byte{0xaa, 0xbb},
	}
	input := interfaces.TrialInput{
		Name:           "patient-a",
		Age:            34,
		ConditionScore: 7,
		TreatmentPhase: 2,
		Description:    "mild asthma",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := writer.CreateTrial(ctx, "trial-1", input, encrypted)
	require.NoError(t, err)
	backend.Commit()

	receipt, err := writer.WaitConfirmed(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	require.NotNil(t, tx.To())
	assert.Equal(t, testContractAddr, *tx.To())

	method := ParsedABI.Methods[methodCreate]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, "trial-1", args[0])
	assert.Equal(t, "patient-a", args[1])
	assert.Equal(t, [32]byte(encrypted.Handle), args[2])
	assert.Equal(t, encrypted.Proof, args[3])
	assert.Equal(t, big.NewInt(7), args[4])
	assert.Equal(t, big.NewInt(2), args[5])
	assert.Equal(t, "mild asthma", args[6])

	// The read-only handle stays unsigned.
	_, err = client.SubmitVerification(ctx, "trial-1", nil, nil)
	assert.ErrorIs(t, err, ErrNoTransactOpts)
}

type testDataError struct {
	msg  string
	data interface{}
}

func (e testDataError) Error() string          { return e.msg }
func (e testDataError) ErrorData() interface{} { return e.data }

func encodeRevert(t *testing.T, reason string) string {
	stringTy, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringTy}}.Pack(reason)
	require.NoError(t, err)
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, packed...))
}

func TestClassifyTransactError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "revert data already verified",
			err:  testDataError{msg: "execution reverted", data: encodeRevert(t, revertAlreadyVerify)},
			want: interfaces.ErrAlreadyVerified,
		},
		{
			name: "revert message already verified",
			err:  errors.New("execution reverted: Data already verified"),
			want: interfaces.ErrAlreadyVerified,
		},
		{
			name: "other revert",
			err:  testDataError{msg: "execution reverted", data: encodeRevert(t, "Invalid proof")},
			want: interfaces.ErrSubmissionFailure,
		},
		{
			name: "user rejected",
			err:  fmt.Errorf("signing: %w", interfaces.ErrUserRejected),
			want: interfaces.ErrUserRejected,
		},
		{
			name: "transport",
			err:  errors.New("connection refused"),
			want: interfaces.ErrSubmissionFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyTransactError(tt.err), tt.want)
		})
	}

	assert.NotErrorIs(t, classifyTransactError(errors.New("execution reverted: Invalid proof")), interfaces.ErrAlreadyVerified)
}

func TestMockRegistryClient_Lifecycle(t *testing.T) {
	ctx := context.Background()
	reg := NewMockRegistryClient(testContractAddr)
	auth := &bind.TransactOpts{From: common.HexToAddress("0x00000000000000000000000000000000000000aa")}
	writer := reg.BindSigner(auth)

	_, err := writer.CreateTrial(ctx, "trial-1", interfaces.TrialInput{Name: "p", ConditionScore: 3, TreatmentPhase: 1}, &interfaces.EncryptedInput{Handle: interfaces.CiphertextHandle{0x09}})
	require.NoError(t, err)

	ids, err := reg.AllTrialIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.TrialID{"trial-1"}, ids)

	trial, err := reg.Trial(ctx, "trial-1")
	require.NoError(t, err)
	assert.False(t, trial.IsVerified)
	assert.Equal(t, auth.From, trial.Creator)

	uint256Ty, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	clear, err := abi.Arguments{{Type: uint256Ty}}.Pack(big.NewInt(34))
	require.NoError(t, err)

	_, err = writer.SubmitVerification(ctx, "trial-1", clear, []byte{0x01})
	require.NoError(t, err)

	trial, err = reg.Trial(ctx, "trial-1")
	require.NoError(t, err)
	age, ok := trial.Age()
	assert.True(t, ok)
	assert.Equal(t, uint32(34), age)

	_, err = writer.SubmitVerification(ctx, "trial-1", clear, []byte{0x01})
	assert.ErrorIs(t, err, interfaces.ErrAlreadyVerified)
}

// SetupTestChain creates a simulated blockchain with one funded account.
func SetupTestChain() (*simulated.Backend, *bind.TransactOpts, *ecdsa.PrivateKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, big.NewInt(1337))
	if err != nil {
		return nil, nil, nil, err
	}

	balance := new(big.Int)
	balance.SetString("10000000000000000000", 10) // 10 ETH

	genesisAlloc := map[common.Address]types.Account{
		auth.From: {Balance: balance},
	}

	backend := simulated.NewBackend(genesisAlloc, simulated.WithBlockGasLimit(8000000))
	return backend, auth, privateKey, nil
}
