package flags

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	trialscommon "github.com/ruteri/confidential-trials/common"
	"github.com/ruteri/confidential-trials/fhe"
	"github.com/ruteri/confidential-trials/metrics"
	"github.com/ruteri/confidential-trials/registry"
	"github.com/ruteri/confidential-trials/trials"
	"github.com/ruteri/confidential-trials/wallet"
)

// Stack is the orchestrator with the collaborators it was built from.
type Stack struct {
	Orchestrator *trials.Orchestrator
	Session      *wallet.Session
	Registry     *registry.OnchainTrialsClient
	Relayer      *fhe.RelayerClient
	Metrics      *metrics.Recorder

	eth *ethclient.Client
}

// Close releases the RPC connection.
func (s *Stack) Close() {
	s.eth.Close()
}

// BuildStack dials the RPC and wires the registry, relayer and wallet into
// an orchestrator. The wallet is connected when a key flag is set.
// passphrase is used when the keystore password flag is empty.
func BuildStack(cCtx *cli.Context, log *slog.Logger, approver wallet.Approver, passphrase wallet.PassphraseFunc) (*Stack, error) {
	contract := cCtx.String(ContractAddrFlag.Name)
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid contract address: %q", contract)
	}
	contractAddr := common.HexToAddress(contract)

	rpcAddress := cCtx.String(RpcAddrFlag.Name)
	log.Info("Connecting to Ethereum RPC", "address", rpcAddress)
	ethClient, err := ethclient.DialContext(cCtx.Context, rpcAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	chainID := big.NewInt(cCtx.Int64(ChainIDFlag.Name))
	if chainID.Sign() == 0 {
		chainID, err = ethClient.ChainID(cCtx.Context)
		if err != nil {
			ethClient.Close()
			return nil, fmt.Errorf("failed to query chain id: %w", err)
		}
	}

	reg, err := registry.NewOnchainTrialsClient(ethClient, ethClient, contractAddr)
	if err != nil {
		ethClient.Close()
		return nil, err
	}

	relayer := fhe.NewRelayerClient(cCtx.String(RelayerURLFlag.Name), reg, log)
	session := wallet.NewSession(chainID, approver, log)
	recorder := metrics.NewRecorder(trialscommon.PackageName)

	if password := cCtx.String(KeystorePasswordFlag.Name); password != "" {
		passphrase = wallet.StaticPassphrase(password)
	}
	source, err := keySource(cCtx, passphrase, log)
	if err != nil {
		ethClient.Close()
		return nil, err
	}
	if source != nil {
		if _, err := session.Connect(cCtx.Context, source); err != nil {
			ethClient.Close()
			return nil, err
		}
	} else {
		log.Warn("No signing key configured, wallet stays disconnected")
	}

	orchestrator := trials.NewOrchestrator(trials.Config{
		Log:     log,
		Metrics: recorder,
	}, reg, relayer, session)

	return &Stack{
		Orchestrator: orchestrator,
		Session:      session,
		Registry:     reg,
		Relayer:      relayer,
		Metrics:      recorder,
		eth:          ethClient,
	}, nil
}

func keySource(cCtx *cli.Context, passphrase wallet.PassphraseFunc, log *slog.Logger) (wallet.KeySource, error) {
	hexKey := cCtx.String(PrivateKeyFlag.Name)
	uri := cCtx.String(KeySourceFlag.Name)

	switch {
	case hexKey != "" && uri != "":
		return nil, errors.New("only one of --private-key and --key-source may be set")
	case hexKey != "":
		return wallet.NewHexKeySource(hexKey, PrivateKeyFlag.Name), nil
	case uri != "":
		return wallet.KeySourceFor(uri, passphrase, log)
	default:
		return nil, nil
	}
}
