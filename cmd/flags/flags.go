package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/confidential-trials/common"
	"github.com/ruteri/confidential-trials/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	Value:   "http://127.0.0.1:8545",
	Usage:   "address to connect to RPC",
	EnvVars: []string{"TRIALS_RPC_ADDR"},
}

var ContractAddrFlag = &cli.StringFlag{
	Name:     "contract",
	Required: true,
	Usage:    "trials registry contract address, 0x-prefixed hex",
	EnvVars:  []string{"TRIALS_CONTRACT"},
}

var RelayerURLFlag = &cli.StringFlag{
	Name:    "relayer-url",
	Value:   "http://127.0.0.1:3000",
	Usage:   "FHE relayer base URL",
	EnvVars: []string{"TRIALS_RELAYER_URL"},
}

var ChainIDFlag = &cli.Int64Flag{
	Name:    "chain-id",
	Value:   0,
	Usage:   "chain id to sign for, 0 queries the RPC",
	EnvVars: []string{"TRIALS_CHAIN_ID"},
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	Usage:   "hex-encoded signing key",
	EnvVars: []string{"TRIALS_PRIVATE_KEY"},
}

var KeySourceFlag = &cli.StringFlag{
	Name:    "key-source",
	Usage:   "signing key location: env://VAR, file:///path/keystore.json, s3://bucket/key, vault://host:port/mount/path",
	EnvVars: []string{"TRIALS_KEY_SOURCE"},
}

var KeystorePasswordFlag = &cli.StringFlag{
	Name:    "keystore-password",
	Usage:   "passphrase for keystore key sources",
	EnvVars: []string{"TRIALS_KEYSTORE_PASSWORD"},
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "confidential-trials",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var ChainFlags = []cli.Flag{
	RpcAddrFlag,
	ContractAddrFlag,
	RelayerURLFlag,
	ChainIDFlag,
	PrivateKeyFlag,
	KeySourceFlag,
	KeystorePasswordFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
