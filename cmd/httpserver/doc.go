// Package main (cmd/httpserver) runs the confidential trials orchestrator
// behind its JSON API.
//
// On start the server dials the RPC endpoint, binds the registry contract,
// connects the wallet when a signing key is configured and initializes the
// FHE relayer client. Initialization failures are logged and shown on the
// status banner; the API starts regardless and refuses creation and
// verification until the relayer is ready.
//
// Example:
//
//	trials-server \
//	  --rpc-addr https://sepolia.example.org \
//	  --contract 0x5FbDB2315678afecb367f032d93F642f64180aa3 \
//	  --relayer-url https://relayer.example.org \
//	  --key-source vault://vault.internal:8200/secret/trials/operator \
//	  --listen-addr 0.0.0.0:8080 --metrics-addr 0.0.0.0:8090
//
// The server shuts down gracefully on SIGINT or SIGTERM.
package main
