// Package wallet provides the connected signer used by the orchestrator.
//
// A Session holds one private key loaded from a KeySource. Keys can come
// from a hex string (flag or environment variable), a go-ethereum keystore
// file, a keystore object in S3, or a HashiCorp Vault KV v2 secret. Use
// KeySourceFor to build a source from a URI such as
//
//	file:///home/operator/keystore.json
//	s3://wallets/operator/keystore.json?region=eu-west-1
//	vault://vault.internal:8200/secret/trials/operator
//
// Every signature requested through Session.TransactOpts is passed to an
// Approver first; a declined transaction fails with interfaces.ErrUserRejected.
package wallet
