// Package interfaces defines the types shared by the trials orchestrator and
// its three external collaborators.
//
// # Collaborators
//
// TrialRegistry: the on-chain registry. TrialReader covers enumeration,
// per-trial fetch, ciphertext handle lookup and the availability probe;
// BindSigner yields a TrialWriter for creation and verification writes.
//
// FHEClient: the FHE relayer. Encryptor produces an input handle and proof
// for a plaintext age; DecryptionVerifier decrypts handles and records the
// result on-chain through a SubmitFunc callback.
//
// Wallet: the connected account and its signer.
//
// # Errors
//
// Workflow failures are classified with errors.Is against the sentinels in
// errors.go. ErrAlreadyVerified is a benign race rather than a failure.
//
// # Confidentiality
//
// Trial.DecryptedValue must not be displayed unless Trial.IsVerified is set.
// Trial.Age and the JSON encoding of Trial enforce this.
package interfaces
