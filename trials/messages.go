package trials

// Banner messages.
const (
	MsgConnectWallet      = "Please connect wallet first"
	MsgInitFailed         = "FHEVM initialization failed"
	MsgLoadFailed         = "Failed to load data"
	MsgCreating           = "Creating trial with FHE encryption..."
	MsgAwaitingConfirm    = "Waiting for transaction confirmation..."
	MsgCreated            = "Trial created successfully!"
	MsgRejected           = "Transaction rejected by user"
	MsgSubmissionFailed   = "Submission failed: "
	MsgStoredVerified     = "Data already verified on-chain"
	MsgVerifying          = "Verifying decryption on-chain..."
	MsgVerified           = "Data decrypted and verified successfully!"
	MsgRaceVerified       = "Data is already verified on-chain"
	MsgDecryptionFailed   = "Decryption failed: "
	MsgContractAvailable  = "Contract is available and working!"
	MsgContractTestFailed = "Contract test failed"
)
