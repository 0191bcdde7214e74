package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TrialsRegistryABI is the subset of the deployed registry contract ABI used by this client.
const TrialsRegistryABI = `[
	{"type":"function","name":"getAllBusinessIds","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"string[]"}]},
	{"type":"function","name":"getBusinessData","stateMutability":"view",
	 "inputs":[{"name":"businessId","type":"string"}],
	 "outputs":[
		{"name":"name","type":"string"},
		{"name":"publicValue1","type":"uint256"},
		{"name":"publicValue2","type":"uint256"},
		{"name":"description","type":"string"},
		{"name":"creator","type":"address"},
		{"name":"timestamp","type":"uint256"},
		{"name":"isVerified","type":"bool"},
		{"name":"decryptedValue","type":"uint32"}]},
	{"type":"function","name":"getEncryptedValue","stateMutability":"view",
	 "inputs":[{"name":"businessId","type":"string"}],
	 "outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"isAvailable","stateMutability":"pure","inputs":[],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"createBusinessData","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"businessId","type":"string"},
		{"name":"name","type":"string"},
		{"name":"encryptedValue","type":"bytes32"},
		{"name":"inputProof","type":"bytes"},
		{"name":"publicValue1","type":"uint256"},
		{"name":"publicValue2","type":"uint256"},
		{"name":"description","type":"string"}],
	 "outputs":[]},
	{"type":"function","name":"verifyDecryption","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"businessId","type":"string"},
		{"name":"abiEncodedClearValue","type":"bytes"},
		{"name":"decryptionProof","type":"bytes"}],
	 "outputs":[]}
]`

// Contract method names.
const (
	methodAllIDs        = "getAllBusinessIds"
	methodTrial         = "getBusinessData"
	methodHandle        = "getEncryptedValue"
	methodAvailable     = "isAvailable"
	methodCreate        = "createBusinessData"
	methodVerify        = "verifyDecryption"
	revertAlreadyVerify = "Data already verified"
)

// ParsedABI is the parsed form of TrialsRegistryABI.
var ParsedABI = mustParseABI(TrialsRegistryABI)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}
