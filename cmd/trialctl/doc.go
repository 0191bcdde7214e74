// Package main (cmd/trialctl) drives the trials registry from a terminal.
//
// Commands:
//
//	trialctl list [--search text]     list trials, filtered on name or description
//	trialctl stats                    print registry statistics
//	trialctl create --name --age ...  encrypt the age and enroll a patient
//	trialctl verify <trial-id>        decrypt the age and record it on-chain
//	trialctl probe                    check that the contract answers
//
// Every transaction is shown and must be confirmed with "y" unless --yes is
// given; declining aborts the workflow as a user rejection. An encrypted
// keystore (--key-source file://, s3:// or vault://) asks for its passphrase
// on the terminal when --keystore-password is not set.
package main
