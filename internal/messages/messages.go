// Package messages is the reply-text catalog for the attestation flow. The
// texts are presentation only; the orchestrator's contract is which message
// fires on which transition, not the wording.
package messages

import "fmt"

const (
	Welcome                 = "Welcome to the attestation service!"
	AttestationCommand      = "To get started, please use the /attest command."
	CommandAttestationAgain = "To start the attestation process again, please use the /attest command."
	SendWallet              = "Please send your own wallet address; it will be verified."
	AskAddress              = "Please send us your wallet address."
	RemoveAddress           = "You can remove your wallet address before verification by using the /remove command."

	InvalidWalletAddress = "The address you sent is not a valid wallet address. Please check it and send again."
	AddressReceived      = "Your wallet address has been received."
	HaveToVerify         = "Please verify that you own this address."
	AlreadyAttested      = "This data has already been attested."
	ConfirmQuestion      = "Is everything correct?"

	UsernameNotFound = "We could not detect your username. Please set a username in your client settings and try again."

	RemoveAddressAlreadyAttested = "Your address is already attested and can no longer be removed."
	RemoveAddressNotFound        = "There is no wallet address to remove. Use /attest to start."

	AttestationFailed     = "We could not publish your attestation. Please try again later."
	AttestationInProgress = "Your attestation is already being published. Please wait a moment."
	UnknownError          = "An error occurred while processing your request. Please try again later."
)

func WalletVerified(address string) string {
	return fmt.Sprintf("Your wallet address %s was successfully verified", address)
}

func ContinueInChat(url string) string {
	return fmt.Sprintf("Please continue in telegram: \n%s", url)
}

func AttestationUnit(explorerURL string) string {
	return fmt.Sprintf("Attestation unit: %s", explorerURL)
}

func AskVerify(address string) string {
	return fmt.Sprintf("Please verify that you own the address %s to continue.", address)
}

func AlreadyAttestedWithUnit(explorerURL string) string {
	return fmt.Sprintf("%s Attestation unit: %s", AlreadyAttested, explorerURL)
}
