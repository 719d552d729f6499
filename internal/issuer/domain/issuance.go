package domain

import "time"

// TokenIDUnknown is recorded when a mined receipt carried no Transfer log
// from the credential contract.
const TokenIDUnknown = "0"

// Issuance is the durable record of a minted credential.
type Issuance struct {
	ID               string
	DelegationID     string
	IssuerAddress    string
	RecipientAddress string
	CredentialType   string
	TokenID          string
	TxHash           string
	MetadataURI      string
	RiskLevel        string // empty when the risk gate was skipped
	RiskScore        int
	CreatedAt        time.Time
}

// RecipientHistory summarises what has been issued to one address.
type RecipientHistory struct {
	TotalCredentials   int
	ActiveCredentials  int
	RevokedCredentials int
	CredentialTypes    []string
}
