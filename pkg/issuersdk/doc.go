/*
Package issuersdk is a Go client for the credential issuer service.

# Overview

The service authenticates callers by wallet signature. An SDKClient holds
the issuer's secp256k1 key and signs a fresh challenge for every request,
or opens a short-lived session and sends the bearer token instead:

	key, _ := crypto.HexToECDSA(os.Getenv("ISSUER_KEY"))
	client := issuersdk.NewSDKClient("https://issuer.example.com", key)

	// Optional: trade one signature for a 15 minute bearer token.
	if err := client.OpenSession(ctx); err != nil {
		return err
	}

# Delegations

Register the signed delegation chain that lets the backend signer mint on
the issuer's behalf:

	d, err := client.CreateDelegation(ctx, issuersdk.CreateDelegationRequest{
		SmartAccountAddress: "0x…",
		PermissionContext:   "0x…",
		MaxCalls:            100,
	})

# Issuing

	res, err := client.IssueCredential(ctx, issuersdk.IssueCredentialRequest{
		DelegationID:   "auto",
		Recipient:      "0x…",
		CredentialType: "Membership",
	})

# Errors

Non-2xx responses are returned as *APIError. A risk rejection carries the
assessment that blocked the issuance, and a 429 carries ResetAt:

	var apiErr *issuersdk.APIError
	if errors.As(err, &apiErr) && apiErr.Risk != nil {
		log.Printf("blocked: %v", apiErr.Risk.RedFlags)
	}
*/
package issuersdk
