// Package metadata builds credential metadata documents and publishes them
// to object storage.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// Attribute follows the ERC-721 metadata convention.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Document is the JSON a credential's tokenURI resolves to.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Attributes  []Attribute `json:"attributes"`

	CredentialType string         `json:"credential_type"`
	Issuer         string         `json:"issuer"`
	Recipient      string         `json:"recipient"`
	IssuedAt       string         `json:"issued_at"`
	Claims         map[string]any `json:"claims,omitempty"`
}

// DocumentInput is what the issuance pipeline knows about a credential.
type DocumentInput struct {
	CredentialType string
	Issuer         string
	Recipient      string
	Name           string
	Description    string
	Image          string
	Claims         map[string]any
	IssuedAt       time.Time
}

func NewDocument(in DocumentInput) Document {
	name := in.Name
	if name == "" {
		name = in.CredentialType + " credential"
	}
	return Document{
		Name:        name,
		Description: in.Description,
		Image:       in.Image,
		Attributes: []Attribute{
			{TraitType: "credential_type", Value: in.CredentialType},
			{TraitType: "issuer", Value: in.Issuer},
		},
		CredentialType: in.CredentialType,
		Issuer:         in.Issuer,
		Recipient:      in.Recipient,
		IssuedAt:       in.IssuedAt.UTC().Format(time.RFC3339),
		Claims:         in.Claims,
	}
}

// Canonical returns the RFC 8785 form so equal documents hash equally.
func (d Document) Canonical() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("metadata: marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("metadata: canonicalize: %w", err)
	}
	return out, nil
}

// ObjectKey is content addressed: prefix + sha256(canonical) + ".json".
func ObjectKey(prefix string, canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return prefix + hex.EncodeToString(sum[:]) + ".json"
}
