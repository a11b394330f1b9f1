package webauthn

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
)

// KeyPair is a client-side possession credential key pair.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 credential key pair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// SignRegistration produces a registration proof for a challenge.
func (kp KeyPair) SignRegistration(credentialID string, nonce []byte) RegistrationProof {
	sig := ed25519.Sign(kp.PrivateKey, signedMessage(nonce, 0))
	return RegistrationProof{
		CredentialID: credentialID,
		PublicKey:    base64.RawURLEncoding.EncodeToString(kp.PublicKey),
		Signature:    base64.RawURLEncoding.EncodeToString(sig),
		SignCounter:  0,
	}
}

// SignAssertion produces a login proof for a challenge at the given
// sign counter.
func (kp KeyPair) SignAssertion(credentialID string, nonce []byte, counter uint32) AssertionProof {
	sig := ed25519.Sign(kp.PrivateKey, signedMessage(nonce, counter))
	return AssertionProof{
		CredentialID: credentialID,
		Signature:    base64.RawURLEncoding.EncodeToString(sig),
		SignCounter:  counter,
	}
}
