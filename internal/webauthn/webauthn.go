// Package webauthn defines the public-key-credential ceremony payloads
// and verifies possession proofs against them. Payloads follow the
// WebAuthn credential JSON shapes; signatures are Ed25519 over the
// ceremony nonce and sign counter.
package webauthn

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/zkvault/zkvault-server/internal/model"
)

// RelyingParty identifies the server in ceremony payloads.
type RelyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserHandle binds ceremony payloads to an identity.
type UserHandle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreationOptions is the registration ceremony payload sent to clients.
type CreationOptions struct {
	Challenge    string       `json:"challenge"`
	RelyingParty RelyingParty `json:"rp"`
	User         UserHandle   `json:"user"`
}

// RequestOptions is the login ceremony payload sent to clients.
type RequestOptions struct {
	Challenge        string   `json:"challenge"`
	RelyingPartyID   string   `json:"rpId"`
	AllowCredentials []string `json:"allowCredentials"`
}

// RegistrationProof is a client's possession proof for a new credential:
// a signature over the challenge nonce by the key being enrolled.
type RegistrationProof struct {
	CredentialID string `json:"credentialId"`
	PublicKey    string `json:"publicKey"`
	Signature    string `json:"signature"`
	SignCounter  uint32 `json:"signCounter"`
}

// AssertionProof is a client's possession proof for an enrolled
// credential during login.
type AssertionProof struct {
	CredentialID string `json:"credentialId"`
	Signature    string `json:"signature"`
	SignCounter  uint32 `json:"signCounter"`
}

// EncodeChallenge encodes a challenge nonce for transport.
func EncodeChallenge(nonce []byte) string {
	return base64.RawURLEncoding.EncodeToString(nonce)
}

// VerifyRegistration checks the proof signature over the challenge nonce
// with the public key the proof itself claims, and returns the decoded
// key for persistence. Any decode or verification failure is
// ErrProofInvalid.
func VerifyRegistration(proof RegistrationProof, nonce []byte) ([]byte, error) {
	publicKey, err := base64.RawURLEncoding.DecodeString(proof.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: bad public key encoding", model.ErrProofInvalid)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: bad public key size", model.ErrProofInvalid)
	}

	if err := verify(publicKey, proof.Signature, nonce, proof.SignCounter); err != nil {
		return nil, err
	}
	return publicKey, nil
}

// VerifyAssertion checks the proof signature over the challenge nonce
// against a stored public key.
func VerifyAssertion(publicKey []byte, proof AssertionProof, nonce []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: bad stored public key size", model.ErrProofInvalid)
	}
	return verify(publicKey, proof.Signature, nonce, proof.SignCounter)
}

func verify(publicKey []byte, signatureB64 string, nonce []byte, counter uint32) error {
	signature, err := base64.RawURLEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: bad signature encoding", model.ErrProofInvalid)
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), signedMessage(nonce, counter), signature) {
		return model.ErrProofInvalid
	}
	return nil
}

// signedMessage is the byte string a client signs: the challenge nonce
// followed by the big-endian sign counter. Binding the counter into the
// signature keeps a relayed proof from replaying with a bumped counter.
func signedMessage(nonce []byte, counter uint32) []byte {
	msg := make([]byte, len(nonce)+4)
	copy(msg, nonce)
	binary.BigEndian.PutUint32(msg[len(nonce):], counter)
	return msg
}
