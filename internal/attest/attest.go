// Package attest wraps a persisted Fingerprint's JSON bytes in a DSSE
// (Dead Simple Signing Envelope) and signs/verifies it with OpenPGP,
// grounded on e3.dsse.DSSE for the envelope shape (Pre-Authentication
// Encoding, {payload, payloadType, signatures}), adapted to use
// ProtonMail/gopenpgp instead of shelling out to openssl — no
// process-spawning dependency belongs in the core or its ambient layers.
// This is optional infrastructure an executor may call after
// fingerprint.SaveToFile; the Fingerprint type itself carries no
// signing-related fields or methods.
package attest

import (
	"encoding/base64"
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"github.com/tsukumogami/pkgplan/internal/fingerprint"
)

// PayloadType identifies the envelope's payload format to a verifier that
// may see envelopes of more than one kind.
const PayloadType = "application/vnd.pkgplan.fingerprint+json"

// Signature is one detached signature over an envelope's payload.
type Signature struct {
	KeyID string `json:"keyid"`
	Sig   string `json:"sig"` // base64-encoded
}

// Envelope is a DSSE envelope: a base64 payload, its type, and zero or
// more signatures over its Pre-Authentication Encoding.
type Envelope struct {
	Payload     string      `json:"payload"`
	PayloadType string      `json:"payloadType"`
	Signatures  []Signature `json:"signatures"`
}

// pae builds the Pre-Authentication Encoding DSSEv1 signs: a
// length-prefixed, space-joined encoding of the payload type and body, so
// that a signature over it cannot be replayed against an envelope with a
// different type or truncated/extended body.
func pae(payloadType string, body []byte) []byte {
	return []byte(fmt.Sprintf("DSSEv1 %d %s %d %s",
		len(payloadType), payloadType, len(body), body))
}

// Sign wraps fp's persisted JSON form in a DSSE envelope and adds a
// detached OpenPGP signature over its PAE, identified by keyID (typically
// the signing key's fingerprint) so a verifier with several trusted keys
// knows which one to check the signature against.
func Sign(fp *fingerprint.Fingerprint, keyID, armoredPrivateKey, passphrase string) (*Envelope, error) {
	body, err := fp.JSON()
	if err != nil {
		return nil, err
	}

	key, err := crypto.NewKeyFromArmored(armoredPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("attest: parse private key: %w", err)
	}
	if passphrase != "" {
		key, err = key.Unlock([]byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("attest: unlock private key: %w", err)
		}
	}
	keyRing, err := crypto.NewKeyRing(key)
	if err != nil {
		return nil, fmt.Errorf("attest: build keyring: %w", err)
	}

	message := crypto.NewPlainMessage(pae(PayloadType, body))
	signature, err := keyRing.SignDetached(message)
	if err != nil {
		return nil, fmt.Errorf("attest: sign: %w", err)
	}

	return &Envelope{
		Payload:     base64.StdEncoding.EncodeToString(body),
		PayloadType: PayloadType,
		Signatures: []Signature{{
			KeyID: keyID,
			Sig:   base64.StdEncoding.EncodeToString(signature.GetBinary()),
		}},
	}, nil
}

// Verify reports whether at least one of env's signatures checks out
// against armoredPublicKey. The envelope's PAE is reconstructed from its
// own payload and payloadType, so a tampered payload or payloadType fails
// verification even if a genuine signature was copied over unmodified.
func Verify(env *Envelope, armoredPublicKey string) (bool, error) {
	body, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return false, fmt.Errorf("attest: decode payload: %w", err)
	}

	key, err := crypto.NewKeyFromArmored(armoredPublicKey)
	if err != nil {
		return false, fmt.Errorf("attest: parse public key: %w", err)
	}
	keyRing, err := crypto.NewKeyRing(key)
	if err != nil {
		return false, fmt.Errorf("attest: build keyring: %w", err)
	}

	message := crypto.NewPlainMessage(pae(env.PayloadType, body))
	for _, sig := range env.Signatures {
		raw, err := base64.StdEncoding.DecodeString(sig.Sig)
		if err != nil {
			continue
		}
		signature := crypto.NewPGPSignature(raw)
		if err := keyRing.VerifyDetached(message, signature, 0); err == nil {
			return true, nil
		}
	}
	return false, nil
}
