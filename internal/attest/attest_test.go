package attest

import (
	"encoding/base64"
	"testing"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"github.com/tsukumogami/pkgplan/internal/fingerprint"
)

func encodeForTest(data []byte) string { return base64.StdEncoding.EncodeToString(data) }

func testKeyPair(t *testing.T) (armoredPrivate, armoredPublic string) {
	t.Helper()
	key, err := crypto.GenerateKey("Test", "test@example.com", "rsa", 2048)
	if err != nil {
		t.Fatal(err)
	}
	armoredPrivate, err = key.Armor()
	if err != nil {
		t.Fatal(err)
	}
	pub, err := key.ToPublic()
	if err != nil {
		t.Fatal(err)
	}
	armoredPublic, err = pub.Armor()
	if err != nil {
		t.Fatal(err)
	}
	return armoredPrivate, armoredPublic
}

func testFingerprint(t *testing.T) *fingerprint.Fingerprint {
	t.Helper()
	fp := fingerprint.New()
	if err := fp.Add("source.zlib", "sha256:abc"); err != nil {
		t.Fatal(err)
	}
	return fp
}

func TestSignThenVerifySucceeds(t *testing.T) {
	priv, pub := testKeyPair(t)
	fp := testFingerprint(t)

	env, err := Sign(fp, "test-key", priv, "")
	if err != nil {
		t.Fatal(err)
	}
	if env.PayloadType != PayloadType {
		t.Fatalf("unexpected payload type %q", env.PayloadType)
	}
	if len(env.Signatures) != 1 || env.Signatures[0].KeyID != "test-key" {
		t.Fatalf("unexpected signatures: %+v", env.Signatures)
	}

	ok, err := Verify(env, pub)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected verification to succeed against the matching public key")
	}
}

func TestVerifyFailsAgainstWrongKey(t *testing.T) {
	priv, _ := testKeyPair(t)
	_, wrongPub := testKeyPair(t)
	fp := testFingerprint(t)

	env, err := Sign(fp, "test-key", priv, "")
	if err != nil {
		t.Fatal(err)
	}

	ok, err := Verify(env, wrongPub)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected verification to fail against an unrelated public key")
	}
}

func TestVerifyFailsOnTamperedPayload(t *testing.T) {
	priv, pub := testKeyPair(t)
	fp := testFingerprint(t)

	env, err := Sign(fp, "test-key", priv, "")
	if err != nil {
		t.Fatal(err)
	}

	other := testFingerprint(t)
	if err := other.Add("extra", "value"); err != nil {
		t.Fatal(err)
	}
	tamperedBody, err := other.JSON()
	if err != nil {
		t.Fatal(err)
	}
	env.Payload = encodeForTest(tamperedBody)

	ok, err := Verify(env, pub)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected verification to fail once the payload no longer matches the signed PAE")
	}
}
