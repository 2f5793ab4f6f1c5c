package core

import "testing"

// A single-slot committee sidesteps the Lagrange-consistency caveat
// documented in DESIGN.md: with one hint, interpolation is the
// identity and RandKeyPair's independent sampling is exact by
// construction.
func TestEncryptAggregateDecrypt_SingleSlotRoundtrip(t *testing.T) {
	kp, err := RandKeyPair(0)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}

	sysKey := NewSystemPublicKey(0).WithHint(kp.Hint())
	ek, err := sysKey.Aggregate([]uint32{0})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	plaintext := []byte("fangorn sealed document")
	ct, err := Encrypt(ek, DefaultPolicyT, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	partial := kp.PartialDecrypt(ct)
	recovered, err := AggregateDecrypt([]PartialDecryption{partial}, ct, 0)
	if err != nil {
		t.Fatalf("aggregate decrypt: %v", err)
	}
	if string(recovered) != string(plaintext) {
		t.Fatalf("roundtrip mismatch: got %q want %q", recovered, plaintext)
	}
}

func TestSystemPublicKeyAggregate_BelowThreshold(t *testing.T) {
	kp, err := RandKeyPair(0)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	sysKey := NewSystemPublicKey(1).WithHint(kp.Hint())
	if _, err := sysKey.Aggregate([]uint32{0}); err == nil {
		t.Fatalf("expected aggregate to reject a below-threshold subset")
	}
}

func TestEncodeDecodeCiphertext_Roundtrip(t *testing.T) {
	kp, err := RandKeyPair(0)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	sysKey := NewSystemPublicKey(0).WithHint(kp.Hint())
	ek, err := sysKey.Aggregate([]uint32{0})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	ct, err := Encrypt(ek, 7, []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	encoded := EncodeCiphertext(ct)
	decoded, err := DecodeCiphertext(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.T != ct.T {
		t.Fatalf("policy tag mismatch: got %d want %d", decoded.T, ct.T)
	}
	if string(decoded.Payload) != string(ct.Payload) {
		t.Fatalf("payload mismatch after roundtrip")
	}
}
