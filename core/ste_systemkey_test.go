package core

import "testing"

func TestSystemPublicKey_BytesRoundTrip(t *testing.T) {
	kp0, err := RandKeyPair(0)
	if err != nil {
		t.Fatalf("keypair 0: %v", err)
	}
	kp1, err := RandKeyPair(1)
	if err != nil {
		t.Fatalf("keypair 1: %v", err)
	}

	sysKey := NewSystemPublicKey(1).WithHint(kp0.Hint()).WithHint(kp1.Hint())
	raw := sysKey.Bytes()

	decoded, err := SystemPublicKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Threshold != sysKey.Threshold {
		t.Fatalf("threshold mismatch: got %d want %d", decoded.Threshold, sysKey.Threshold)
	}
	if len(decoded.Hints) != len(sysKey.Hints) {
		t.Fatalf("hint count mismatch: got %d want %d", len(decoded.Hints), len(sysKey.Hints))
	}
	if decoded.Digest() != sysKey.Digest() {
		t.Fatalf("digest mismatch after round trip")
	}
}

func TestStateMachine_ApplySystemKeys_UnionsRatherThanOverwrites(t *testing.T) {
	kp, err := RandKeyPair(0)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	sm := NewStateMachine(kp, 0, discardLogger())
	defer sm.Close()

	if err := sm.ApplyHintAtSlot(0, kp.Hint().Bytes()); err != nil {
		t.Fatalf("apply local hint: %v", err)
	}

	other, err := RandKeyPair(1)
	if err != nil {
		t.Fatalf("keypair 1: %v", err)
	}
	published := NewSystemPublicKey(0).WithHint(other.Hint())
	sm.ApplySystemKeys(published)

	slots := sm.KnownHintSlots()
	if len(slots) != 2 {
		t.Fatalf("expected both the locally-observed and the published hint, got %v", slots)
	}
}
