package core

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"testing"
)

func TestParseIntentGrammar(t *testing.T) {
	intents, err := ParseIntentGrammar(`Password(abc) && Psp22(0xdead:100)`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("expected 2 intents, got %d", len(intents))
	}
	if intents[0].TypeID != "Password" || string(intents[0].Data) != "abc" {
		t.Fatalf("unexpected first intent: %+v", intents[0])
	}
	if intents[1].TypeID != "Psp22" || string(intents[1].Data) != "0xdead:100" {
		t.Fatalf("unexpected second intent: %+v", intents[1])
	}
}

func TestParseIntentGrammar_Empty(t *testing.T) {
	if _, err := ParseIntentGrammar(""); err == nil {
		t.Fatalf("expected error for empty statement")
	}
}

func TestParseIntentGrammar_Malformed(t *testing.T) {
	if _, err := ParseIntentGrammar("Password abc"); err == nil {
		t.Fatalf("expected error for clause missing parens")
	}
}

func TestRegistry_VerifyConjunction(t *testing.T) {
	pwIntent, err := BuildPasswordIntent("hunter2")
	if err != nil {
		t.Fatalf("build intent: %v", err)
	}
	reg := NewRegistry(PasswordGadget{})
	intents := IntentList{pwIntent}
	witness := map[string][]byte{"Password": []byte("hunter2")}
	if err := reg.Verify(context.Background(), intents, witness); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestRegistry_UnknownGadget(t *testing.T) {
	reg := NewRegistry(PasswordGadget{})
	intents := IntentList{{TypeID: "Unknown", Data: []byte("x")}}
	if err := reg.Verify(context.Background(), intents, map[string][]byte{}); err == nil {
		t.Fatalf("expected unknown gadget error")
	}
}

func TestRegistry_MissingWitness(t *testing.T) {
	pwIntent, err := BuildPasswordIntent("hunter2")
	if err != nil {
		t.Fatalf("build intent: %v", err)
	}
	reg := NewRegistry(PasswordGadget{})
	if err := reg.Verify(context.Background(), IntentList{pwIntent}, map[string][]byte{}); err == nil {
		t.Fatalf("expected missing witness error")
	}
}

func TestRegistry_ParseIntents_RoundTripsThroughGadgets(t *testing.T) {
	ledger := NewMemoryLedger()
	ledger.Set("000000000000000000000000000000000000000000000000000000000000dead", selBalanceOf, encodeBalance(150))
	reg := NewRegistry(PasswordGadget{}, NewPsp22Gadget(ledger), Sr25519Gadget{})

	intents, err := reg.ParseIntents("Password(hunter2) && Psp22(0xdead:100)")
	if err != nil {
		t.Fatalf("parse intents: %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("expected 2 intents, got %d", len(intents))
	}
	if intents[0].TypeID != "Password" || len(intents[0].Data) != passwordSaltLen+sha256.Size {
		t.Fatalf("password intent not built via gadget: %+v", intents[0])
	}
	if intents[1].TypeID != "Psp22" || len(intents[1].Data) != 40 {
		t.Fatalf("psp22 intent not built via gadget: %+v", intents[1])
	}

	witness := map[string][]byte{
		"Password": []byte("hunter2"),
		"Psp22":    make([]byte, 32),
	}
	if err := reg.Verify(context.Background(), intents, witness); err != nil {
		t.Fatalf("verify parsed intents: %v", err)
	}
}

func TestRegistry_ParseIntents_UnknownGadget(t *testing.T) {
	reg := NewRegistry(PasswordGadget{})
	if _, err := reg.ParseIntents("Sr25519(02ab)"); err == nil {
		t.Fatalf("expected unknown gadget error")
	}
}

func TestRegistry_ParseIntents_MalformedPsp22Clause(t *testing.T) {
	reg := NewRegistry(NewPsp22Gadget(NewMemoryLedger()))
	if _, err := reg.ParseIntents("Psp22(not-a-valid-clause)"); err == nil {
		t.Fatalf("expected malformed clause error")
	}
}

func encodeBalance(balance uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, balance)
	return buf
}
