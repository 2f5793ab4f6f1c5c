package core

import (
	"context"
	"testing"
)

func TestPasswordGadget_VerifySuccess(t *testing.T) {
	intent, err := BuildPasswordIntent("hunter2")
	if err != nil {
		t.Fatalf("build intent: %v", err)
	}
	if err := (PasswordGadget{}).Verify(context.Background(), intent, []byte("hunter2")); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestPasswordGadget_WrongPassword(t *testing.T) {
	intent, err := BuildPasswordIntent("hunter2")
	if err != nil {
		t.Fatalf("build intent: %v", err)
	}
	if err := (PasswordGadget{}).Verify(context.Background(), intent, []byte("wrong")); err == nil {
		t.Fatalf("expected verification failure")
	}
}

func TestPasswordGadget_MalformedIntent(t *testing.T) {
	intent := Intent{TypeID: "Password", Data: []byte("too short")}
	if err := (PasswordGadget{}).Verify(context.Background(), intent, []byte("hunter2")); err == nil {
		t.Fatalf("expected malformed intent error")
	}
}
