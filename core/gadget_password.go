package core

// PasswordGadget: the simplest intent type, satisfied by presenting a
// preimage of a salted hash committed at encryption time.

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
)

const passwordSaltLen = 16

// PasswordGadget implements Gadget for "Password" intents.
type PasswordGadget struct{}

func (PasswordGadget) TypeID() string { return "Password" }

// BuildPasswordIntent commits to password under a fresh random salt;
// intent.Data is salt || sha256(salt || password).
func BuildPasswordIntent(password string) (Intent, error) {
	data, err := (PasswordGadget{}).ParseIntentData(password)
	if err != nil {
		return Intent{}, err
	}
	return Intent{TypeID: "Password", Data: data}, nil
}

// ParseIntentData treats raw as the plaintext password and commits to it
// under a fresh random salt, producing salt || sha256(salt || raw).
func (PasswordGadget) ParseIntentData(raw string) ([]byte, error) {
	salt, err := RandomBytes(passwordSaltLen)
	if err != nil {
		return nil, fmt.Errorf("password gadget: sample salt: %w", err)
	}
	h := sha256.Sum256(append(append([]byte{}, salt...), raw...))
	return append(salt, h[:]...), nil
}

func (PasswordGadget) Verify(_ context.Context, intent Intent, witness []byte) error {
	if len(intent.Data) != passwordSaltLen+sha256.Size {
		return fmt.Errorf("password gadget: malformed intent data (%d bytes)", len(intent.Data))
	}
	salt := intent.Data[:passwordSaltLen]
	want := intent.Data[passwordSaltLen:]
	got := sha256.Sum256(append(append([]byte{}, salt...), witness...))
	if subtle.ConstantTimeCompare(got[:], want) != 1 {
		return ErrVerificationFailed
	}
	return nil
}
