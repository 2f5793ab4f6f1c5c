package core

import (
	"context"
	"encoding/hex"
	"testing"
)

// captureTransport is a PartialDecryptionSender test double recording
// every share Handle tries to deliver.
type captureTransport struct {
	sent []PartialDecryptionMessage
	locs []Location
}

func (c *captureTransport) Send(_ context.Context, loc Location, msg PartialDecryptionMessage) error {
	c.sent = append(c.sent, msg)
	c.locs = append(c.locs, loc)
	return nil
}

func TestRequestHandler_Handle_DeliversShareAndAttests(t *testing.T) {
	ctx := context.Background()

	kp, err := RandKeyPair(0)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	sysKey := NewSystemPublicKey(0).WithHint(kp.Hint())
	ek, err := sysKey.Aggregate([]uint32{0})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	ct, err := Encrypt(ek, DefaultPolicyT, []byte("top secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	docs := NewDocumentStore(NewMemoryDoc(), newTestBlobStore(t))
	cid, err := docs.Add(ctx, EncodeCiphertext(ct))
	if err != nil {
		t.Fatalf("add ciphertext: %v", err)
	}

	intents := NewMemoryIntentStore()
	pwIntent, err := BuildPasswordIntent("hunter2")
	if err != nil {
		t.Fatalf("build intent: %v", err)
	}
	filename := Filename("report.pdf")
	if err := intents.Register(ctx, filename, cid, IntentList{pwIntent}); err != nil {
		t.Fatalf("register intent: %v", err)
	}

	pool := NewMemoryPool(1)
	req := DecryptionRequest{
		Filename:   filename,
		WitnessHex: hex.EncodeToString([]byte("hunter2")),
		Location:   Location{PeerID: "requester", Address: "/ip4/127.0.0.1/tcp/4001"},
	}
	if _, err := pool.Submit(ctx, req); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sm := NewStateMachine(kp, 0, discardLogger())
	defer sm.Close()

	transport := &captureTransport{}
	registry := NewRegistry(PasswordGadget{})
	handler := NewRequestHandler(intents, docs, registry, pool, sm, transport, discardLogger())

	handler.Handle(ctx, req)

	if len(transport.sent) != 1 {
		t.Fatalf("expected 1 delivered share, got %d", len(transport.sent))
	}
	if string(transport.sent[0].Filename) != string(filename) {
		t.Fatalf("unexpected filename in delivered share: %q", transport.sent[0].Filename)
	}
	if transport.locs[0] != req.Location {
		t.Fatalf("share delivered to unexpected location: %+v", transport.locs[0])
	}

	state, err := pool.State(ctx, req.ID())
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state != RequestFulfilled {
		t.Fatalf("expected request fulfilled after 1-of-1 attestation, got %s", state)
	}

	partial := transport.sent[0]
	var share G2Point
	if _, err := share.SetBytes(partial.ShareBytes); err != nil {
		t.Fatalf("decode share: %v", err)
	}
	recovered, err := AggregateDecrypt([]PartialDecryption{{Index: partial.Index, Share: share}}, ct, 0)
	if err != nil {
		t.Fatalf("aggregate decrypt: %v", err)
	}
	if string(recovered) != "top secret" {
		t.Fatalf("unexpected recovered plaintext: %q", recovered)
	}
}

func TestRequestHandler_Handle_DropsOnVerificationFailure(t *testing.T) {
	ctx := context.Background()

	kp, err := RandKeyPair(0)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	sysKey := NewSystemPublicKey(0).WithHint(kp.Hint())
	ek, err := sysKey.Aggregate([]uint32{0})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	ct, err := Encrypt(ek, DefaultPolicyT, []byte("top secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	docs := NewDocumentStore(NewMemoryDoc(), newTestBlobStore(t))
	cid, err := docs.Add(ctx, EncodeCiphertext(ct))
	if err != nil {
		t.Fatalf("add ciphertext: %v", err)
	}

	intents := NewMemoryIntentStore()
	pwIntent, err := BuildPasswordIntent("hunter2")
	if err != nil {
		t.Fatalf("build intent: %v", err)
	}
	filename := Filename("report.pdf")
	if err := intents.Register(ctx, filename, cid, IntentList{pwIntent}); err != nil {
		t.Fatalf("register intent: %v", err)
	}

	pool := NewMemoryPool(1)
	req := DecryptionRequest{
		Filename:   filename,
		WitnessHex: hex.EncodeToString([]byte("wrong password")),
		Location:   Location{PeerID: "requester", Address: "/ip4/127.0.0.1/tcp/4001"},
	}
	if _, err := pool.Submit(ctx, req); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sm := NewStateMachine(kp, 0, discardLogger())
	defer sm.Close()

	transport := &captureTransport{}
	registry := NewRegistry(PasswordGadget{})
	handler := NewRequestHandler(intents, docs, registry, pool, sm, transport, discardLogger())

	handler.Handle(ctx, req)

	if len(transport.sent) != 0 {
		t.Fatalf("expected no share delivered on failed verification, got %d", len(transport.sent))
	}
	state, err := pool.State(ctx, req.ID())
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state != RequestPending {
		t.Fatalf("expected request to remain pending, got %s", state)
	}
}

func TestRequestHandler_Handle_DropsOnUnknownFilename(t *testing.T) {
	ctx := context.Background()
	kp, err := RandKeyPair(0)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	sm := NewStateMachine(kp, 0, discardLogger())
	defer sm.Close()

	transport := &captureTransport{}
	handler := NewRequestHandler(
		NewMemoryIntentStore(),
		NewDocumentStore(NewMemoryDoc(), newTestBlobStore(t)),
		NewRegistry(PasswordGadget{}),
		NewMemoryPool(1),
		sm,
		transport,
		discardLogger(),
	)

	handler.Handle(ctx, DecryptionRequest{Filename: Filename("missing"), Location: Location{PeerID: "requester"}})

	if len(transport.sent) != 0 {
		t.Fatalf("expected no share delivered for an unregistered filename")
	}
}
