package core

// RequestHandler implements the verify -> fetch -> decrypt -> deliver ->
// attest pipeline spec §4.6-4.8 describes for a decryption request the
// pool watcher hands off. Any failure along the way is logged and the
// request silently dropped rather than surfaced to the requester —
// there is no back-channel to a requester who isn't a committee member.
//
// Grounded on original_source/fangorn/src/rpc/server.rs's partdec
// handler: intent lookup, gadget verification, ciphertext fetch,
// partial decryption, reshaped around this repo's Gadget/IntentStore/
// BlobStore/RequestPool interfaces instead of tonic/ink directly.

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestHandler wires together everything a worker needs to answer one
// decryption request.
type RequestHandler struct {
	intents   IntentStore
	docs      *DocumentStore
	registry  *Registry
	pool      RequestPool
	sm        *StateMachine
	transport PartialDecryptionSender
	logger    *logrus.Logger
}

// PartialDecryptionSender delivers a worker's partial decryption to the
// requesting peer, implemented by the libp2p transport in transport.go.
type PartialDecryptionSender interface {
	Send(ctx context.Context, loc Location, msg PartialDecryptionMessage) error
}

// NewRequestHandler assembles a handler from its dependencies.
func NewRequestHandler(intents IntentStore, docs *DocumentStore, registry *Registry, pool RequestPool, sm *StateMachine, transport PartialDecryptionSender, lg *logrus.Logger) *RequestHandler {
	return &RequestHandler{
		intents:   intents,
		docs:      docs,
		registry:  registry,
		pool:      pool,
		sm:        sm,
		transport: transport,
		logger:    lg,
	}
}

// Handle runs the full pipeline for one request. It never returns an
// error to the caller; pipeline failures are logged and counted as a
// drop, matching the handler's silent-drop semantics.
func (h *RequestHandler) Handle(ctx context.Context, req DecryptionRequest) {
	// trace correlates this pipeline run's log lines; it has no on-wire
	// meaning and is never derived from request content.
	trace := uuid.NewString()

	entry, err := h.intents.Get(ctx, req.Filename)
	if err != nil {
		h.logger.Warnf("handler[%s]: no intent for %q, dropping request: %v", trace, req.Filename, err)
		return
	}

	witness, err := hex.DecodeString(req.WitnessHex)
	if err != nil {
		h.logger.Warnf("handler[%s]: malformed witness hex, dropping request: %v", trace, err)
		return
	}
	witnessByType := splitWitnessByIntent(entry.Intents, witness)
	if err := h.registry.Verify(ctx, entry.Intents, witnessByType); err != nil {
		h.logger.Infof("handler[%s]: witness verification failed for %q: %v", trace, req.Filename, err)
		return
	}

	raw, err := h.docs.Fetch(ctx, entry.CID)
	if err != nil {
		h.logger.Warnf("handler[%s]: ciphertext unavailable for %s: %v", trace, entry.CID, err)
		return
	}
	ct, err := DecodeCiphertext(raw)
	if err != nil {
		h.logger.Warnf("handler[%s]: malformed ciphertext for %s: %v", trace, entry.CID, err)
		return
	}

	snap := h.sm.Snapshot()
	if snap.SecretKey == nil {
		h.logger.Warnf("handler[%s]: no local secret share, dropping request", trace)
		return
	}
	partial := snap.SecretKey.PartialDecrypt(ct)
	shareBytes := partial.Share.Bytes()

	msg := PartialDecryptionMessage{
		Filename:   req.Filename,
		Index:      partial.Index,
		ShareBytes: shareBytes[:],
	}
	if err := h.transport.Send(ctx, req.Location, msg); err != nil {
		h.logger.Warnf("handler[%s]: delivering partial decryption for %s: %v", trace, entry.CID, err)
		return
	}

	reqID := req.ID()
	if err := h.pool.Attest(ctx, reqID, partial.Index); err != nil {
		h.logger.Warnf("handler[%s]: attesting %x: %v", trace, reqID, err)
	}
}

// splitWitnessByIntent assumes a single combined witness blob applies to
// every intent clause; deployments with per-gadget witnesses can extend
// this to parse a length-prefixed map instead.
func splitWitnessByIntent(intents IntentList, witness []byte) map[string][]byte {
	out := make(map[string][]byte, len(intents))
	for _, it := range intents {
		out[it.TypeID] = witness
	}
	return out
}

// DecodeCiphertext parses a ciphertext previously written via
// EncodeCiphertext.
func DecodeCiphertext(raw []byte) (*Ciphertext, error) {
	return decodeCiphertext(raw)
}

// EncodeCiphertext serializes a Ciphertext for BlobStore storage.
func EncodeCiphertext(ct *Ciphertext) []byte {
	return encodeCiphertext(ct)
}
