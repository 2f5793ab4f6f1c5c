package core

// Wire encoding for replicated-doc gossip messages and join tickets.
// Plain JSON, matching the teacher's storage.go habit of json.Marshal
// for anything that isn't a hot-path binary wire format.

import (
	"encoding/json"
	"fmt"
)

func encodeDocEvent(ev DocEvent) []byte {
	b, _ := json.Marshal(ev)
	return b
}

func decodeDocEvent(raw []byte) (DocEvent, error) {
	var ev DocEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return DocEvent{}, fmt.Errorf("decode doc event: %w", err)
	}
	return ev, nil
}

func encodeTicket(snap map[string][]byte) []byte {
	b, _ := json.Marshal(snap)
	return b
}

func decodeTicket(raw []byte) (map[string][]byte, error) {
	var snap map[string][]byte
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingTicket, err)
	}
	return snap, nil
}
