// Package core implements the fangorn worker: committee lifecycle, the
// replicated state layer, the decryption request pool, and the intent
// gadget registry described in DESIGN.md.
package core

import (
	"encoding/binary"
	"errors"
)

// AnnouncementTag discriminates the payload carried by an Announcement so a
// receiver can dispatch it without parsing the body twice.
type AnnouncementTag uint8

const (
	TagConfig AnnouncementTag = iota
	TagHint
	TagSystemKeys
	TagDoc
	TagDecryptionRequest
)

func (t AnnouncementTag) String() string {
	switch t {
	case TagConfig:
		return "config"
	case TagHint:
		return "hint"
	case TagSystemKeys:
		return "system-keys"
	case TagDoc:
		return "doc"
	case TagDecryptionRequest:
		return "decryption-request"
	default:
		return "unknown"
	}
}

// Announcement is a tagged envelope: a one-byte tag discriminant followed
// by a length-prefixed body. DocumentStore wraps its entries in it; the
// committee's config, hint and system-key doc entries are stored as raw
// bytes without this envelope.
type Announcement struct {
	Tag  AnnouncementTag
	Data []byte
}

// Encode serializes the announcement as tag || uint32(len(data)) || data.
func (a Announcement) Encode() []byte {
	out := make([]byte, 0, 5+len(a.Data))
	out = append(out, byte(a.Tag))
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(a.Data)))
	out = append(out, lenBuf[:]...)
	out = append(out, a.Data...)
	return out
}

// DecodeAnnouncement is the inverse of Encode.
func DecodeAnnouncement(raw []byte) (Announcement, error) {
	if len(raw) < 5 {
		return Announcement{}, errors.New("announcement: truncated envelope")
	}
	tag := AnnouncementTag(raw[0])
	n := binary.BigEndian.Uint32(raw[1:5])
	if uint32(len(raw)-5) != n {
		return Announcement{}, errors.New("announcement: length mismatch")
	}
	data := make([]byte, n)
	copy(data, raw[5:])
	return Announcement{Tag: tag, Data: data}, nil
}

// Filename is an opaque, user-chosen identifier for a registered intent
// binding. It is compared byte-for-byte; uniqueness is enforced by the
// intent store, not by this type.
type Filename []byte

// Location is an opaque address a decryption requester listens for partial
// shares on: a transport endpoint plus an identity the worker dials.
type Location struct {
	PeerID  string `json:"peer_id"`
	Address string `json:"address"`
}

// Intent is a single conjunct of a predicate a decryptor must satisfy:
// a registered gadget type id plus that gadget's parsed statement bytes.
type Intent struct {
	TypeID string
	Data   []byte
}

// IntentList is a conjunction of Intents: verification succeeds iff every
// element verifies. An empty IntentList is never valid (see ParseIntents).
type IntentList []Intent

// DecryptionRequest is the pool-level unit of work: a filename to decrypt,
// one hex-encoded witness that is checked against each of its intents, and
// where to deliver partial shares.
type DecryptionRequest struct {
	Filename    Filename
	WitnessHex  string
	Location    Location
}

// PartialDecryptionMessage is the on-wire payload sent directly to a
// requester's Location, length-delimited under the
// "/fangorn/partial-decryption/0" stream protocol.
type PartialDecryptionMessage struct {
	Filename    Filename
	Index       uint32
	ShareBytes  []byte
}
