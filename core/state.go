package core

// State is a worker's local view of the committee: the shared Config,
// whatever hints have been observed, its own KeyPair, and the derived
// SystemPublicKey. StateMachine guards State with one mutex (spec §5).
// Its apply goroutine reads Announcements from a channel but only applies
// TagConfig; hints and system keys are written directly under the mutex
// by ApplyHintAtSlot and ApplySystemKeys from the caller's goroutine, so
// writes do not all pass through one channel.

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// State is a worker's materialized view of the committee.
type State struct {
	Config       *Config
	SecretKey    *KeyPair
	Hints        map[uint32]Hint
	SystemKeys   *SystemPublicKey
	AnnounceKeys map[uint32][]byte // slot -> BLS public key bytes, for announcement verification
}

func newEmptyState(secret *KeyPair, threshold uint32) *State {
	return &State{
		Hints:        make(map[uint32]Hint),
		SystemKeys:   NewSystemPublicKey(threshold),
		SecretKey:    secret,
		AnnounceKeys: make(map[uint32][]byte),
	}
}

// StateMachine owns State. Config announcements submitted on its channel
// are applied by a single goroutine; hint and system-key updates go
// through ApplyHintAtSlot/ApplySystemKeys under the same mutex. Readers
// take a point-in-time snapshot under that mutex.
type StateMachine struct {
	mu    sync.RWMutex
	state *State

	in     chan Announcement
	logger *logrus.Logger
}

// NewStateMachine starts the apply loop and returns a handle to it.
func NewStateMachine(secret *KeyPair, threshold uint32, lg *logrus.Logger) *StateMachine {
	sm := &StateMachine{
		state:  newEmptyState(secret, threshold),
		in:     make(chan Announcement, 256),
		logger: lg,
	}
	go sm.run()
	return sm
}

// Submit enqueues an Announcement for serial application. It never
// blocks the caller past the channel's buffer.
func (sm *StateMachine) Submit(a Announcement) {
	sm.in <- a
}

// Snapshot returns a shallow, read-only copy of the current state's
// pointers (Config/SystemKeys are themselves immutable once assigned).
func (sm *StateMachine) Snapshot() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return *sm.state
}

func (sm *StateMachine) run() {
	for a := range sm.in {
		if err := sm.apply(a); err != nil {
			sm.logger.Warnf("state: dropping malformed announcement (tag=%s): %v", a.Tag, err)
		}
	}
}

func (sm *StateMachine) apply(a Announcement) error {
	switch a.Tag {
	case TagConfig:
		cfg, err := ConfigFromBytes(a.Data)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		sm.mu.Lock()
		sm.state.Config = cfg
		sm.mu.Unlock()

	case TagHint:
		sm.mu.Lock()
		cfg := sm.state.Config
		sm.mu.Unlock()
		if cfg == nil {
			return fmt.Errorf("hint received before config")
		}
		// The slot index travels alongside the announcement out of band
		// (the doc key it was stored under); callers use ApplyHintAtSlot
		// when that context is available. A bare TagHint with no slot
		// context cannot be applied and is logged, not silently kept.
		return fmt.Errorf("hint announcement requires a slot index, use ApplyHintAtSlot")

	default:
		return fmt.Errorf("unhandled announcement tag %s", a.Tag)
	}
	return nil
}

// ApplyHintAtSlot merges a newly-observed hint into the state, keyed by
// the committee slot it arrived under (the doc key, per spec §6).
func (sm *StateMachine) ApplyHintAtSlot(slot uint32, raw []byte) error {
	hint, err := HintFromBytes(slot, raw)
	if err != nil {
		return fmt.Errorf("hint: %w", err)
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state.Hints[slot] = hint
	sm.state.SystemKeys = sm.state.SystemKeys.WithHint(hint)
	return nil
}

// ApplySystemKeys merges a published `sys-keys-` entry (TagSystemKeys,
// spec §4.2) into local state. It is a union, not an overwrite: the doc
// layer is eventually consistent, so a published snapshot may lag a hint
// this worker already observed directly, and must never regress it.
func (sm *StateMachine) ApplySystemKeys(sk *SystemPublicKey) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, idx := range sk.SortedIndices() {
		sm.state.SystemKeys = sm.state.SystemKeys.WithHint(sk.Hints[idx])
	}
}

// KnownHintSlots returns the currently-known hint slot indices.
func (sm *StateMachine) KnownHintSlots() []uint32 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state.SystemKeys.SortedIndices()
}

// Close stops the apply loop.
func (sm *StateMachine) Close() {
	close(sm.in)
}
