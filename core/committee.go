package core

// CommitteeService orchestrates a worker's join-the-committee lifecycle:
// bootstrap generates the shared Config and is the first hint publisher;
// followers import the bootstrap's doc ticket, replay prior hints, then
// publish their own. A background watcher keeps the local SystemPublicKey
// converged as new hints arrive for the lifetime of the process.
//
// Grounded on original_source/fangorn/src/service.rs's
// build_full_service/setup_document_stream/load_previous_hints/
// publish_node_hint/run_state_sync sequence, reshaped into the teacher's
// constructor-returns-struct, logrus-logged style.

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	configDocKey   = "config"
	sysKeysDocKey  = "sys-keys-"
	hintReplayTries = 3
	hintReplayDelay = time.Second
	keyUpdaterTick  = 500 * time.Millisecond
)

// CommitteeConfig parameterizes a CommitteeService's startup.
type CommitteeConfig struct {
	Index       uint32
	Threshold   uint32
	Size        uint32
	IsBootstrap bool
	Ticket      []byte // required for followers

	TicketPath string // where a bootstrap persists its issued ticket, spec §5 supplement
	ConfigPath string // where a bootstrap persists its generated config, spec §5 supplement
}

// CommitteeService wires the doc layer, state machine and announcement
// signer into one worker lifecycle.
type CommitteeService struct {
	cfg    CommitteeConfig
	doc    ReplicatedDoc
	sm     *StateMachine
	signer *AnnounceKey
	logger *logrus.Logger

	stop chan struct{}
}

// NewCommitteeService constructs a service around an already-open doc.
func NewCommitteeService(cfg CommitteeConfig, doc ReplicatedDoc, secret *KeyPair, lg *logrus.Logger) *CommitteeService {
	return &CommitteeService{
		cfg:    cfg,
		doc:    doc,
		sm:     NewStateMachine(secret, cfg.Threshold, lg),
		signer: NewAnnounceKey(),
		logger: lg,
		stop:   make(chan struct{}),
	}
}

// StateMachine exposes the service's underlying state machine to the
// RPC layer and request handler.
func (c *CommitteeService) StateMachine() *StateMachine { return c.sm }

// Start runs the full bootstrap-or-follower sequence and then launches
// the background hint-convergence watcher. It blocks until this
// worker's own hint has been published.
func (c *CommitteeService) Start(ctx context.Context) ([]byte, error) {
	var ticket []byte
	var err error
	if c.cfg.IsBootstrap {
		ticket, err = c.bootstrap(ctx)
	} else {
		ticket, err = c.joinFollower(ctx)
	}
	if err != nil {
		return nil, err
	}

	if err := c.waitForConfig(ctx); err != nil {
		return nil, err
	}
	if !c.cfg.IsBootstrap {
		if err := c.replayPriorHints(ctx); err != nil {
			return nil, err
		}
	}
	if err := c.publishOwnHint(ctx); err != nil {
		return nil, err
	}

	go c.watchHints(ctx)
	if c.cfg.IsBootstrap {
		go c.runKeyUpdater(ctx)
	}
	return ticket, nil
}

func (c *CommitteeService) bootstrap(ctx context.Context) ([]byte, error) {
	c.logger.Info("committee: bootstrap startup, generating new config")
	cfg, err := RandConfig(c.cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("committee: generate config: %w", err)
	}
	configBytes := cfg.Bytes()

	if err := c.doc.Insert(ctx, configDocKey, configBytes); err != nil {
		return nil, fmt.Errorf("committee: publish config: %w", err)
	}
	c.sm.Submit(Announcement{Tag: TagConfig, Data: configBytes})

	if c.cfg.ConfigPath != "" {
		if err := os.WriteFile(c.cfg.ConfigPath, []byte(hex.EncodeToString(configBytes)), 0o644); err != nil {
			c.logger.Warnf("committee: could not persist config to %s: %v", c.cfg.ConfigPath, err)
		}
	}

	ticket, err := c.doc.ShareTicket()
	if err != nil {
		return nil, fmt.Errorf("committee: create ticket: %w", err)
	}
	if c.cfg.TicketPath != "" {
		if err := os.WriteFile(c.cfg.TicketPath, ticket, 0o644); err != nil {
			c.logger.Warnf("committee: could not persist ticket to %s: %v", c.cfg.TicketPath, err)
		}
	}
	return ticket, nil
}

func (c *CommitteeService) joinFollower(ctx context.Context) ([]byte, error) {
	if len(c.cfg.Ticket) == 0 {
		return nil, ErrMissingTicket
	}
	c.logger.Info("committee: follower startup, importing doc from ticket")
	if err := c.doc.Import(c.cfg.Ticket); err != nil {
		return nil, fmt.Errorf("committee: import ticket: %w", err)
	}
	return c.cfg.Ticket, nil
}

// waitForConfig blocks until the shared Config entry has been observed,
// the supplemented-feature replacement (spec §5) for the original's
// blind fixed sleep before proceeding.
func (c *CommitteeService) waitForConfig(ctx context.Context) error {
	if raw, ok := c.doc.Get(configDocKey); ok {
		cfg, err := ConfigFromBytes(raw)
		if err != nil {
			return fmt.Errorf("committee: malformed config entry: %w", err)
		}
		c.sm.mu.Lock()
		c.sm.state.Config = cfg
		c.sm.mu.Unlock()
		return nil
	}

	events, cancel := c.doc.Subscribe()
	defer cancel()
	for {
		select {
		case ev := <-events:
			if ev.Key != configDocKey {
				continue
			}
			cfg, err := ConfigFromBytes(ev.Value)
			if err != nil {
				return fmt.Errorf("committee: malformed config entry: %w", err)
			}
			c.sm.mu.Lock()
			c.sm.state.Config = cfg
			c.sm.mu.Unlock()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// replayPriorHints loads hints for slots 0..index-1, retrying each one
// up to hintReplayTries times (original: "may still be syncing").
func (c *CommitteeService) replayPriorHints(ctx context.Context) error {
	c.logger.Info("committee: loading hints from previous workers")
	loaded := 0
	for slot := uint32(0); slot < c.cfg.Index; slot++ {
		key := strconv.FormatUint(uint64(slot), 10)
		var raw []byte
		var ok bool
		for attempt := 0; attempt < hintReplayTries; attempt++ {
			raw, ok = c.doc.Get(key)
			if ok {
				break
			}
			select {
			case <-time.After(hintReplayDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if !ok {
			return fmt.Errorf("committee: hint for slot %d never arrived", slot)
		}
		if err := c.sm.ApplyHintAtSlot(slot, raw); err != nil {
			return fmt.Errorf("committee: apply replayed hint %d: %w", slot, err)
		}
		loaded++
	}
	c.logger.Infof("committee: loaded %d previous hints", loaded)
	return nil
}

func (c *CommitteeService) publishOwnHint(ctx context.Context) error {
	snap := c.sm.Snapshot()
	if snap.SecretKey == nil {
		return fmt.Errorf("committee: no local secret share configured")
	}
	hint := snap.SecretKey.Hint()
	key := strconv.FormatUint(uint64(c.cfg.Index), 10)
	if err := c.doc.Insert(ctx, key, hint.Bytes()); err != nil {
		return fmt.Errorf("committee: publish own hint: %w", err)
	}
	if err := c.sm.ApplyHintAtSlot(c.cfg.Index, hint.Bytes()); err != nil {
		return fmt.Errorf("committee: apply own hint: %w", err)
	}
	c.logger.Infof("committee: published hint for slot %d", c.cfg.Index)
	return nil
}

// watchHints keeps the local SystemPublicKey converged with every
// subsequently-gossiped hint for the life of the process.
func (c *CommitteeService) watchHints(ctx context.Context) {
	events, cancel := c.doc.Subscribe()
	defer cancel()
	for {
		select {
		case ev := <-events:
			if ev.Key == configDocKey {
				continue
			}
			if ev.Key == sysKeysDocKey {
				sk, err := SystemPublicKeyFromBytes(ev.Value)
				if err != nil {
					c.logger.Warnf("committee: malformed system-keys entry: %v", err)
					continue
				}
				c.sm.ApplySystemKeys(sk)
				c.logger.Debugf("committee: merged published system-keys (%d hints)", len(sk.Hints))
				continue
			}
			slot, err := strconv.ParseUint(ev.Key, 10, 32)
			if err != nil {
				continue // not a hint entry (e.g. a ciphertext content id)
			}
			if err := c.sm.ApplyHintAtSlot(uint32(slot), ev.Value); err != nil {
				c.logger.Warnf("committee: could not apply hint for slot %d: %v", slot, err)
				continue
			}
			c.logger.Debugf("committee: converged hint for slot %d", slot)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runKeyUpdater is the bootstrap-only background task of spec §4.1: it
// watches the locally-known hint count and, whenever it grows, recomputes
// the aggregated view and rewrites the reserved `sys-keys-` doc entry,
// the single-writer convergence point other workers read in watchHints.
// A serialization failure is logged and retried on the next tick; it
// never blocks publishOwnHint or watchHints.
func (c *CommitteeService) runKeyUpdater(ctx context.Context) {
	ticker := time.NewTicker(keyUpdaterTick)
	defer ticker.Stop()
	lastCount := -1
	for {
		select {
		case <-ticker.C:
			snap := c.sm.Snapshot()
			if snap.SystemKeys == nil {
				continue
			}
			count := len(snap.SystemKeys.Hints)
			if count == lastCount {
				continue
			}
			if err := c.doc.Insert(ctx, sysKeysDocKey, snap.SystemKeys.Bytes()); err != nil {
				c.logger.Warnf("committee: key-updater: publish system-keys: %v", err)
				continue
			}
			lastCount = count
			c.logger.Infof("committee: key-updater: republished system-keys (%d hints)", count)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the background watcher and the underlying state machine.
func (c *CommitteeService) Close() {
	close(c.stop)
	c.sm.Close()
}
