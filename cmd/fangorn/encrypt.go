package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/spf13/cobra"

	core "github.com/driemworks/fangorn-worker/core"
)

// EncryptController drives the full off-fleet encryption pipeline of
// spec §4.9: parse intents, preprocess against the committee's current
// aggregate key, seal the plaintext, publish the ciphertext to the
// replicated document, and bind it to filename in the predicate
// registry.
type EncryptController struct{}

type sealResult struct {
	CID      core.ContentID
	Filename core.Filename
}

func (EncryptController) Seal(f encryptFlagSet) (sealResult, error) {
	plaintext, err := os.ReadFile(f.in)
	if err != nil {
		return sealResult{}, fmt.Errorf("encrypt: read plaintext: %w", err)
	}
	subset, err := parseSubset(f.subset)
	if err != nil {
		return sealResult{}, err
	}

	ledger := core.NewHTTPLedger(f.ledgerEndpoint, 10*time.Second, rootLogger)
	gadgets := core.NewRegistry(
		core.PasswordGadget{},
		core.NewPsp22Gadget(ledger),
		core.Sr25519Gadget{},
	)
	intents, err := gadgets.ParseIntents(f.intents)
	if err != nil {
		return sealResult{}, fmt.Errorf("encrypt: parse intents: %w", err)
	}

	client, err := core.NewEncryptClient(f.configPath, f.node)
	if err != nil {
		return sealResult{}, err
	}
	ct, err := client.Encrypt(cmdContext(), plaintext, subset, f.t)
	if err != nil {
		return sealResult{}, err
	}
	encoded := core.EncodeCiphertext(ct)

	h, err := libp2p.New(libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", f.bindPort)))
	if err != nil {
		return sealResult{}, fmt.Errorf("encrypt: create libp2p host: %w", err)
	}
	defer h.Close()
	ctx := cmdContext()
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return sealResult{}, fmt.Errorf("encrypt: create pubsub: %w", err)
	}
	doc, err := core.NewPubSubDoc(ctx, h, ps, docTopic, rootLogger)
	if err != nil {
		return sealResult{}, fmt.Errorf("encrypt: join doc topic: %w", err)
	}
	defer doc.Close()
	// The committee needs a moment to see this peer's subscription
	// before a publish reaches anyone; the worker's own join sequence
	// waits on explicit sync signals (committee.go), but a one-shot CLI
	// invocation has no state machine to wait on, so it waits out a
	// fixed grace period instead.
	time.Sleep(f.gossipSettle)

	blobs, err := core.NewBlobStore(f.blobDir, 0, rootLogger)
	if err != nil {
		return sealResult{}, fmt.Errorf("encrypt: open blob cache: %w", err)
	}
	docs := core.NewDocumentStore(doc, blobs)
	cid, err := docs.Add(ctx, encoded)
	if err != nil {
		return sealResult{}, fmt.Errorf("encrypt: publish ciphertext: %w", err)
	}

	registry := core.NewLedgerIntentStore(ledger, f.registryAddr)
	filename := core.Filename(f.filename)
	if err := registry.Register(ctx, filename, cid, intents); err != nil {
		return sealResult{}, fmt.Errorf("encrypt: register intent: %w", err)
	}

	return sealResult{CID: cid, Filename: filename}, nil
}

type encryptFlagSet struct {
	configPath   string
	node         string
	in           string
	filename     string
	intents      string
	subset       string
	t            uint32
	bindPort     int
	blobDir      string
	gossipSettle time.Duration
	ledgerEndpoint string
	registryAddr string
}

var encryptFlags encryptFlagSet

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Seal a document under the committee's current encryption key",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := EncryptController{}.Seal(encryptFlags)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "filename=%s cid=%s\n", res.Filename, res.CID)
		return nil
	},
}

func parseSubset(raw string) ([]uint32, error) {
	parts := strings.Split(raw, ",")
	out := make([]uint32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("encrypt: malformed subset entry %q: %w", p, err)
		}
		out = append(out, uint32(n))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("encrypt: subset must name at least one committee slot")
	}
	return out, nil
}

func init() {
	encryptCmd.Flags().StringVar(&encryptFlags.configPath, "config", "config.txt", "path to the hex-encoded committee config")
	encryptCmd.Flags().StringVar(&encryptFlags.node, "node", "http://127.0.0.1:8080", "a committee worker's RPC endpoint")
	encryptCmd.Flags().StringVar(&encryptFlags.in, "in", "", "plaintext file to seal")
	encryptCmd.Flags().StringVar(&encryptFlags.filename, "filename", "", "the filename decryptors will request this document under")
	encryptCmd.Flags().StringVar(&encryptFlags.intents, "intents", "", `intent grammar, e.g. "Password(hunter2) && Sr25519(0x02ab...)"`)
	encryptCmd.Flags().StringVar(&encryptFlags.subset, "subset", "", "comma-separated committee slots to preprocess against")
	encryptCmd.Flags().Uint32Var(&encryptFlags.t, "t", core.DefaultPolicyT, "policy tag bound into the ciphertext")
	encryptCmd.Flags().IntVar(&encryptFlags.bindPort, "bind-port", 4201, "libp2p listen port used to publish the ciphertext")
	encryptCmd.Flags().StringVar(&encryptFlags.blobDir, "blob-dir", "blobs-encrypt", "local cache directory for the published ciphertext")
	encryptCmd.Flags().DurationVar(&encryptFlags.gossipSettle, "gossip-settle", 2*time.Second, "grace period to let pubsub subscriptions propagate before publishing")
	encryptCmd.Flags().StringVar(&encryptFlags.ledgerEndpoint, "ledger-endpoint", "http://127.0.0.1:9933", "chain node JSON-RPC endpoint")
	encryptCmd.Flags().StringVar(&encryptFlags.registryAddr, "predicate-registry-contract-addr", "", "deployed predicate-registry contract address")
	_ = encryptCmd.MarkFlagRequired("in")
	_ = encryptCmd.MarkFlagRequired("filename")
	_ = encryptCmd.MarkFlagRequired("intents")
	_ = encryptCmd.MarkFlagRequired("subset")
}
