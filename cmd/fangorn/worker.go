package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/spf13/cobra"

	core "github.com/driemworks/fangorn-worker/core"
)

const docTopic = "fangorn/doc/v1"

// WorkerController wires the long-lived pieces of a running worker
// together and drives its startup/shutdown sequence, mirroring the
// teacher's Controller-wraps-core pattern.
type WorkerController struct {
	flags workerFlags
}

type workerFlags struct {
	index                uint32
	threshold            uint32
	committeeSize        uint32
	isBootstrap          bool
	ticketPath           string
	configPath           string
	bindPort             int
	rpcPort              int
	ledgerEndpoint       string
	predicateRegistryAddr string
	requestPoolAddr      string
	blobDir              string
}

// Run starts the worker and blocks until the process receives an
// interrupt or terminate signal.
func (w WorkerController) Run() error {
	logger := rootLogger
	f := w.flags

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := libp2p.New(libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", f.bindPort)))
	if err != nil {
		return fmt.Errorf("worker: create libp2p host: %w", err)
	}
	defer h.Close()

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return fmt.Errorf("worker: create pubsub: %w", err)
	}
	doc, err := core.NewPubSubDoc(ctx, h, ps, docTopic, logger)
	if err != nil {
		return fmt.Errorf("worker: join doc topic: %w", err)
	}
	defer doc.Close()

	secret, err := core.RandKeyPair(f.index)
	if err != nil {
		return fmt.Errorf("worker: generate secret share: %w", err)
	}

	var ticket []byte
	if f.ticketPath != "" {
		if raw, err := os.ReadFile(f.ticketPath); err == nil {
			ticket = raw
		}
	}

	committee := core.NewCommitteeService(core.CommitteeConfig{
		Index:       f.index,
		Threshold:   f.threshold,
		Size:        f.committeeSize,
		IsBootstrap: f.isBootstrap,
		Ticket:      ticket,
		TicketPath:  f.ticketPath,
		ConfigPath:  f.configPath,
	}, doc, secret, logger)
	defer committee.Close()

	if _, err := committee.Start(ctx); err != nil {
		return fmt.Errorf("worker: committee startup: %w", err)
	}

	ledger := core.NewHTTPLedger(f.ledgerEndpoint, 10*time.Second, logger)
	intents := core.NewLedgerIntentStore(ledger, f.predicateRegistryAddr)
	pool := core.NewLedgerPool(ledger, f.requestPoolAddr)
	blobs, err := core.NewBlobStore(f.blobDir, 0, logger)
	if err != nil {
		return fmt.Errorf("worker: open blob store: %w", err)
	}
	docs := core.NewDocumentStore(doc, blobs)
	registry := core.NewRegistry(
		core.PasswordGadget{},
		core.NewPsp22Gadget(ledger),
		core.Sr25519Gadget{},
	)
	transport := core.NewLibP2PTransport(h, logger)

	handler := core.NewRequestHandler(intents, docs, registry, pool, committee.StateMachine(), transport, logger)

	watcher := core.NewPoolWatcher(pool, logger)
	pending := make(chan core.DecryptionRequest, 64)
	go watcher.Watch(ctx, pending)
	go func() {
		for req := range pending {
			go handler.Handle(ctx, req)
		}
	}()
	defer watcher.Stop()

	rpc := core.NewRPCServer(committee.StateMachine(), handler, logger)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", f.rpcPort), Handler: rpc}
	go func() {
		logger.Infof("worker: rpc listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("worker: rpc server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("worker: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

var wf workerFlags

var workerCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a committee worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return WorkerController{flags: wf}.Run()
	},
}

func init() {
	workerCmd.Flags().Uint32Var(&wf.index, "index", 0, "this worker's committee slot")
	workerCmd.Flags().Uint32Var(&wf.threshold, "threshold", 1, "decryption threshold (t)")
	workerCmd.Flags().Uint32Var(&wf.committeeSize, "committee-size", 5, "committee size, bootstrap-only")
	workerCmd.Flags().BoolVar(&wf.isBootstrap, "is-bootstrap", false, "start as the committee's bootstrap worker")
	workerCmd.Flags().StringVar(&wf.ticketPath, "ticket", "", "path to a join ticket issued by the bootstrap worker")
	workerCmd.Flags().StringVar(&wf.configPath, "config-path", "config.txt", "path to persist/read the hex-encoded committee config")
	workerCmd.Flags().IntVar(&wf.bindPort, "bind-port", 4001, "libp2p listen port")
	workerCmd.Flags().IntVar(&wf.rpcPort, "rpc-port", 8080, "HTTP RPC listen port")
	workerCmd.Flags().StringVar(&wf.ledgerEndpoint, "ledger-endpoint", "http://127.0.0.1:9933", "chain node JSON-RPC endpoint")
	workerCmd.Flags().StringVar(&wf.predicateRegistryAddr, "predicate-registry-contract-addr", "", "deployed predicate-registry contract address")
	workerCmd.Flags().StringVar(&wf.requestPoolAddr, "request-pool-contract-addr", "", "deployed request-pool contract address")
	workerCmd.Flags().StringVar(&wf.blobDir, "blob-dir", "blobs", "directory for the local ciphertext cache")
}
