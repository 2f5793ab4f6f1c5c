package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/spf13/cobra"

	core "github.com/driemworks/fangorn-worker/core"
)

// DecryptController drives spec §4.10's decrypt pipeline: submit a
// partdec request to each named committee worker, then listen on a
// local libp2p host for the partial decryptions they push back and
// reconstruct the plaintext once threshold+1 have arrived.
type DecryptController struct{}

func (DecryptController) Run(f decryptFlagSet) ([]byte, error) {
	raw, err := os.ReadFile(f.in)
	if err != nil {
		return nil, fmt.Errorf("decrypt: read ciphertext: %w", err)
	}
	ct, err := core.DecodeCiphertext(raw)
	if err != nil {
		return nil, err
	}
	nodes, err := parseNodeEndpoints(f.nodes)
	if err != nil {
		return nil, err
	}

	h, err := libp2p.New(libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", f.bindPort)))
	if err != nil {
		return nil, fmt.Errorf("decrypt: create libp2p host: %w", err)
	}
	defer h.Close()
	transport := core.NewLibP2PTransport(h, rootLogger)
	loc := core.Location{PeerID: h.ID().String(), Address: listenMultiaddr(h)}

	ctx := cmdContext()
	if err := submitPartialDecryptions(ctx, nodes, f.filename, hex.EncodeToString([]byte(f.witness)), loc); err != nil {
		return nil, err
	}

	rootLogger.Infof("decrypt: listening as %s, awaiting %d shares", h.ID(), f.threshold+1)
	awaitCtx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	client := core.NewDecryptClient(ct, f.threshold)
	return core.AwaitPlaintext(awaitCtx, client, transport.Inbox())
}

// listenMultiaddr turns h's first listen address into a fully dialable
// multiaddr, the form Location.Address expects a remote peer to parse.
func listenMultiaddr(h host.Host) string {
	addrs := h.Addrs()
	if len(addrs) == 0 {
		return ""
	}
	return fmt.Sprintf("%s/p2p/%s", addrs[0].String(), h.ID().String())
}

type decryptFlagSet struct {
	in        string
	filename  string
	witness   string
	nodes     string
	threshold uint32
	bindPort  int
	timeout   time.Duration
	out       string
}

var decryptFlags decryptFlagSet

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Submit a decryption request and reconstruct a sealed document",
	RunE: func(cmd *cobra.Command, args []string) error {
		plaintext, err := DecryptController{}.Run(decryptFlags)
		if err != nil {
			return err
		}
		if decryptFlags.out == "" {
			_, err := cmd.OutOrStdout().Write(plaintext)
			return err
		}
		return os.WriteFile(decryptFlags.out, plaintext, 0o644)
	},
}

func init() {
	decryptCmd.Flags().StringVar(&decryptFlags.in, "in", "", "ciphertext file to open")
	decryptCmd.Flags().StringVar(&decryptFlags.filename, "filename", "", "the filename this document was registered under")
	decryptCmd.Flags().StringVar(&decryptFlags.witness, "witness", "", "witness satisfying the document's intent statement")
	decryptCmd.Flags().StringVar(&decryptFlags.nodes, "nodes", "", "comma-separated committee worker RPC endpoints, e.g. http://127.0.0.1:8080,http://127.0.0.1:8081")
	decryptCmd.Flags().Uint32Var(&decryptFlags.threshold, "threshold", 1, "decryption threshold (t)")
	decryptCmd.Flags().IntVar(&decryptFlags.bindPort, "bind-port", 4101, "libp2p listen port for inbound shares")
	decryptCmd.Flags().DurationVar(&decryptFlags.timeout, "timeout", 30*time.Second, "how long to wait for enough shares")
	decryptCmd.Flags().StringVar(&decryptFlags.out, "out", "", "plaintext output path, defaults to stdout")
	_ = decryptCmd.MarkFlagRequired("in")
	_ = decryptCmd.MarkFlagRequired("filename")
	_ = decryptCmd.MarkFlagRequired("witness")
	_ = decryptCmd.MarkFlagRequired("nodes")
}

func parseNodeEndpoints(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decrypt: --nodes must name at least one worker endpoint")
	}
	return out, nil
}

type partDecRequestBody struct {
	Filename   string `json:"filename"`
	WitnessHex string `json:"witness_hex"`
	PeerID     string `json:"peer_id"`
	Address    string `json:"address"`
}

// submitPartialDecryptions posts a partdec request to every node
// endpoint, asking each committee worker to verify the witness and push
// its share back to loc. A node that rejects or fails the request is
// logged and skipped; reconstruction only needs threshold+1 of them to
// actually respond.
func submitPartialDecryptions(ctx context.Context, nodes []string, filename, witnessHex string, loc core.Location) error {
	body, err := json.Marshal(partDecRequestBody{
		Filename:   filename,
		WitnessHex: witnessHex,
		PeerID:     loc.PeerID,
		Address:    loc.Address,
	})
	if err != nil {
		return fmt.Errorf("decrypt: encode partdec request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	submitted := 0
	for _, node := range nodes {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(node, "/")+"/partdec", bytes.NewReader(body))
		if err != nil {
			rootLogger.Warnf("decrypt: build request for %s: %v", node, err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			rootLogger.Warnf("decrypt: submit to %s: %v", node, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			rootLogger.Warnf("decrypt: %s rejected partdec request: %s", node, resp.Status)
			continue
		}
		submitted++
	}
	if submitted == 0 {
		return fmt.Errorf("decrypt: no worker accepted the partdec request")
	}
	return nil
}
