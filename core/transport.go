package core

// Direct partial-decryption delivery: once a worker has computed its
// share, it dials the requester's libp2p peer directly rather than
// routing the (potentially large) share through the replicated doc.
// Spec §3 calls this the "direct transport" path, separate from the
// gossip layer docreplica.go implements.

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/multiformats/go-multiaddr"
	"github.com/sirupsen/logrus"
)

// PartialDecryptionProtocol is the libp2p stream protocol ID fangorn
// workers speak to deliver a share directly to a requester.
const PartialDecryptionProtocol = "/fangorn/partial-decryption/0"

// LibP2PTransport implements PartialDecryptionSender over a direct
// libp2p stream, and also serves as the inbound handler a requester
// registers to receive shares.
type LibP2PTransport struct {
	host   host.Host
	logger *logrus.Logger
	inbox  chan PartialDecryptionMessage
}

// NewLibP2PTransport registers the partial-decryption stream handler on
// h and returns a transport that can both send and receive shares.
func NewLibP2PTransport(h host.Host, lg *logrus.Logger) *LibP2PTransport {
	t := &LibP2PTransport{host: h, logger: lg, inbox: make(chan PartialDecryptionMessage, 64)}
	h.SetStreamHandler(PartialDecryptionProtocol, t.handleStream)
	return t
}

// Inbox delivers messages received from other workers.
func (t *LibP2PTransport) Inbox() <-chan PartialDecryptionMessage {
	return t.inbox
}

func (t *LibP2PTransport) handleStream(s network.Stream) {
	defer s.Close()
	msg, err := readPartialDecryptionMessage(s)
	if err != nil {
		t.logger.Warnf("transport: malformed inbound share: %v", err)
		return
	}
	select {
	case t.inbox <- msg:
	default:
		t.logger.Warn("transport: inbox full, dropping share")
	}
	// one-byte ack so the sender's stream doesn't hang waiting on EOF; the
	// sender reads it but does not compare it with what it sent
	_, _ = s.Write([]byte{1})
}

// Send delivers msg to loc over a fresh stream. loc.Address, when
// present, is a multiaddr the host doesn't yet know how to dial (e.g. a
// one-off decrypt client the committee has never seen); it is added to
// the peerstore before opening the stream. An empty Address relies on
// the host already knowing a route to the peer (e.g. a fellow committee
// member reached before over pubsub).
func (t *LibP2PTransport) Send(ctx context.Context, loc Location, msg PartialDecryptionMessage) error {
	pid, err := peer.Decode(loc.PeerID)
	if err != nil {
		return fmt.Errorf("transport: malformed peer id %q: %w", loc.PeerID, err)
	}
	if loc.Address != "" {
		addr, err := multiaddr.NewMultiaddr(loc.Address)
		if err != nil {
			return fmt.Errorf("transport: malformed address %q: %w", loc.Address, err)
		}
		t.host.Peerstore().AddAddr(pid, addr, peerstore.TempAddrTTL)
	}
	s, err := t.host.NewStream(ctx, pid, PartialDecryptionProtocol)
	if err != nil {
		return fmt.Errorf("transport: open stream to %s: %w", pid, err)
	}
	defer s.Close()

	if err := writePartialDecryptionMessage(s, msg); err != nil {
		return fmt.Errorf("transport: write share: %w", err)
	}
	ack := make([]byte, 1)
	if _, err := io.ReadFull(s, ack); err != nil {
		return fmt.Errorf("transport: await ack: %w", err)
	}
	return nil
}

func writePartialDecryptionMessage(w io.Writer, msg PartialDecryptionMessage) error {
	bw := bufio.NewWriter(w)
	if err := writeLenPrefixed(bw, msg.Filename); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, msg.Index); err != nil {
		return err
	}
	if err := writeLenPrefixed(bw, msg.ShareBytes); err != nil {
		return err
	}
	return bw.Flush()
}

func readPartialDecryptionMessage(r io.Reader) (PartialDecryptionMessage, error) {
	br := bufio.NewReader(r)
	filename, err := readLenPrefixed(br)
	if err != nil {
		return PartialDecryptionMessage{}, err
	}
	var index uint32
	if err := binary.Read(br, binary.BigEndian, &index); err != nil {
		return PartialDecryptionMessage{}, err
	}
	share, err := readLenPrefixed(br)
	if err != nil {
		return PartialDecryptionMessage{}, err
	}
	return PartialDecryptionMessage{Filename: filename, Index: index, ShareBytes: share}, nil
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
