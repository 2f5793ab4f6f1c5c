package core

// HTTP RPC surface: /preprocess and /partdec, the two operations spec
// §4.9/§4.10 name as the interface an encrypt/decrypt client drives.
// Grounded on the teacher's go-chi/chi/v5 routing (its direct
// dependency, previously exercised by the wallet HTTP surface) and on
// original_source/fangorn/src/rpc/server.rs's NodeServer for the
// preprocess/partdec request shapes, translated from tonic/protobuf to
// plain JSON-over-chi.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RPCServer exposes a worker's preprocess/partdec operations over HTTP.
type RPCServer struct {
	sm      *StateMachine
	handler *RequestHandler
	logger  *logrus.Logger
	mux     *chi.Mux
}

// NewRPCServer builds the chi router for a worker's RPC surface.
func NewRPCServer(sm *StateMachine, handler *RequestHandler, lg *logrus.Logger) *RPCServer {
	s := &RPCServer{sm: sm, handler: handler, logger: lg}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Post("/preprocess", s.handlePreprocess)
	r.Post("/partdec", s.handlePartDec)
	s.mux = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *RPCServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type preprocessRequest struct {
	Subset []uint32 `json:"subset"`
}

type preprocessResponse struct {
	HexSystemKey string `json:"hex_system_key"`
}

func (s *RPCServer) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	var req preprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap := s.sm.Snapshot()
	if snap.SystemKeys == nil || len(req.Subset) == 0 {
		http.Error(w, ErrLTSNotReady.Error(), http.StatusServiceUnavailable)
		return
	}
	agg, err := snap.SystemKeys.Aggregate(req.Subset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	ekBytes := agg.EncryptionKey.Bytes()

	writeJSON(w, preprocessResponse{HexSystemKey: hex.EncodeToString(ekBytes[:])})
}

type partDecRequest struct {
	Filename   string `json:"filename"`
	WitnessHex string `json:"witness_hex"`
	PeerID     string `json:"peer_id"`
	Address    string `json:"address"`
}

type partDecResponse struct {
	Accepted bool `json:"accepted"`
}

func (s *RPCServer) handlePartDec(w http.ResponseWriter, r *http.Request) {
	var req partDecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dr := DecryptionRequest{
		Filename:   Filename(req.Filename),
		WitnessHex: req.WitnessHex,
		Location:   Location{PeerID: req.PeerID, Address: req.Address},
	}
	// Fire the pipeline asynchronously: partdec's contract is "accepted
	// for processing", not "here is your share" (that arrives over the
	// direct transport per spec §3).
	go s.handler.Handle(context.Background(), dr)

	writeJSON(w, partDecResponse{Accepted: true})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
