package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"QuantumLink/internal/attestation"
	"QuantumLink/internal/bridge"
	"QuantumLink/internal/logger"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 20 // 1 MB

	// snapshotTickHeader carries the tick of the served snapshot.
	snapshotTickHeader = "X-Snapshot-Tick"
)

// Bridge is the state machine the API invokes.
type Bridge interface {
	LockAssets(req bridge.LockRequest) (bridge.LockResult, error)
	UnlockAssets(req bridge.UnlockRequest) (bridge.UnlockResult, error)
	GetBridgeState(id uint64) (bridge.BridgeState, error)
	TotalLockedByID(assetID uint64) uint64
	Info() bridge.Info
	Pause() error
	Unpause() error
}

// Attestor applies aggregated certificates.
type Attestor interface {
	Apply(cert *attestation.Certificate) error
}

// VoteSink collects individual attestation votes.
type VoteSink interface {
	Add(v attestation.Vote) (*attestation.Certificate, error)
}

// SnapshotSource provides the latest compressed snapshot.
type SnapshotSource interface {
	Latest() (data []byte, tick uint64)
}

// Server is the HTTP API server.
type Server struct {
	addr      string            // addr is the HTTP listen address
	bridge    Bridge            // bridge executes operations
	attestor  Attestor          // attestor applies certificates (nil disables POST /attest)
	votes     VoteSink          // votes collects votes (nil disables POST /attest/vote)
	snapshots SnapshotSource    // snapshots serves GET /snapshot (nil disables it)
	admin     *bridge.PublicKey // admin may pause and unpause (nil disables /admin)
	replay    *ReplayGuard      // replay rejects reused signed requests
	server    *http.Server      // server is the underlying HTTP server
}

// Option configures the Server during creation.
type Option func(*Server)

// WithAttestation enables the certificate and vote endpoints.
func WithAttestation(attestor Attestor, votes VoteSink) Option {
	return func(s *Server) {
		s.attestor = attestor
		s.votes = votes
	}
}

// WithSnapshots enables GET /snapshot.
func WithSnapshots(src SnapshotSource) Option {
	return func(s *Server) {
		s.snapshots = src
	}
}

// WithAdmin sets the key allowed to pause and unpause.
func WithAdmin(key bridge.PublicKey) Option {
	return func(s *Server) {
		s.admin = &key
	}
}

// New creates a new HTTP API server.
func New(addr string, b Bridge, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		bridge: b,
		replay: NewReplayGuard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// routes registers every endpoint.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /lock", s.handleLock)
	mux.HandleFunc("POST /unlock", s.handleUnlock)
	mux.HandleFunc("GET /bridge/{id}", s.handleBridgeState)
	mux.HandleFunc("GET /locked/{asset}", s.handleLocked)
	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("POST /attest", s.handleAttest)
	mux.HandleFunc("POST /attest/vote", s.handleVote)
	mux.HandleFunc("POST /admin/pause", s.handlePause)
	mux.HandleFunc("POST /admin/unpause", s.handleUnpause)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Handler returns the API routes without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log := logger.With("addr", s.addr)

	go func() {
		log.Info("http api started")

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	defer s.replay.Close()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleLock handles POST /lock requests.
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var body LockBody
	if !readJSON(w, r, &body) {
		return
	}

	dest, err := decodeKey(body.Destination, "destination")
	if err != nil {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, err.Error())
		return
	}

	asset := body.Asset.asset()

	signer, digest, ok := s.admit(w, &body.Envelope, OpLock, LockPayload(asset, body.Amount, dest))
	if !ok {
		return
	}

	res, err := s.bridge.LockAssets(bridge.LockRequest{
		Invocator:   bridge.Address(signer),
		Asset:       asset,
		Amount:      body.Amount,
		Destination: dest,
	})
	if err != nil {
		s.replay.Forget(digest)
		writeError(w, statusOf(res.Reason), res.Reason, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   res.Success,
		"bridgeId":  res.BridgeID,
		"timestamp": res.Timestamp,
	})
}

// handleUnlock handles POST /unlock requests.
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var body UnlockBody
	if !readJSON(w, r, &body) {
		return
	}

	if len(body.Signatures) > bridge.MaxValidators {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput,
			fmt.Sprintf("%d signatures exceeds max %d", len(body.Signatures), bridge.MaxValidators))
		return
	}

	sigs, err := decodeSignatures(body.Signatures)
	if err != nil {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, err.Error())
		return
	}

	asset := body.Asset.asset()
	payload := UnlockPayload(asset, body.Amount, body.BridgeID, sigs, body.SignatureCount)

	signer, digest, ok := s.admit(w, &body.Envelope, OpUnlock, payload)
	if !ok {
		return
	}

	res, err := s.bridge.UnlockAssets(bridge.UnlockRequest{
		Invocator:      bridge.Address(signer),
		Asset:          asset,
		Amount:         body.Amount,
		BridgeID:       body.BridgeID,
		Signatures:     sigs,
		SignatureCount: body.SignatureCount,
	})
	if err != nil {
		s.replay.Forget(digest)
		writeError(w, statusOf(res.Reason), res.Reason, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   res.Success,
		"timestamp": res.Timestamp,
	})
}

// handleBridgeState handles GET /bridge/{id} requests.
func (s *Server) handleBridgeState(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, "invalid bridge id")
		return
	}

	state, err := s.bridge.GetBridgeState(id)
	if err != nil {
		reason := bridge.ReasonOf(err)
		writeError(w, statusOf(reason), reason, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction":   EncodeTransaction(&state.Transaction),
		"status":        state.Status.String(),
		"confirmations": state.Confirmations,
	})
}

// handleLocked handles GET /locked/{asset} requests.
func (s *Server) handleLocked(w http.ResponseWriter, r *http.Request) {
	assetID, err := strconv.ParseUint(r.PathValue("asset"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, "invalid asset id")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset":  assetID,
		"amount": s.bridge.TotalLockedByID(assetID),
	})
}

// handleInfo handles GET /info requests.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := s.bridge.Info()

	writeJSON(w, http.StatusOK, map[string]any{
		"totalLocked":           info.TotalLocked,
		"totalUnlocked":         info.TotalUnlocked,
		"totalRefunded":         info.TotalRefunded,
		"totalTransfers":        info.TotalTransfers,
		"totalValidatorActions": info.TotalValidatorActions,
		"nextId":                info.NextID,
		"oldestUnresolved":      info.OldestUnresolved,
		"unresolved":            info.Unresolved,
		"capacity":              info.Capacity,
		"trackedAssets":         info.TrackedAssets,
		"paused":                info.Paused,
		"validators":            info.Validators,
		"threshold":             info.Threshold,
		"minLockAmount":         info.MinLockAmount,
		"maxLockAmount":         info.MaxLockAmount,
		"journalHealthy":        info.JournalHealthy,
	})
}

// handleAttest handles POST /attest requests.
func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	if s.attestor == nil {
		writeError(w, http.StatusServiceUnavailable, bridge.ReasonNone, "attestation not available")
		return
	}

	var body CertificateJSON
	if !readJSON(w, r, &body) {
		return
	}

	cert, err := decodeCertificate(&body)
	if err != nil {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, err.Error())
		return
	}

	if err := s.attestor.Apply(cert); err != nil {
		writeAttestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bridgeId": cert.BridgeID,
		"verdict":  cert.Verdict.String(),
	})
}

// handleVote handles POST /attest/vote requests.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if s.votes == nil {
		writeError(w, http.StatusServiceUnavailable, bridge.ReasonNone, "attestation not available")
		return
	}

	var body VoteJSON
	if !readJSON(w, r, &body) {
		return
	}

	vote, err := decodeVote(&body)
	if err != nil {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, err.Error())
		return
	}

	cert, err := s.votes.Add(vote)
	if err != nil {
		writeAttestError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"bridgeId": vote.BridgeID,
		"applied":  cert != nil,
	})
}

// handlePause handles POST /admin/pause requests.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if s.authorizeAdmin(w, r, OpPause) {
		if err := s.bridge.Pause(); err != nil {
			reason := bridge.ReasonOf(err)
			writeError(w, statusOf(reason), reason, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
	}
}

// handleUnpause handles POST /admin/unpause requests.
func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	if s.authorizeAdmin(w, r, OpUnpause) {
		if err := s.bridge.Unpause(); err != nil {
			reason := bridge.ReasonOf(err)
			writeError(w, statusOf(reason), reason, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
	}
}

// authorizeAdmin checks that the request is signed by the admin key.
func (s *Server) authorizeAdmin(w http.ResponseWriter, r *http.Request, op Op) bool {
	if s.admin == nil {
		writeError(w, http.StatusServiceUnavailable, bridge.ReasonNone, "admin not configured")
		return false
	}

	var body AdminBody
	if !readJSON(w, r, &body) {
		return false
	}

	signer, _, ok := s.admit(w, &body.Envelope, op, nil)
	if !ok {
		return false
	}

	if signer != *s.admin {
		writeError(w, http.StatusForbidden, bridge.ReasonNone, "signer is not the admin")
		return false
	}

	return true
}

// handleSnapshot handles GET /snapshot requests.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, bridge.ReasonNone, "snapshots not available")
		return
	}

	data, tick := s.snapshots.Latest()
	if data == nil {
		writeError(w, http.StatusServiceUnavailable, bridge.ReasonNone, "no snapshot yet")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(snapshotTickHeader, strconv.FormatUint(tick, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// admit verifies the envelope signature and admits it past the replay guard.
func (s *Server) admit(w http.ResponseWriter, env *Envelope, op Op, payload []byte) (bridge.PublicKey, [32]byte, bool) {
	signer, digest, err := env.open(op, payload)
	if err != nil {
		writeError(w, http.StatusUnauthorized, bridge.ReasonNone, err.Error())
		return signer, digest, false
	}

	if !s.replay.Admit(digest, env.Expires) {
		writeError(w, http.StatusConflict, bridge.ReasonNone, "request expired or already executed")
		return signer, digest, false
	}

	return signer, digest, true
}

// readJSON decodes a bounded JSON body, writing an error response on failure.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, "failed to read body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, fmt.Sprintf("invalid json: %v", err))
		return false
	}

	return true
}

// statusOf maps a failure reason to an HTTP status.
func statusOf(reason bridge.Reason) int {
	switch reason {
	case bridge.ReasonInvalidInput:
		return http.StatusBadRequest
	case bridge.ReasonInsufficientBalance:
		return http.StatusUnprocessableEntity
	case bridge.ReasonCapacityExceeded, bridge.ReasonPaused, bridge.ReasonStorageFailure:
		return http.StatusServiceUnavailable
	case bridge.ReasonUnknownTransaction:
		return http.StatusNotFound
	case bridge.ReasonInvalidState:
		return http.StatusConflict
	case bridge.ReasonQuorumNotMet:
		return http.StatusForbidden
	case bridge.ReasonLedgerGatewayFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAttestError maps attestation failures to a response.
func writeAttestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attestation.ErrBadCertificate), errors.Is(err, attestation.ErrBadVote):
		writeError(w, http.StatusBadRequest, bridge.ReasonInvalidInput, err.Error())
	case errors.Is(err, attestation.ErrNotEnoughSigners), errors.Is(err, attestation.ErrUnknownSigner):
		writeError(w, http.StatusForbidden, bridge.ReasonQuorumNotMet, err.Error())
	case errors.Is(err, attestation.ErrPoolFull):
		writeError(w, http.StatusServiceUnavailable, bridge.ReasonCapacityExceeded, err.Error())
	default:
		reason := bridge.ReasonOf(err)
		writeError(w, statusOf(reason), reason, err.Error())
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with its failure reason.
func writeError(w http.ResponseWriter, status int, reason bridge.Reason, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"reason":  reason.String(),
		"error":   message,
	})
}
