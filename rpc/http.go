package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"alphapoints/core"
	"alphapoints/native/common"
	"alphapoints/native/gov"
	"alphapoints/native/partner"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRejected       = -32030
	codePaused         = -32040
)

// Server exposes the node's operations over JSON-RPC 2.0.
type Server struct {
	node      *core.Node
	authToken string
}

// NewServer creates a server for the node. Wallet-level mutations require the
// bearer token from POINTS_RPC_TOKEN; capability-gated methods carry their
// own authorization in the params.
func NewServer(node *core.Node) *Server {
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(os.Getenv("POINTS_RPC_TOKEN")),
	}
}

// SetAuthToken overrides the bearer token for wallet-level mutations.
func (s *Server) SetAuthToken(token string) {
	s.authToken = strings.TrimSpace(token)
}

// Start serves JSON-RPC on addr and blocks.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeNodeError maps the engine error taxonomy onto JSON-RPC codes. The
// original error string travels in the data field so callers can match on the
// sentinel text.
func writeNodeError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusBadRequest
	code := codeRejected
	switch {
	case errors.Is(err, gov.ErrUnauthorized),
		errors.Is(err, gov.ErrMalformedCapability),
		errors.Is(err, partner.ErrUnauthorized),
		errors.Is(err, partner.ErrCapabilityNotFound),
		errors.Is(err, partner.ErrMalformedToken):
		status = http.StatusForbidden
		code = codeUnauthorized
	case errors.Is(err, common.ErrProtocolPaused):
		status = http.StatusServiceUnavailable
		code = codePaused
	}
	writeError(w, status, id, code, "operation rejected", err.Error())
}

// parseAddress decodes a 0x-prefixed 20-byte hex address.
func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address encoding: %w", err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("address must be %d bytes", len(addr))
	}
	copy(addr[:], raw)
	return addr, nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// parseHash decodes a 0x-prefixed 32-byte hex identifier.
func parseHash(value string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("invalid identifier encoding: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("identifier must be %d bytes", len(id))
	}
	copy(id[:], raw)
	return id, nil
}

func formatHash(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

// decodeParams enforces the single-parameter-object convention.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object: %w", err)
	}
	return nil
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	switch req.Method {
	case "points_mint":
		s.handlePointsMint(w, r, req)
	case "points_mintWithStake":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handlePointsMintWithStake(w, r, req)
	case "points_spend":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handlePointsSpend(w, r, req)
	case "points_lock":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handlePointsLock(w, r, req)
	case "points_unlock":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handlePointsUnlock(w, r, req)
	case "points_getBalance":
		s.handlePointsGetBalance(w, r, req)
	case "points_getSupply":
		s.handlePointsGetSupply(w, r, req)
	case "partner_issue":
		s.handlePartnerIssue(w, r, req)
	case "partner_mint":
		s.handlePartnerMint(w, r, req)
	case "partner_topUp":
		s.handlePartnerTopUp(w, r, req)
	case "partner_setPaused":
		s.handlePartnerSetPaused(w, r, req)
	case "partner_get":
		s.handlePartnerGet(w, r, req)
	case "stake_create":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleStakeCreate(w, r, req)
	case "stake_setEncumbered":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleStakeSetEncumbered(w, r, req)
	case "stake_unstake":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleStakeUnstake(w, r, req)
	case "stake_get":
		s.handleStakeGet(w, r, req)
	case "oracle_setPrice":
		s.handleOracleSetPrice(w, r, req)
	case "oracle_getPrice":
		s.handleOracleGetPrice(w, r, req)
	case "supply_getRedeemRate":
		s.handleSupplyGetRedeemRate(w, r, req)
	case "gov_setPaused":
		s.handleGovSetPaused(w, r, req)
	case "gov_getPaused":
		s.handleGovGetPaused(w, r, req)
	case "gov_transferCapability":
		s.handleGovTransferCapability(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}
