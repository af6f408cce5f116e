package rpc

import (
	"net/http"
	"strings"
)

type stakeCreateParams struct {
	Owner           string `json:"owner"`
	Principal       uint64 `json:"principal"`
	DurationSeconds uint64 `json:"durationSeconds"`
}

type stakeFlagParams struct {
	StakeID    string `json:"stakeId"`
	Encumbered bool   `json:"encumbered"`
}

type stakeGetParams struct {
	StakeID string `json:"stakeId"`
}

type oracleSetPriceParams struct {
	Capability               string `json:"capability"`
	Symbol                   string `json:"symbol"`
	USDPerUnit               uint64 `json:"usdPerUnit"`
	StalenessThresholdEpochs uint64 `json:"stalenessThresholdEpochs"`
}

type oracleGetPriceParams struct {
	Symbol string `json:"symbol"`
}

type govSetPausedParams struct {
	Capability string `json:"capability"`
	Paused     bool   `json:"paused"`
}

type govTransferParams struct {
	Capability string `json:"capability"`
	Kind       string `json:"kind"`
	NewOwner   string `json:"newOwner"`
}

// StakeResult is the public view of a stake record.
type StakeResult struct {
	ID              string `json:"id"`
	Owner           string `json:"owner"`
	Principal       uint64 `json:"principal"`
	DurationSeconds uint64 `json:"durationSeconds"`
	CreatedAtEpoch  uint64 `json:"createdAtEpoch"`
	Encumbered      bool   `json:"encumbered"`
}

// PriceResult is the oracle_getPrice response. Stale reports whether the
// quote would currently be refused by valuation paths.
type PriceResult struct {
	Symbol                   string `json:"symbol"`
	USDPerUnit               uint64 `json:"usdPerUnit"`
	UpdatedEpoch             uint64 `json:"updatedEpoch"`
	StalenessThresholdEpochs uint64 `json:"stalenessThresholdEpochs"`
	Stale                    bool   `json:"stale"`
}

// RedeemRateResult is the supply_getRedeemRate response.
type RedeemRateResult struct {
	RedeemRateBps uint64 `json:"redeemRateBps"`
	TotalIssued   string `json:"totalIssued"`
	Epoch         uint64 `json:"epoch"`
}

// TransferResult carries the replacement capability encoding; the presented
// one stops working.
type TransferResult struct {
	Kind       string `json:"kind"`
	Capability string `json:"capability"`
}

func (s *Server) handleStakeCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeCreateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	id, err := s.node.CreateStake(owner, params.Principal, params.DurationSeconds)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.stakeResult(id))
}

func (s *Server) handleStakeSetEncumbered(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeFlagParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseHash(params.StakeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid stake id", err.Error())
		return
	}
	if err := s.node.SetStakeEncumbered(id, params.Encumbered); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.stakeResult(id))
}

func (s *Server) handleStakeUnstake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeGetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseHash(params.StakeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid stake id", err.Error())
		return
	}
	if err := s.node.Unstake(id); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleStakeGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeGetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseHash(params.StakeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid stake id", err.Error())
		return
	}
	if _, ok := s.node.Stake(id); !ok {
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "stake not found", params.StakeID)
		return
	}
	writeResult(w, req.ID, s.stakeResult(id))
}

func (s *Server) stakeResult(id [32]byte) *StakeResult {
	record, ok := s.node.Stake(id)
	if !ok {
		return nil
	}
	return &StakeResult{
		ID:              formatHash(record.ID),
		Owner:           formatAddress(record.Owner),
		Principal:       record.Principal,
		DurationSeconds: record.DurationSeconds,
		CreatedAtEpoch:  record.CreatedAtEpoch,
		Encumbered:      record.Encumbered,
	}
}

func (s *Server) handleOracleSetPrice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params oracleSetPriceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if strings.TrimSpace(params.Capability) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "capability is required", nil)
		return
	}
	if err := s.node.SetPrice(params.Capability, params.Symbol, params.USDPerUnit, params.StalenessThresholdEpochs); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleOracleGetPrice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params oracleGetPriceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, ok, err := s.node.CollateralPrice(params.Symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load price", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "price not found", params.Symbol)
		return
	}
	writeResult(w, req.ID, PriceResult{
		Symbol:                   price.Symbol,
		USDPerUnit:               price.USDPerUnit,
		UpdatedEpoch:             price.UpdatedEpoch,
		StalenessThresholdEpochs: price.StalenessThresholdEpochs,
		Stale:                    price.IsStale(s.node.CurrentEpoch()),
	})
}

func (s *Server) handleSupplyGetRedeemRate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, RedeemRateResult{
		RedeemRateBps: s.node.RedeemRateBps(),
		TotalIssued:   s.node.TotalIssued().String(),
		Epoch:         s.node.CurrentEpoch(),
	})
}

func (s *Server) handleGovSetPaused(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params govSetPausedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetPauseState(params.Capability, params.Paused); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, params.Paused)
}

func (s *Server) handleGovGetPaused(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, s.node.Paused())
}

func (s *Server) handleGovTransferCapability(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params govTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	newOwner, err := parseAddress(params.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid new owner address", err.Error())
		return
	}
	next, err := s.node.TransferCapability(params.Capability, params.Kind, newOwner)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, TransferResult{Kind: params.Kind, Capability: next})
}
