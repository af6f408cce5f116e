package rpc

import (
	"net/http"
	"strings"
)

type mintParams struct {
	Capability string `json:"capability"`
	Address    string `json:"address"`
	Amount     uint64 `json:"amount"`
}

type mintWithStakeParams struct {
	Address           string `json:"address"`
	Amount            uint64 `json:"amount"`
	StakeID           string `json:"stakeId"`
	LiquidityShareBps uint64 `json:"liquidityShareBps"`
}

type walletAmountParams struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

type walletParams struct {
	Address string `json:"address"`
}

// BalanceResult is the points_getBalance response.
type BalanceResult struct {
	Address     string `json:"address"`
	Available   uint64 `json:"available"`
	Locked      uint64 `json:"locked"`
	MintedToday uint64 `json:"mintedToday"`
}

// SupplyResult is the points_getSupply response. TotalIssued is the supply
// oracle's lifetime counter and only ever grows; totalSupply shrinks when
// points are spent.
type SupplyResult struct {
	TotalSupply   uint64 `json:"totalSupply"`
	TotalIssued   string `json:"totalIssued"`
	RedeemRateBps uint64 `json:"redeemRateBps"`
	Epoch         uint64 `json:"epoch"`
}

func (s *Server) handlePointsMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if strings.TrimSpace(params.Capability) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "capability is required", nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	if err := s.node.Mint(params.Capability, addr, params.Amount); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.balanceResult(addr))
}

func (s *Server) handlePointsMintWithStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params mintWithStakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	stakeID, err := parseHash(params.StakeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid stake id", err.Error())
		return
	}
	if err := s.node.MintWithStake(addr, params.Amount, stakeID, params.LiquidityShareBps); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.balanceResult(addr))
}

func (s *Server) handlePointsSpend(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleWalletMutation(w, req, s.node.Spend)
}

func (s *Server) handlePointsLock(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleWalletMutation(w, req, s.node.Lock)
}

func (s *Server) handlePointsUnlock(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleWalletMutation(w, req, s.node.Unlock)
}

func (s *Server) handleWalletMutation(w http.ResponseWriter, req *RPCRequest, op func([20]byte, uint64) error) {
	var params walletAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	if err := op(addr, params.Amount); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.balanceResult(addr))
}

func (s *Server) handlePointsGetBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params walletParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	writeResult(w, req.ID, s.balanceResult(addr))
}

func (s *Server) handlePointsGetSupply(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, SupplyResult{
		TotalSupply:   s.node.TotalSupply(),
		TotalIssued:   s.node.TotalIssued().String(),
		RedeemRateBps: s.node.RedeemRateBps(),
		Epoch:         s.node.CurrentEpoch(),
	})
}

func (s *Server) balanceResult(addr [20]byte) BalanceResult {
	return BalanceResult{
		Address:     formatAddress(addr),
		Available:   s.node.AvailableBalance(addr),
		Locked:      s.node.LockedBalance(addr),
		MintedToday: s.node.MintedToday(addr),
	}
}
