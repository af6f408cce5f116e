package rpc

import (
	"net/http"
	"strings"
)

type partnerIssueParams struct {
	Capability       string `json:"capability"`
	Owner            string `json:"owner"`
	CollateralSymbol string `json:"collateralSymbol"`
	CollateralUnits  uint64 `json:"collateralUnits"`
}

type partnerMintParams struct {
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type partnerTopUpParams struct {
	Token           string `json:"token"`
	AdditionalUnits uint64 `json:"additionalUnits"`
}

type partnerSetPausedParams struct {
	Token  string `json:"token"`
	Paused bool   `json:"paused"`
}

type partnerGetParams struct {
	ID string `json:"id"`
}

// PartnerIssueResult returns the bearer token exactly once; the node only
// stores its proof hash.
type PartnerIssueResult struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// PartnerResult is the public view of a stored capability. The proof hash
// stays private.
type PartnerResult struct {
	ID                  string `json:"id"`
	Owner               string `json:"owner"`
	Paused              bool   `json:"paused"`
	CollateralSymbol    string `json:"collateralSymbol"`
	CollateralUnits     uint64 `json:"collateralUnits"`
	CollateralValueUSD  uint64 `json:"collateralValueUsd"`
	DailyQuotaPts       uint64 `json:"dailyQuotaPts"`
	MintRemainingToday  uint64 `json:"mintRemainingToday"`
	TotalMintedLifetime uint64 `json:"totalMintedLifetime"`
}

func (s *Server) handlePartnerIssue(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params partnerIssueParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if strings.TrimSpace(params.Capability) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "capability is required", nil)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	token, id, err := s.node.IssueCapability(params.Capability, owner, params.CollateralSymbol, params.CollateralUnits)
	if err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, PartnerIssueResult{ID: formatHash(id), Token: token})
}

func (s *Server) handlePartnerMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params partnerMintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	if err := s.node.MintAsPartner(params.Token, recipient, params.Amount); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.balanceResult(recipient))
}

func (s *Server) handlePartnerTopUp(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params partnerTopUpParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.TopUpCollateral(params.Token, params.AdditionalUnits); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handlePartnerSetPaused(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params partnerSetPausedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetPartnerPaused(params.Token, params.Paused); err != nil {
		writeNodeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handlePartnerGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params partnerGetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseHash(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid capability id", err.Error())
		return
	}
	capability, ok := s.node.PartnerCapability(id)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "capability not found", params.ID)
		return
	}
	writeResult(w, req.ID, PartnerResult{
		ID:                  formatHash(capability.ID),
		Owner:               formatAddress(capability.Owner),
		Paused:              capability.Paused,
		CollateralSymbol:    capability.CollateralSymbol,
		CollateralUnits:     capability.CollateralUnits,
		CollateralValueUSD:  capability.CollateralValueUSD,
		DailyQuotaPts:       capability.DailyQuotaPts,
		MintRemainingToday:  s.node.PartnerMintRemaining(id),
		TotalMintedLifetime: capability.TotalMintedLifetime,
	})
}
