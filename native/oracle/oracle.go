package oracle

import (
	"errors"
	"fmt"
	"strings"

	"alphapoints/core/events"
	"alphapoints/native/gov"
)

var (
	// ErrStaleOracle is returned when a consumer asks for a price whose
	// last update is older than the staleness threshold. There is no
	// fallback price.
	ErrStaleOracle = errors.New("oracle: stale price")
	// ErrPriceNotFound is returned when no price was ever posted for the
	// requested collateral symbol.
	ErrPriceNotFound = errors.New("oracle: price not found")
	// ErrInvalidSymbol is returned for empty collateral symbols.
	ErrInvalidSymbol = errors.New("oracle: invalid symbol")
)

// Price is the stored quote for one collateral type, denominated in USD with
// PRECISION fixed-point scaling (see partner.Precision).
type Price struct {
	Symbol                   string
	USDPerUnit               uint64
	UpdatedEpoch             uint64
	StalenessThresholdEpochs uint64
}

// IsStale reports whether the quote is too old to trust at the given epoch.
// The comparison is strictly greater-than: a quote exactly at the threshold
// is still usable.
func (p Price) IsStale(currentEpoch uint64) bool {
	if currentEpoch <= p.UpdatedEpoch {
		return false
	}
	return currentEpoch-p.UpdatedEpoch > p.StalenessThresholdEpochs
}

// State is the persistence surface the oracle needs.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Authority verifies the oracle-update capability.
type Authority interface {
	Verify(cap *gov.Capability, kind string) error
}

// Engine stores collateral prices and enforces staleness on reads. Price
// updates are authority-gated but deliberately not pause-gated: the feed must
// keep flowing while the protocol is halted so it can resume against fresh
// data.
type Engine struct {
	st        State
	authority Authority
	emitter   events.Emitter
}

// NewEngine creates an oracle engine.
func NewEngine(st State, authority Authority) *Engine {
	return &Engine{st: st, authority: authority, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func priceKey(symbol string) []byte {
	return []byte("oracle/price/" + symbol)
}

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// SetPrice posts a new quote for the collateral symbol. Requires the oracle
// capability.
func (e *Engine) SetPrice(cap *gov.Capability, symbol string, usdPerUnit, epoch, stalenessThreshold uint64) error {
	if err := e.authority.Verify(cap, gov.KindOracle); err != nil {
		return err
	}
	normalised := normaliseSymbol(symbol)
	if normalised == "" {
		return ErrInvalidSymbol
	}
	price := Price{
		Symbol:                   normalised,
		USDPerUnit:               usdPerUnit,
		UpdatedEpoch:             epoch,
		StalenessThresholdEpochs: stalenessThreshold,
	}
	if err := e.st.KVPut(priceKey(normalised), price); err != nil {
		return fmt.Errorf("oracle: persist price %s: %w", normalised, err)
	}
	e.emitter.Emit(events.OraclePriceUpdated{Symbol: normalised, PriceUSDPerUnit: usdPerUnit, Epoch: epoch})
	return nil
}

// Price returns the stored quote without any staleness check. Read-only
// consumers (dashboards) use this.
func (e *Engine) Price(symbol string) (Price, bool, error) {
	var price Price
	ok, err := e.st.KVGet(priceKey(normaliseSymbol(symbol)), &price)
	if err != nil {
		return Price{}, false, err
	}
	return price, ok, nil
}

// FreshPrice returns the quote for the symbol, failing with ErrStaleOracle
// when the quote is older than its staleness threshold at the given epoch.
// Valuation paths (capability issuance, collateral top-ups) must use this.
func (e *Engine) FreshPrice(symbol string, currentEpoch uint64) (Price, error) {
	price, ok, err := e.Price(symbol)
	if err != nil {
		return Price{}, err
	}
	if !ok {
		return Price{}, fmt.Errorf("%w: %s", ErrPriceNotFound, normaliseSymbol(symbol))
	}
	if price.IsStale(currentEpoch) {
		return Price{}, fmt.Errorf("%w: %s updated at epoch %d", ErrStaleOracle, price.Symbol, price.UpdatedEpoch)
	}
	return price, nil
}
