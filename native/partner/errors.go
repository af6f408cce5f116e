package partner

import "errors"

var (
	ErrPartnerPaused        = errors.New("partner: capability paused")
	ErrPartnerQuotaExceeded = errors.New("partner: daily quota exceeded")
	ErrCapabilityNotFound   = errors.New("partner: capability not found")
	ErrUnauthorized         = errors.New("partner: unauthorized")
	ErrInvalidCollateral    = errors.New("partner: invalid collateral")
	ErrMalformedToken       = errors.New("partner: malformed token encoding")
)
