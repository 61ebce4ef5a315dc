package rates

import (
	"context"
	"strconv"

	"go.uber.org/zap"
)

// FallbackRate is used whenever the authoritative rate cannot be obtained
const FallbackRate = "1"

// Resolver turns a canonical currency code into a USD exchange rate string.
// Rates embedded in extracted receipt data are never consulted; the rate is
// always re-derived from the rate service so extraction noise cannot leak
// into financial totals.
type Resolver struct {
	source RateSource
	logger *zap.Logger
}

// NewResolver creates a new rate resolver
func NewResolver(source RateSource, logger *zap.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logger,
	}
}

// Resolve returns the units-per-USD rate for a canonical currency code as a
// decimal string. USD short-circuits without any network call. Lookup
// failures and unknown codes degrade to FallbackRate; Resolve never fails.
func (r *Resolver) Resolve(ctx context.Context, code string) string {
	if code == "USD" {
		return FallbackRate
	}

	table, err := r.source.GetRates(ctx)
	if err != nil {
		r.logger.Warn("Rate lookup failed, using fallback rate",
			zap.String("currency", code),
			zap.Error(err))
		return FallbackRate
	}

	rate, ok := table[code]
	if !ok || rate <= 0 {
		r.logger.Warn("Currency missing from rate table, using fallback rate",
			zap.String("currency", code))
		return FallbackRate
	}

	return strconv.FormatFloat(rate, 'f', -1, 64)
}
