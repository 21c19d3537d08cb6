package shipper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	// DefaultHomeProduct prefixes the option codes of the default carrier's
	// home-delivery product, preferred when pricing a checkout.
	DefaultHomeProduct = "colissimo:home"

	// MaxHomeOptions caps the number of distinct carriers offered for home delivery.
	MaxHomeOptions = 3
)

// letterPrefixes mark letter-class services, which cannot carry a book.
var letterPrefixes = []string{"sendcloud:letter"}

// ResolverConfig holds the fixed origin used for every rate query.
type ResolverConfig struct {
	OriginCountry    string
	OriginPostalCode string
}

// Resolver lists and prices shipping options for a destination.
type Resolver struct {
	registry *Registry
	config   ResolverConfig
	logger   *otelzap.Logger
}

// NewResolver creates a rate resolver over the registered carriers.
func NewResolver(registry *Registry, cfg ResolverConfig, logger *otelzap.Logger) *Resolver {
	if cfg.OriginCountry == "" {
		cfg.OriginCountry = HomeCountry
	}
	return &Resolver{
		registry: registry,
		config:   cfg,
		logger:   logger,
	}
}

type pricedCandidate struct {
	RateCandidate
	cents int64
}

// ListOptions returns the ranked shortlist shown to the buyer, cheapest first.
// Pickup-point destinations only see service-point options of the chosen
// carrier; home destinations see the cheapest option of up to three distinct
// carriers. No upstream data yields an empty list, not an error.
func (r *Resolver) ListOptions(ctx context.Context, dest Destination) ([]Quote, error) {
	mode, err := dest.Mode()
	if err != nil {
		return nil, err
	}

	q := r.query(dest, mode, ListingParcel, false)
	candidates, err := r.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	priced := make([]pricedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if isLetterService(c.Code) {
			continue
		}
		cents, err := PriceToCents(c.Price)
		if err != nil || cents < 0 {
			continue
		}
		priced = append(priced, pricedCandidate{RateCandidate: c, cents: cents})
	}

	switch m := mode.(type) {
	case PickupPoint:
		priced = filterCandidates(priced, func(c pricedCandidate) bool {
			return c.ServicePointRequired && c.CarrierCode == m.CarrierCode
		})
	case HomeDelivery:
		priced = filterCandidates(priced, func(c pricedCandidate) bool {
			return !c.ServicePointRequired
		})
		sortByPrice(priced)
		priced = cheapestPerCarrier(priced, MaxHomeOptions)
	}
	sortByPrice(priced)

	quotes := make([]Quote, len(priced))
	for i, c := range priced {
		quotes[i] = c.quote()
	}

	r.logger.Ctx(ctx).Debug("Listed shipping options",
		zap.String("mode", mode.String()),
		zap.String("country", q.Country),
		zap.Int("upstream", len(candidates)),
		zap.Int("options", len(quotes)),
	)
	return quotes, nil
}

// SelectBestPrice picks the single option used to price a checkout: the first
// service-point option for pickup destinations, else the first default home
// product, else whatever the API listed first.
func (r *Resolver) SelectBestPrice(ctx context.Context, dest Destination) (Quote, error) {
	mode, err := dest.Mode()
	if err != nil {
		return Quote{}, err
	}

	q := r.query(dest, mode, PricingParcel, true)
	candidates, err := r.fetch(ctx, q)
	if err != nil {
		return Quote{}, err
	}
	if len(candidates) == 0 {
		return Quote{}, fmt.Errorf("%w: no options returned for %s %s", ErrNoRateAvailable, q.Country, q.PostalCode)
	}

	chosen := selectCandidate(candidates, mode)
	if strings.TrimSpace(chosen.Price) == "" {
		return Quote{}, fmt.Errorf("%w: option %s has no quote", ErrNoRateAvailable, chosen.Code)
	}
	cents, err := PriceToCents(chosen.Price)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: option %s priced %q", ErrInvalidQuote, chosen.Code, chosen.Price)
	}
	if cents < 0 {
		return Quote{}, fmt.Errorf("%w: option %s priced below zero", ErrInvalidQuote, chosen.Code)
	}

	quote := pricedCandidate{RateCandidate: *chosen, cents: cents}.quote()
	r.logger.Ctx(ctx).Info("Selected shipping price",
		zap.String("mode", mode.String()),
		zap.String("option_code", quote.OptionCode),
		zap.Int64("price_cents", quote.PriceCents),
	)
	return quote, nil
}

func (r *Resolver) query(dest Destination, mode DeliveryMode, parcel Parcel, narrowCarrier bool) *RateQuery {
	q := &RateQuery{
		OriginCountry:    r.config.OriginCountry,
		OriginPostalCode: r.config.OriginPostalCode,
		Country:          dest.CountryOrDefault(),
		PostalCode:       StripPostalCode(dest.PostalCode),
		Parcel:           parcel,
		Mode:             mode,
	}
	if p, ok := mode.(PickupPoint); ok && narrowCarrier {
		q.CarrierCode = p.CarrierCode
	}
	return q
}

func (r *Resolver) fetch(ctx context.Context, q *RateQuery) ([]RateCandidate, error) {
	candidates, err := r.registry.FetchRates(ctx, q)
	if err != nil {
		r.logger.Ctx(ctx).Error("Rate API error",
			zap.String("country", q.Country),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRate, err)
	}
	return candidates, nil
}

func selectCandidate(candidates []RateCandidate, mode DeliveryMode) *RateCandidate {
	if IsPickupPoint(mode) {
		for i := range candidates {
			if candidates[i].ServicePointRequired {
				return &candidates[i]
			}
		}
	}
	for i := range candidates {
		if strings.HasPrefix(candidates[i].Code, DefaultHomeProduct) {
			return &candidates[i]
		}
	}
	return &candidates[0]
}

// PriceToCents converts a decimal price string to integer cents, rounding
// half away from zero ("12.345" -> 1235).
func PriceToCents(price string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// CentsToDecimal converts integer cents back to a two-place decimal.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func isLetterService(code string) bool {
	for _, p := range letterPrefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func filterCandidates(in []pricedCandidate, keep func(pricedCandidate) bool) []pricedCandidate {
	out := in[:0]
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func sortByPrice(c []pricedCandidate) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].cents < c[j].cents })
}

// cheapestPerCarrier keeps the first occurrence of each carrier in an already
// price-sorted slice, stopping at limit distinct carriers.
func cheapestPerCarrier(sorted []pricedCandidate, limit int) []pricedCandidate {
	seen := make(map[string]bool, limit)
	out := make([]pricedCandidate, 0, limit)
	for _, c := range sorted {
		if seen[c.CarrierCode] {
			continue
		}
		seen[c.CarrierCode] = true
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (c pricedCandidate) quote() Quote {
	return Quote{
		CarrierCode:   c.CarrierCode,
		CarrierName:   c.CarrierName,
		OptionCode:    c.Code,
		Name:          c.Name,
		IsPickupPoint: c.ServicePointRequired,
		PriceCents:    c.cents,
	}
}
