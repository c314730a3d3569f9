package pages

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/ashureev/vami-console/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

var (
	// ErrUnknownPlan is returned for a plan key not in the catalog. The
	// payment view sends the user back to pricing.
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrUnknownCycle is returned for a billing cycle other than monthly or yearly.
	ErrUnknownCycle = errors.New("unknown billing cycle")
	// ErrNoCheckoutURL is returned when the checkout session has no redirect.
	ErrNoCheckoutURL = errors.New("checkout session has no redirect url")
)

// Messages shown when checkout cannot start.
const (
	CheckoutFailedMessage = "Failed to create checkout session. Please try again."
	PaymentFailedMessage  = "Failed to process payment. Please try again."
)

// PricingPath is where an incomplete payment request is sent back to.
const PricingPath = "/pricing"

// Catalog is the ordered list of plans offered.
type Catalog struct {
	Plans []domain.Plan `yaml:"plans"`
}

// LoadCatalog reads the plan catalog from path, or the built-in catalog
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultPlans
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read plans file: %w", err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML plan catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	if len(c.Plans) == 0 {
		return nil, errors.New("plan catalog is empty")
	}
	seen := make(map[string]bool, len(c.Plans))
	for _, p := range c.Plans {
		if p.Key == "" {
			return nil, fmt.Errorf("plan %q has no key", p.Name)
		}
		if seen[p.Key] {
			return nil, fmt.Errorf("duplicate plan key %q", p.Key)
		}
		seen[p.Key] = true
	}
	return &c, nil
}

// Plan returns the plan with key.
func (c *Catalog) Plan(key string) (domain.Plan, bool) {
	for _, p := range c.Plans {
		if p.Key == key {
			return p, true
		}
	}
	return domain.Plan{}, false
}

// Offer is a plan priced for one billing cycle.
type Offer struct {
	domain.Plan
	Price   int    `json:"price"`
	PriceID string `json:"price_id"`
	Cycle   string `json:"billing_cycle"`
}

// Offers prices every plan for cycle.
func (c *Catalog) Offers(cycle string) ([]Offer, error) {
	offers := make([]Offer, 0, len(c.Plans))
	for _, p := range c.Plans {
		o, err := offerFor(p, cycle)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, nil
}

func offerFor(p domain.Plan, cycle string) (Offer, error) {
	switch cycle {
	case domain.CycleMonthly:
		return Offer{Plan: p, Price: p.MonthlyPrice, PriceID: p.PriceIDs.Monthly, Cycle: cycle}, nil
	case domain.CycleYearly:
		return Offer{Plan: p, Price: p.YearlyPrice, PriceID: p.PriceIDs.Yearly, Cycle: cycle}, nil
	default:
		return Offer{}, fmt.Errorf("%w: %q", ErrUnknownCycle, cycle)
	}
}

// Checkout creates a Stripe checkout session for a plan and cycle and
// returns the URL to redirect to.
func (l *Loader) Checkout(ctx context.Context, api Backend, planKey, cycle string) (string, error) {
	plan, ok := l.plans.Plan(planKey)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, planKey)
	}
	offer, err := offerFor(plan, cycle)
	if err != nil {
		return "", err
	}

	session, err := api.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		PriceID:      offer.PriceID,
		Plan:         plan.Key,
		BillingCycle: cycle,
	})
	if err != nil {
		return "", err
	}
	if session.CheckoutURL == "" {
		return "", ErrNoCheckoutURL
	}
	return session.CheckoutURL, nil
}
