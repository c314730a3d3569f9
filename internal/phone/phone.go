// Package phone supplies the phone number an agent is activated with.
package phone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// DefaultPlaceholderNumber is used until real provisioning is configured.
const DefaultPlaceholderNumber = "+1234567890"

// ErrNoNumbers is returned when a search finds nothing to offer.
var ErrNoNumbers = errors.New("no phone numbers available")

// Source yields a number for a new agent.
type Source interface {
	Acquire(ctx context.Context) (domain.PhoneNumber, error)
}

// Placeholder hands out a fixed number with a unique reference. It is not
// suitable for production: every agent gets the same number.
type Placeholder struct {
	Number string
}

// Acquire implements Source.
func (p Placeholder) Acquire(context.Context) (domain.PhoneNumber, error) {
	number := p.Number
	if number == "" {
		number = DefaultPlaceholderNumber
	}
	return domain.PhoneNumber{
		PhoneNumber:  number,
		SID:          "placeholder_" + uuid.NewString(),
		FriendlyName: "Placeholder",
	}, nil
}

// Lister is the backend call Backend depends on.
type Lister interface {
	AvailablePhoneNumbers(ctx context.Context, areaCode string, limit int) ([]domain.PhoneNumber, error)
}

// Backend takes the first number the Vami backend offers.
type Backend struct {
	API      Lister
	AreaCode string
}

// Acquire implements Source.
func (b Backend) Acquire(ctx context.Context) (domain.PhoneNumber, error) {
	numbers, err := b.API.AvailablePhoneNumbers(ctx, b.AreaCode, 1)
	if err != nil {
		return domain.PhoneNumber{}, fmt.Errorf("list available numbers: %w", err)
	}
	if len(numbers) == 0 {
		return domain.PhoneNumber{}, ErrNoNumbers
	}
	return numbers[0], nil
}

// LocalNumberLister is the Twilio API surface Twilio uses.
type LocalNumberLister interface {
	ListAvailablePhoneNumberLocal(countryCode string, params *twilioApi.ListAvailablePhoneNumberLocalParams) ([]twilioApi.ApiV2010AvailablePhoneNumberLocal, error)
}

// Twilio searches voice-capable local numbers directly in Twilio.
type Twilio struct {
	api      LocalNumberLister
	country  string
	areaCode string
	logger   *slog.Logger
}

// NewTwilio creates a Twilio source from account credentials.
func NewTwilio(accountSID, authToken, areaCode string) (*Twilio, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("account SID and auth token must be provided")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewTwilioWithAPI(client.Api, areaCode), nil
}

// NewTwilioWithAPI creates a Twilio source over an existing API client.
func NewTwilioWithAPI(api LocalNumberLister, areaCode string) *Twilio {
	return &Twilio{api: api, country: "US", areaCode: areaCode, logger: slog.Default()}
}

// Search returns up to limit voice-enabled local numbers.
func (t *Twilio) Search(ctx context.Context, limit int) ([]domain.PhoneNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &twilioApi.ListAvailablePhoneNumberLocalParams{}
	params.SetVoiceEnabled(true)
	params.SetLimit(limit)
	if t.areaCode != "" {
		code, err := strconv.Atoi(t.areaCode)
		if err != nil {
			return nil, fmt.Errorf("invalid area code %q: %w", t.areaCode, err)
		}
		params.SetAreaCode(code)
	}

	found, err := t.api.ListAvailablePhoneNumberLocal(t.country, params)
	if err != nil {
		t.logger.Error("Twilio number search failed", "area_code", t.areaCode, "error", err)
		return nil, fmt.Errorf("search twilio numbers: %w", err)
	}

	numbers := make([]domain.PhoneNumber, 0, len(found))
	for _, n := range found {
		numbers = append(numbers, domain.PhoneNumber{
			PhoneNumber:  deref(n.PhoneNumber),
			FriendlyName: deref(n.FriendlyName),
			Locality:     deref(n.Locality),
			Region:       deref(n.Region),
			PostalCode:   deref(n.PostalCode),
		})
	}
	return numbers, nil
}

// Acquire implements Source.
func (t *Twilio) Acquire(ctx context.Context) (domain.PhoneNumber, error) {
	numbers, err := t.Search(ctx, 1)
	if err != nil {
		return domain.PhoneNumber{}, err
	}
	if len(numbers) == 0 || numbers[0].PhoneNumber == "" {
		return domain.PhoneNumber{}, ErrNoNumbers
	}
	return numbers[0], nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
