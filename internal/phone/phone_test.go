package phone

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

func TestPlaceholderIssuesUniqueReferences(t *testing.T) {
	p := Placeholder{}
	a, err := p.Acquire(context.Background())
	require.NoError(t, err)
	b, err := p.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultPlaceholderNumber, a.PhoneNumber)
	assert.True(t, strings.HasPrefix(a.SID, "placeholder_"))
	assert.NotEqual(t, a.SID, b.SID)
}

type fakeLister struct {
	numbers  []domain.PhoneNumber
	err      error
	areaCode string
}

func (f *fakeLister) AvailablePhoneNumbers(_ context.Context, areaCode string, _ int) ([]domain.PhoneNumber, error) {
	f.areaCode = areaCode
	return f.numbers, f.err
}

func TestBackendSource(t *testing.T) {
	lister := &fakeLister{numbers: []domain.PhoneNumber{{PhoneNumber: "+14155550100", SID: "PN1"}}}
	got, err := Backend{API: lister, AreaCode: "415"}.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "+14155550100", got.PhoneNumber)
	assert.Equal(t, "415", lister.areaCode)

	_, err = Backend{API: &fakeLister{}}.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNoNumbers)

	boom := errors.New("boom")
	_, err = Backend{API: &fakeLister{err: boom}}.Acquire(context.Background())
	assert.ErrorIs(t, err, boom)
}

type fakeTwilio struct {
	country string
	params  *twilioApi.ListAvailablePhoneNumberLocalParams
	result  []twilioApi.ApiV2010AvailablePhoneNumberLocal
}

func (f *fakeTwilio) ListAvailablePhoneNumberLocal(country string, params *twilioApi.ListAvailablePhoneNumberLocalParams) ([]twilioApi.ApiV2010AvailablePhoneNumberLocal, error) {
	f.country = country
	f.params = params
	return f.result, nil
}

func strPtr(s string) *string { return &s }

func TestTwilioSearch(t *testing.T) {
	api := &fakeTwilio{result: []twilioApi.ApiV2010AvailablePhoneNumberLocal{{
		PhoneNumber:  strPtr("+12125550123"),
		FriendlyName: strPtr("(212) 555-0123"),
		Locality:     strPtr("New York"),
		Region:       strPtr("NY"),
	}}}
	src := NewTwilioWithAPI(api, "212")

	got, err := src.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhoneNumber{
		PhoneNumber:  "+12125550123",
		FriendlyName: "(212) 555-0123",
		Locality:     "New York",
		Region:       "NY",
	}, got)
	assert.Equal(t, "US", api.country)
	require.NotNil(t, api.params.AreaCode)
	assert.Equal(t, 212, *api.params.AreaCode)
	require.NotNil(t, api.params.VoiceEnabled)
	assert.True(t, *api.params.VoiceEnabled)
}

func TestTwilioRejectsBadAreaCode(t *testing.T) {
	_, err := NewTwilioWithAPI(&fakeTwilio{}, "abc").Search(context.Background(), 1)
	assert.Error(t, err)
}

func TestNewTwilioRequiresCredentials(t *testing.T) {
	_, err := NewTwilio("", "", "")
	assert.Error(t, err)
}
