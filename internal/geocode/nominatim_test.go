package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"geocoding-etl/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(0))
}

func TestClient_ReverseGeocode(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expected    *Address
		expectError bool
	}{
		{
			name:   "full address",
			status: http.StatusOK,
			body: `{"lat":"-22.9056","lon":"-47.0608","address":{"road":"Rua Barão de Jaguara",
				"house_number":"1000","suburb":"Centro","city":"Campinas","postcode":"13015-001",
				"state":"São Paulo","ISO3166-2-lvl4":"BR-SP","country":"Brasil"}}`,
			expected: &Address{
				Lat:         models.Float64Ptr(-22.9056),
				Lng:         models.Float64Ptr(-47.0608),
				Street:      models.StringPtr("Rua Barão de Jaguara"),
				HouseNumber: models.StringPtr("1000"),
				Suburb:      models.StringPtr("Centro"),
				City:        models.StringPtr("Campinas"),
				PostalCode:  models.StringPtr("13015-001"),
				State:       models.StringPtr("SP"),
				Country:     models.StringPtr("Brasil"),
			},
		},
		{
			name:   "sparse address with fallbacks",
			status: http.StatusOK,
			body:   `{"lat":"1.5","lon":"2.5","address":{"neighbourhood":"Vila","town":"Valinhos","state":"São Paulo","postcode":" "}}`,
			expected: &Address{
				Lat:    models.Float64Ptr(1.5),
				Lng:    models.Float64Ptr(2.5),
				Suburb: models.StringPtr("Vila"),
				City:   models.StringPtr("Valinhos"),
				State:  models.StringPtr("São Paulo"),
			},
		},
		{
			name:     "nothing nearby",
			status:   http.StatusOK,
			body:     `{"error":"Unable to geocode"}`,
			expected: &Address{},
		},
		{
			name:        "provider error",
			status:      http.StatusOK,
			body:        `{"error":"Invalid coordinates"}`,
			expectError: true,
		},
		{
			name:        "bad status",
			status:      http.StatusTooManyRequests,
			body:        `{}`,
			expectError: true,
		},
		{
			name:        "malformed body",
			status:      http.StatusOK,
			body:        `{"lat":`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			result, err := client.ReverseGeocode(context.Background(), -22.9056, -47.0608)
			if tt.expectError {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrLookup)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestClient_Request(t *testing.T) {
	var got *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"address":{}}`))
	})
	client.userAgent = "test-agent/2"
	client.language = "pt-BR"

	_, err := client.ReverseGeocode(context.Background(), -10.5, -20.25)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "/reverse", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "-10.5", q.Get("lat"))
	assert.Equal(t, "-20.25", q.Get("lon"))
	assert.Equal(t, "jsonv2", q.Get("format"))
	assert.Equal(t, "1", q.Get("addressdetails"))
	assert.Equal(t, "pt-BR", q.Get("accept-language"))
	assert.Equal(t, "test-agent/2", got.Header.Get("User-Agent"))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.ReverseGeocode(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrLookup)
}

func TestClient_CanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ReverseGeocode(ctx, 1, 2)
	assert.Error(t, err)
}
