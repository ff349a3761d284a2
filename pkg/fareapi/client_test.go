package fareapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faresight/faresight-go/internal/cache"
	"github.com/faresight/faresight-go/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.FareAPIConfig{
		ServiceURL: serverURL,
		Timeout:    5,
	})
}

func TestClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "Faresight-Go/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Version: "2.1.0"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	health, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "2.1.0", health.Version)
}

func TestClient_GetFareHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fares/history/JFK/LAX", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(FareHistoryResponse{
			Origin:      "JFK",
			Destination: "LAX",
			Days:        2,
			Fares: []FareDay{
				{Date: "2025-03-08", Price: decimal.NewFromFloat(450.50), Demand: 0.7, Availability: 0.4},
				{Date: "2025-03-09", Price: decimal.NewFromFloat(462.00), Demand: 0.8, Availability: 0.3},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	response, err := client.GetFareHistory(context.Background(), "JFK", "LAX", 30)
	require.NoError(t, err)
	require.Len(t, response.Fares, 2)
	assert.Equal(t, "2025-03-08", response.Fares[0].Date)
}

func TestClient_FetchDailyHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(FareHistoryResponse{
			Fares: []FareDay{
				{Date: "2025-03-08", Price: decimal.NewFromFloat(450.50)},
				{Date: "2025-03-09", Price: decimal.NewFromFloat(462.00)},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	history, err := client.FetchDailyHistory(context.Background(), "JFK", "LAX", 30)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Price.Equal(decimal.NewFromFloat(450.50)))
	assert.True(t, history[1].Date.After(history[0].Date))
}

func TestClient_FetchDailyHistory_RejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		fare FareDay
		want string
	}{
		{"bad date", FareDay{Date: "March 8th", Price: decimal.NewFromInt(450)}, "invalid fare date"},
		{"zero price", FareDay{Date: "2025-03-08", Price: decimal.Zero}, "non-positive fare price"},
		{"negative price", FareDay{Date: "2025-03-08", Price: decimal.NewFromInt(-10)}, "non-positive fare price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(FareHistoryResponse{Fares: []FareDay{tt.fare}})
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.FetchDailyHistory(context.Background(), "JFK", "LAX", 30)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "upstream unavailable"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient(&config.FareAPIConfig{ServiceURL: "http://localhost:3001/"})
	assert.Equal(t, "http://localhost:3001", client.BaseURL)
}

type stubCachedFetcher struct {
	payload json.RawMessage
	urls    []string
}

func (f *stubCachedFetcher) FetchWithCache(_ context.Context, url string, _ *cache.RequestOptions, _ time.Duration, _ bool) (json.RawMessage, error) {
	f.urls = append(f.urls, url)
	return f.payload, nil
}

func TestClient_GetFareHistory_ThroughCache(t *testing.T) {
	fetcher := &stubCachedFetcher{payload: json.RawMessage(
		`{"origin":"JFK","destination":"LAX","days":1,"fares":[{"date":"2025-03-08","price":"450.5"}]}`)}
	client := newTestClient("http://localhost:3001").WithCache(fetcher)

	response, err := client.GetFareHistory(context.Background(), "JFK", "LAX", 30)
	require.NoError(t, err)
	require.Len(t, response.Fares, 1)
	assert.Equal(t, "2025-03-08", response.Fares[0].Date)

	require.Len(t, fetcher.urls, 1)
	assert.Equal(t, "http://localhost:3001/api/fares/history/JFK/LAX?days=30", fetcher.urls[0])
}
