package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type syncEndpoint struct {
	srv      *httptest.Server
	requests int
	// statuses consumed in order; the last one repeats
	statuses []int
	actions  []map[string]any
	tokens   []string
}

func newSyncEndpoint(t *testing.T, statuses ...int) *syncEndpoint {
	ep := &syncEndpoint{statuses: statuses}
	mux := http.NewServeMux()
	handle := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SN-001", r.Header.Get("serialNumber"))
		ep.tokens = append(ep.tokens, r.Header.Get("Authorization"))
		status := ep.statuses[len(ep.statuses)-1]
		if ep.requests < len(ep.statuses) {
			status = ep.statuses[ep.requests]
		}
		ep.requests++
		w.WriteHeader(status)
		if status >= 200 && status < 300 {
			_ = json.NewEncoder(w).Encode(map[string]any{"actions": ep.actions})
		}
	}
	mux.HandleFunc("/api/devices/sensor-data", handle)
	mux.HandleFunc("/api/devices/user-and-settings", func(w http.ResponseWriter, r *http.Request) {
		ep.requests++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"deviceSettings": map[string]any{
				"poolInfo": map[string]any{
					"minWaterLevel":      30.0,
					"maxWaterLevel":      80.0,
					"desiredTemperature": 28.0,
				},
				"weatherForecast": "rainy",
			},
		})
	})
	mux.HandleFunc("/api/notifications/create", handle)
	mux.HandleFunc("/api/devices/blockchain/sync", handle)
	ep.srv = httptest.NewServer(mux)
	t.Cleanup(ep.srv.Close)
	return ep
}

func newTestClient(t *testing.T, primary, backup *syncEndpoint) (*SyncClient, *int) {
	srv, logins, _ := newAuthServer(t, http.StatusOK, http.StatusOK)
	sm := newTestSession(t, srv)
	client := NewSyncClient(http.DefaultClient,
		domain.Endpoint{Role: domain.EndpointPrimary, URL: primary.srv.URL},
		domain.Endpoint{Role: domain.EndpointBackup, URL: backup.srv.URL},
		"SN-001", sm, zaptest.NewLogger(t))
	return client, logins
}

func TestSyncClientSendPrimarySuccess(t *testing.T) {
	primary := newSyncEndpoint(t, http.StatusOK)
	primary.actions = []map[string]any{
		{"actuator": "chlorinePump", "command": true, "message": "pH low"},
		{"actuator": "poolCover", "command": false},
	}
	backup := newSyncEndpoint(t, http.StatusOK)
	client, _ := newTestClient(t, primary, backup)

	actions, err := client.Send(context.Background(), domain.ZeroSnapshot())
	assert.NoError(t, err)
	assert.Equal(t, []domain.Action{
		{Actuator: domain.ActuatorChlorinePump, Command: true, Message: "pH low"},
		{Actuator: domain.ActuatorPoolCover, Command: false},
	}, actions)
	assert.Equal(t, 1, primary.requests)
	assert.Equal(t, 0, backup.requests, "backup must not be contacted when primary succeeds")
}

func TestSyncClientFailsOverOnServerError(t *testing.T) {
	primary := newSyncEndpoint(t, http.StatusInternalServerError)
	backup := newSyncEndpoint(t, http.StatusOK)
	client, _ := newTestClient(t, primary, backup)

	actions, err := client.Send(context.Background(), domain.ZeroSnapshot())
	assert.NoError(t, err)
	assert.Empty(t, actions)
	// a non-401 failure does not get a retry on the same endpoint
	assert.Equal(t, 1, primary.requests)
	assert.Equal(t, 1, backup.requests)
}

func TestSyncClientRetriesOnceAfterUnauthorized(t *testing.T) {
	primary := newSyncEndpoint(t, http.StatusUnauthorized, http.StatusOK)
	backup := newSyncEndpoint(t, http.StatusOK)
	client, _ := newTestClient(t, primary, backup)

	_, err := client.Send(context.Background(), domain.ZeroSnapshot())
	assert.NoError(t, err)
	assert.Equal(t, 2, primary.requests)
	assert.Equal(t, 0, backup.requests)
	// the retry carries the refreshed token
	assert.Equal(t, "Bearer access-1", primary.tokens[0])
	assert.Equal(t, "Bearer access-2", primary.tokens[1])
}

func TestSyncClientBoundedRetryThenFailover(t *testing.T) {
	// primary keeps answering 401 even after the refresh: exactly two attempts
	// there, then the backup is tried
	primary := newSyncEndpoint(t, http.StatusUnauthorized)
	backup := newSyncEndpoint(t, http.StatusOK)
	client, _ := newTestClient(t, primary, backup)

	_, err := client.Send(context.Background(), domain.ZeroSnapshot())
	assert.NoError(t, err)
	assert.Equal(t, 2, primary.requests)
	assert.Equal(t, 1, backup.requests)
}

func TestSyncClientBothEndpointsFail(t *testing.T) {
	primary := newSyncEndpoint(t, http.StatusServiceUnavailable)
	backup := newSyncEndpoint(t, http.StatusServiceUnavailable)
	client, _ := newTestClient(t, primary, backup)

	actions, err := client.Send(context.Background(), domain.ZeroSnapshot())
	assert.Error(t, err)
	assert.Nil(t, actions)
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
	assert.Equal(t, backup.srv.URL, netErr.Endpoint)
	assert.Equal(t, 1, primary.requests)
	assert.Equal(t, 1, backup.requests)
}

func TestSyncClientUnknownActuatorsPassThrough(t *testing.T) {
	primary := newSyncEndpoint(t, http.StatusOK)
	primary.actions = []map[string]any{
		{"actuator": "fountainJets", "command": true},
	}
	backup := newSyncEndpoint(t, http.StatusOK)
	client, _ := newTestClient(t, primary, backup)

	actions, err := client.Send(context.Background(), domain.ZeroSnapshot())
	assert.NoError(t, err)
	assert.Len(t, actions, 1)
	_, known := domain.ParseActuator(string(actions[0].Actuator))
	assert.False(t, known)
}

func TestSyncClientFetchSettings(t *testing.T) {
	primary := newSyncEndpoint(t, http.StatusOK)
	backup := newSyncEndpoint(t, http.StatusOK)
	client, _ := newTestClient(t, primary, backup)

	settings, err := client.FetchSettings(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 30.0, settings.Pool.MinWaterLevel)
	assert.Equal(t, 80.0, settings.Pool.MaxWaterLevel)
	assert.Equal(t, 28.0, settings.Pool.DesiredTemperature)
	assert.Equal(t, domain.WeatherRainy, settings.WeatherForecast)
}

func TestSyncClientNotifyAndLedger(t *testing.T) {
	primary := newSyncEndpoint(t, http.StatusOK)
	backup := newSyncEndpoint(t, http.StatusOK)
	client, _ := newTestClient(t, primary, backup)

	assert.NoError(t, client.Notify(context.Background(), "heater write failed", "error"))
	assert.NoError(t, client.SyncLedger(context.Background(), []domain.LedgerBlock{
		{Timestamp: 1, EventType: "tick", PreviousHash: "0", Hash: "abc"},
	}))
	assert.Equal(t, 2, primary.requests)
}
