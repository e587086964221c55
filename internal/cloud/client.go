package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/port"

	"go.uber.org/zap"
)

// SyncClient talks to the coordination server. Every call tries the primary
// endpoint first and fails over to the backup; within one endpoint a 401
// triggers exactly one token refresh and one retry against the same endpoint,
// which bounds a Send at 4 network attempts total.
type SyncClient struct {
	http    *http.Client
	primary domain.Endpoint
	backup  domain.Endpoint
	serial  string
	session *SessionManager
	logger  *zap.Logger
}

func NewSyncClient(httpClient *http.Client, primary, backup domain.Endpoint, serial string,
	session *SessionManager, logger *zap.Logger) *SyncClient {
	return &SyncClient{
		http:    httpClient,
		primary: primary,
		backup:  backup,
		serial:  serial,
		session: session,
		logger:  logger.With(zap.String("service", "sync")),
	}
}

// Send uploads a snapshot and returns the server action list (possibly empty).
// Both endpoints failing returns the last error; the caller then runs the tick
// with local actions only.
func (c *SyncClient) Send(ctx context.Context, snapshot domain.SensorSnapshot) ([]domain.Action, error) {
	var out struct {
		Actions []actionPayload `json:"actions"`
	}
	err := c.withFailover(ctx, func(ctx context.Context, ep domain.Endpoint, token string) (int, error) {
		return c.do(ctx, http.MethodPost, ep.URL+"/api/devices/sensor-data", snapshot, token, &out)
	})
	if err != nil {
		return nil, err
	}
	return parseActions(out.Actions), nil
}

// FetchSettings retrieves pool thresholds and the weather forecast for this
// device from the server.
func (c *SyncClient) FetchSettings(ctx context.Context) (*domain.DeviceSettings, error) {
	var out struct {
		DeviceSettings domain.DeviceSettings `json:"deviceSettings"`
	}
	err := c.withFailover(ctx, func(ctx context.Context, ep domain.Endpoint, token string) (int, error) {
		return c.do(ctx, http.MethodGet, ep.URL+"/api/devices/user-and-settings", nil, token, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out.DeviceSettings, nil
}

// Notify pushes a device notification (actuator failures, mostly).
func (c *SyncClient) Notify(ctx context.Context, message, level string) error {
	body := map[string]string{
		"message": message,
		"type":    level,
	}
	return c.withFailover(ctx, func(ctx context.Context, ep domain.Endpoint, token string) (int, error) {
		return c.do(ctx, http.MethodPost, ep.URL+"/api/notifications/create", body, token, nil)
	})
}

// SyncLedger uploads the pending audit chain.
func (c *SyncClient) SyncLedger(ctx context.Context, blocks []domain.LedgerBlock) error {
	body := map[string]any{"blockchain": blocks}
	return c.withFailover(ctx, func(ctx context.Context, ep domain.Endpoint, token string) (int, error) {
		return c.do(ctx, http.MethodPost, ep.URL+"/api/devices/blockchain/sync", body, token, nil)
	})
}

type requestFn func(ctx context.Context, ep domain.Endpoint, token string) (int, error)

// withFailover runs fn against primary then backup. Per endpoint: one attempt,
// plus one refresh-and-retry if the attempt came back 401. No recursion, no
// second refresh on the same endpoint.
func (c *SyncClient) withFailover(ctx context.Context, fn requestFn) error {
	var lastErr error
	for _, ep := range []domain.Endpoint{c.primary, c.backup} {
		err := c.attemptEndpoint(ctx, ep, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("endpoint failed", zap.String("role", string(ep.Role)), zap.String("url", ep.URL), zap.Error(err))
	}
	return lastErr
}

func (c *SyncClient) attemptEndpoint(ctx context.Context, ep domain.Endpoint, fn requestFn) error {
	token, err := c.session.EnsureToken(ctx)
	if err != nil {
		return err
	}
	status, err := fn(ctx, ep, token)
	if err == nil && status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusUnauthorized {
		// one refresh, one retry against the same endpoint
		token, err = c.session.Refresh(ctx)
		if err != nil {
			return err
		}
		status, err = fn(ctx, ep, token)
		if err == nil && status >= 200 && status < 300 {
			return nil
		}
	}
	if err != nil {
		return &NetworkError{Endpoint: ep.URL, Err: err}
	}
	return &NetworkError{Endpoint: ep.URL, StatusCode: status}
}

func (c *SyncClient) do(ctx context.Context, method, url string, body any, token string, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("serialNumber", c.serial)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type actionPayload struct {
	Actuator string `json:"actuator"`
	Command  bool   `json:"command"`
	Message  string `json:"message"`
}

// parseActions maps wire actions through the closed actuator set. Unknown ids
// are kept in the list (the dispatcher ignores them), so a newer server can
// ship actions an older device does not understand without breaking the tick.
func parseActions(payloads []actionPayload) []domain.Action {
	actions := make([]domain.Action, 0, len(payloads))
	for _, p := range payloads {
		actions = append(actions, domain.Action{
			Actuator: domain.Actuator(p.Actuator),
			Command:  p.Command,
			Message:  p.Message,
		})
	}
	return actions
}

// ensure interface compliance
var _ port.CloudGateway = (*SyncClient)(nil)
