package linkplay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mbeckert/wavelink/internal/dispatch"
	"github.com/mbeckert/wavelink/internal/player"
	"github.com/mbeckert/wavelink/internal/poll"
)

// ErrUnknownDevice is returned when no host is configured for a device ID.
var ErrUnknownDevice = errors.New("linkplay: unknown device")

// maxResponseBytes caps status response bodies. Device payloads are a
// few hundred bytes; anything larger is a misbehaving endpoint.
const maxResponseBytes = 1 << 20

// Device API paths.
const (
	statusPath  = "/api/v1/status"
	commandPath = "/api/v1/command"
)

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client talks to LinkPlay-style speakers over their HTTP JSON API.
//
// Safe for concurrent use; the underlying http.Client pools
// connections per host.
type Client struct {
	hosts  map[string]string // device ID -> host[:port]
	http   *http.Client
	logger Logger
}

// Interface conformance for the core consumers.
var (
	_ poll.Client     = (*Client)(nil)
	_ dispatch.Client = (*Client)(nil)
)

// New creates a device client for the configured id-to-host mapping.
//
// Per-call deadlines come from the caller's context, so the underlying
// http.Client carries no timeout of its own.
func New(hosts map[string]string) *Client {
	cloned := make(map[string]string, len(hosts))
	for id, host := range hosts {
		cloned[id] = host
	}

	return &Client{
		hosts: cloned,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Refresh fetches the current raw status of one device.
//
// Parameters:
//   - ctx: Carries the refresh deadline
//   - deviceID: The configured device to query
//
// Returns:
//   - player.RawStatus: Decoded status payload
//   - error: ErrUnknownDevice, a wrapped player.ErrUnreachable or
//     player.ErrMalformedPayload, or a context error
func (c *Client) Refresh(ctx context.Context, deviceID string) (player.RawStatus, error) {
	host, ok := c.hosts[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}

	url := "http://" + host + statusPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request for %s: %w", deviceID, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(deviceID, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-side close

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", player.ErrUnreachable, deviceID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(deviceID, err)
	}

	var raw player.RawStatus
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: undecodable status from %s: %v", player.ErrMalformedPayload, deviceID, err)
	}

	return raw, nil
}

// Send issues one command to one device.
//
// Parameters:
//   - ctx: Carries the per-member deadline
//   - deviceID: The configured device to command
//   - cmd: The command to send
//
// Returns:
//   - error: nil on acknowledgment; ErrUnknownDevice; a wrapped
//     player.ErrRejected (HTTP 4xx) or player.ErrUnreachable; or a
//     context error
func (c *Client) Send(ctx context.Context, deviceID string, cmd dispatch.Command) error {
	host, ok := c.hosts[deviceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %v", player.ErrRejected, err)
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding command for %s: %w", deviceID, err)
	}

	url := "http://" + host + commandPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building command request for %s: %w", deviceID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(deviceID, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-side close

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: %s refused %q with HTTP %d",
			player.ErrRejected, deviceID, cmd.Action, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %s returned HTTP %d", player.ErrUnreachable, deviceID, resp.StatusCode)
	}
}

// transportError maps a transport failure onto the error taxonomy.
// Deadline and cancellation pass through so errors.Is still sees them;
// everything else is an unreachable device.
func transportError(deviceID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("device %s: %w", deviceID, err)
	}
	return fmt.Errorf("%w: %s: %v", player.ErrUnreachable, deviceID, err)
}
