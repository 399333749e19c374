package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestTopics_PlayerState(t *testing.T) {
	got := Topics{}.PlayerState("kitchen")
	want := "wavelink/player/kitchen/state"
	if got != want {
		t.Errorf("PlayerState() = %q, want %q", got, want)
	}
}

func TestTopics_PlayerError(t *testing.T) {
	got := Topics{}.PlayerError("kitchen")
	want := "wavelink/player/kitchen/error"
	if got != want {
		t.Errorf("PlayerError() = %q, want %q", got, want)
	}
}

func TestTopics_GroupMembers(t *testing.T) {
	got := Topics{}.GroupMembers("living-room")
	want := "wavelink/group/living-room/members"
	if got != want {
		t.Errorf("GroupMembers() = %q, want %q", got, want)
	}
}

func TestTopics_GroupCommand(t *testing.T) {
	got := Topics{}.GroupCommand("living-room")
	want := "wavelink/command/group/living-room"
	if got != want {
		t.Errorf("GroupCommand() = %q, want %q", got, want)
	}
}

func TestTopics_DispatchResult(t *testing.T) {
	got := Topics{}.DispatchResult("abc-123")
	want := "wavelink/result/abc-123"
	if got != want {
		t.Errorf("DispatchResult() = %q, want %q", got, want)
	}
}

func TestTopics_SystemStatus(t *testing.T) {
	got := Topics{}.SystemStatus()
	want := "wavelink/system/status"
	if got != want {
		t.Errorf("SystemStatus() = %q, want %q", got, want)
	}
}

func TestTopics_Wildcards(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "all group commands", got: Topics{}.AllGroupCommands(), want: "wavelink/command/group/+"},
		{name: "all player states", got: Topics{}.AllPlayerStates(), want: "wavelink/player/+/state"},
		{name: "all topics", got: Topics{}.AllTopics(), want: "wavelink/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBuildOnlinePayload_ValidJSON(t *testing.T) {
	payload := buildOnlinePayload("wavelink-core")

	var parsed map[string]string
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if parsed["status"] != "online" {
		t.Errorf("status = %q, want %q", parsed["status"], "online")
	}
	if parsed["client_id"] != "wavelink-core" {
		t.Errorf("client_id = %q, want %q", parsed["client_id"], "wavelink-core")
	}
	if parsed["timestamp"] == "" {
		t.Error("expected non-empty timestamp")
	}
}

func TestBuildOfflinePayload_ValidJSON(t *testing.T) {
	payload := buildOfflinePayload("wavelink-core")

	var parsed map[string]string
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if parsed["status"] != "offline" {
		t.Errorf("status = %q, want %q", parsed["status"], "offline")
	}
	if parsed["reason"] != "graceful_shutdown" {
		t.Errorf("reason = %q, want %q", parsed["reason"], "graceful_shutdown")
	}
}

// disconnectedClient returns a Client that has never connected.
// Validation paths run before any broker interaction.
func disconnectedClient() *Client {
	return &Client{
		subscriptions: make(map[string]subscription),
	}
}

func TestPublish_Validation(t *testing.T) {
	c := disconnectedClient()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			payload: []byte("{}"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid qos",
			topic:   "wavelink/test",
			payload: []byte("{}"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "oversized payload",
			topic:   "wavelink/test",
			payload: []byte(strings.Repeat("x", maxPayloadSize+1)),
			qos:     1,
			wantErr: ErrPublishFailed,
		},
		{
			name:    "not connected",
			topic:   "wavelink/test",
			payload: []byte("{}"),
			qos:     1,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := disconnectedClient()

	noop := func(_ string, _ []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			qos:     1,
			handler: noop,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid qos",
			topic:   "wavelink/test",
			qos:     5,
			handler: noop,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "nil handler",
			topic:   "wavelink/test",
			qos:     1,
			handler: nil,
			wantErr: ErrSubscribeFailed,
		},
		{
			name:    "not connected",
			topic:   "wavelink/test",
			qos:     1,
			handler: noop,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscriptionTracking(t *testing.T) {
	c := disconnectedClient()

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if c.HasSubscription("wavelink/command/group/+") {
		t.Error("expected no subscription for untracked topic")
	}
}
