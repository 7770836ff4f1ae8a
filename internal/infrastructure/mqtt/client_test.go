package mqtt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nrowsell/doorlatch/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "doorlatch-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}
}

func TestBuildClientOptions_BrokerURL(t *testing.T) {
	tests := []struct {
		name string
		tls  bool
		want string
	}{
		{"plain tcp", false, "tcp://localhost:1883"},
		{"tls enabled", true, "ssl://localhost:1883"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Broker.TLS = tt.tls

			opts := buildClientOptions(cfg)
			if len(opts.Servers) != 1 {
				t.Fatalf("got %d brokers, want 1", len(opts.Servers))
			}
			if got := opts.Servers[0].String(); got != tt.want {
				t.Errorf("broker URL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions_Credentials(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "door"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if opts.Username != "door" {
		t.Errorf("username = %q, want %q", opts.Username, "door")
	}
	if opts.Password != "secret" {
		t.Errorf("password = %q, want %q", opts.Password, "secret")
	}
	if !opts.AutoReconnect {
		t.Error("auto-reconnect not enabled")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if opts.WillTopic != SystemStatusTopic {
		t.Errorf("will topic = %q, want %q", opts.WillTopic, SystemStatusTopic)
	}
	if !opts.WillRetained {
		t.Error("will message not retained")
	}

	var payload map[string]string
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("will payload is not valid JSON: %v", err)
	}
	if payload["status"] != "offline" {
		t.Errorf("will status = %q, want %q", payload["status"], "offline")
	}
	if payload["reason"] != "unexpected_disconnect" {
		t.Errorf("will reason = %q, want %q", payload["reason"], "unexpected_disconnect")
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("doorlatch-test")
	offline := buildOfflinePayload("doorlatch-test")

	for _, payload := range []string{online, offline} {
		var m map[string]string
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if m["client_id"] != "doorlatch-test" {
			t.Errorf("client_id = %q, want %q", m["client_id"], "doorlatch-test")
		}
		if m["timestamp"] == "" {
			t.Error("payload missing timestamp")
		}
	}

	if !strings.Contains(online, `"status":"online"`) {
		t.Errorf("online payload = %q, missing online status", online)
	}
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %q, missing graceful reason", offline)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("doorlatch/test", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}
}

func TestDecision_Marshal(t *testing.T) {
	d := Decision{Granted: true, Subject: "pin-abc12345", Reason: "matched"}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if got["granted"] != true {
		t.Error("granted not marshalled as true")
	}
	if got["subject"] != "pin-abc12345" {
		t.Errorf("subject = %v, want pin-abc12345", got["subject"])
	}
}
