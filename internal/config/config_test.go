package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || cfg.PingPeriod != 54*time.Second || cfg.MessageLimit != 50 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFile_Values(t *testing.T) {
	path := writeFile(t, "server.yaml", `
mode: debug
port: 9000
room_tokens:
  host: h-token
ice_servers:
  - stun:stun.example.org:3478
message_interval: 2s
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "debug" || cfg.Port != 9000 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RoomTokens["host"] != "h-token" || len(cfg.ICEServers) != 1 || cfg.MessageInterval != 2*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadClient_FlagsOverFile(t *testing.T) {
	path := writeFile(t, "client.yaml", `
role: viewer
room_url: ws://localhost:8080/api/ws/signal
room: studio
tokens:
  host: from-file
  viewer: v-token
`)
	cfg, err := LoadClient(ClientFlags("test"), []string{"--config", path, "--role", "host"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ParsedRole() != "host" || cfg.Token() != "from-file" {
		t.Fatalf("flag should override the file role: %+v", cfg)
	}
	if cfg.CoverPeriod != time.Second || cfg.HTTPAddr == "" || cfg.Display != "1920x1080" {
		t.Fatalf("defaults missing: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadClient(ClientFlags("test"), []string{"--config", path, "--role", "guest", "--token", "g"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Token() != "g" {
		t.Fatalf("token flag not applied: %+v", cfg)
	}

	cfg, err = LoadClient(ClientFlags("test"), []string{"--room-url", "ws://x", "--room", "studio", "--token", "v", "--display", "720x1280"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ParsedRole() != "viewer" || cfg.Token() != "v" {
		t.Fatalf("role should default to viewer: %+v", cfg)
	}
	if w, h, err := cfg.DisplaySize(); err != nil || w != 720 || h != 1280 {
		t.Fatalf("display = %dx%d, %v", w, h, err)
	}
}

func TestClientConfig_Validate(t *testing.T) {
	base := ClientConfig{
		Role:    "host",
		RoomURL: "ws://x/api/ws/signal",
		Room:    "studio",
		Tokens:  map[string]string{"host": "t"},
	}
	cases := []struct {
		name   string
		mutate func(*ClientConfig)
		want   error
	}{
		{"valid", func(*ClientConfig) {}, nil},
		{"unknown role", func(c *ClientConfig) { c.Role = "producer" }, ErrInvalidRole},
		{"no url", func(c *ClientConfig) { c.RoomURL = "" }, ErrRoomNotConfigured},
		{"no room", func(c *ClientConfig) { c.Room = "" }, ErrRoomNotConfigured},
		{"no token for role", func(c *ClientConfig) { c.Role = "guest" }, ErrTokenMissing},
		{"display", func(c *ClientConfig) { c.Display = "1280x720" }, nil},
		{"bad display", func(c *ClientConfig) { c.Display = "wide" }, ErrInvalidDisplay},
		{"zero display", func(c *ClientConfig) { c.Display = "0x720" }, ErrInvalidDisplay},
		{"trailing display", func(c *ClientConfig) { c.Display = "1280x720px" }, ErrInvalidDisplay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.Tokens = map[string]string{"host": "t"}
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
