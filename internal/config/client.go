package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/dkeye/Rundown/internal/domain"
)

var (
	ErrRoomNotConfigured = errors.New("room address not configured")
	ErrTokenMissing      = errors.New("access token missing")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidDisplay    = errors.New("invalid display size")
)

// ClientConfig holds the settings of one broadcast participant.
type ClientConfig struct {
	Role string `mapstructure:"role"`
	// RoomURL is the websocket signaling endpoint, e.g. ws://host:8080/api/ws/signal.
	RoomURL     string            `mapstructure:"room_url"`
	Room        string            `mapstructure:"room"`
	Tokens      map[string]string `mapstructure:"tokens"`
	RtmpURL     string            `mapstructure:"rtmp_url"`
	HTTPAddr    string            `mapstructure:"http_addr"`
	CoverPeriod time.Duration     `mapstructure:"cover_period"`
	// Display is the surface size as WxH, e.g. 1280x720.
	Display  string `mapstructure:"display"`
	LogLevel string `mapstructure:"log_level"`
}

// ClientFlags declares the command line of the client binary.
func ClientFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a yaml config file")
	fs.String("role", "", "participant role: host, guest or viewer (default viewer)")
	fs.String("room-url", "", "signaling websocket url")
	fs.String("room", "", "room name")
	fs.String("token", "", "access token for the selected role")
	fs.String("rtmp-url", "", "live streaming target")
	fs.String("http", "", "address of the local state endpoint, empty to disable")
	fs.Duration("cover-period", 0, "how long the surface stays covered after start")
	fs.String("display", "", "surface size as WxH")
	fs.String("log-level", "", "zerolog level")
	return fs
}

// LoadClient parses args and merges them over the optional config file,
// RUNDOWN_* environment variables and defaults.
func LoadClient(fs *pflag.FlagSet, args []string) (*ClientConfig, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := newViper()
	v.SetDefault("role", "viewer")
	v.SetDefault("http_addr", "127.0.0.1:8090")
	v.SetDefault("cover_period", "1s")
	v.SetDefault("display", "1920x1080")
	v.SetDefault("log_level", "info")

	for key, flag := range map[string]string{
		"role":         "role",
		"room_url":     "room-url",
		"room":         "room",
		"rtmp_url":     "rtmp-url",
		"http_addr":    "http",
		"cover_period": "cover-period",
		"display":      "display",
		"log_level":    "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if tok, _ := fs.GetString("token"); tok != "" {
		if cfg.Tokens == nil {
			cfg.Tokens = make(map[string]string)
		}
		cfg.Tokens[cfg.Role] = tok
	}
	return &cfg, nil
}

// Validate reports the configuration errors that keep a session from starting.
func (c *ClientConfig) Validate() error {
	if _, ok := domain.ParseRole(c.Role); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRole, c.Role)
	}
	if c.RoomURL == "" || c.Room == "" {
		return ErrRoomNotConfigured
	}
	if c.Token() == "" {
		return fmt.Errorf("%w for %s", ErrTokenMissing, c.Role)
	}
	if _, _, err := c.DisplaySize(); err != nil {
		return err
	}
	return nil
}

// DisplaySize parses Display. An empty value yields 0x0, which leaves the
// composition unscaled.
func (c *ClientConfig) DisplaySize() (w, h int, err error) {
	if c.Display == "" {
		return 0, 0, nil
	}
	var rest string
	n, _ := fmt.Sscanf(c.Display, "%dx%d%s", &w, &h, &rest)
	if n != 2 || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDisplay, c.Display)
	}
	return w, h, nil
}

// ParsedRole returns the validated role.
func (c *ClientConfig) ParsedRole() domain.Role {
	r, _ := domain.ParseRole(c.Role)
	return r
}

// Token is the access token of the configured role.
func (c *ClientConfig) Token() string {
	return c.Tokens[c.Role]
}
