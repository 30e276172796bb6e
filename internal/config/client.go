package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Client is the taskctl configuration stored as YAML.
type Client struct {
	APIURL       string  `yaml:"api_url"`
	Token        string  `yaml:"token,omitempty"`
	Window       string  `yaml:"window"`
	Timezone     string  `yaml:"timezone,omitempty"`
	MaxVisible   int     `yaml:"max_visible"`
	ErrorTTL     string  `yaml:"error_ttl"`
	SnapshotPath string  `yaml:"snapshot_path,omitempty"`
	Weights      Weights `yaml:"score_weights"`

	path string
}

type Weights struct {
	Completion float64 `yaml:"completion"`
	OnTime     float64 `yaml:"on_time"`
}

func DefaultClient() *Client {
	return &Client{
		APIURL:     "http://localhost:8080/api",
		Window:     "7d",
		MaxVisible: 3,
		ErrorTTL:   "5s",
		Weights:    Weights{Completion: 0.7, OnTime: 0.3},
	}
}

// LoadClient reads the config from TASKCTL_CONFIG or the user's config
// directory. A missing file yields the defaults.
func LoadClient() (*Client, error) {
	path, err := clientConfigPath()
	if err != nil {
		return DefaultClient(), nil
	}
	return LoadClientFile(path)
}

func LoadClientFile(path string) (*Client, error) {
	cfg := DefaultClient()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config back to the file it was loaded from.
func (c *Client) Save() error {
	path := c.path
	if path == "" {
		p, err := clientConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	// the file holds a bearer token
	return os.WriteFile(path, data, 0o600)
}

func (c *Client) Path() string {
	return c.path
}

// ErrorTimeout parses ErrorTTL, falling back to five seconds.
func (c *Client) ErrorTimeout() time.Duration {
	d, err := time.ParseDuration(c.ErrorTTL)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Location resolves Timezone, defaulting to the local zone.
func (c *Client) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// StatePath is where the local snapshot lives.
func (c *Client) StatePath() string {
	if c.SnapshotPath != "" {
		return c.SnapshotPath
	}
	if c.path != "" {
		return filepath.Join(filepath.Dir(c.path), "state.json")
	}
	return "taskctl-state.json"
}

func (c *Client) applyDefaults() {
	def := DefaultClient()
	if c.APIURL == "" {
		c.APIURL = def.APIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.Window == "" {
		c.Window = def.Window
	}
	if c.MaxVisible <= 0 {
		c.MaxVisible = def.MaxVisible
	}
	if c.ErrorTTL == "" {
		c.ErrorTTL = def.ErrorTTL
	}
	if c.Weights.Completion == 0 && c.Weights.OnTime == 0 {
		c.Weights = def.Weights
	}
}

func clientConfigPath() (string, error) {
	if p := os.Getenv("TASKCTL_CONFIG"); p != "" {
		return p, nil
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "taskctl", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "taskctl", "config.yaml"), nil
}
