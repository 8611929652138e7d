package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"sigs.k8s.io/yaml"
)

type ServerConfig struct {
	BindAddress string `json:"bindAddress"`
	Port        int    `json:"port"`

	// Root is the document root. TestingRoot replaces it when the
	// server is started in testing mode.
	Root        string `json:"root"`
	TestingRoot string `json:"testingRoot"`

	// KeyFile may be left empty when CertFile holds both the
	// certificate chain and the private key.
	CertFile string `json:"certFile"`
	KeyFile  string `json:"keyFile"`

	ListDirs bool `json:"listDirs"`

	ReadTimeout   Duration `json:"readTimeout"`
	WriteTimeout  Duration `json:"writeTimeout"`
	IdleTimeout   Duration `json:"idleTimeout"`
	ShutdownGrace Duration `json:"shutdownGrace"`

	RateLimit float64 `json:"rateLimit"`
	RateBurst int     `json:"rateBurst"`

	MetricsAddress string `json:"metricsAddress"`
}

// Duration is a time.Duration read from YAML as "30s", "2m" etc.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("duration must be a string: %s", b)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func DefaultConfig() ServerConfig {
	return ServerConfig{
		BindAddress:   "0.0.0.0",
		Port:          443,
		Root:          "./dist",
		TestingRoot:   "./testing",
		CertFile:      "./cert.crt",
		KeyFile:       "./key.rsa",
		ReadTimeout:   Duration{30 * time.Second},
		WriteTimeout:  Duration{60 * time.Second},
		IdleTimeout:   Duration{120 * time.Second},
		ShutdownGrace: Duration{5 * time.Second},
	}
}

// LoadConfig reads a YAML config file on top of cfg. Keys missing from
// the file keep the values already in cfg.
func LoadConfig(path string, cfg *ServerConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Field: "config", Err: err}
	}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return &ConfigError{Field: "config", Err: fmt.Errorf("%s: %w", path, err)}
	}
	return nil
}

// Addr is the host:port the TLS listener binds. Port 0 asks the kernel
// for a free port.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// EffectiveRoot picks the document root for this run.
func (c *ServerConfig) EffectiveRoot(testing bool) string {
	if testing {
		return c.TestingRoot
	}
	return c.Root
}

// Validate checks the config values that can be checked without touching
// the certificate material.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &ConfigError{Field: "port", Err: fmt.Errorf("out of range: %v", c.Port)}
	}
	if c.Root == "" {
		return &ConfigError{Field: "root", Err: errEmpty}
	}
	fi, err := os.Stat(c.Root)
	if err != nil {
		return &ConfigError{Field: "root", Err: err}
	}
	if !fi.IsDir() {
		return &ConfigError{Field: "root", Err: fmt.Errorf("%s: %w", c.Root, errNotADirectory)}
	}
	if c.CertFile == "" {
		return &ConfigError{Field: "certFile", Err: errEmpty}
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return &ConfigError{Field: "rateLimit", Err: fmt.Errorf("must not be negative")}
	}
	return nil
}
