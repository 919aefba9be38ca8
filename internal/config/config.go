// Package config loads the collector's runtime configuration from
// SYSLOG_-prefixed environment variables, applying defaults for
// anything unset and failing fast on malformed values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	UDPHost string
	UDPPort int
	TLSHost string
	TLSPort int

	LogDir string

	CertFile string
	KeyFile  string

	EnableUDP bool
	EnableTLS bool

	DedupWindow time.Duration

	WriterMaxBytes    int64
	WriterBackupCount int

	FramingMaxMsgLen     int
	FramingMaxBufferSize int
}

// Default values applied when the corresponding environment variable is
// unset.
const (
	DefaultUDPHost = "0.0.0.0"
	DefaultUDPPort = 514
	DefaultTLSHost = "0.0.0.0"
	DefaultTLSPort = 6514

	DefaultLogDir = "logs"

	DefaultCertFile = "cert.pem"
	DefaultKeyFile  = "key.pem"

	DefaultDedupWindowMinutes = 10

	DefaultWriterMaxBytes    = 10 * 1024 * 1024
	DefaultWriterBackupCount = 5

	DefaultFramingMaxMsgLen     = 65535
	DefaultFramingMaxBufferSize = 10 * 1024 * 1024
)

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		UDPHost:  getenv("SYSLOG_UDP_HOST", DefaultUDPHost),
		TLSHost:  getenv("SYSLOG_TLS_HOST", DefaultTLSHost),
		LogDir:   getenv("SYSLOG_LOG_DIR", DefaultLogDir),
		CertFile: getenv("SYSLOG_CERT_FILE", DefaultCertFile),
		KeyFile:  getenv("SYSLOG_KEY_FILE", DefaultKeyFile),
	}

	var err error
	if cfg.UDPPort, err = getenvInt("SYSLOG_UDP_PORT", DefaultUDPPort); err != nil {
		return Config{}, err
	}
	if cfg.TLSPort, err = getenvInt("SYSLOG_TLS_PORT", DefaultTLSPort); err != nil {
		return Config{}, err
	}
	if cfg.EnableUDP, err = getenvBool("SYSLOG_ENABLE_UDP", true); err != nil {
		return Config{}, err
	}
	if cfg.EnableTLS, err = getenvBool("SYSLOG_ENABLE_TLS", true); err != nil {
		return Config{}, err
	}

	dedupMinutes, err := getenvInt("SYSLOG_DEDUP_WINDOW_MINUTES", DefaultDedupWindowMinutes)
	if err != nil {
		return Config{}, err
	}
	cfg.DedupWindow = time.Duration(dedupMinutes) * time.Minute

	maxBytes, err := getenvInt64("SYSLOG_WRITER_MAX_BYTES", DefaultWriterMaxBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.WriterMaxBytes = maxBytes

	if cfg.WriterBackupCount, err = getenvInt("SYSLOG_WRITER_BACKUP_COUNT", DefaultWriterBackupCount); err != nil {
		return Config{}, err
	}
	if cfg.FramingMaxMsgLen, err = getenvInt("SYSLOG_FRAMING_MAX_MSG_LEN", DefaultFramingMaxMsgLen); err != nil {
		return Config{}, err
	}
	if cfg.FramingMaxBufferSize, err = getenvInt("SYSLOG_FRAMING_MAX_BUFFER_SIZE", DefaultFramingMaxBufferSize); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot be acted on: negative or
// zero ports, sizes, windows, or a disabled pair of receivers.
func (c Config) Validate() error {
	if c.UDPPort <= 0 || c.UDPPort > 65535 {
		return fmt.Errorf("invalid SYSLOG_UDP_PORT: %d", c.UDPPort)
	}
	if c.TLSPort <= 0 || c.TLSPort > 65535 {
		return fmt.Errorf("invalid SYSLOG_TLS_PORT: %d", c.TLSPort)
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("invalid SYSLOG_DEDUP_WINDOW_MINUTES: must be positive")
	}
	if c.WriterMaxBytes <= 0 {
		return fmt.Errorf("invalid SYSLOG_WRITER_MAX_BYTES: must be positive")
	}
	if c.WriterBackupCount <= 0 {
		return fmt.Errorf("invalid SYSLOG_WRITER_BACKUP_COUNT: must be positive")
	}
	if c.FramingMaxMsgLen <= 0 {
		return fmt.Errorf("invalid SYSLOG_FRAMING_MAX_MSG_LEN: must be positive")
	}
	if c.FramingMaxBufferSize <= 0 {
		return fmt.Errorf("invalid SYSLOG_FRAMING_MAX_BUFFER_SIZE: must be positive")
	}
	if c.FramingMaxBufferSize < c.FramingMaxMsgLen {
		return fmt.Errorf("SYSLOG_FRAMING_MAX_BUFFER_SIZE must be >= SYSLOG_FRAMING_MAX_MSG_LEN")
	}
	if !c.EnableUDP && !c.EnableTLS {
		return fmt.Errorf("at least one of SYSLOG_ENABLE_UDP or SYSLOG_ENABLE_TLS must be true")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
