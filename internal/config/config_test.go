package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SYSLOG_UDP_PORT", "SYSLOG_UDP_HOST", "SYSLOG_TLS_PORT", "SYSLOG_TLS_HOST",
		"SYSLOG_LOG_DIR", "SYSLOG_CERT_FILE", "SYSLOG_KEY_FILE",
		"SYSLOG_ENABLE_UDP", "SYSLOG_ENABLE_TLS", "SYSLOG_DEDUP_WINDOW_MINUTES",
		"SYSLOG_WRITER_MAX_BYTES", "SYSLOG_WRITER_BACKUP_COUNT",
		"SYSLOG_FRAMING_MAX_MSG_LEN", "SYSLOG_FRAMING_MAX_BUFFER_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UDPPort != DefaultUDPPort {
		t.Errorf("UDPPort = %d, want %d", cfg.UDPPort, DefaultUDPPort)
	}
	if cfg.TLSPort != DefaultTLSPort {
		t.Errorf("TLSPort = %d, want %d", cfg.TLSPort, DefaultTLSPort)
	}
	if !cfg.EnableUDP || !cfg.EnableTLS {
		t.Error("expected both receivers enabled by default")
	}
	if cfg.WriterBackupCount != DefaultWriterBackupCount {
		t.Errorf("WriterBackupCount = %d, want %d", cfg.WriterBackupCount, DefaultWriterBackupCount)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYSLOG_UDP_PORT", "5514")
	t.Setenv("SYSLOG_ENABLE_TLS", "false")
	t.Setenv("SYSLOG_LOG_DIR", "/var/log/syslogcollector")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UDPPort != 5514 {
		t.Errorf("UDPPort = %d, want 5514", cfg.UDPPort)
	}
	if cfg.EnableTLS {
		t.Error("expected EnableTLS false")
	}
	if cfg.LogDir != "/var/log/syslogcollector" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
}

func TestLoadRejectsNonNumericPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYSLOG_UDP_PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestLoadRejectsBothReceiversDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYSLOG_ENABLE_UDP", "false")
	t.Setenv("SYSLOG_ENABLE_TLS", "false")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when both receivers disabled")
	}
}

func TestLoadRejectsNegativeWindow(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYSLOG_DEDUP_WINDOW_MINUTES", "-5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative dedup window")
	}
}

func TestLoadRejectsBufferSmallerThanMsgLen(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYSLOG_FRAMING_MAX_MSG_LEN", "100")
	t.Setenv("SYSLOG_FRAMING_MAX_BUFFER_SIZE", "50")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when buffer size < msg len")
	}
}
