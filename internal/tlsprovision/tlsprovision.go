// Package tlsprovision loads a TLS server certificate and key from disk,
// generating a self-signed RSA pair on first run if none exists, and
// watches both files so a certificate replaced out from under a running
// process is picked up by new handshakes without a restart.
package tlsprovision

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"syslogcollector/internal/logging"
)

const (
	rsaKeyBits  = 4096
	validFor    = 365 * 24 * time.Hour
	commonName  = "localhost"
	certFileMod = 0o644
	keyFileMod  = 0o600
)

// Config configures a Provisioner.
type Config struct {
	CertFile string
	KeyFile  string
	Logger   *slog.Logger
}

// Provisioner owns the current TLS certificate for a server and refreshes
// it in place when the underlying files change on disk. Safe for
// concurrent use; GetCertificate is called concurrently by the TLS
// handshake goroutine for every incoming connection.
type Provisioner struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	current atomic.Pointer[tls.Certificate]
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// LoadOrGenerate loads cfg.CertFile/cfg.KeyFile from disk, generating and
// persisting a self-signed RSA-4096 certificate for "localhost" if either
// file is missing, then starts watching both files for changes.
func LoadOrGenerate(cfg Config) (*Provisioner, error) {
	p := &Provisioner{
		certFile: cfg.CertFile,
		keyFile:  cfg.KeyFile,
		logger:   logging.Default(cfg.Logger).With("component", "tlsprovision"),
	}

	if !exists(cfg.CertFile) || !exists(cfg.KeyFile) {
		p.logger.Info("generating self-signed certificate", "cert_file", cfg.CertFile, "key_file", cfg.KeyFile)
		if err := generateSelfSigned(cfg.CertFile, cfg.KeyFile); err != nil {
			return nil, fmt.Errorf("generate self-signed certificate: %w", err)
		}
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	p.current.Store(&cert)

	p.startWatcher()
	return p, nil
}

// GetCertificate is a tls.Config.GetCertificate callback returning
// whatever certificate is currently loaded.
func (p *Provisioner) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert := p.current.Load()
	if cert == nil {
		return nil, fmt.Errorf("no certificate loaded")
	}
	return cert, nil
}

// TLSConfig returns a *tls.Config wired to this provisioner.
func (p *Provisioner) TLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: p.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// startWatcher watches the cert and key files and reloads the in-memory
// certificate when either changes. Failure to start the watcher is
// logged but not fatal: the provisioner still serves the certificate it
// loaded at construction.
func (p *Provisioner) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn("certificate watcher unavailable", "error", err)
		return
	}
	if err := watcher.Add(p.certFile); err != nil {
		p.logger.Warn("watch cert file failed", "file", p.certFile, "error", err)
	}
	if err := watcher.Add(p.keyFile); err != nil {
		p.logger.Warn("watch key file failed", "file", p.keyFile, "error", err)
	}

	p.watcher = watcher
	p.stop = make(chan struct{})

	go func() {
		for {
			select {
			case <-p.stop:
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Warn("certificate watcher error", "error", err)
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				p.reload()
			}
		}
	}()
}

func (p *Provisioner) reload() {
	cert, err := tls.LoadX509KeyPair(p.certFile, p.keyFile)
	if err != nil {
		p.logger.Warn("reload certificate failed, keeping current", "error", err)
		return
	}
	p.current.Store(&cert)
	p.logger.Info("certificate reloaded")
}

// Close stops the file watcher. The last loaded certificate remains in
// effect for any handshakes already in flight.
func (p *Provisioner) Close() error {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// generateSelfSigned creates an RSA-4096 self-signed certificate valid
// for 365 days, covering localhost and 127.0.0.1, and writes the PEM
// cert and key to the given paths.
func generateSelfSigned(certFile, keyFile string) error {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    now,
		NotAfter:     now.Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	certOut, err := os.OpenFile(certFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, certFileMod)
	if err != nil {
		return fmt.Errorf("open cert file: %w", err)
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER}); err != nil {
		return fmt.Errorf("write cert: %w", err)
	}

	keyOut, err := os.OpenFile(keyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, keyFileMod)
	if err != nil {
		return fmt.Errorf("open key file: %w", err)
	}
	defer keyOut.Close()
	keyDER := x509.MarshalPKCS1PrivateKey(key)
	if err := pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: keyDER}); err != nil {
		return fmt.Errorf("write key: %w", err)
	}

	return nil
}
