package tls

import (
	"crypto/sha256"
	cryptotls "crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jittering/truststore"
)

// Manager keeps a server certificate, signed by a local CA, under the
// agent's config directory. The certificate is reissued whenever the set
// of hosts it must cover changes.
type Manager struct {
	caDir     string
	certDir   string
	certFile  string
	keyFile   string
	hostsFile string
	logger    *log.Logger

	// hosts and issue are replaced in tests.
	hosts func() ([]string, error)
	issue func(hosts []string) error
}

// NewManager creates a manager rooted at configDir.
func NewManager(configDir string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[tls] ", log.LstdFlags)
	}
	certDir := filepath.Join(configDir, "tls")
	m := &Manager{
		caDir:     filepath.Join(configDir, "ca"),
		certDir:   certDir,
		certFile:  filepath.Join(certDir, "server.crt"),
		keyFile:   filepath.Join(certDir, "server.key"),
		hostsFile: filepath.Join(certDir, "hosts.txt"),
		logger:    logger,
		hosts:     CertificateHosts,
	}
	m.issue = m.issueWithTruststore
	return m
}

// CertFile returns the server certificate path.
func (m *Manager) CertFile() string { return m.certFile }

// KeyFile returns the server key path.
func (m *Manager) KeyFile() string { return m.keyFile }

// CACertFile returns the local CA certificate path.
func (m *Manager) CACertFile() string { return filepath.Join(m.caDir, "rootCA.pem") }

// Ensure makes sure a certificate covering the current hosts exists,
// issuing one if needed. Issuing installs the local CA into the system
// trust store, which may prompt for a password.
func (m *Manager) Ensure() error {
	if err := os.MkdirAll(m.certDir, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", m.certDir, err)
	}

	hosts, err := m.hosts()
	if err != nil {
		m.logger.Printf("Could not list LAN addresses: %v", err)
	}

	switch {
	case !m.certsExist():
		m.logger.Println("No certificate found, issuing one")
	case m.hostsChanged(hosts):
		m.logger.Println("Network addresses changed, reissuing certificate")
	default:
		m.logger.Println("Using existing certificate")
		return nil
	}

	if err := m.issue(hosts); err != nil {
		return err
	}
	if err := os.WriteFile(m.hostsFile, []byte(strings.Join(hosts, "\n")+"\n"), 0600); err != nil {
		m.logger.Printf("Could not record certificate hosts: %v", err)
	}
	if fp, err := m.CAFingerprint(); err == nil {
		m.logger.Printf("CA fingerprint (SHA256): %s", fp)
	}
	return nil
}

// ServerConfig ensures the certificate and returns a TLS config serving it.
func (m *Manager) ServerConfig() (*cryptotls.Config, error) {
	if err := m.Ensure(); err != nil {
		return nil, err
	}
	pair, err := cryptotls.LoadX509KeyPair(m.certFile, m.keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading certificate: %w", err)
	}
	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{pair},
		MinVersion:   cryptotls.VersionTLS12,
	}, nil
}

func (m *Manager) certsExist() bool {
	_, certErr := os.Stat(m.certFile)
	_, keyErr := os.Stat(m.keyFile)
	return certErr == nil && keyErr == nil
}

// hostsChanged compares hosts, which must be normalized, with the hosts
// recorded when the certificate was issued.
func (m *Manager) hostsChanged(hosts []string) bool {
	data, err := os.ReadFile(m.hostsFile)
	if err != nil {
		return true
	}
	recorded := normalizeHosts(strings.Split(string(data), "\n"))
	return strings.Join(recorded, ",") != strings.Join(hosts, ",")
}

func (m *Manager) issueWithTruststore(hosts []string) error {
	if err := os.MkdirAll(m.caDir, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", m.caDir, err)
	}
	os.Setenv("CAROOT", m.caDir)

	lib, err := truststore.NewLib()
	if err != nil {
		return fmt.Errorf("initializing truststore: %w", err)
	}

	m.logger.Println("Installing local CA into the system trust store (you may be prompted for your password)")
	if err := lib.Install(); err != nil {
		return fmt.Errorf("installing CA: %w", err)
	}

	m.logger.Printf("Issuing certificate for %v", hosts)
	cert, err := lib.MakeCert(hosts, m.certDir)
	if err != nil {
		return fmt.Errorf("issuing certificate: %w", err)
	}
	if cert.CertFile != m.certFile {
		if err := os.Rename(cert.CertFile, m.certFile); err != nil {
			return fmt.Errorf("moving certificate: %w", err)
		}
	}
	if cert.KeyFile != m.keyFile {
		if err := os.Rename(cert.KeyFile, m.keyFile); err != nil {
			return fmt.Errorf("moving key: %w", err)
		}
	}
	return nil
}

// CAFingerprint returns the colon separated SHA-256 fingerprint of the
// local CA, for clients that pin it.
func (m *Manager) CAFingerprint() (string, error) {
	data, err := m.CACert()
	if err != nil {
		return "", err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return "", fmt.Errorf("CA file holds no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("parsing CA certificate: %w", err)
	}

	sum := sha256.Sum256(cert.Raw)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":"), nil
}

// CACert returns the local CA certificate in PEM form.
func (m *Manager) CACert() ([]byte, error) {
	return os.ReadFile(m.CACertFile())
}
