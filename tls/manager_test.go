package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeSelfSigned writes a self-signed certificate and key, returning the
// certificate's DER bytes.
func writeSelfSigned(t *testing.T, certPath, keyPath string) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IsCA:         true,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},

		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Dir(certPath), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600); err != nil {
		t.Fatal(err)
	}
	return der
}

func newTestManager(t *testing.T, hosts []string) (*Manager, *int) {
	t.Helper()
	m := NewManager(t.TempDir(), log.New(io.Discard, "", 0))
	m.hosts = func() ([]string, error) { return hosts, nil }
	issued := 0
	m.issue = func(h []string) error {
		issued++
		writeSelfSigned(t, m.certFile, m.keyFile)
		writeSelfSigned(t, m.CACertFile(), filepath.Join(m.caDir, "rootCA-key.pem"))
		return nil
	}
	return m, &issued
}

func TestManager_Paths(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"cert", m.CertFile(), filepath.Join(dir, "tls", "server.crt")},
		{"key", m.KeyFile(), filepath.Join(dir, "tls", "server.key")},
		{"ca", m.CACertFile(), filepath.Join(dir, "ca", "rootCA.pem")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestManager_EnsureIssuesOnce(t *testing.T) {
	m, issued := newTestManager(t, []string{"127.0.0.1", "localhost"})

	for i := 0; i < 2; i++ {
		if err := m.Ensure(); err != nil {
			t.Fatalf("Ensure() #%d error: %v", i+1, err)
		}
	}
	if *issued != 1 {
		t.Errorf("issued %d certificates, want 1", *issued)
	}
}

func TestManager_EnsureReissuesWhenHostsChange(t *testing.T) {
	m, issued := newTestManager(t, []string{"127.0.0.1", "localhost"})
	if err := m.Ensure(); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}

	m.hosts = func() ([]string, error) {
		return []string{"127.0.0.1", "192.168.1.20", "localhost"}, nil
	}
	if err := m.Ensure(); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if *issued != 2 {
		t.Errorf("issued %d certificates, want 2", *issued)
	}
}

func TestManager_HostsChanged(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if err := os.MkdirAll(m.certDir, 0700); err != nil {
		t.Fatal(err)
	}

	if !m.hostsChanged([]string{"localhost"}) {
		t.Error("hostsChanged() = false with no record")
	}
	if err := os.WriteFile(m.hostsFile, []byte("localhost\n127.0.0.1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		hosts []string
		want  bool
	}{
		{"same", []string{"127.0.0.1", "localhost"}, false},
		{"added", []string{"127.0.0.1", "192.168.1.1", "localhost"}, true},
		{"removed", []string{"localhost"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.hostsChanged(tt.hosts); got != tt.want {
				t.Errorf("hostsChanged(%v) = %v, want %v", tt.hosts, got, tt.want)
			}
		})
	}
}

func TestManager_ServerConfig(t *testing.T) {
	m, _ := newTestManager(t, []string{"localhost"})

	cfg, err := m.ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig() error: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("certificates = %d, want 1", len(cfg.Certificates))
	}
}

func TestManager_CAFingerprint(t *testing.T) {
	m, _ := newTestManager(t, nil)

	if _, err := m.CAFingerprint(); err == nil {
		t.Error("CAFingerprint() succeeded without a CA")
	}

	writeSelfSigned(t, m.CACertFile(), filepath.Join(m.caDir, "rootCA-key.pem"))
	fp, err := m.CAFingerprint()
	if err != nil {
		t.Fatalf("CAFingerprint() error: %v", err)
	}
	if parts := strings.Split(fp, ":"); len(parts) != 32 {
		t.Errorf("fingerprint %q has %d bytes, want 32", fp, len(parts))
	}
}
