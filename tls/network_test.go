package tls

import (
	"reflect"
	"testing"
)

func TestCertificateHosts(t *testing.T) {
	hosts, err := CertificateHosts()
	if err != nil {
		t.Logf("LAN lookup failed (expected in some sandboxes): %v", err)
	}

	has := make(map[string]bool)
	for _, h := range hosts {
		has[h] = true
	}
	for _, want := range []string{"localhost", "127.0.0.1"} {
		if !has[want] {
			t.Errorf("CertificateHosts() = %v, missing %s", hosts, want)
		}
	}
}

func TestNormalizeHosts(t *testing.T) {
	got := normalizeHosts([]string{"localhost", " 10.0.0.2", "", "127.0.0.1", "10.0.0.2"})
	want := []string{"10.0.0.2", "127.0.0.1", "localhost"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeHosts() = %v, want %v", got, want)
	}
}
