// Package tls provisions a locally trusted certificate so browser clients
// on the LAN can reach the agent over wss://.
package tls

import (
	"net"
	"os"
	"sort"
	"strings"
)

// LANAddresses returns the IPv4 addresses of every interface that is up,
// excluding loopback.
func LANAddresses() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip != nil && ip.To4() != nil && !ip.IsLoopback() {
				ips = append(ips, ip.String())
			}
		}
	}
	return ips, nil
}

// CertificateHosts lists the names the certificate must cover: localhost,
// the loopback address, the machine's mDNS name and every LAN address.
// The result is sorted and free of duplicates.
func CertificateHosts() ([]string, error) {
	hosts := []string{"localhost", "127.0.0.1"}
	if name, err := os.Hostname(); err == nil && name != "" {
		hosts = append(hosts, strings.TrimSuffix(name, ".local")+".local")
	}

	lan, err := LANAddresses()
	hosts = append(hosts, lan...)
	return normalizeHosts(hosts), err
}

func normalizeHosts(hosts []string) []string {
	seen := make(map[string]bool, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
