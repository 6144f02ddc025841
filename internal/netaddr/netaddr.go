// Package netaddr resolves the host's LAN address and renders the
// scannable join URL for mobile peers.
package netaddr

import (
	"encoding/base64"
	"fmt"
	"net"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrNoLANAddress is returned when no non-loopback IPv4 interface exists.
var ErrNoLANAddress = fmt.Errorf("no LAN IPv4 address found")

const qrSize = 256

// Resolver produces base URLs for LAN clients. The interface walk is
// injectable so tests can run without real network interfaces.
type Resolver struct {
	addrs func() ([]net.Addr, error)
}

// NewResolver creates a resolver backed by the host's interfaces.
func NewResolver() *Resolver {
	return &Resolver{addrs: net.InterfaceAddrs}
}

// NewResolverWithAddrs creates a resolver with a fixed address source.
func NewResolverWithAddrs(addrs func() ([]net.Addr, error)) *Resolver {
	return &Resolver{addrs: addrs}
}

// LANIP returns the first non-loopback IPv4 address of the host.
func (r *Resolver) LANIP() (string, error) {
	addrs, err := r.addrs()
	if err != nil {
		return "", fmt.Errorf("failed to list interface addresses: %w", err)
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}

	return "", ErrNoLANAddress
}

// BaseURL returns the absolute URL LAN clients use to reach this host.
func (r *Resolver) BaseURL(port int) (string, error) {
	ip, err := r.LANIP()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", ip, port), nil
}

// QRDataURL renders url as a PNG QR code wrapped in a data: URL, the
// format the desktop UI displays directly in an <img> tag.
func QRDataURL(url string) (string, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
