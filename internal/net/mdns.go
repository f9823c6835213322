package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_syncboard._tcp"

var ErrNoHostFound = errors.New("no board host found on the local network")

// Advertise announces a host on the local network. Close the returned server
// with Shutdown when the session ends.
func Advertise(port int, info ...string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if len(info) == 0 {
		info = []string{"SyncBoard"}
	}

	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, []net.IP{firstIPv4()}, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for an advertised host and returns the first "ip:port" found.
func Browse(ctx context.Context, timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	go func() {
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			select {
			case found <- fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port):
			default:
			}
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(params)
		close(entries)
	}()

	select {
	case addr := <-found:
		return addr, nil
	case err := <-queryErr:
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		if err != nil {
			return "", fmt.Errorf("mDNS query: %w", err)
		}
		return "", ErrNoHostFound
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// firstIPv4 returns the first non-loopback IPv4 address of an up interface.
func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
