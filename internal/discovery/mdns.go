// Package discovery announces inkboard servers on the local network so
// clients and cmd/roomstat can find them without configuration.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_inkboard._tcp"

// Advertise publishes the server until Shutdown is called on the result
func Advertise(instance string, port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := newService(instance, host, port, nil)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

func newService(instance, host string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	fqdn := host
	if len(fqdn) == 0 || fqdn[len(fqdn)-1] != '.' {
		fqdn += "."
	}
	service, err := mdns.NewMDNSService(
		instance,
		ServiceType,
		"",
		fqdn,
		port,
		ips,
		[]string{"inkboard", "path=/ws"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	return service, nil
}

type Server struct {
	Instance string
	Addr     string
}

// Browse collects servers that answer within timeout
func Browse(ctx context.Context, timeout time.Duration) ([]Server, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(chan []Server, 1)
	go func() {
		var servers []Server
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			servers = append(servers, Server{
				Instance: e.Name,
				Addr:     fmt.Sprintf("%s:%d", e.AddrV4, e.Port),
			})
		}
		found <- servers
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.QueryContext(ctx, params)
	close(entries)
	servers := <-found
	if err != nil {
		return servers, fmt.Errorf("mdns query: %w", err)
	}
	return servers, nil
}
