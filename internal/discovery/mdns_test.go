package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	req := require.New(t)

	service, err := newService("studio", "desk", 8080, []net.IP{net.IPv4(192, 168, 1, 20)})

	req.NoError(err)
	req.Equal("studio", service.Instance)
	req.Equal(ServiceType, service.Service)
	req.Equal("desk.", service.HostName)
	req.Equal(8080, service.Port)
	req.Contains(service.TXT, "path=/ws")
}

func TestNewService_KeepsQualifiedHost(t *testing.T) {
	service, err := newService("studio", "desk.local.", 9000, []net.IP{net.IPv4(10, 0, 0, 1)})

	require.NoError(t, err)
	require.Equal(t, "desk.local.", service.HostName)
}
