//go:build linux

package tcp

import (
	"net/netip"

	"tinyhttpd/transport"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func domainOf(family transport.Family) (int, error) {
	switch family {
	case transport.IPv4:
		return unix.AF_INET, nil
	case transport.IPv6:
		return unix.AF_INET6, nil
	}
	return 0, errors.Errorf("unsupported address family %d", family)
}

func toSockaddr(family transport.Family, addr netip.AddrPort) (unix.Sockaddr, error) {
	ip := addr.Addr()

	switch family {
	case transport.IPv4:
		ip = ip.Unmap()
		if !ip.Is4() {
			return nil, errors.Errorf("%s is not an ipv4 address", ip)
		}
		return &unix.SockaddrInet4{Port: int(addr.Port()), Addr: ip.As4()}, nil

	case transport.IPv6:
		if !ip.Is6() {
			return nil, errors.Errorf("%s is not an ipv6 address", ip)
		}
		return &unix.SockaddrInet6{Port: int(addr.Port()), Addr: ip.As16()}, nil
	}

	return nil, errors.Errorf("unsupported address family %d", family)
}

// fromSockaddr converts sa. Non-IP sockets yield the zero AddrPort.
func fromSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))
	}
	return netip.AddrPort{}
}
