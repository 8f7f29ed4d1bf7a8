// Package resolver resolves a hostname to an ordered set of socket
// addresses under an IPv4/IPv6 preference policy, short-circuiting DNS for
// literal IPs.
package resolver

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Family identifies an address family.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

// Preference selects which address families to try, and in what order.
type Preference int

const (
	PreferIPv4Only Preference = iota
	PreferIPv6Only
	PreferIPv4Preferred
	PreferIPv6Preferred
	PreferDualStack
)

// SockType is the socket type to resolve for. It does not change the DNS
// lookup; it selects ResolvedAddress.Protocol ("tcp*" or "udp*") and the
// concrete type of ResolvedAddress.Addr.
type SockType int

const (
	SockStream SockType = iota
	SockDgram
)

// ResolvedAddress is one candidate endpoint returned by Resolve.
type ResolvedAddress struct {
	Family     Family
	SockType   SockType
	Protocol   string // "tcp4" / "tcp6" / "udp4" / "udp6"
	Addr       net.Addr
	Display    string
}

// Resolve returns resolved addresses for host:port honoring pref. A
// literal IPv4/IPv6 address short-circuits DNS lookup entirely.
func Resolve(ctx context.Context, host string, port int, sock SockType, pref Preference) ([]ResolvedAddress, error) {
	if ip := net.ParseIP(host); ip != nil {
		return literalAddress(ip, host, port, sock)
	}

	order := familyOrder(pref)
	var lastErr error
	for _, fam := range order {
		addrs, err := resolveFamily(ctx, host, port, sock, fam)
		if err != nil {
			lastErr = err
			continue
		}
		if len(addrs) > 0 {
			if pref != PreferDualStack {
				return addrs, nil
			}
			// DualStack: keep trying remaining families too, accumulate.
			more, _ := resolveRemaining(ctx, host, port, sock, order, fam)
			return append(addrs, more...), nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("resolver: no addresses found for %s: %w", host, lastErr)
	}
	return nil, fmt.Errorf("resolver: no addresses found for %s", host)
}

func resolveRemaining(ctx context.Context, host string, port int, sock SockType, order []Family, done Family) ([]ResolvedAddress, error) {
	var out []ResolvedAddress
	for _, fam := range order {
		if fam == done {
			continue
		}
		addrs, err := resolveFamily(ctx, host, port, sock, fam)
		if err == nil {
			out = append(out, addrs...)
		}
	}
	return out, nil
}

func familyOrder(pref Preference) []Family {
	switch pref {
	case PreferIPv4Only:
		return []Family{FamilyIPv4}
	case PreferIPv6Only:
		return []Family{FamilyIPv6}
	case PreferIPv6Preferred:
		return []Family{FamilyIPv6, FamilyIPv4}
	case PreferDualStack:
		return []Family{FamilyIPv4, FamilyIPv6}
	default: // PreferIPv4Preferred
		return []Family{FamilyIPv4, FamilyIPv6}
	}
}

func resolveFamily(ctx context.Context, host string, port int, sock SockType, fam Family) ([]ResolvedAddress, error) {
	network := "ip4"
	if fam == FamilyIPv6 {
		network = "ip6"
	}

	resolver := net.Resolver{}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ips, err := resolver.LookupIP(ctx, network, host)
	if err != nil {
		return nil, err
	}

	out := make([]ResolvedAddress, 0, len(ips))
	for _, ip := range ips {
		ra, err := buildAddress(ip, host, port, sock, fam)
		if err != nil {
			continue
		}
		out = append(out, ra)
	}
	return out, nil
}

func literalAddress(ip net.IP, host string, port int, sock SockType) ([]ResolvedAddress, error) {
	fam := FamilyIPv4
	if ip.To4() == nil {
		fam = FamilyIPv6
	}
	ra, err := buildAddress(ip, host, port, sock, fam)
	if err != nil {
		return nil, err
	}
	return []ResolvedAddress{ra}, nil
}

func buildAddress(ip net.IP, host string, port int, sock SockType, fam Family) (ResolvedAddress, error) {
	protoBase := "tcp"
	if sock == SockDgram {
		protoBase = "udp"
	}
	suffix := "4"
	if fam == FamilyIPv6 {
		suffix = "6"
	}

	var addr net.Addr
	display := net.JoinHostPort(ip.String(), itoa(port))
	if sock == SockDgram {
		addr = &net.UDPAddr{IP: ip, Port: port}
	} else {
		addr = &net.TCPAddr{IP: ip, Port: port}
	}

	return ResolvedAddress{
		Family:   fam,
		SockType: sock,
		Protocol: protoBase + suffix,
		Addr:     addr,
		Display:  display,
	}, nil
}

func itoa(v int) string {
	return fmt.Sprintf("%d", v)
}
