// Package netaddr provides small listen/connect-address constructors used
// by IoContext's accept/connect queueing and conn.Server's listener setup.
// Addresses are always carried internally as 16-byte IPv6, with IPv4
// addresses represented as the standard ::ffff:a.b.c.d v4-mapped form —
// the same representation original_source/io/ip.hpp's ipv6 type uses, so
// a single address type and a single sockaddr builder cover both families.
package netaddr

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Addr is a 16-byte IPv6 address, optionally v4-mapped.
type Addr struct {
	bytes [16]byte
	port  uint16
}

// Addr4 builds a v4-mapped address from four octets and a port.
func Addr4(a, b, c, d byte, port uint16) Addr {
	return Addr{
		bytes: [16]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF, a, b, c, d},
		port:  port,
	}
}

// Addr4FromUint32 builds a v4-mapped address from a big-endian-packed
// uint32 (the conventional a<<24|b<<16|c<<8|d packing), plus a port.
func Addr4FromUint32(ipv4 uint32, port uint16) Addr {
	return Addr4(byte(ipv4>>24), byte(ipv4>>16), byte(ipv4>>8), byte(ipv4), port)
}

// Addr6 builds an address from sixteen raw IPv6 octets and a port.
func Addr6(octets [16]byte, port uint16) Addr {
	return Addr{bytes: octets, port: port}
}

// V4MappedAddr is an alias for Addr4, named to match the v4-mapped
// terminology used elsewhere in the toolkit's connection helpers.
func V4MappedAddr(a, b, c, d byte, port uint16) Addr {
	return Addr4(a, b, c, d, port)
}

// AnyAddr returns the IPv6 "any" address (::), used for binding a listener
// to all interfaces.
func AnyAddr(port uint16) Addr {
	return Addr{port: port}
}

// LocalhostAddr returns the IPv6 loopback address (::1).
func LocalhostAddr(port uint16) Addr {
	a := Addr{port: port}
	a.bytes[15] = 1
	return a
}

// IsV4Mapped reports whether a carries a v4-mapped IPv4 address.
func (a Addr) IsV4Mapped() bool {
	for i := 0; i < 10; i++ {
		if a.bytes[i] != 0 {
			return false
		}
	}
	return a.bytes[10] == 0xFF && a.bytes[11] == 0xFF
}

// Port returns the address's port.
func (a Addr) Port() uint16 { return a.port }

// Bytes returns the raw 16-byte IPv6 representation.
func (a Addr) Bytes() [16]byte { return a.bytes }

// String renders the address in dotted or colon-hex form.
func (a Addr) String() string {
	if a.IsV4Mapped() {
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.bytes[12], a.bytes[13], a.bytes[14], a.bytes[15], a.port)
	}
	return fmt.Sprintf("[%x:%x:%x:%x:%x:%x:%x:%x]:%d",
		uint16(a.bytes[0])<<8|uint16(a.bytes[1]),
		uint16(a.bytes[2])<<8|uint16(a.bytes[3]),
		uint16(a.bytes[4])<<8|uint16(a.bytes[5]),
		uint16(a.bytes[6])<<8|uint16(a.bytes[7]),
		uint16(a.bytes[8])<<8|uint16(a.bytes[9]),
		uint16(a.bytes[10])<<8|uint16(a.bytes[11]),
		uint16(a.bytes[12])<<8|uint16(a.bytes[13]),
		uint16(a.bytes[14])<<8|uint16(a.bytes[15]),
		a.port)
}

// Sockaddr builds the raw unix.Sockaddr IoContext's socket-creation path
// passes to bind/connect. A v4-mapped address yields a SockaddrInet4 (so
// the kernel gets a plain AF_INET socket where that's what's meant); any
// other address yields a SockaddrInet6.
func (a Addr) Sockaddr() unix.Sockaddr {
	if a.IsV4Mapped() {
		sa := &unix.SockaddrInet4{Port: int(a.port)}
		copy(sa.Addr[:], a.bytes[12:16])
		return sa
	}
	sa := &unix.SockaddrInet6{Port: int(a.port)}
	copy(sa.Addr[:], a.bytes[:])
	return sa
}

// Family returns the socket address family Sockaddr will build for: AF_INET
// for v4-mapped addresses, AF_INET6 otherwise.
func (a Addr) Family() int {
	if a.IsV4Mapped() {
		return unix.AF_INET
	}
	return unix.AF_INET6
}
