// Package socks5 is an exemplar protocol built on ioframe's descriptor
// algebra: the SOCKS5 handshake, request/reply, and UDP relay framing
// (RFC 1928, RFC 1929). It exists to exercise the engine end to end, not
// to be a complete SOCKS5 implementation: it does not open sockets or
// relay traffic.
package socks5

import (
	"net"

	"github.com/kungfusheep/ioframe"
)

// ipv4 and ipv6 present a dotted or colon-hex string at the schema layer
// over a fixed 4- or 16-byte wire representation, built from Convert over
// Bytes rather than a bespoke Unit type (the package only ever composes
// ioframe's exported descriptor constructors).
var (
	ipv4 = ioframe.NewConvert(ioframe.NewBytes(4),
		func(v any) any { ip := net.ParseIP(v.(string)).To4(); return []byte(ip) },
		func(v any) any { return net.IP(v.([]byte)).String() },
	)
	ipv6 = ioframe.NewConvert(ioframe.NewBytes(16),
		func(v any) any { ip := net.ParseIP(v.(string)).To16(); return []byte(ip) },
		func(v any) any { return net.IP(v.([]byte)).String() },
	)
)

// Hostname is a one-field schema: a length-prefixed ASCII domain name.
var Hostname = ioframe.NewSchema("Hostname",
	ioframe.F("name", ioframe.NewLengthPrefixedString(ioframe.Uint8)),
)

const (
	atypIPv4     = 1
	atypDomain   = 3
	atypIPv6     = 4
)

// Addr is the SOCKS5 address-type union: a one-byte type tag followed by
// one of an IPv4 address, an IPv6 address, or a length-prefixed hostname,
// selected by the tag via Switch.
var Addr = ioframe.NewSchema("Addr",
	ioframe.F("atyp", ioframe.Uint8),
	ioframe.F("host", ioframe.NewSwitch("atyp", map[any]ioframe.Descriptor{
		int64(atypIPv4):   ipv4,
		int64(atypIPv6):   ipv6,
		int64(atypDomain): Hostname,
	}, nil)),
	ioframe.F("port", ioframe.Uint16BE),
)

// AuthMethod enumerates the SOCKS5 negotiation method byte.
var AuthMethod = ioframe.EnumSet{
	0:   "no_auth",
	1:   "gssapi",
	2:   "user_auth",
	255: "no_acceptable_method",
}

// Cmd enumerates the SOCKS5 request command byte.
var Cmd = ioframe.EnumSet{
	1: "connect",
	2: "bind",
	3: "associate",
}

// Rep enumerates the SOCKS5 reply status byte.
var Rep = ioframe.EnumSet{
	0: "succeeded",
	1: "general_failure",
	2: "not_allowed",
	3: "network_unreachable",
	4: "host_unreachable",
	5: "connection_refused",
	6: "ttl_expired",
	7: "command_not_supported",
	8: "address_type_not_supported",
}

// Handshake is the client's opening offer of authentication methods.
var Handshake = ioframe.NewSchema("Socks5Handshake",
	ioframe.F("ver", ioframe.NewMustEqual(ioframe.Uint8, int64(5))),
	ioframe.F("methods", ioframe.NewLengthPrefixedBytes(ioframe.Uint8)),
)

// ServerSelection is the server's reply choosing one offered method.
var ServerSelection = ioframe.NewSchema("Socks5ServerSelection",
	ioframe.F("ver", ioframe.NewMustEqual(ioframe.Uint8, int64(5))),
	ioframe.F("method", ioframe.NewSizedIntEnum(ioframe.Uint8, AuthMethod)),
)

// UsernamePasswordAuth is the RFC 1929 username/password sub-negotiation,
// used only after ServerSelection picks AuthMethod "user_auth".
var UsernamePasswordAuth = ioframe.NewSchema("UsernamePasswordAuth",
	ioframe.F("auth_ver", ioframe.NewMustEqual(ioframe.Uint8, int64(1))),
	ioframe.F("username", ioframe.NewLengthPrefixedString(ioframe.Uint8)),
	ioframe.F("password", ioframe.NewLengthPrefixedString(ioframe.Uint8)),
)

// UsernamePasswordAuthReply is the server's one-byte verdict on a
// UsernamePasswordAuth attempt (0 = success).
var UsernamePasswordAuthReply = ioframe.NewSchema("UsernamePasswordAuthReply",
	ioframe.F("auth_ver", ioframe.NewMustEqual(ioframe.Uint8, int64(1))),
	ioframe.F("status", ioframe.Uint8),
)

// ClientRequest is the client's command after a successful handshake:
// which operation (connect/bind/associate) against which address.
var ClientRequest = ioframe.NewSchema("Socks5ClientRequest",
	ioframe.F("ver", ioframe.NewMustEqual(ioframe.Uint8, int64(5))),
	ioframe.F("cmd", ioframe.NewSizedIntEnum(ioframe.Uint8, Cmd)),
	ioframe.F("rsv", ioframe.NewMustEqual(ioframe.Uint8, int64(0))),
	ioframe.F("addr", Addr),
)

// Reply is the server's answer to a ClientRequest.
var Reply = ioframe.NewSchema("Socks5Reply",
	ioframe.F("ver", ioframe.NewMustEqual(ioframe.Uint8, int64(5))),
	ioframe.F("rep", ioframe.NewSizedIntEnum(ioframe.Uint8, Rep)),
	ioframe.F("rsv", ioframe.NewMustEqual(ioframe.Uint8, int64(0))),
	ioframe.F("bind_addr", Addr),
)

// UDPRelay is the per-datagram header used when ClientRequest.cmd is
// "associate": a reserved field, a fragmentation flag, the target
// address, and the payload.
var UDPRelay = ioframe.NewSchema("Socks5UDPRelay",
	ioframe.F("rsv", ioframe.NewMustEqual(ioframe.NewBytes(2), []byte{0, 0})),
	ioframe.F("flag", ioframe.Uint8),
	ioframe.F("addr", Addr),
	ioframe.F("data", ioframe.NewBytes(-1)),
)
