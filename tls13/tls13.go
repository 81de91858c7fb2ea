// Package tls13 is an exemplar protocol built on ioframe's descriptor
// algebra: the wire format of TLS 1.3 records and the ClientHello/
// ServerHello handshake messages (RFC 8446 §4-5). It models enough of the
// handshake to exercise every descriptor kind, including three levels of
// Switch/LengthPrefixedObject nesting, but it is not a TLS
// implementation: no cryptography, no record protection, no state
// machine.
package tls13

import "github.com/kungfusheep/ioframe"

// ExtensionType enumerates the handshake extension registry (RFC 8446
// §4.2). Only a subset has a modeled ext_data shape below; the rest
// decode as raw length-prefixed bytes via the Switch default case.
var ExtensionType = ioframe.EnumSet{
	0:  "server_name",
	1:  "max_fragment_length",
	5:  "status_request",
	10: "supported_groups",
	13: "signature_algorithms",
	14: "use_srtp",
	15: "heartbeat",
	16: "application_layer_protocol_negotiation",
	18: "signed_certificate_timestamp",
	19: "client_certificate_type",
	20: "server_certificate_type",
	21: "padding",
	41: "pre_shared_key",
	42: "early_data",
	43: "supported_versions",
	44: "cookie",
	45: "psk_key_exchange_modes",
	47: "certificate_authorities",
	48: "oid_filters",
	49: "post_handshake_auth",
	50: "signature_algorithms_cert",
	51: "key_share",
}

// HandshakeType enumerates the one-byte handshake message type.
var HandshakeType = ioframe.EnumSet{
	1:   "client_hello",
	2:   "server_hello",
	4:   "new_session_ticket",
	5:   "end_of_early_data",
	8:   "encrypted_extensions",
	11:  "certificate",
	13:  "certificate_request",
	15:  "certificate_verify",
	20:  "finished",
	24:  "key_update",
	254: "message_hash",
}

// ContentType enumerates the record-layer content type.
var ContentType = ioframe.EnumSet{
	0:  "invalid",
	20: "change_cipher_spec",
	21: "alert",
	22: "handshake",
	23: "application_data",
}

// NameType enumerates the server_name extension's name type.
var NameType = ioframe.EnumSet{0: "host_name"}

// SignatureScheme enumerates the signature_algorithms extension's scheme
// list (RFC 8446 §4.2.3).
var SignatureScheme = ioframe.EnumSet{
	0x0401: "rsa_pkcs1_sha256",
	0x0501: "rsa_pkcs1_sha384",
	0x0601: "rsa_pkcs1_sha512",
	0x0403: "ecdsa_secp256r1_sha256",
	0x0503: "ecdsa_secp384r1_sha384",
	0x0603: "ecdsa_secp521r1_sha512",
	0x0804: "rsa_pss_rsae_sha256",
	0x0805: "rsa_pss_rsae_sha384",
	0x0806: "rsa_pss_rsae_sha512",
	0x0807: "ed25519",
	0x0808: "ed448",
	0x0809: "rsa_pss_pss_sha256",
	0x080a: "rsa_pss_pss_sha384",
	0x080b: "rsa_pss_pss_sha512",
	0x0201: "rsa_pkcs1_sha1",
	0x0203: "ecdsa_sha1",
}

// NamedGroup enumerates the supported_groups/key_share extension's group
// list (RFC 8446 §4.2.7).
var NamedGroup = ioframe.EnumSet{
	0x0017: "secp256r1",
	0x0018: "secp384r1",
	0x0019: "secp521r1",
	0x001D: "x25519",
	0x001E: "x448",
	0x0100: "ffdhe2048",
	0x0101: "ffdhe3072",
	0x0102: "ffdhe4096",
	0x0103: "ffdhe6144",
	0x0104: "ffdhe8192",
}

// PskKeyExchangeMode enumerates the psk_key_exchange_modes extension.
var PskKeyExchangeMode = ioframe.EnumSet{0: "psk_ke", 1: "psk_dhe_ke"}

// CipherSuite enumerates the TLS 1.3 cipher suite registry (the 1.3-only
// subset; TLS 1.2 suites are out of scope).
var CipherSuite = ioframe.EnumSet{
	0x1301: "TLS_AES_128_GCM_SHA256",
	0x1302: "TLS_AES_256_GCM_SHA384",
	0x1303: "TLS_CHACHA20_POLY1305_SHA256",
	0x1304: "TLS_AES_128_CCM_SHA256",
	0x1305: "TLS_AES_128_CCM_8_SHA256",
}

var cipherSuite = ioframe.NewSizedIntEnum(ioframe.Uint16BE, CipherSuite)

// ServerName is the server_name extension's single entry: a name type tag
// (always host_name in practice) and, for that type, a length-prefixed
// DNS name.
var ServerName = ioframe.NewSchema("ServerName",
	ioframe.F("name_type", ioframe.NewMustEqual(ioframe.NewSizedIntEnum(ioframe.Uint8, NameType), "host_name")),
	ioframe.F("name", ioframe.NewSwitch("name_type", map[any]ioframe.Descriptor{
		"host_name": ioframe.NewLengthPrefixedString(ioframe.Uint16BE),
	}, nil)),
)

// rawExtensionData is the fallback shape for any extension type this
// package does not model explicitly: its payload as opaque bytes.
var rawExtensionData = ioframe.NewLengthPrefixedBytes(ioframe.Uint16BE)

// Extension is one handshake extension: a type tag and a type-dependent,
// length-prefixed body. Extension types outside the modeled set still
// parse, as raw bytes, via the Switch default case.
var Extension = ioframe.NewSchema("Extension",
	ioframe.F("ext_type", ioframe.NewSizedIntEnum(ioframe.Uint16BE, ExtensionType)),
	ioframe.F("ext_data", ioframe.NewSwitch("ext_type", map[any]ioframe.Descriptor{
		"server_name": ioframe.NewLengthPrefixedObject(ioframe.Uint16BE,
			ioframe.NewLengthPrefixedObjectList(ioframe.Uint16BE, ServerName)),
		"supported_versions": ioframe.NewLengthPrefixedObject(ioframe.Uint16BE,
			ioframe.NewLengthPrefixedObjectList(ioframe.Uint8, ioframe.NewBytes(2))),
		"signature_algorithms": ioframe.NewLengthPrefixedObject(ioframe.Uint16BE,
			ioframe.NewLengthPrefixedObjectList(ioframe.Uint16BE, ioframe.NewSizedIntEnum(ioframe.Uint16BE, SignatureScheme))),
		"supported_groups": ioframe.NewLengthPrefixedObject(ioframe.Uint16BE,
			ioframe.NewLengthPrefixedObjectList(ioframe.Uint16BE, ioframe.NewSizedIntEnum(ioframe.Uint16BE, NamedGroup))),
		"key_share": ioframe.NewLengthPrefixedObject(ioframe.Uint16BE,
			ioframe.NewLengthPrefixedObjectList(ioframe.Uint16BE, ioframe.NewLengthPrefixedBytes(ioframe.Uint16BE))),
		"psk_key_exchange_modes": ioframe.NewLengthPrefixedObject(ioframe.Uint16BE,
			ioframe.NewLengthPrefixedObjectList(ioframe.Uint8, ioframe.NewSizedIntEnum(ioframe.Uint8, PskKeyExchangeMode))),
		"early_data": ioframe.NewLengthPrefixedObject(ioframe.Uint16BE, ioframe.NewLengthPrefixedBytes(ioframe.Uint16BE)),
	}, rawExtensionData)),
)

// ClientHello is the TLS 1.3 ClientHello body (RFC 8446 §4.1.2).
var ClientHello = ioframe.NewSchema("ClientHello",
	ioframe.F("legacy_version", ioframe.NewMustEqual(ioframe.NewBytes(2), []byte{0x03, 0x03})),
	ioframe.F("rand", ioframe.NewBytes(32)),
	ioframe.F("legacy_session_id", ioframe.NewLengthPrefixedBytes(ioframe.Uint8)),
	ioframe.F("cipher_suites", ioframe.NewLengthPrefixedObjectList(ioframe.Uint16BE, cipherSuite)),
	ioframe.F("legacy_compression_methods", ioframe.NewMustEqual(ioframe.NewBytes(2), []byte{0x01, 0x00})),
	ioframe.F("extensions", ioframe.NewLengthPrefixedObjectList(ioframe.Uint16BE, Extension)),
)

// ServerHello is the TLS 1.3 ServerHello body (RFC 8446 §4.1.3).
var ServerHello = ioframe.NewSchema("ServerHello",
	ioframe.F("legacy_version", ioframe.NewMustEqual(ioframe.NewBytes(2), []byte{0x03, 0x03})),
	ioframe.F("rand", ioframe.NewBytes(32)),
	ioframe.F("legacy_session_id_echo", ioframe.NewLengthPrefixedBytes(ioframe.Uint8)),
	ioframe.F("cipher_suites", ioframe.NewLengthPrefixedObjectList(ioframe.Uint16BE, cipherSuite)),
	ioframe.F("legacy_compression_method", ioframe.NewMustEqual(ioframe.Uint8, int64(0))),
	ioframe.F("extensions", ioframe.NewLengthPrefixedObjectList(ioframe.Uint16BE, Extension)),
)

// Handshake wraps a ClientHello or ServerHello (the only two message
// types this package models) behind the common handshake header: a
// one-byte type and a 24-bit length.
var Handshake = ioframe.NewSchema("Handshake",
	ioframe.F("msg_type", ioframe.NewSizedIntEnum(ioframe.Uint8, HandshakeType)),
	ioframe.F("msg", ioframe.NewLengthPrefixedObject(ioframe.Uint24BE, ioframe.NewSwitch("msg_type", map[any]ioframe.Descriptor{
		"client_hello": ClientHello,
		"server_hello": ServerHello,
	}, nil))),
)

// TLSPlaintext is the unprotected record layer envelope (RFC 8446 §5.1):
// content type, the legacy (fixed) record version, and a length-prefixed
// fragment of at most 2^14 bytes.
var TLSPlaintext = ioframe.NewSchema("TLSPlaintext",
	ioframe.F("content_type", ioframe.NewSizedIntEnum(ioframe.Uint8, ContentType)),
	ioframe.F("legacy_record_version", ioframe.NewBytes(2)),
	ioframe.F("fragment", ioframe.NewLengthPrefixedBytes(ioframe.Uint16BE)),
)

// MaxFragmentSize is the largest TLSPlaintext.fragment RFC 8446 permits.
const MaxFragmentSize = 16384

// PackPlaintext splits data into MaxFragmentSize fragments and wraps each
// in a TLSPlaintext record, concatenating their wire bytes. This is the
// reference encoder for anything larger than one record.
func PackPlaintext(contentType string, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ioframe.ErrInvalidArgument
	}
	isHandshake := contentType == "handshake"
	var out []byte
	for i := 0; len(data) > 0; i++ {
		n := len(data)
		if n > MaxFragmentSize {
			n = MaxFragmentSize
		}
		frag := data[:n]
		data = data[n:]
		version := []byte{0x03, 0x03}
		if i == 0 && isHandshake {
			version = []byte{0x03, 0x01}
		}
		inst, err := TLSPlaintext.Build(contentType, version, frag)
		if err != nil {
			return nil, err
		}
		raw, err := inst.Bytes(ioframe.NewContext())
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}
	return out, nil
}

// TLSInnerPlaintext is the post-handshake, pre-encryption record shape
// (RFC 8446 §5.2): content followed by its own content type, the
// zero-length-padding form (no padding length is modeled).
// content is a sink field (NewBytes(-1)) ahead of content_type: it takes
// whatever bytes are buffered when it is reached, and content_type is then
// read from bytes that arrive after that; kept in this order for fidelity
// with the source this package is modeled on.
var TLSInnerPlaintext = ioframe.NewSchema("TLSInnerPlaintext",
	ioframe.F("content", ioframe.NewBytes(-1)),
	ioframe.F("content_type", ioframe.NewSizedIntEnum(ioframe.Uint8, ContentType)),
)

// TLSCiphertext is the protected record envelope (RFC 8446 §5.2): always
// opaque_type == application_data, the legacy record version, and the
// AEAD-sealed record.
var TLSCiphertext = ioframe.NewSchema("TLSCiphertext",
	ioframe.F("opaque_type", ioframe.NewMustEqual(ioframe.NewSizedIntEnum(ioframe.Uint8, ContentType), "application_data")),
	ioframe.F("legacy_record_version", ioframe.NewMustEqual(ioframe.NewBytes(2), []byte{0x03, 0x03})),
	ioframe.F("encrypted_record", ioframe.NewLengthPrefixedBytes(ioframe.Uint16BE)),
)
