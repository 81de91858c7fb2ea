package tls13_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kungfusheep/ioframe"
	"github.com/kungfusheep/ioframe/tls13"
)

// TestTLS13ClientHello builds a ClientHello with a server_name and a
// supported_versions extension and round-trips it through three levels
// of LengthPrefixedObject/Switch nesting.
func TestTLS13ClientHello(t *testing.T) {
	serverName, err := tls13.ServerName.Build("host_name", "example.com")
	require.NoError(t, err)
	serverNameExt, err := tls13.Extension.Build("server_name", []any{serverName})
	require.NoError(t, err)
	versionsExt, err := tls13.Extension.Build("supported_versions", []any{[]byte{0x03, 0x04}})
	require.NoError(t, err)

	rand32 := make([]byte, 32)
	for i := range rand32 {
		rand32[i] = byte(i)
	}
	hello, err := tls13.ClientHello.Build(
		[]byte{0x03, 0x03},
		rand32,
		[]byte{},
		[]any{"TLS_AES_128_GCM_SHA256"},
		[]byte{0x01, 0x00},
		[]any{serverNameExt, versionsExt},
	)
	require.NoError(t, err)

	raw, err := hello.Bytes(ioframe.NewContext())
	require.NoError(t, err)

	parsed, err := tls13.ClientHello.Parse(raw, true)
	require.NoError(t, err)
	require.True(t, hello.Equal(parsed))

	exts := parsed.Get("extensions").([]any)
	require.Len(t, exts, 2)

	first := exts[0].(*ioframe.Instance)
	require.Equal(t, "server_name", first.Get("ext_type"))
	names := first.Get("ext_data").([]any)
	sn := names[0].(*ioframe.Instance)
	require.Equal(t, "example.com", sn.Get("name"))
}

func TestTLS13HandshakeWrapsClientHello(t *testing.T) {
	hello, err := tls13.ClientHello.Build(
		[]byte{0x03, 0x03},
		make([]byte, 32),
		[]byte{},
		[]any{"TLS_AES_128_GCM_SHA256"},
		[]byte{0x01, 0x00},
		[]any{},
	)
	require.NoError(t, err)

	handshake, err := tls13.Handshake.Build("client_hello", hello)
	require.NoError(t, err)
	raw, err := handshake.Bytes(ioframe.NewContext())
	require.NoError(t, err)

	parsed, err := tls13.Handshake.Parse(raw, true)
	require.NoError(t, err)
	require.Equal(t, "client_hello", parsed.Get("msg_type"))
	inner := parsed.Get("msg").(*ioframe.Instance)
	require.True(t, hello.Equal(inner))
}

func TestTLS13UnknownExtensionFallsBackToRawBytes(t *testing.T) {
	ext, err := tls13.Extension.Build("max_fragment_length", []byte{0xde, 0xad})
	require.NoError(t, err)
	raw, err := ext.Bytes(ioframe.NewContext())
	require.NoError(t, err)

	parsed, err := tls13.Extension.Parse(raw, true)
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, parsed.Get("ext_data"))
}

func TestTLS13PackPlaintextSplitsOversizedFragments(t *testing.T) {
	data := make([]byte, tls13.MaxFragmentSize+10)
	out, err := tls13.PackPlaintext("application_data", data)
	require.NoError(t, err)
	require.Greater(t, len(out), len(data))
}
