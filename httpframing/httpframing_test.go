package httpframing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kungfusheep/ioframe/httpframing"
)

// TestHTTPResponseFraming decodes "HTTP/1.1 200 OK\r\n..." delivered in
// arbitrary-sized chunks.
func TestHTTPResponseFraming(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello"

	p := httpframing.NewParser()
	for _, chunk := range splitIntoChunks(raw, 7) {
		require.NoError(t, p.Send([]byte(chunk)))
	}
	v, err := p.GetResult()
	require.NoError(t, err)
	resp := v.(*httpframing.Response)

	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "OK", resp.Reason)
	ct, ok := resp.Get("Content-Type")
	require.True(t, ok)
	require.Equal(t, "text/plain", ct)
	require.Equal(t, []byte("hello"), resp.Body)
}

func TestHTTPResponseChunkedBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"5\r\nhello\r\n" +
		"6\r\n world\r\n" +
		"0\r\n\r\n"

	resp, err := httpframing.Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), resp.Body)
}

func TestHTTPResponseNoBodyFraming(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\n\r\n"
	resp, err := httpframing.Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, 204, resp.StatusCode)
	require.Empty(t, resp.Body)
}

func TestHTTPMalformedStatusLine(t *testing.T) {
	_, err := httpframing.Parse([]byte("garbage\r\n\r\n"))
	require.Error(t, err)
}

func splitIntoChunks(s string, size int) []string {
	var chunks []string
	for len(s) > 0 {
		n := size
		if n > len(s) {
			n = len(s)
		}
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return chunks
}
