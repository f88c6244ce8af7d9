package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := append([]byte("echo:"), data...)
			if err := conn.WriteMessage(mt, reply); err != nil {
				return
			}
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestSendDialsAndRoundTrips(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := New(Config{URL: wsURL(srv.URL), MaxElapsedTime: time.Second})
	defer c.Close()

	resp, err := c.Send(context.Background(), []byte("ping"))
	require.NoError(t, err)
	require.Equal(t, "echo:ping", string(resp))
}

func TestSendReusesConnectionAcrossCalls(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := New(Config{URL: wsURL(srv.URL), MaxElapsedTime: time.Second})
	defer c.Close()

	_, err := c.Send(context.Background(), []byte("one"))
	require.NoError(t, err)
	first := c.conn

	_, err = c.Send(context.Background(), []byte("two"))
	require.NoError(t, err)
	require.Same(t, first, c.conn, "Send redialed on the second call instead of reusing the connection")
}

func TestSendBadURLFailsWithoutRetrying(t *testing.T) {
	c := New(Config{URL: "://not-a-url", MaxElapsedTime: time.Second})
	defer c.Close()

	start := time.Now()
	_, err := c.Send(context.Background(), []byte("x"))
	require.Error(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond,
		"bad URL should fail immediately via backoff.Permanent, not retry")
}

func TestCloseOnUndialedClientIsNoop(t *testing.T) {
	c := New(Config{URL: "ws://unused"})
	require.NoError(t, c.Close())
}
