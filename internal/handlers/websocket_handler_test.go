package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkit/server/internal/middleware"
	"github.com/parkit/server/internal/services"
)

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readWS(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wsEnvelope
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocketHandler(t *testing.T) {
	srv := setupTestServer(t, 0)
	httpSrv := httptest.NewServer(srv.router)
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	t.Run("sends a snapshot on connect", func(t *testing.T) {
		msg := readWS(t, conn)
		assert.Equal(t, services.WSTypeSnapshot, msg.Type)
		assert.Contains(t, string(msg.Payload), `"state":"no_record"`)
	})

	t.Run("answers ping", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
		assert.Equal(t, services.WSTypePong, readWS(t, conn).Type)
	})

	t.Run("pushes state changes", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return srv.hub.GetTopicSubscriberCount(services.TopicParking) == 1
		}, time.Second, 10*time.Millisecond)

		rec := srv.do(t, multipartRequest(t, "/api/parking", "car.png", "image/png", pngUpload(t, 20, 20), nil))
		require.Equal(t, http.StatusCreated, rec.Code)

		msg := readWS(t, conn)
		assert.Equal(t, services.WSTypeStateChanged, msg.Type)
		assert.Contains(t, string(msg.Payload), `"state":"has_record"`)
	})
}

func TestWebSocketHandler_RequiresAPIKey(t *testing.T) {
	srv := setupTestServer(t, 0)
	httpSrv := httptest.NewServer(middleware.APIKeyAuth("secret", "X-API-Key")(srv.router))
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"

	t.Run("rejects a socket without key", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if conn != nil {
			conn.Close()
		}
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("accepts the key as a query parameter", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(url+"?"+middleware.APIKeyQueryParam+"=secret", nil)
		require.NoError(t, err)
		defer conn.Close()

		assert.Equal(t, services.WSTypeSnapshot, readWS(t, conn).Type)
	})

	t.Run("accepts the key as a header", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-API-Key": []string{"secret"}})
		require.NoError(t, err)
		defer conn.Close()

		assert.Equal(t, services.WSTypeSnapshot, readWS(t, conn).Type)
	})
}
