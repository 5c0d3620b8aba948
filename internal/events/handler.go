package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WebSocketHandler upgrades the request and streams events as JSON text
// frames until the client goes away or the broker is closed, in which case
// the client receives a normal close frame.
func WebSocketHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("events websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case evt, ok := <-ch:
				if !ok {
					body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "run finished")
					if err := ws.WriteFrame(conn, ws.NewCloseFrame(body)); err != nil {
						slog.Debug("events websocket close failed", "error", err)
					}
					return
				}
				data, err := json.Marshal(evt)
				if err != nil {
					slog.Debug("events marshal failed", "error", err)
					continue
				}
				if err := wsutil.WriteServerText(conn, data); err != nil {
					slog.Debug("events websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
