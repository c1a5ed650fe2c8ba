package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/config"
	"bitbucket.org/consolelogwin/veritas_backend/notifier"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsReadLimit = 4096
	wsPongWait  = 70 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		allowed := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
		if !strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") || allowed == "" {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, candidate := range strings.Split(allowed, ",") {
			if strings.TrimSpace(candidate) == origin {
				return true
			}
		}
		return false
	},
}

// wsHandler upgrades the connection and pins it to the caller's identity in
// the hub. The connection lives until the client goes away; everything the
// hub publishes for this user is pushed over it in order.
func wsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			config.LogError(app.logger, "wsHandler.go", "wsHandler", "Upgrade", user.ID, err)
			return
		}

		channel := notifier.NewWSChannel(conn)
		app.hub.Register(user.ID, channel)

		_ = channel.SendEvent(notifier.Event{
			Type: "connected",
			Data: gin.H{"user_id": user.ID, "time": time.Now().UTC().Format(time.RFC3339)},
		})

		go readPump(user.ID, conn, channel)
	}
}

// readPump drains client frames. Clients only ever send heartbeats; anything
// else is ignored. The pump owns teardown: when the read side dies the
// channel is unregistered and closed.
func readPump(identity string, conn *websocket.Conn, channel *notifier.WSChannel) {
	defer func() {
		app.hub.Unregister(identity, channel)
		channel.Close()
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if strings.EqualFold(strings.TrimSpace(string(payload)), "ping") {
			_ = channel.SendEvent(notifier.Event{Type: "pong"})
		}
	}
}
