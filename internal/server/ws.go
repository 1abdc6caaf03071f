package server

import (
	"net/http"
	"time"

	"github.com/Rixmerz/MultiComputer/internal/clients"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsReadLimit = 1 << 20

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handleWS serves /ws?role=control|events. Control clients send command
// frames and get replies; events clients only receive dispatch events.
func (s *Server) handleWS(c *gin.Context) {
	role := clients.Role(c.DefaultQuery("role", string(clients.RoleControl)))
	if role != clients.RoleControl && role != clients.RoleEvents {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "unknown role " + string(role)})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnf("upgrade error: %v", err)
		return
	}
	ws.SetReadLimit(wsReadLimit)
	ws.SetReadDeadline(time.Now().Add(s.pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(s.pongWait))
		return nil
	})

	client := s.clients.Add(role, ws)
	s.log.Infof("websocket %s connected role=%s from %s", client.ID, role, c.ClientIP())
	defer func() {
		s.clients.Remove(client.ID)
		ws.Close()
		s.log.Infof("websocket %s disconnected", client.ID)
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debugf("websocket %s read: %v", client.ID, err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(s.pongWait))
		if role != clients.RoleControl {
			continue
		}
		if reply := s.disp.HandleFrame(msg); reply != nil {
			if err := client.Send(reply); err != nil {
				s.log.Debugf("websocket %s write: %v", client.ID, err)
				return
			}
		}
	}
}
