package socket

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
)

// Broadcaster pushes match-found hints over Socket.IO. It only ever shortens
// the polling loop; clients that never connect still converge by polling.
type Broadcaster struct {
	server *socketio.Server
}

// NewBroadcaster initializes the Socket.IO server. Clients join a room named
// after their participantId to receive their own match notifications.
func NewBroadcaster() *Broadcaster {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(c socketio.Conn) error {
		log.Println("✅ Socket connected:", c.ID())
		return nil
	})

	server.OnEvent("/", "join", func(c socketio.Conn, participantID string) {
		if participantID == "" {
			log.Println("❌ Invalid participantId in join request")
			return
		}
		c.Join(participantID)
	})

	server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		log.Println("❌ Socket disconnected:", c.ID(), reason)
	})

	return &Broadcaster{server: server}
}

// Server exposes the underlying Socket.IO handler for mounting and serving.
func (b *Broadcaster) Server() *socketio.Server {
	return b.server
}

// MatchFound notifies each matched participant. Fire-and-forget: a failed or
// missed delivery is recovered by the next poll.
func (b *Broadcaster) MatchFound(sessionID string, participantIDs []string) {
	for _, p := range participantIDs {
		b.server.BroadcastToRoom("/", p, "matchFound", map[string]interface{}{
			"sessionId":    sessionID,
			"participants": participantIDs,
		})
	}
}
