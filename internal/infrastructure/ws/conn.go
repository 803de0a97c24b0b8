package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// socketConn adapts a gorilla connection to the hub's Conn. Writes are
// serialized; gorilla allows at most one concurrent writer.
type socketConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewConn(c *websocket.Conn) Conn {
	return &socketConn{conn: c}
}

func (s *socketConn) Send(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *socketConn) Close() error {
	return s.conn.Close()
}
