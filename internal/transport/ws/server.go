package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"caravanrequest/internal/protocol"
	"caravanrequest/internal/sim/world"
)

// Server exposes the world over a websocket: a HELLO/WELCOME handshake,
// then a read-only event stream down and player commands up.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, 256)
		observerID, ok := s.handshake(conn, out)
		if !ok {
			return
		}
		defer s.world.DetachObserver(observerID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: player commands up.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.CmdOpenNegotiation, protocol.CmdAdjustItem, protocol.CmdConfirmDeal,
				protocol.CmdCancelDeal, protocol.CmdReviewItem, protocol.CmdReviewPayment,
				protocol.CmdPostponePayment:
				var cmd protocol.CommandReq
				if err := json.Unmarshal(msg, &cmd); err != nil {
					continue
				}
				s.world.SubmitCommand(cmd)
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn, out chan []byte) (observerID string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return "", false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return "", false
	}
	if hello.ObserverName == "" {
		hello.ObserverName = "observer"
	}

	resp := s.world.AttachObserver(hello.ObserverName, out)
	b, err := json.Marshal(resp.Welcome)
	if err != nil {
		s.world.DetachObserver(resp.ID)
		return "", false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.world.DetachObserver(resp.ID)
		return "", false
	}
	return resp.ID, true
}
