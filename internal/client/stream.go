package client

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"notebook/internal/remote"
)

// SyncStream is a live websocket subscription to the daemon's sync feed.
// Messages arrive on Messages() starting with the snapshot; the channel
// closes when the connection drops or Close is called.
type SyncStream struct {
	ws        *websocket.Conn
	messages  chan *remote.Message
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

// OpenSyncStream dials the daemon's peer endpoint. ctx bounds the dial only;
// the stream stays open after the dial context is released, until Close or
// the connection drops.
func (c *Client) OpenSyncStream(ctx context.Context) (*SyncStream, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, c.PeerURL(), nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	stream := &SyncStream{
		ws:       ws,
		messages: make(chan *remote.Message, 64),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
	go stream.readLoop()
	return stream, nil
}

func (s *SyncStream) Messages() <-chan *remote.Message {
	return s.messages
}

// Err returns the terminal error after Messages closes, nil on clean close.
func (s *SyncStream) Err() error {
	select {
	case err := <-s.errs:
		return err
	default:
		return nil
	}
}

func (s *SyncStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.ws.Close()
}

func (s *SyncStream) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *SyncStream) readLoop() {
	defer close(s.messages)
	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if !s.closed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.errs <- err
			}
			return
		}
		msg, err := remote.DecodeMessage(data)
		if err != nil {
			s.errs <- err
			return
		}
		select {
		case s.messages <- msg:
		case <-s.done:
			return
		}
	}
}
