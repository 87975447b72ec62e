package remote

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"notebook/internal/logging"
	"notebook/internal/types"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 45 * time.Second
	sendBufferSize = 64
)

// SnapshotFunc captures the current model state for a newly connected peer.
type SnapshotFunc func() []*types.DocumentSnapshot

// Hub fans sync messages out to every connected presentation surface. It
// implements the peer proxy the document model pushes through; a hub with no
// connections silently drops messages.
type Hub struct {
	logger   logging.Logger
	snapshot SnapshotFunc
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*peerConn
}

type peerConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
}

func NewHub(logger logging.Logger, snapshot SnapshotFunc) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		logger:   logger,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The daemon binds to loopback; cross-origin checks add nothing.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: map[string]*peerConn{},
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. The first message on every connection is a snapshot
// of all open documents so the client can catch up before splices arrive.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("peer_upgrade_failed", logging.F("error", err))
		return
	}
	conn := &peerConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	if h.snapshot != nil {
		data, err := encodeMessage(&Message{Type: MessageSnapshot, Snapshot: h.snapshot()})
		if err != nil {
			h.logger.Error("snapshot_encode_failed", logging.F("error", err))
			_ = ws.Close()
			return
		}
		conn.send <- data
	}

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()
	h.logger.Info("peer_connected", logging.F("peer", conn.id))

	go h.writeLoop(conn)
	h.readLoop(conn)

	h.drop(conn)
}

func (h *Hub) writeLoop(conn *peerConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-conn.send:
			if !ok {
				return
			}
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("peer_write_failed", logging.F("peer", conn.id), logging.F("error", err))
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.done:
			return
		}
	}
}

func (h *Hub) readLoop(conn *peerConn) {
	conn.ws.SetReadLimit(1 << 20)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		// Clients only consume; inbound frames are drained for control
		// handling and otherwise ignored.
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(conn *peerConn) {
	h.mu.Lock()
	if _, ok := h.conns[conn.id]; ok {
		delete(h.conns, conn.id)
		close(conn.done)
	}
	h.mu.Unlock()
	_ = conn.ws.Close()
	h.logger.Info("peer_disconnected", logging.F("peer", conn.id))
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*peerConn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		h.drop(conn)
	}
}

// ConnectionCount reports the number of live peers.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) broadcast(msg *Message) {
	data, err := encodeMessage(msg)
	if err != nil {
		h.logger.Error("message_encode_failed", logging.F("type", msg.Type), logging.F("error", err))
		return
	}
	h.mu.Lock()
	conns := make([]*peerConn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		select {
		case conn.send <- data:
		default:
			// A peer that cannot drain its buffer is dropped rather than
			// allowed to stall every other connection.
			h.logger.Warn("peer_send_overflow", logging.F("peer", conn.id))
			h.drop(conn)
		}
	}
}

func (h *Hub) CreateDocument(handle int, viewType, uri string, cells []*types.CellRecord) {
	h.broadcast(&Message{Type: MessageCreateDocument, CreateDocument: &CreateDocumentPayload{
		Handle:   handle,
		ViewType: viewType,
		URI:      uri,
		Cells:    cells,
	}})
}

func (h *Hub) SpliceCells(uri string, splices []*types.CellSplice, usedRenderers []types.RendererHandle) {
	h.broadcast(&Message{Type: MessageSpliceCells, SpliceCells: &SpliceCellsPayload{
		URI:           uri,
		Splices:       splices,
		UsedRenderers: usedRenderers,
	}})
}

func (h *Hub) SpliceCellOutputs(uri string, cellHandle int, splices []*types.OutputSplice, usedRenderers []types.RendererHandle) {
	h.broadcast(&Message{Type: MessageSpliceCellOutputs, SpliceCellOutputs: &SpliceCellOutputsPayload{
		URI:           uri,
		CellHandle:    cellHandle,
		Splices:       splices,
		UsedRenderers: usedRenderers,
	}})
}

func (h *Hub) RegisterRenderer(info *types.RendererInfo) {
	h.broadcast(&Message{Type: MessageRegisterRenderer, RegisterRenderer: info})
}

func (h *Hub) UnregisterRenderer(handle types.RendererHandle) {
	h.broadcast(&Message{Type: MessageUnregisterRenderer, UnregisterRenderer: &UnregisterRendererPayload{Handle: handle}})
}

func (h *Hub) UpdateLanguages(uri string, languages []string) {
	h.broadcast(&Message{Type: MessageUpdateLanguages, UpdateLanguages: &UpdateLanguagesPayload{
		URI:       uri,
		Languages: languages,
	}})
}
