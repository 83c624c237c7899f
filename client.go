package collab

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/relayedit/collab/shared"
	"go.uber.org/zap"
)

// SessionState tracks the connection lifecycle. Transitions only move
// forward except for the ReadyUnlocked/ReadyLocked pair, which toggles on
// the local ready and unready commands. StateClosed is terminal; a closed
// client cannot be restarted, a fresh one must be bootstrapped.
type SessionState int

const (
	StateNew SessionState = iota
	StateConnecting
	StateSyncing
	StateReadyUnlocked
	StateReadyLocked
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateSyncing:
		return "syncing"
	case StateReadyUnlocked:
		return "ready-unlocked"
	case StateReadyLocked:
		return "ready-locked"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Surface is the editing surface contract: the text widget holding the
// local replica. Implementations must invoke the OnChange callback on every
// buffer mutation, programmatic or user-driven; the client relies on that to
// gate which changes leave the machine.
type Surface interface {
	SetContent(content string)
	Apply(change *Change) error
	SetReadOnly(readOnly bool)
	SetMode(mode FileType)
	OnChange(fn func(change *Change))
}

// Transport is the subset of a WebSocket connection the client uses. A
// *websocket.Conn satisfies it.
type Transport interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is the session state machine for one document. All transitions are
// mutex-serialized and run to completion before the next inbound event is
// processed. The echo gates are atomics so the surface's change callback can
// consult them re-entrantly while a transition is mid-mutation.
type Client struct {
	logger   shared.LoggerAdapter
	endpoint string
	docID    string

	mu      sync.Mutex
	conn    Transport
	state   SessionState
	running bool
	ready   bool
	meta    *FileMeta
	roster  Roster

	gates editGates

	surface  Surface
	notifier Notifier
	rh       RosterHandler

	dial func(ctx context.Context, endpoint string) (Transport, error)

	synced       chan struct{}
	syncedClosed bool

	ctx    context.Context
	cancel context.CancelCauseFunc
}

// editGates holds the local-edit double gate. A locally originated change
// is forwarded iff the baseline content has arrived and no programmatic
// mutation is in flight.
type editGates struct {
	contentReady atomic.Bool
	suppressEcho atomic.Bool
}

func (g *editGates) forwarding() bool {
	return g.contentReady.Load() && !g.suppressEcho.Load()
}

func NewClient(ctx context.Context, logger shared.LoggerAdapter, serverURL, docID string) (*Client, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if docID == "" {
		return nil, shared.ErrNoDocumentID
	}
	if _, err := uuid.Parse(docID); err != nil {
		return nil, fmt.Errorf("parsing document id: %w", err)
	}
	endpoint, err := sessionEndpoint(serverURL, docID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancelCause(ctx)
	return &Client{
		logger:   logger,
		endpoint: endpoint,
		docID:    docID,
		state:    StateNew,
		dial:     dialWebsocket,
		synced:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func sessionEndpoint(serverURL, docID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parsing server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme '%s'", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"id": {docID}}.Encode()
	return u.String(), nil
}

func dialWebsocket(ctx context.Context, endpoint string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	return conn, nil
}

func (c *Client) RegisterSurface(surface Surface) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return shared.ErrSessionAlreadyRunning
	}
	if c.surface != nil {
		return shared.ErrSurfaceAlreadySet
	}
	if surface == nil {
		return errors.New("surface is required")
	}
	c.surface = surface
	surface.OnChange(c.onLocalChange)
	return nil
}

func (c *Client) RegisterNotifier(notifier Notifier) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return shared.ErrSessionAlreadyRunning
	}
	if c.notifier != nil {
		return shared.ErrNotifierAlreadySet
	}
	if notifier == nil {
		return errors.New("notifier is required")
	}
	c.notifier = notifier
	return nil
}

func (c *Client) RegisterRosterHandler(handler RosterHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return shared.ErrSessionAlreadyRunning
	}
	if c.rh != nil {
		return shared.ErrRHandlerAlreadySet
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	c.rh = handler
	return nil
}

// Start dials the relay and begins processing inbound messages. The session
// is usable for local edits once Synced is closed.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return shared.ErrSessionAlreadyRunning
	}
	if c.surface == nil {
		return shared.ErrNoSurface
	}
	if err := c.respectCtx(); err != nil {
		return fmt.Errorf("respecting client context: %w", err)
	}
	c.state = StateConnecting
	conn, err := c.dial(c.ctx, c.endpoint)
	if err != nil {
		c.closeLocked(fmt.Errorf("dialing relay: %w", err))
		return fmt.Errorf("dialing relay: %w", err)
	}
	c.conn = conn
	c.state = StateSyncing
	c.running = true
	c.logger.Info("session transport open",
		zap.String("endpoint", c.endpoint),
		zap.String("document", c.docID),
	)
	go c.readLoop(conn)
	return nil
}

// readLoop owns the inbound side of the transport. It holds its own
// reference to the connection: the client's field is cleared on close while
// a read may still be in flight.
func (c *Client) readLoop(conn Transport) {
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			c.close(fmt.Errorf("transport read: %w", err))
			return
		}
		if msgType != websocket.TextMessage {
			c.logger.Debug("ignoring non-text message", zap.Int("messageType", msgType))
			continue
		}
		if err := c.handleMessage(raw); err != nil {
			c.logger.Error("handling message", err, zap.ByteString("data", raw))
		}
		select {
		case <-c.ctx.Done():
			return
		default:
		}
	}
}

// handleMessage applies one relay event. Type-specific effects first, then
// the notice classification, then the roster snapshot when present. A
// malformed message is rejected before any state is touched.
func (c *Client) handleMessage(raw []byte) error {
	msg, err := DecodeMessage(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return shared.ErrSessionClosed
	}
	c.logger.Debug("relay message received", zap.String("type", msg.Type.String()))

	switch msg.Type {
	case MsgConnConnected:
		c.establishLocked(msg)
	case MsgConnDisconnected:
		c.logger.Info("relay reported connection closed")
	case MsgClientsTextChange:
		if err := c.applyRemoteLocked(msg.Data); err != nil {
			return err
		}
	case MsgClientsCursorChange, MsgClientsReady, MsgClientsUnready:
		// roster-only events
	case MsgServerFileSaved:
		c.ready = false
		c.surface.SetReadOnly(false)
		if c.state == StateReadyLocked {
			c.state = StateReadyUnlocked
		}
		if c.notifier != nil {
			c.notifier.Clear()
		}
	case MsgClientsConnected, MsgClientsDisconnected,
		MsgServerFileNotReady, MsgServerFileNotSaved,
		MsgConnNotReady, MsgConnNotUnready:
		// notice-only events
	default:
		return fmt.Errorf("unhandled message type '%s'", msg.Type)
	}

	if notice, ok := noticeFor(msg.Type, msg.Client); ok && c.notifier != nil {
		c.notifier.Notify(notice)
	}

	if msg.Clients != nil {
		c.roster = Roster(msg.Clients)
		if c.rh != nil {
			c.rh(c.roster, c.ready)
		}
	}

	return nil
}

// establishLocked handles the session-established event: baseline content,
// rendering mode, then the content-ready gate opens. Echo suppression is
// held across the programmatic mutations so the surface's change
// notifications are not forwarded as user edits.
func (c *Client) establishLocked(msg *Message) {
	if c.state != StateSyncing {
		c.logger.Warn("session established in unexpected state",
			zap.String("state", c.state.String()),
		)
	}

	c.gates.suppressEcho.Store(true)
	c.surface.SetContent(msg.Data)

	mode := FileTypePlain
	if msg.FileMeta != nil {
		c.meta = msg.FileMeta
		if err := mode.Parse(msg.FileMeta.Extension); err != nil {
			c.logger.Warn("unsupported file type, rendering as plain text",
				zap.String("extension", msg.FileMeta.Extension),
			)
			mode = FileTypePlain
		}
	}
	c.surface.SetMode(mode)
	c.surface.SetReadOnly(false)

	c.gates.contentReady.Store(true)
	c.gates.suppressEcho.Store(false)
	c.state = StateReadyUnlocked

	if !c.syncedClosed {
		c.syncedClosed = true
		close(c.synced)
	}
	c.logger.Info("session established",
		zap.String("mode", mode.String()),
		zap.Int("contentBytes", len(msg.Data)),
	)
}

func (c *Client) applyRemoteLocked(data string) error {
	change, err := decodeForwardedChange(data)
	if err != nil {
		return err
	}
	c.gates.suppressEcho.Store(true)
	defer c.gates.suppressEcho.Store(false)
	if err := c.surface.Apply(change); err != nil {
		return fmt.Errorf("applying remote change: %w", err)
	}
	return nil
}

// onLocalChange is the surface's change notification handler. It runs both
// re-entrantly (programmatic mutations fire it while a transition holds the
// client mutex) and from whatever context drives user edits, so the gates
// are checked before taking the lock.
func (c *Client) onLocalChange(change *Change) {
	if !c.gates.forwarding() {
		return
	}
	b, err := encodeTextChange(change)
	if err != nil {
		c.logger.Error("encoding local change", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendLocked(b); err != nil {
		c.logger.Error("sending local change", err)
	}
}

// Save asks the relay to persist the document. Nothing is marked saved
// optimistically; success arrives as a server-file-saved event.
func (c *Client) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSyncedLocked(); err != nil {
		return err
	}
	b, err := encodeControl(MsgConnSave)
	if err != nil {
		return err
	}
	return c.sendLocked(b)
}

// DeclareReady declares readiness and freezes local editing. The transition
// is optimistic: it is applied before the relay acknowledges, and a
// conn-not-ready rejection is surfaced without rolling it back.
func (c *Client) DeclareReady() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSyncedLocked(); err != nil {
		return err
	}
	if c.state == StateReadyLocked {
		return shared.ErrAlreadyReady
	}
	c.ready = true
	c.surface.SetReadOnly(true)
	c.state = StateReadyLocked
	b, err := encodeControl(MsgConnReady)
	if err != nil {
		return err
	}
	return c.sendLocked(b)
}

// DeclareUnready withdraws readiness and restores local editing. Optimistic,
// like DeclareReady.
func (c *Client) DeclareUnready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSyncedLocked(); err != nil {
		return err
	}
	if c.state != StateReadyLocked {
		return shared.ErrNotReady
	}
	c.ready = false
	c.surface.SetReadOnly(false)
	c.state = StateReadyUnlocked
	b, err := encodeControl(MsgConnUnready)
	if err != nil {
		return err
	}
	return c.sendLocked(b)
}

// MoveCursor publishes the local selection. Gated like text changes: nothing
// leaves before the baseline content has arrived.
func (c *Client) MoveCursor(cursor Cursor) error {
	if !c.gates.contentReady.Load() {
		return shared.ErrSessionNotSynced
	}
	b, err := encodeCursorChange(cursor)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(b)
}

// Disconnect tells the relay the client is leaving and closes the session.
// Terminal: the client cannot be reused afterwards.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil
	}
	if b, err := encodeControl(MsgConnDisconnect); err == nil {
		if err := c.sendLocked(b); err != nil {
			c.logger.Warn("sending disconnect", zap.Error(err))
		}
	}
	c.closeLocked(errors.New("disconnect requested"))
	return nil
}

func (c *Client) close(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(cause)
}

// closeLocked is the terminal transition: surface frozen, roster cleared,
// gates shut, context cancelled. No reconnect is attempted.
func (c *Client) closeLocked(cause error) {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	c.running = false
	c.ready = false
	c.gates.contentReady.Store(false)
	if c.surface != nil {
		c.surface.SetReadOnly(true)
	}
	c.roster = nil
	if c.rh != nil {
		c.rh(nil, false)
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("closing transport", zap.Error(err))
		}
		c.conn = nil
	}
	if !c.syncedClosed {
		c.syncedClosed = true
		close(c.synced)
	}
	c.cancel(cause)
	c.logger.Info("session closed", zap.NamedError("cause", cause))
}

func (c *Client) sendLocked(b []byte) error {
	if c.conn == nil || c.state == StateClosed {
		return shared.ErrSessionClosed
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

func (c *Client) requireSyncedLocked() error {
	switch {
	case c.state == StateClosed:
		return shared.ErrSessionClosed
	case c.state < StateReadyUnlocked:
		return shared.ErrSessionNotSynced
	}
	return nil
}

func (c *Client) respectCtx() error {
	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
	}
	return nil
}

// Done is closed when the session reaches StateClosed.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Synced is closed once the baseline content has been applied, or on close
// if establishment never happened.
func (c *Client) Synced() <-chan struct{} {
	return c.synced
}

func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready reports the locally declared readiness intent. It may run ahead of
// the relay-confirmed state; rejections are surfaced through the notifier.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *Client) Roster() Roster {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(Roster, len(c.roster))
	copy(out, c.roster)
	return out
}

// FileMeta returns the metadata delivered at establishment, or nil before it.
func (c *Client) FileMeta() *FileMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}
