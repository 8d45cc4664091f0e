package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/policyanalytics/dashboard/internal/pages"
)

// MessageType represents the kinds of live session messages
type MessageType string

const (
	MessageTypeNavigate     MessageType = "navigate"
	MessageTypeSelectTab    MessageType = "select_tab"
	MessageTypeSelectFilter MessageType = "select_filter"
	MessageTypeState        MessageType = "state"
	MessageTypeError        MessageType = "error"
)

const writeWait = 10 * time.Second

// ClientMessage is sent by the browser
type ClientMessage struct {
	Type   MessageType `json:"type"`
	Path   string      `json:"path,omitempty"`
	Tab    string      `json:"tab,omitempty"`
	Filter string      `json:"filter,omitempty"`
}

// Message is sent to the browser
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Page      string      `json:"page,omitempty"`
	Path      string      `json:"path,omitempty"`
	State     any         `json:"state,omitempty"`
	ActiveTab string      `json:"active_tab,omitempty"`
	Filter    string      `json:"filter,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Recorder observes live session activity
type Recorder interface {
	SessionOpened()
	SessionClosed()
	IncrementLiveMessages(direction, msgType string)
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened()                       {}
func (nopRecorder) SessionClosed()                       {}
func (nopRecorder) IncrementLiveMessages(string, string) {}

type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	PingInterval    time.Duration
	MaxMessageSize  int64
	AllowedOrigins  []string
}

func (o Options) withDefaults() Options {
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = 1024
	}
	if o.WriteBufferSize <= 0 {
		o.WriteBufferSize = 1024
	}
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 16
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 54 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	return o
}

// Hub maintains the set of live sessions
type Hub struct {
	deps     pages.Deps
	logger   *zap.Logger
	recorder Recorder
	opts     Options
	upgrader websocket.Upgrader

	sessions   map[*Session]bool
	register   chan *Session
	unregister chan *Session
	done       chan struct{}
	running    atomic.Bool
	mutex      sync.RWMutex
}

// NewHub creates a new live session hub. Connections are accepted once
// the hub is started.
func NewHub(deps pages.Deps, logger *zap.Logger, recorder Recorder, opts Options) *Hub {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	opts = opts.withDefaults()

	return &Hub{
		deps:     deps,
		logger:   logger,
		recorder: recorder,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		sessions:   make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		done:       make(chan struct{}),
	}
}

// Start marks the hub running and tracks sessions in the background until
// ctx ends.
func (h *Hub) Start(ctx context.Context) {
	h.running.Store(true)
	go h.Run(ctx)
}

// Run tracks sessions until ctx ends, then closes every open connection.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()
	for {
		select {
		case s := <-h.register:
			h.mutex.Lock()
			h.sessions[s] = true
			h.mutex.Unlock()
			h.recorder.SessionOpened()
			h.logger.Debug("Live session opened", zap.String("session_id", s.ID))

		case s := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				h.recorder.SessionClosed()
			}
			h.mutex.Unlock()
			h.logger.Debug("Live session closed", zap.String("session_id", s.ID))

		case <-ctx.Done():
			h.mutex.Lock()
			for s := range h.sessions {
				s.conn.Close()
				delete(h.sessions, s)
				h.recorder.SessionClosed()
			}
			h.mutex.Unlock()
			return
		}
	}
}

// SessionCount returns the number of open sessions
func (h *Hub) SessionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

// HandleWebSocket upgrades the request and starts a live session. It
// answers 503 while the hub is not running.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	if !h.running.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live sessions unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.opts.SendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	select {
	case h.register <- s:
	case <-h.done:
		conn.Close()
		cancel()
		return
	}

	go s.writePump()
	go s.readPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Session binds one page controller to one connection. Navigating to a
// different page unmounts the current controller; disconnecting unmounts
// whatever is mounted.
type Session struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	page      string
	path      string
	dashboard *pages.Dashboard
	policies  *pages.Policies
	detail    *pages.PolicyDetail
}

// readPump pumps messages from the websocket connection to the session
func (s *Session) readPump() {
	defer func() {
		s.close()
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	pongWait := s.hub.opts.PingInterval * 10 / 9
	s.conn.SetReadLimit(s.hub.opts.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.hub.logger.Warn("WebSocket error", zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("malformed message")
			continue
		}
		s.hub.recorder.IncrementLiveMessages("in", string(msg.Type))
		s.handle(msg)
	}
}

// writePump pumps messages from the session to the websocket connection
func (s *Session) writePump() {
	ticker := time.NewTicker(s.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) handle(msg ClientMessage) {
	var err error
	switch msg.Type {
	case MessageTypeNavigate:
		err = s.navigate(msg.Path)
	case MessageTypeSelectTab:
		err = s.selectTab(msg.Tab)
	case MessageTypeSelectFilter:
		err = s.selectFilter(msg.Filter)
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}
	if err != nil {
		s.sendError(err.Error())
	}
}

// route is a parsed navigation target. Empty tab or filter leaves the
// controller's current selection in place.
type route struct {
	page   string
	id     string
	tab    pages.Tab
	filter pages.Filter
}

func parseRoute(raw string) (route, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return route{}, fmt.Errorf("invalid path %q", raw)
	}

	path := strings.TrimSuffix(u.Path, "/")
	switch {
	case path == "":
		return route{page: pages.PageDashboard}, nil

	case path == "/policies":
		r := route{page: pages.PagePolicies}
		if u.Query().Has("filter") {
			if r.filter, err = pages.ParseFilter(u.Query().Get("filter")); err != nil {
				return route{}, err
			}
		}
		return r, nil

	case strings.HasPrefix(path, "/policies/"):
		id := strings.TrimPrefix(path, "/policies/")
		if id == "" || id == "new" || strings.Contains(id, "/") {
			return route{}, fmt.Errorf("unknown route %q", raw)
		}
		r := route{page: pages.PagePolicyDetail, id: id}
		if u.Query().Has("tab") {
			if r.tab, err = pages.ParseTab(u.Query().Get("tab")); err != nil {
				return route{}, err
			}
		}
		return r, nil

	default:
		return route{}, fmt.Errorf("unknown route %q", raw)
	}
}

func (s *Session) navigate(path string) error {
	r, err := parseRoute(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.page != r.page {
		s.unmountLocked()
		s.mountLocked(r.page)
	}
	s.path = path
	dashboard, policies, detail := s.dashboard, s.policies, s.detail
	s.mu.Unlock()

	switch r.page {
	case pages.PageDashboard:
		go func() {
			dashboard.Mount()
			s.publish(dashboard)
		}()
	case pages.PagePolicies:
		if r.filter != "" {
			policies.SelectFilter(r.filter)
		}
		go func() {
			policies.Mount()
			s.publish(policies)
		}()
	case pages.PagePolicyDetail:
		if r.tab != "" {
			detail.SelectTab(r.tab)
		}
		go func() {
			detail.Load(r.id)
			s.publish(detail)
		}()
	}
	return nil
}

func (s *Session) selectTab(raw string) error {
	tab, err := pages.ParseTab(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	detail := s.detail
	s.mu.Unlock()
	if detail == nil {
		return errors.New("select_tab requires a policy detail page")
	}

	detail.SelectTab(tab)
	s.publish(detail)
	return nil
}

func (s *Session) selectFilter(raw string) error {
	filter, err := pages.ParseFilter(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	policies := s.policies
	s.mu.Unlock()
	if policies == nil {
		return errors.New("select_filter requires the policies page")
	}

	policies.SelectFilter(filter)
	s.publish(policies)
	return nil
}

func (s *Session) mountLocked(page string) {
	s.page = page
	switch page {
	case pages.PageDashboard:
		s.dashboard = pages.NewDashboard(s.ctx, s.hub.deps)
	case pages.PagePolicies:
		s.policies = pages.NewPolicies(s.ctx, s.hub.deps)
	case pages.PagePolicyDetail:
		s.detail = pages.NewPolicyDetail(s.ctx, s.hub.deps)
	}
}

func (s *Session) unmountLocked() {
	if s.dashboard != nil {
		s.dashboard.Unmount()
		s.dashboard = nil
	}
	if s.policies != nil {
		s.policies.Unmount()
		s.policies = nil
	}
	if s.detail != nil {
		s.detail.Unmount()
		s.detail = nil
	}
	s.page = ""
}

// publish sends the live state of the mounted page once owner, the
// controller that triggered it, has settled. Nothing is sent when owner
// was unmounted in the meantime. Reading and queueing under one lock keeps
// the last message sent equal to the latest state.
func (s *Session) publish(owner any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.mountedLocked(owner) {
		return
	}

	msg := &Message{Type: MessageTypeState, Page: s.page, Path: s.path}
	switch s.page {
	case pages.PageDashboard:
		msg.State = s.dashboard.State()
	case pages.PagePolicies:
		msg.State = s.policies.State()
		msg.Filter = string(s.policies.Filter())
	case pages.PagePolicyDetail:
		msg.State = s.detail.State()
		msg.ActiveTab = string(s.detail.ActiveTab())
	}
	s.enqueueLocked(msg)
}

func (s *Session) mountedLocked(owner any) bool {
	switch c := owner.(type) {
	case *pages.Dashboard:
		return c != nil && c == s.dashboard
	case *pages.Policies:
		return c != nil && c == s.policies
	case *pages.PolicyDetail:
		return c != nil && c == s.detail
	}
	return false
}

func (s *Session) sendError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(&Message{Type: MessageTypeError, Message: message})
}

func (s *Session) enqueueLocked(msg *Message) {
	if s.closed {
		return
	}

	msg.SessionID = s.ID
	msg.Timestamp = time.Now().UTC()
	data, err := json.Marshal(msg)
	if err != nil {
		s.hub.logger.Error("Failed to marshal live message", zap.Error(err))
		return
	}

	select {
	case s.send <- data:
		s.hub.recorder.IncrementLiveMessages("out", string(msg.Type))
	default:
		s.hub.logger.Warn("Live session too slow, closing", zap.String("session_id", s.ID))
		s.conn.Close()
	}
}

// close unmounts the page and stops the writer. Safe to call once the
// reader has exited.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.unmountLocked()
	s.cancel()
	close(s.send)
}
