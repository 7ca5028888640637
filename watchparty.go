// Watchparty rooms
//
// One host creates a room and shares its code. Everyone else who joins waits in
// the lobby until the host admits or rejects them. Admitted participants share
// a chat channel and the movie URL the host has picked.
//
// Features:
// - WebSockets per room code: /path/:code and /path/:code/ws
// - Creating a room issues a signed host token cookie; the client holding it
//   becomes the host when it joins
// - Host admits, rejects and kicks participants, locks the lobby and sets the movie
// - Pending participants see only their own status; the host sees the lobby
// - Chat is sanitized, validated and rate limited per participant
// - Participants identified by cookie (playerID)
// - Disconnected participants removed after a configurable timeout
// - Rooms with nobody connected auto-reaped after configurable idle timeout
// - Ping/pong keepalive so quiet viewers stay connected through proxies
// - Random 8-char room codes via crypto/rand, with server-side collision check
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/watchparty/room"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`               // "join", "chat", "leave", "admit", "reject", "kick", "lock_lobby", "set_movie"
	Username string `json:"username,omitempty"` // join
	Text     string `json:"text,omitempty"`     // chat
	URL      string `json:"url,omitempty"`      // set_movie
	Lock     *bool  `json:"lock,omitempty"`     // lock_lobby
	Target   string `json:"target,omitempty"`   // admit / reject / kick (participant ID)
}

// SessionInfoMessage tells a client who it is in this room. It is sent on
// connect and whenever the client's own status changes.
type SessionInfoMessage struct {
	Type          string `json:"type"` // "session_info"
	Room          string `json:"room"`
	LobbyLocked   bool   `json:"lobby_locked"`
	IsCreator     bool   `json:"is_creator"`               // holds the host token, may not have joined yet
	IsHost        bool   `json:"is_host"`                  // joined as host
	ParticipantID string `json:"participant_id,omitempty"` // empty until joined
	Username      string `json:"username,omitempty"`
	Status        string `json:"status,omitempty"` // "pending" or "admitted"
}

// RosterMessage lists participants. Pending is only filled in for the host.
type RosterMessage struct {
	Type     string             `json:"type"` // "roster"
	Admitted []room.Participant `json:"admitted"`
	Pending  []room.Participant `json:"pending,omitempty"`
}

type ChatMessage struct {
	Type    string       `json:"type"` // "chat"
	Message room.Message `json:"message"`
}

// ChatHistoryMessage is sent once a participant is admitted.
type ChatHistoryMessage struct {
	Type     string         `json:"type"` // "chat_history"
	Messages []room.Message `json:"messages"`
}

type MovieMessage struct {
	Type string `json:"type"` // "movie"
	URL  string `json:"url"`
}

// LobbyStateMessage informs clients about lock/unlock changes.
type LobbyStateMessage struct {
	Type   string `json:"type"` // "lobby_state"
	Locked bool   `json:"locked"`
}

// RateLimitedMessage is sent only to the sender of a rejected chat message.
type RateLimitedMessage struct {
	Type         string `json:"type"` // "rate_limited"
	RetryAfterMs int64  `json:"retry_after_ms"`
	Message      string `json:"message"`
}

// ErrorMessage is sent to a single client when one of its requests is refused.
type ErrorMessage struct {
	Type    string `json:"type"`            // "error"
	Field   string `json:"field,omitempty"` // "username", "text", "url" or empty
	Message string `json:"message"`         // user-facing text
}

// SimpleMessage is for generic notifications ("admitted", "rejected", "kicked", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	creator  bool
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Hub owns one room. Its session is only touched from run, which serializes
// every join, chat message and host action for the room.
type Hub struct {
	id      string
	session *room.Session
	clients map[*Client]bool
	members map[string]string // playerID -> participant ID

	hostKey      room.HostKey
	hostPlayerID string

	register chan *Client
	unreg    chan *Client
	commands chan command
	expire   chan string
	quit     chan struct{}
	stopOnce sync.Once

	mu         sync.RWMutex
	lastActive time.Time
	conns      int
}

func newHub(code string, opts room.Options) *Hub {
	s := room.NewSession(code, opts)

	return &Hub{
		id:         code,
		session:    s,
		clients:    make(map[*Client]bool),
		members:    make(map[string]string),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		expire:     make(chan string),
		quit:       make(chan struct{}),
		lastActive: s.CreatedAt(),
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unreg:
			h.handleUnregister(cfg, c)

		case cmd := <-h.commands:
			h.handleCommand(cfg, cmd)

		case playerID := <-h.expire:
			h.handleExpire(cfg, playerID)

		case <-h.quit:
			h.closeAll()
			return
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}

// touch records activity along with the current connection count, so the
// reaper can read both without going through run.
func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.conns = len(h.clients)
	h.mu.Unlock()
}

// idle reports whether nobody is connected and nothing has happened since
// cutoff. A room full of people quietly watching is not idle.
func (h *Hub) idle(cutoff time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.conns == 0 && h.lastActive.Before(cutoff)
}

func (h *Hub) addClient(c *Client) {
	h.clients[c] = true
	h.touch()
}

// dropClient forgets c and closes its send channel, which ends its writePump.
func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
	h.touch()
}

func (h *Hub) participant(playerID string) (room.Participant, bool) {
	id, ok := h.members[playerID]
	if !ok {
		return room.Participant{}, false
	}
	return h.session.Roster().Get(id)
}

func (h *Hub) isAdmitted(playerID string) bool {
	p, ok := h.participant(playerID)
	return ok && p.Status == room.Admitted
}

func (h *Hub) handleRegister(c *Client) {
	h.addClient(c)

	h.sendTo(c, h.sessionInfo(c))

	if h.isAdmitted(c.playerID) {
		h.sendWelcome(c)
	}
}

func (h *Hub) handleUnregister(cfg *Config, c *Client) {
	h.dropClient(c)

	// The host keeps their place for the life of the room.
	if _, ok := h.members[c.playerID]; !ok || c.playerID == h.hostPlayerID {
		return
	}

	playerID := c.playerID
	time.AfterFunc(cfg.playerTimeout, func() {
		select {
		case h.expire <- playerID:
		case <-h.quit:
		}
	})
}

// handleExpire removes a participant whose connections all went away and
// did not come back within the player timeout.
func (h *Hub) handleExpire(cfg *Config, playerID string) {
	if playerID == h.hostPlayerID || h.connected(playerID) {
		return
	}

	id, ok := h.members[playerID]
	if !ok {
		return
	}

	p, ok := h.session.Leave(id)
	delete(h.members, playerID)
	if !ok {
		return
	}

	logf(cfg, "ROOMS: Participant %q timed out of %s", p.Name, h.id)

	if p.Status == room.Admitted {
		h.announce(p.Name + " left the room.")
	}
	h.broadcastRoster()
}

func (h *Hub) handleCommand(cfg *Config, cmd command) {
	h.touch()

	switch cmd.msg.Type {
	case "join":
		h.handleJoin(cfg, cmd)
	case "chat":
		h.handleChat(cfg, cmd)
	case "leave":
		h.handleLeave(cfg, cmd)
	case "admit", "reject", "kick", "lock_lobby", "set_movie":
		h.handleHostCommand(cfg, cmd)
	}
}

// handleJoin processes "join" messages. The holder of a valid host token
// becomes the host; everyone else waits for admission.
func (h *Hub) handleJoin(cfg *Config, cmd command) {
	c := cmd.client

	if c.playerID == "" {
		return
	}

	if _, ok := h.members[c.playerID]; ok {
		h.sendTo(c, h.sessionInfo(c))
		return
	}

	if c.creator && h.hostPlayerID == "" {
		p, key, err := h.session.Create(cmd.msg.Username)
		if err != nil {
			h.refuse(c, err)
			return
		}

		h.hostKey = key
		h.hostPlayerID = c.playerID
		h.members[c.playerID] = p.ID

		logf(cfg, "ROOMS: Host %q opened %s", p.Name, h.id)

		for client := range h.clients {
			if client.playerID == c.playerID {
				h.sendTo(client, h.sessionInfo(client))
				h.sendWelcome(client)
			}
		}
		return
	}

	p, err := h.session.Join(cmd.msg.Username)
	if err != nil {
		h.refuse(c, err)
		return
	}

	h.members[c.playerID] = p.ID

	logf(cfg, "ROOMS: Participant %q is waiting in %s", p.Name, h.id)

	h.sendToPlayer(c.playerID, h.sessionInfo(c))
	h.broadcastRoster()
}

func (h *Hub) handleChat(cfg *Config, cmd command) {
	c := cmd.client

	id, ok := h.members[c.playerID]
	if !ok {
		h.refuse(c, room.ErrNotAdmitted)
		return
	}

	m, err := h.session.Send(id, cmd.msg.Text)
	if err != nil {
		var limited *room.RateLimitedError
		if errors.As(err, &limited) {
			logf(cfg, "CHAT: Rate limited participant %s in %s", id, h.id)

			h.sendTo(c, RateLimitedMessage{
				Type:         "rate_limited",
				RetryAfterMs: limited.RetryAfter.Milliseconds(),
				Message:      limited.Error(),
			})
			return
		}

		h.refuse(c, err)
		return
	}

	h.broadcastAdmitted(ChatMessage{
		Type:    "chat",
		Message: m,
	})
}

// handleLeave removes the sender from the room at their own request.
func (h *Hub) handleLeave(cfg *Config, cmd command) {
	c := cmd.client

	id, ok := h.members[c.playerID]
	if !ok || c.playerID == h.hostPlayerID {
		return
	}

	p, ok := h.session.Leave(id)
	delete(h.members, c.playerID)
	if !ok {
		return
	}

	logf(cfg, "ROOMS: Participant %q left %s", p.Name, h.id)

	h.sendToPlayer(c.playerID, SimpleMessage{
		Type:    "left",
		Message: "You have left the room.",
	})
	h.disconnectPlayer(c.playerID)

	if p.Status == room.Admitted {
		h.announce(p.Name + " left the room.")
	}
	h.broadcastRoster()
}

// handleHostCommand processes host commands: admit, reject, kick, lock/unlock
// the lobby, set the movie.
func (h *Hub) handleHostCommand(cfg *Config, cmd command) {
	c := cmd.client
	msg := cmd.msg

	// Only the host may issue these commands
	if h.hostPlayerID == "" || c.playerID != h.hostPlayerID {
		h.refuse(c, room.ErrNotHost)
		return
	}

	switch msg.Type {
	case "admit":
		p, err := h.session.Admit(h.hostKey, msg.Target)
		if err != nil {
			h.refuse(c, err)
			return
		}

		logf(cfg, "ROOMS: Host admitted %q to %s", p.Name, h.id)

		playerID := h.playerFor(p.ID)
		h.sendToPlayer(playerID, SimpleMessage{
			Type:    "admitted",
			Message: "The host has let you in.",
		})
		for client := range h.clients {
			if client.playerID == playerID {
				h.sendTo(client, h.sessionInfo(client))
				h.sendWelcome(client)
			}
		}

		h.announce(p.Name + " joined the room.")
		h.broadcastRoster()

	case "reject":
		p, err := h.session.Reject(h.hostKey, msg.Target)
		if err != nil {
			h.refuse(c, err)
			return
		}

		logf(cfg, "ROOMS: Host rejected %q from %s", p.Name, h.id)

		playerID := h.playerFor(p.ID)
		delete(h.members, playerID)
		h.sendToPlayer(playerID, SimpleMessage{
			Type:    "rejected",
			Message: "The host did not let you in.",
		})
		h.disconnectPlayer(playerID)
		h.broadcastRoster()

	case "kick":
		p, err := h.session.Kick(h.hostKey, msg.Target)
		if err != nil {
			h.refuse(c, err)
			return
		}

		logf(cfg, "ROOMS: Host removed %q from %s", p.Name, h.id)

		playerID := h.playerFor(p.ID)
		delete(h.members, playerID)
		h.sendToPlayer(playerID, SimpleMessage{
			Type:    "kicked",
			Message: "You have been removed by the host.",
		})
		h.disconnectPlayer(playerID)

		h.announce(p.Name + " was removed by the host.")
		h.broadcastRoster()

	case "lock_lobby":
		locked := msg.Lock != nil && *msg.Lock
		if err := h.session.Roster().Lock(h.hostKey, locked); err != nil {
			h.refuse(c, err)
			return
		}

		h.broadcast(LobbyStateMessage{
			Type:   "lobby_state",
			Locked: locked,
		})

	case "set_movie":
		if err := h.session.SetMovie(h.hostKey, strings.TrimSpace(msg.URL)); err != nil {
			h.refuse(c, err)
			return
		}

		logf(cfg, "ROOMS: Host changed the movie in %s", h.id)

		h.broadcastAdmitted(MovieMessage{
			Type: "movie",
			URL:  h.session.Movie(),
		})
		h.announce("The host changed the movie.")
	}
}

func (h *Hub) sessionInfo(c *Client) SessionInfoMessage {
	info := SessionInfoMessage{
		Type:        "session_info",
		Room:        h.id,
		LobbyLocked: h.session.Roster().Locked(),
		IsCreator:   c.creator,
	}

	if p, ok := h.participant(c.playerID); ok {
		info.IsHost = p.Host
		info.ParticipantID = p.ID
		info.Username = p.Name
		info.Status = p.Status.String()
	}

	return info
}

// sendWelcome brings a newly admitted (or reconnecting) client up to date.
func (h *Hub) sendWelcome(c *Client) {
	h.sendTo(c, ChatHistoryMessage{
		Type:     "chat_history",
		Messages: h.session.Messages(),
	})

	if movie := h.session.Movie(); movie != "" {
		h.sendTo(c, MovieMessage{
			Type: "movie",
			URL:  movie,
		})
	}

	h.sendTo(c, h.rosterFor(c))
}

func (h *Hub) rosterFor(c *Client) RosterMessage {
	l := h.session.Roster().List()

	msg := RosterMessage{
		Type:     "roster",
		Admitted: l.Admitted,
	}
	if c.playerID == h.hostPlayerID {
		msg.Pending = l.Pending
	}

	return msg
}

func (h *Hub) announce(text string) {
	h.broadcastAdmitted(ChatMessage{
		Type:    "chat",
		Message: h.session.Announce(text),
	})
}

func (h *Hub) refuse(c *Client, err error) {
	switch {
	case errors.Is(err, room.ErrLobbyLocked):
		h.sendTo(c, SimpleMessage{
			Type:    "lobby_locked",
			Message: err.Error(),
		})
	case errors.Is(err, room.ErrInvalidUsername):
		h.sendTo(c, ErrorMessage{Type: "error", Field: "username", Message: err.Error()})
	case errors.Is(err, room.ErrInvalidMessage):
		h.sendTo(c, ErrorMessage{Type: "error", Field: "text", Message: err.Error()})
	case errors.Is(err, room.ErrInvalidURL):
		h.sendTo(c, ErrorMessage{Type: "error", Field: "url", Message: err.Error()})
	default:
		h.sendTo(c, ErrorMessage{Type: "error", Message: err.Error()})
	}
}

func (h *Hub) playerFor(participantID string) string {
	for playerID, id := range h.members {
		if id == participantID {
			return playerID
		}
	}
	return ""
}

func (h *Hub) connected(playerID string) bool {
	for c := range h.clients {
		if c.playerID == playerID {
			return true
		}
	}
	return false
}

// sendTo queues msg for c, dropping the client if its buffer is full.
func (h *Hub) sendTo(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.dropClient(c)
	}
}

func (h *Hub) sendToPlayer(playerID string, msg any) {
	if playerID == "" {
		return
	}

	for c := range h.clients {
		if c.playerID == playerID {
			h.sendTo(c, msg)
		}
	}
}

func (h *Hub) broadcast(msg any) {
	for c := range h.clients {
		h.sendTo(c, msg)
	}
}

func (h *Hub) broadcastAdmitted(msg any) {
	for c := range h.clients {
		if h.isAdmitted(c.playerID) {
			h.sendTo(c, msg)
		}
	}
}

// broadcastRoster sends every admitted client the participant list. Only the
// host's copy includes the lobby.
func (h *Hub) broadcastRoster() {
	for c := range h.clients {
		if h.isAdmitted(c.playerID) {
			h.sendTo(c, h.rosterFor(c))
		}
	}
}

// disconnectPlayer closes every connection belonging to playerID. Queued
// messages are still written before the socket closes.
func (h *Hub) disconnectPlayer(playerID string) {
	if playerID == "" {
		return
	}

	for c := range h.clients {
		if c.playerID == playerID {
			h.dropClient(c)
		}
	}
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	playerCookieName = "watchparty_id"
	maxFrameSize     = 8 << 10
)

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// RoomManager holds a set of hubs keyed by room code, so each $path/$code
// is its own isolated room.
type RoomManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	newCode     func() (string, error)
}

func newRoomManager(ctx context.Context, idleTimeout time.Duration) *RoomManager {
	rm := &RoomManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		newCode:     room.NewCode,
	}
	if idleTimeout > 0 {
		go rm.reaperLoop(ctx)
	}
	return rm
}

// create opens a room under a fresh code that no live room is using. If the
// secure random source fails, no room is created.
func (rm *RoomManager) create(cfg *Config) (*Hub, error) {
	for {
		code, err := rm.newCode()
		if err != nil {
			return nil, err
		}

		rm.mu.Lock()
		if _, exists := rm.hubs[code]; exists {
			rm.mu.Unlock()
			continue
		}

		hub := newHub(code, cfg.sessionOptions())
		rm.hubs[code] = hub
		rm.mu.Unlock()

		go hub.run(cfg)

		return hub, nil
	}
}

func (rm *RoomManager) get(code string) (*Hub, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	hub, ok := rm.hubs[code]
	return hub, ok
}

// reapIdle removes hubs that have been idle since before cutoff.
func (rm *RoomManager) reapIdle(cutoff time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	reaped := 0
	for code, hub := range rm.hubs {
		if hub.idle(cutoff) {
			delete(rm.hubs, code)
			hub.stop()
			reaped++
		}
	}
	return reaped
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (rm *RoomManager) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rm.mu.Lock()
			for code, hub := range rm.hubs {
				delete(rm.hubs, code)
				hub.stop()
			}
			rm.mu.Unlock()
			return
		case <-ticker.C:
			rm.reapIdle(time.Now().Add(-rm.idleTimeout))
		}
	}
}

// roomCode upper-cases the :code parameter and checks its shape.
func roomCode(ps httprouter.Params) (string, bool) {
	code := strings.ToUpper(ps.ByName("code"))
	return code, room.ValidRoomCode(code)
}

// lookupRoom writes an error page and returns false if the room does not exist.
func lookupRoom(cfg *Config, rm *RoomManager, w http.ResponseWriter, ps httprouter.Params) (*Hub, bool) {
	code, ok := roomCode(ps)
	if !ok {
		errorPage(cfg, w, http.StatusBadRequest, "Invalid Room", "That is not a valid room code.")
		return nil, false
	}

	hub, ok := rm.get(code)
	if !ok {
		errorPage(cfg, w, http.StatusNotFound, "Room Not Found", "That room does not exist or has closed.")
		return nil, false
	}

	return hub, true
}

// WebSocket handler that picks the hub based on :code
func serveWSForManager(cfg *Config, rm *RoomManager, tokens *HostTokens) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := lookupRoom(cfg, rm, w, ps)
		if !ok {
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		creator := tokens.isCreator(r, hub.id, playerID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 32),
			playerID: playerID,
			creator:  creator,
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump(cfg)
		client.readPump(cfg, hub)
	}
}

func (c *Client) readPump(cfg *Config, h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)

	// Browsers answer pings on their own; a client that stops answering is gone.
	pongWait := 2 * cfg.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
		case <-h.quit:
			return
		}
	}
}

func (c *Client) writePump(cfg *Config) {
	ticker := time.NewTicker(cfg.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := lookupRoom(cfg, rm, w, ps); !ok {
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		// We are at /.../:code/qr; strip trailing "/qr" to get the room URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

//go:embed assets/watchparty/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := lookupRoom(cfg, rm, w, ps)
		if !ok {
			return
		}

		if ps.ByName("code") != hub.id {
			http.Redirect(w, r, cfg.prefix+path+"/"+hub.id, http.StatusPermanentRedirect)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewRoom handles GET /path by opening a room under a new code
// (with server-side collision detection), handing the caller the host token
// for it, and redirecting to /path/:code.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager, tokens *HostTokens) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			errorPage(cfg, w, http.StatusInternalServerError, "Server Error", "Unable to assign a player ID.")
			return
		}

		hub, err := rm.create(cfg)
		if err != nil {
			log.Println("room creation error:", err)
			errorPage(cfg, w, http.StatusInternalServerError, "Server Error", "Unable to create a room. Please try again.")
			return
		}

		roomPath := cfg.prefix + path + "/" + hub.id

		if err := tokens.setCookie(cfg, w, roomPath, hub.id, playerID); err != nil {
			log.Println("host token error:", err)
			errorPage(cfg, w, http.StatusInternalServerError, "Server Error", "Unable to create a room. Please try again.")
			return
		}

		logf(cfg, "ROOMS: Created room %s", roomPath)

		http.Redirect(w, r, roomPath, http.StatusSeeOther)
	}
}

// joinRoom handles the home page's join form: GET /join?code=...
func joinRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ps := httprouter.Params{{Key: "code", Value: strings.TrimSpace(r.URL.Query().Get("code"))}}

		hub, ok := lookupRoom(cfg, rm, w, ps)
		if !ok {
			return
		}

		http.Redirect(w, r, cfg.prefix+path+"/"+hub.id, http.StatusSeeOther)
	}
}

func errorPage(cfg *Config, w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_, _ = io.WriteString(w, newPage(title, body))
}

// registerWatchParty sets up routes so that:
//   - $path                  → opens a new room (8-char code) and redirects to it
//   - /join?code=            → redirects to an existing room
//   - $path/:code            → HTML client
//   - $path/:code/ws         → WebSocket for that room
//   - $path/:code/qr         → PNG QR code for that room URL
func registerWatchParty(ctx context.Context, cfg *Config, tokens *HostTokens, path string, mux *httprouter.Router) *RoomManager {
	rm := newRoomManager(ctx, cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, rm, tokens))

	mux.GET(cfg.prefix+"/join", joinRoom(cfg, path, rm))

	mux.GET(cfg.prefix+path+"/:code", getIndexHandler(cfg, path, rm))

	mux.GET(cfg.prefix+path+"/:code/ws", serveWSForManager(cfg, rm, tokens))

	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler(cfg, rm))

	return rm
}
