/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultHistory         = 500
	DefaultMaxParticipants = 50

	systemSender = "System"
)

// Message is a chat log entry. System messages are not rate limited and
// have no participant behind them.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id,omitempty"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	System    bool      `json:"system,omitempty"`
}

type Options struct {
	Limit           Limit
	History         int
	MaxParticipants int

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Session is the state of one room: its roster, a rate limiter per sender,
// the chat log and the movie being watched.
//
// A Session is owned by a single goroutine; none of its methods lock.
type Session struct {
	code     string
	created  time.Time
	limit    Limit
	history  int
	now      func() time.Time
	roster   *Roster
	limiters map[string]*RateLimiter
	log      []Message
	movie    string
}

func NewSession(code string, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.MaxParticipants <= 0 {
		opts.MaxParticipants = DefaultMaxParticipants
	}

	return &Session{
		code:     code,
		created:  opts.Clock(),
		limit:    opts.Limit.orDefault(),
		history:  opts.History,
		now:      opts.Clock,
		roster:   newRoster(opts.MaxParticipants, opts.Clock),
		limiters: make(map[string]*RateLimiter),
	}
}

func (s *Session) Code() string {
	return s.code
}

func (s *Session) CreatedAt() time.Time {
	return s.created
}

func (s *Session) Roster() *Roster {
	return s.roster
}

// Create adds the host and posts the welcome message.
func (s *Session) Create(name string) (Participant, HostKey, error) {
	p, key, err := s.roster.CreateHost(name)
	if err != nil {
		return Participant{}, HostKey{}, err
	}

	s.Announce("Welcome to room " + s.code + "!")

	return p, key, nil
}

// Join requests admission for a new participant.
func (s *Session) Join(name string) (Participant, error) {
	return s.roster.RequestJoin(name)
}

// Leave drops a participant along with their rate window.
func (s *Session) Leave(id string) (Participant, bool) {
	p, ok := s.roster.Leave(id)
	if ok {
		delete(s.limiters, id)
	}
	return p, ok
}

// Admit lets a pending participant into the room.
func (s *Session) Admit(key HostKey, id string) (Participant, error) {
	return s.roster.Admit(key, id)
}

func (s *Session) Reject(key HostKey, id string) (Participant, error) {
	p, err := s.roster.Reject(key, id)
	if err == nil {
		delete(s.limiters, id)
	}
	return p, err
}

// Kick removes an admitted participant.
func (s *Session) Kick(key HostKey, id string) (Participant, error) {
	p, err := s.roster.Kick(key, id)
	if err == nil {
		delete(s.limiters, id)
	}
	return p, err
}

// Send sanitizes, validates and rate limits text from an admitted participant
// before appending it to the log.
func (s *Session) Send(senderID, text string) (Message, error) {
	p, ok := s.roster.Get(senderID)
	if !ok || p.Status != Admitted {
		return Message{}, ErrNotAdmitted
	}

	clean := Sanitize(text)
	if !ValidMessage(clean) {
		return Message{}, ErrInvalidMessage
	}

	limiter, ok := s.limiters[senderID]
	if !ok {
		limiter = newRateLimiter(s.limit, s.now)
		s.limiters[senderID] = limiter
	}

	if !limiter.CanSend() {
		return Message{}, &RateLimitedError{RetryAfter: limiter.RemainingTime()}
	}

	return s.append(Message{
		ID:        uuid.NewString(),
		SenderID:  p.ID,
		Sender:    p.Name,
		Text:      clean,
		CreatedAt: s.now(),
	}), nil
}

// Announce appends a system message.
func (s *Session) Announce(text string) Message {
	return s.append(Message{
		ID:        uuid.NewString(),
		Sender:    systemSender,
		Text:      Sanitize(text),
		CreatedAt: s.now(),
		System:    true,
	})
}

func (s *Session) append(m Message) Message {
	s.log = append(s.log, m)
	if over := len(s.log) - s.history; over > 0 {
		s.log = append(s.log[:0], s.log[over:]...)
	}
	return m
}

// Messages returns a copy of the chat log, oldest first.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.log))
	copy(out, s.log)

	return out
}

// SetMovie changes the shared movie URL. The stored URL is the cleaned form
// returned by CleanURL, not raw.
func (s *Session) SetMovie(key HostKey, raw string) error {
	if err := s.roster.authorize(key); err != nil {
		return err
	}

	clean, err := CleanURL(raw)
	if err != nil {
		return err
	}

	s.movie = clean

	return nil
}

func (s *Session) Movie() string {
	return s.movie
}

// RemainingTime reports how long senderID must wait before sending again.
func (s *Session) RemainingTime(senderID string) time.Duration {
	limiter, ok := s.limiters[senderID]
	if !ok {
		return 0
	}
	return limiter.RemainingTime()
}
