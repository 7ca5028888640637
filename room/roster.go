/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"time"

	"github.com/google/uuid"
)

type Status int

const (
	Pending Status = iota
	Admitted
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Admitted:
		return "admitted"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Participant is a copy of a roster entry; changing it does not change the roster.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Host     bool      `json:"host"`
	Status   Status    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

// HostKey is the capability handed to the room creator. Only the key returned
// by a roster's CreateHost is accepted by that roster's privileged methods.
type HostKey struct {
	roster *Roster
}

// Listing is the roster split by status, each half in join order.
type Listing struct {
	Admitted []Participant `json:"admitted"`
	Pending  []Participant `json:"pending"`
}

// Roster tracks the participants of one room. Like RateLimiter, it does no
// locking of its own.
type Roster struct {
	entries []Participant
	hostID  string
	locked  bool
	limit   int
	now     func() time.Time
}

// NewRoster returns an empty roster holding at most limit participants,
// host included. A limit of zero or less means no limit.
func NewRoster(limit int) *Roster {
	return newRoster(limit, time.Now)
}

func newRoster(limit int, now func() time.Time) *Roster {
	return &Roster{
		limit: limit,
		now:   now,
	}
}

// CreateHost adds the room creator, admitted and flagged as host. It succeeds
// at most once per roster.
func (r *Roster) CreateHost(name string) (Participant, HostKey, error) {
	if r.hostID != "" {
		return Participant{}, HostKey{}, ErrHostExists
	}

	p, err := r.add(name, true)
	if err != nil {
		return Participant{}, HostKey{}, err
	}

	r.hostID = p.ID

	return p, HostKey{roster: r}, nil
}

// RequestJoin adds a pending participant.
func (r *Roster) RequestJoin(name string) (Participant, error) {
	if r.locked {
		return Participant{}, ErrLobbyLocked
	}

	return r.add(name, false)
}

func (r *Roster) add(name string, host bool) (Participant, error) {
	clean := Sanitize(name)
	if !ValidUsername(clean) {
		return Participant{}, ErrInvalidUsername
	}

	if r.limit > 0 && len(r.entries) >= r.limit {
		return Participant{}, ErrRoomFull
	}

	p := Participant{
		ID:       uuid.NewString(),
		Name:     clean,
		Host:     host,
		Status:   Pending,
		JoinedAt: r.now(),
	}
	if host {
		p.Status = Admitted
	}

	r.entries = append(r.entries, p)

	return p, nil
}

func (r *Roster) authorize(key HostKey) error {
	if key.roster != r || r.hostID == "" {
		return ErrNotHost
	}
	return nil
}

func (r *Roster) index(id string) int {
	for i := range r.entries {
		if r.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Admit moves a pending participant to admitted.
func (r *Roster) Admit(key HostKey, id string) (Participant, error) {
	if err := r.authorize(key); err != nil {
		return Participant{}, err
	}

	i := r.index(id)
	if i < 0 {
		return Participant{}, ErrNotFound
	}
	if r.entries[i].Status != Pending {
		return Participant{}, ErrNotPending
	}

	r.entries[i].Status = Admitted

	return r.entries[i], nil
}

// Reject removes a pending participant.
func (r *Roster) Reject(key HostKey, id string) (Participant, error) {
	if err := r.authorize(key); err != nil {
		return Participant{}, err
	}

	i := r.index(id)
	if i < 0 {
		return Participant{}, ErrNotFound
	}
	if r.entries[i].Status != Pending {
		return Participant{}, ErrNotPending
	}

	return r.remove(i), nil
}

// Kick removes an admitted participant other than the host.
func (r *Roster) Kick(key HostKey, id string) (Participant, error) {
	if err := r.authorize(key); err != nil {
		return Participant{}, err
	}

	i := r.index(id)
	if i < 0 {
		return Participant{}, ErrNotFound
	}
	if r.entries[i].Host {
		return Participant{}, ErrIsHost
	}
	if r.entries[i].Status != Admitted {
		return Participant{}, ErrNotAdmitted
	}

	return r.remove(i), nil
}

// Lock stops (or resumes) accepting join requests. Participants already on
// the roster are unaffected.
func (r *Roster) Lock(key HostKey, locked bool) error {
	if err := r.authorize(key); err != nil {
		return err
	}

	r.locked = locked

	return nil
}

func (r *Roster) Locked() bool {
	return r.locked
}

// Leave removes a participant who left on their own. The host stays on the
// roster for the life of the room.
func (r *Roster) Leave(id string) (Participant, bool) {
	i := r.index(id)
	if i < 0 || r.entries[i].Host {
		return Participant{}, false
	}

	return r.remove(i), true
}

func (r *Roster) remove(i int) Participant {
	p := r.entries[i]
	r.entries = append(r.entries[:i], r.entries[i+1:]...)

	return p
}

func (r *Roster) Get(id string) (Participant, bool) {
	i := r.index(id)
	if i < 0 {
		return Participant{}, false
	}
	return r.entries[i], true
}

func (r *Roster) Host() (Participant, bool) {
	if r.hostID == "" {
		return Participant{}, false
	}
	return r.Get(r.hostID)
}

func (r *Roster) Len() int {
	return len(r.entries)
}

// List returns admitted participants, then pending ones.
func (r *Roster) List() Listing {
	l := Listing{
		Admitted: []Participant{},
		Pending:  []Participant{},
	}

	for _, p := range r.entries {
		if p.Status == Admitted {
			l.Admitted = append(l.Admitted, p)
		} else {
			l.Pending = append(l.Pending, p)
		}
	}

	return l
}
