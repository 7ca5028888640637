package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHostedRoster(t *testing.T) (*Roster, Participant, HostKey) {
	t.Helper()

	r := NewRoster(0)
	host, key, err := r.CreateHost("Alice")
	require.NoError(t, err)

	return r, host, key
}

func ids(ps []Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestRosterCreateHost(t *testing.T) {
	r, host, _ := newHostedRoster(t)

	assert.True(t, host.Host)
	assert.Equal(t, Admitted, host.Status)
	assert.Equal(t, "Alice", host.Name)
	assert.NotEmpty(t, host.ID)

	got, ok := r.Host()
	require.True(t, ok)
	assert.Equal(t, host, got)

	_, _, err := r.CreateHost("Mallory")
	assert.ErrorIs(t, err, ErrHostExists)
	assert.Equal(t, 1, r.Len())
}

func TestRosterRequestJoin(t *testing.T) {
	r, host, _ := newHostedRoster(t)

	bob, err := r.RequestJoin("  <b>Bob</b> ")
	require.NoError(t, err)
	assert.Equal(t, "Bob", bob.Name)
	assert.Equal(t, Pending, bob.Status)
	assert.False(t, bob.Host)

	l := r.List()
	assert.Equal(t, []string{host.ID}, ids(l.Admitted))
	assert.Equal(t, []string{bob.ID}, ids(l.Pending))
}

func TestRosterRequestJoinInvalidName(t *testing.T) {
	r, _, _ := newHostedRoster(t)

	for _, name := range []string{"", "bob!", "<script>x</script>", "this name is far too long"} {
		_, err := r.RequestJoin(name)
		assert.ErrorIs(t, err, ErrInvalidUsername, "name %q", name)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRosterAdmit(t *testing.T) {
	r, host, key := newHostedRoster(t)

	bob, err := r.RequestJoin("Bob")
	require.NoError(t, err)

	admitted, err := r.Admit(key, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, Admitted, admitted.Status)
	assert.Equal(t, []string{host.ID, bob.ID}, ids(r.List().Admitted))
	assert.Empty(t, r.List().Pending)

	_, err = r.Admit(key, bob.ID)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, []string{host.ID, bob.ID}, ids(r.List().Admitted))
}

func TestRosterReject(t *testing.T) {
	r, _, key := newHostedRoster(t)

	bob, err := r.RequestJoin("Bob")
	require.NoError(t, err)

	_, err = r.Reject(key, bob.ID)
	require.NoError(t, err)

	_, ok := r.Get(bob.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())

	_, err = r.Admit(key, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Reject(key, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRosterRejectAdmitted(t *testing.T) {
	r, host, key := newHostedRoster(t)

	_, err := r.Reject(key, host.ID)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, 1, r.Len())
}

func TestRosterRequiresHostKey(t *testing.T) {
	r, _, _ := newHostedRoster(t)
	other, _, otherKey := newHostedRoster(t)

	bob, err := r.RequestJoin("Bob")
	require.NoError(t, err)

	for _, key := range []HostKey{{}, otherKey} {
		_, err = r.Admit(key, bob.ID)
		assert.ErrorIs(t, err, ErrNotHost)
		_, err = r.Reject(key, bob.ID)
		assert.ErrorIs(t, err, ErrNotHost)
		_, err = r.Kick(key, bob.ID)
		assert.ErrorIs(t, err, ErrNotHost)
		assert.ErrorIs(t, r.Lock(key, true), ErrNotHost)
	}

	got, ok := r.Get(bob.ID)
	require.True(t, ok)
	assert.Equal(t, Pending, got.Status)
	assert.False(t, r.Locked())
	assert.Equal(t, 1, other.Len())
}

func TestRosterKick(t *testing.T) {
	r, host, key := newHostedRoster(t)

	bob, _ := r.RequestJoin("Bob")
	carol, _ := r.RequestJoin("Carol")
	_, err := r.Admit(key, bob.ID)
	require.NoError(t, err)

	_, err = r.Kick(key, host.ID)
	assert.ErrorIs(t, err, ErrIsHost)

	_, err = r.Kick(key, carol.ID)
	assert.ErrorIs(t, err, ErrNotAdmitted)

	kicked, err := r.Kick(key, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, kicked.ID)
	assert.Equal(t, []string{host.ID}, ids(r.List().Admitted))
	assert.Equal(t, []string{carol.ID}, ids(r.List().Pending))
}

func TestRosterLock(t *testing.T) {
	r, _, key := newHostedRoster(t)

	require.NoError(t, r.Lock(key, true))
	assert.True(t, r.Locked())

	_, err := r.RequestJoin("Bob")
	assert.ErrorIs(t, err, ErrLobbyLocked)

	require.NoError(t, r.Lock(key, false))
	_, err = r.RequestJoin("Bob")
	assert.NoError(t, err)
}

func TestRosterLimit(t *testing.T) {
	r := NewRoster(2)
	_, _, err := r.CreateHost("Alice")
	require.NoError(t, err)

	_, err = r.RequestJoin("Bob")
	require.NoError(t, err)

	_, err = r.RequestJoin("Carol")
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestRosterLeave(t *testing.T) {
	r, host, _ := newHostedRoster(t)

	bob, _ := r.RequestJoin("Bob")

	_, ok := r.Leave(host.ID)
	assert.False(t, ok)

	left, ok := r.Leave(bob.ID)
	assert.True(t, ok)
	assert.Equal(t, bob.ID, left.ID)

	_, ok = r.Leave(bob.ID)
	assert.False(t, ok)
}

func TestRosterListOrder(t *testing.T) {
	r, host, key := newHostedRoster(t)

	var joined []Participant
	for _, name := range []string{"Bob", "Carol", "Dave", "Erin"} {
		p, err := r.RequestJoin(name)
		require.NoError(t, err)
		joined = append(joined, p)
	}

	// Admit out of join order; listing keeps join order.
	_, err := r.Admit(key, joined[2].ID)
	require.NoError(t, err)
	_, err = r.Admit(key, joined[0].ID)
	require.NoError(t, err)

	l := r.List()
	assert.Equal(t, []string{host.ID, joined[0].ID, joined[2].ID}, ids(l.Admitted))
	assert.Equal(t, []string{joined[1].ID, joined[3].ID}, ids(l.Pending))
}

func TestRosterSingleHost(t *testing.T) {
	r, _, key := newHostedRoster(t)

	for i := 0; i < 50; i++ {
		p, err := r.RequestJoin("Guest")
		require.NoError(t, err)
		_, err = r.Admit(key, p.ID)
		require.NoError(t, err)
		_, _, err = r.CreateHost("Guest")
		require.ErrorIs(t, err, ErrHostExists)
	}

	hosts := 0
	for _, p := range r.List().Admitted {
		if p.Host {
			hosts++
		}
	}
	assert.Equal(t, 1, hosts)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "admitted", Admitted.String())
	assert.Equal(t, "unknown", Status(9).String())
}
