package presence

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestTrackAndExpire(t *testing.T) {
	set := NewExpiringSet(3 * time.Second)
	now := time.Unix(1700000000, 0)

	set.Track("u1", "alice", now)
	set.Track("u2", "bob", now.Add(time.Second))

	peers := set.Active(now.Add(2 * time.Second))
	assert.Equal(t, 2, len(peers))
	assert.Equal(t, "u1", peers[0].ID)
	assert.Equal(t, "u2", peers[1].ID)

	// u1's entry expires at now+3s; exactly at the boundary it is gone.
	peers = set.Active(now.Add(3 * time.Second))
	assert.Equal(t, 1, len(peers))
	assert.Equal(t, "bob", peers[0].DisplayName)

	assert.Equal(t, 0, set.Len(now.Add(10*time.Second)))
}

func TestTrackRefreshesTTL(t *testing.T) {
	set := NewExpiringSet(3 * time.Second)
	now := time.Unix(1700000000, 0)

	set.Track("u1", "alice", now)
	set.Track("u1", "alice", now.Add(2*time.Second))

	// Without the refresh this would have expired.
	assert.Equal(t, 1, set.Len(now.Add(4*time.Second)))
	assert.Equal(t, 0, set.Len(now.Add(5*time.Second)))
}

func TestRemove(t *testing.T) {
	set := NewExpiringSet(3 * time.Second)
	now := time.Unix(1700000000, 0)

	set.Track("u1", "alice", now)
	set.Remove("u1")

	assert.Equal(t, 0, set.Len(now))
	// Removing an absent id is fine.
	set.Remove("u9")
}

func TestActiveOrderedByID(t *testing.T) {
	set := NewExpiringSet(time.Minute)
	now := time.Unix(1700000000, 0)

	set.Track("zeta", "z", now)
	set.Track("alpha", "a", now)
	set.Track("mid", "m", now)

	peers := set.Active(now)
	assert.Equal(t, 3, len(peers))
	assert.Equal(t, "alpha", peers[0].ID)
	assert.Equal(t, "mid", peers[1].ID)
	assert.Equal(t, "zeta", peers[2].ID)
}
