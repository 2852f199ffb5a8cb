package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_Enabled(t *testing.T) {
	t.Parallel()

	m := NewManager(" Realtime_Notifications = on , realtime_chat=off, half=50%, all=100%, none=0%, bad=maybe, junk, =on")

	assert.True(t, m.Enabled(RealtimeNotifications, 1))
	assert.True(t, m.Enabled("REALTIME_NOTIFICATIONS", 0))
	assert.False(t, m.Enabled(RealtimeChat, 1))
	assert.True(t, m.Enabled("all", 42))
	assert.False(t, m.Enabled("none", 42))
	assert.False(t, m.Enabled("bad", 42))
	assert.False(t, m.Enabled("missing", 42))
	assert.False(t, m.Enabled("half", 0), "anonymous users are outside partial rollouts")

	assert.Equal(t, []string{"all", "bad", "half", "none", "realtime_chat", "realtime_notifications"}, m.Names())
}

func TestManager_RolloutIsDeterministic(t *testing.T) {
	t.Parallel()

	m := NewManager("half=50%")
	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		first := m.Enabled("half", id)
		assert.Equal(t, first, m.Enabled("half", id))
		if first {
			enabled++
		}
	}
	assert.InDelta(t, 500, enabled, 100)
}

func TestManager_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Manager
	assert.False(t, m.Enabled(RealtimeNotifications, 1))
	assert.Empty(t, m.Raw())
	assert.Empty(t, m.Snapshot(1))
}
