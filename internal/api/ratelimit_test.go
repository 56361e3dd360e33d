package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func requestFrom(addr string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/opening-hours/preview", nil)
	r.RemoteAddr = addr
	return r
}

func TestWriteLimiter_PerClient(t *testing.T) {
	l := NewWriteLimiter(0.001, 1)

	assert.True(t, l.Allow(requestFrom("10.0.0.1:4000")))
	assert.False(t, l.Allow(requestFrom("10.0.0.1:4001")))
	assert.True(t, l.Allow(requestFrom("10.0.0.2:4000")))
	assert.Equal(t, 2, l.Clients())
}

func TestWriteLimiter_EvictsIdleClients(t *testing.T) {
	l := NewWriteLimiter(0.001, 1)
	clock := time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		l.Allow(requestFrom(addr))
	}
	assert.Equal(t, 3, l.Clients())

	clock = clock.Add(DefaultLimiterIdle / 2)
	l.Allow(requestFrom("10.0.0.3:1"))
	assert.Equal(t, 3, l.Clients())

	clock = clock.Add(DefaultLimiterIdle/2 + time.Second)
	l.Allow(requestFrom("10.0.0.4:1"))
	// Only the client seen within the idle window and the new one remain.
	assert.Equal(t, 2, l.Clients())
}

func TestWriteLimiter_Nil(t *testing.T) {
	var l *WriteLimiter
	assert.True(t, l.Allow(requestFrom("10.0.0.1:1")))
}
