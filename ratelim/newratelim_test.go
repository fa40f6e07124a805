package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func ok(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) { w.WriteHeader(http.StatusOK) }

func hit(h httprouter.Handle, addr string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec.Code
}

func TestLimit_PerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Limit(ok)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1111"))
	// a different port is the same client
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:3333"))

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1111"))
}

func TestSweep(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }
	rl.getLimiter("a")
	rl.now = func() time.Time { return now.Add(5 * time.Minute) }
	rl.getLimiter("b")

	rl.now = func() time.Time { return now.Add(12 * time.Minute) }
	assert.Equal(t, 1, rl.Sweep())
	_, stillThere := rl.visitors["b"]
	assert.True(t, stillThere)
}
