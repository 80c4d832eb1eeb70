package web

import (
	"math/rand"
	"sync/atomic"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:129.0) Gecko/20100101 Firefox/129.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36 Edg/129.0.0.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_6_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Mobile Safari/537.36",
}

// UserAgents hands out user-agent strings: mostly round-robin, sometimes random.
type UserAgents struct {
	pool    []string
	counter atomic.Uint64
	// randomShare is the fraction of picks drawn at random.
	randomShare float64
}

// NewUserAgents rotates over pool, or a built-in desktop/mobile set when empty.
// A single entry is always returned as-is.
func NewUserAgents(pool ...string) *UserAgents {
	if len(pool) == 0 {
		pool = defaultUserAgents
	}
	return &UserAgents{pool: pool, randomShare: 0.2}
}

func (u *UserAgents) Next() string {
	if len(u.pool) == 1 {
		return u.pool[0]
	}
	if rand.Float64() < u.randomShare {
		return u.pool[rand.Intn(len(u.pool))]
	}
	idx := u.counter.Add(1)
	return u.pool[int(idx%uint64(len(u.pool)))]
}
