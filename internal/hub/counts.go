package hub

import "sync"

// channelCounts mirrors the actor's per-channel subscriber counts into a
// read-optimized table. Writes happen only on the actor goroutine; reads may
// come from any goroutine, including disconnect listeners running inside the
// actor, so lookups must never round-trip through the command channel.
type channelCounts struct {
	mu      sync.RWMutex
	counts  map[string]int
	clients int
}

func newChannelCounts() *channelCounts {
	return &channelCounts{counts: make(map[string]int)}
}

func (c *channelCounts) get(channel string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[channel]
}

func (c *channelCounts) set(channel string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == 0 {
		delete(c.counts, channel)
		return
	}
	c.counts[channel] = n
}

func (c *channelCounts) clientTotal() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clients
}

func (c *channelCounts) setClientTotal(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = n
}
