package runtime

import (
	"dm-chat/contract"
	"log/slog"
	"sync"
)

type channelSet map[contract.Channel]struct{}

// Registry is the in-memory session table: user -> set of open
// channels. A user may hold several channels at once (tabs, devices).
// Entries are created lazily on first connect and removed entirely
// when their channel set becomes empty, so churned users leave no
// residue behind.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]channelSet
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[int64]channelSet),
		log:      log,
	}
}

// Connect registers a channel under a user. The channel is eligible
// for fanout as soon as this returns. Adding a channel twice is a
// no-op.
func (r *Registry) Connect(userID int64, ch contract.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[userID]
	if !ok {
		set = make(channelSet)
		r.sessions[userID] = set
	}
	set[ch] = struct{}{}
	r.log.Debug("channel connected", "user_id", userID, "channels", len(set))
}

// Disconnect removes a channel from a user's set. Removing a channel
// that is already gone is a no-op: both the connection's own teardown
// path and a fanout-discovered failure may race to remove the same
// channel, and only the first attempt does anything.
func (r *Registry) Disconnect(userID int64, ch contract.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[userID]
	if !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.sessions, userID)
	}
	r.log.Debug("channel disconnected", "user_id", userID, "channels", len(set))
}

// Fanout delivers payload to every channel currently registered for
// the user. A channel that fails to accept the payload is disconnected
// and closed, without aborting delivery to the remaining channels.
// No registered channels means the call is a silent no-op: the message
// is already durable in the ledger and will be seen on the next
// history fetch.
func (r *Registry) Fanout(userID int64, payload []byte) {
	r.mu.RLock()
	channels := make([]contract.Channel, 0, len(r.sessions[userID]))
	for ch := range r.sessions[userID] {
		channels = append(channels, ch)
	}
	r.mu.RUnlock()

	if len(channels) == 0 {
		r.log.Debug("no active channels, skipping fanout", "user_id", userID)
		return
	}

	for _, ch := range channels {
		if err := ch.Send(payload); err != nil {
			r.log.Warn("fanout delivery failed, pruning channel",
				"user_id", userID,
				"error", err)
			r.Disconnect(userID, ch)
			ch.Close()
		}
	}
}
