package fanout

// BroadcastOnlineUsers publishes the full registered-user list to every
// connection. Called after each register/unregister that changed the
// registry; a full-state broadcast rather than a delta, which is O(n) per
// connect/disconnect and fine at this registry size.
func (e *Engine) BroadcastOnlineUsers(online []string) {
	e.emitToAll(EventGetOnlineUsers, online)
}
