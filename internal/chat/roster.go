package chat

import "sort"

// OnlineUsers lists registered sessions sorted by display name, optionally
// leaving out one user id.
func (m *Manager) OnlineUsers(exclude string) []OnlineUser {
	sessions := m.registry.Sessions()
	out := make([]OnlineUser, 0, len(sessions))
	for _, s := range sessions {
		if exclude != "" && s.Identity.ID == exclude {
			continue
		}
		u := s.Online()
		u.SocketID = ""
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// ConnectedUsers returns the number of registered connections.
func (m *Manager) ConnectedUsers() int {
	return m.registry.Count()
}

// Connections returns the number of live connections, registered or not.
func (m *Manager) Connections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
