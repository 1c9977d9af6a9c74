package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSendBuffer = 64

// Manager routes client actions to the registry, the room membership and
// the gateway, and fans the resulting events out to connections.
type Manager struct {
	registry  *Registry
	rooms     *Rooms
	sendLocks *keyedMutex
	gateway   Gateway
	publisher Publisher
	log       *zap.Logger

	sendBuffer int
	now        func() time.Time

	mu      sync.RWMutex
	clients map[string]*Client // connection id -> client

	serving sync.WaitGroup
}

type Option func(*Manager)

func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithSendBuffer sets the per-connection outbound queue size.
func WithSendBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.sendBuffer = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
		m.registry.now = now
	}
}

func NewManager(gateway Gateway, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		registry:   NewRegistry(),
		rooms:      NewRooms(),
		sendLocks:  newKeyedMutex(),
		gateway:    gateway,
		publisher:  nopPublisher{},
		log:        log.Named("chat"),
		sendBuffer: defaultSendBuffer,
		now:        time.Now,
		clients:    map[string]*Client{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Registry() *Registry { return m.registry }
func (m *Manager) Rooms() *Rooms       { return m.rooms }

// Connect creates an unregistered client for conn.
func (m *Manager) Connect(conn ConnLike) *Client {
	c := newClient(uuid.NewString(), conn, m.sendBuffer)
	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()
	m.log.Debug("client connected", zap.String("conn", c.ID))
	return c
}

// Serve runs a connection until it closes. Actions from one connection are
// handled in arrival order; different connections run concurrently.
func (m *Manager) Serve(ctx context.Context, conn ConnLike) {
	m.serving.Add(1)
	defer m.serving.Done()

	c := m.Connect(conn)
	if ctx.Err() != nil {
		// Shutting down.
		m.Dispatch(ctx, c, DisconnectAction{})
		return
	}
	go c.WritePump(m.log)
	c.ReadPump(ctx, m)
	m.Dispatch(ctx, c, DisconnectAction{})
}

func (m *Manager) Dispatch(ctx context.Context, c *Client, action Action) {
	switch a := action.(type) {
	case RegisterAction:
		m.handleRegister(ctx, c, a)
	case StartChatAction:
		m.handleStartChat(ctx, c, a)
	case SendMessageAction:
		m.handleSendMessage(ctx, c, a)
	case TypingAction:
		m.handleTyping(c, a)
	case ReadAction:
		m.handleRead(ctx, c, a)
	case GetOnlineAction:
		m.emit(c, EventUsersOnlineList, m.OnlineUsers(""))
	case JoinChatAction:
		m.handleJoinChat(ctx, c, a)
	case LeaveChatAction:
		m.handleLeaveChat(c, a)
	case DisconnectAction:
		m.handleDisconnect(ctx, c)
	default:
		m.log.Error("unhandled action", zap.String("conn", c.ID), zap.String("action", action.Name()))
	}
}

func (m *Manager) handleRegister(ctx context.Context, c *Client, a RegisterAction) {
	log := m.log.With(zap.String("conn", c.ID), zap.String("user", a.User.ID))

	// A connection carries one identity for its whole life.
	if prev, ok := m.registry.LookupBySocket(c.ID); ok && prev.Identity.ID != a.User.ID {
		log.Warn("identity change rejected", zap.String("registered", prev.Identity.ID))
		m.emit(c, EventUserRegistered, failure(ErrIdentityChanged.Error()))
		return
	}

	if err := m.gateway.UpdateUserOnlineStatus(ctx, a.User.ID, true); err != nil {
		log.Error("mark online failed", zap.Error(err))
		m.emit(c, EventUserRegistered, failure("failed to update online status: "+err.Error()))
		return
	}

	// A connection that closed while the gateway call was in flight must not
	// leave a session behind.
	m.mu.Lock()
	_, live := m.clients[c.ID]
	var session Session
	if live {
		session = m.registry.Register(c.ID, a.User)
	}
	m.mu.Unlock()
	if !live {
		log.Debug("connection closed during registration")
		m.markOffline(ctx, a.User.ID)
		return
	}

	count := m.registry.Count()
	user := session.Online()
	log.Info("user registered", zap.String("name", a.User.Name), zap.Int("connected", count))
	m.emit(c, EventUserRegistered, RegisteredPayload{Success: true, User: &user, ConnectedUsersCount: count})
	m.broadcastAll(EventUserJoined, PresencePayload{User: refOf(a.User), ConnectedUsersCount: count}, c.ID)
}

func (m *Manager) handleStartChat(ctx context.Context, c *Client, a StartChatAction) {
	session, ok := m.registry.LookupBySocket(c.ID)
	if !ok {
		m.emit(c, EventChatStarted, failure(ErrNotRegistered.Error()))
		return
	}
	if a.Peer.ID == session.Identity.ID {
		m.emit(c, EventChatStarted, failure(ErrInvalidPeer.Error()))
		return
	}
	log := m.log.With(zap.String("conn", c.ID), zap.String("user", session.Identity.ID), zap.String("peer", a.Peer.ID))

	room, err := m.gateway.GetOrCreateRoom(ctx, session.Identity, a.Peer)
	if err == nil && !room.IsPair(session.Identity.ID, a.Peer.ID) {
		err = ErrRoomConflict
	}
	if err != nil {
		log.Error("get or create room failed", zap.Error(err))
		m.emit(c, EventChatStarted, failure(clientError(err, "failed to create chat room")))
		return
	}

	m.rooms.Join(room.ID, c.ID)
	payload := ChatStartedPayload{Success: true, ChatRoom: room}
	m.emit(c, EventChatStarted, payload)

	if peerConn, ok := m.registry.LookupByUser(a.Peer.ID); ok && peerConn != c.ID {
		if peer := m.joinLive(room.ID, peerConn); peer != nil {
			m.emit(peer, EventChatStarted, payload)
		}
	}
	log.Debug("chat started", zap.String("chat", room.ID))
}

func (m *Manager) handleSendMessage(ctx context.Context, c *Client, a SendMessageAction) {
	session, ok := m.registry.LookupBySocket(c.ID)
	if !ok {
		m.emit(c, EventMessageSendFailed, failure(ErrNotRegistered.Error()))
		return
	}
	if err := ValidateMessage(a.Content); err != nil {
		m.emit(c, EventMessageSendFailed, failure(err.Error()))
		return
	}
	log := m.log.With(zap.String("conn", c.ID), zap.String("user", session.Identity.ID), zap.String("chat", a.ChatID))

	// Saves and broadcasts of one room happen in the same order.
	unlock := m.sendLocks.lock(a.ChatID)
	msg := &Message{
		ChatID:      a.ChatID,
		Content:     a.Content,
		SenderID:    session.Identity.ID,
		SenderName:  session.Identity.Name,
		SenderEmail: session.Identity.Email,
		Timestamp:   m.now().UTC(),
	}
	id, err := m.gateway.SaveMessage(ctx, msg)
	if err != nil {
		unlock()
		log.Error("save message failed", zap.Error(err))
		m.emit(c, EventMessageSendFailed, failure(clientError(err, "failed to send message")))
		return
	}
	msg.ID = id

	// The sender relies on the echo, so make sure it is subscribed.
	m.rooms.Join(a.ChatID, c.ID)
	n := m.broadcast(a.ChatID, EventMessageReceived, MessageReceivedPayload{Success: true, Message: msg}, "")
	unlock()
	log.Debug("message delivered", zap.String("message", id), zap.Int("recipients", n))

	if err := m.publisher.PublishMessage(context.WithoutCancel(ctx), msg); err != nil {
		log.Warn("publish message failed", zap.String("message", id), zap.Error(err))
	}
}

func (m *Manager) handleTyping(c *Client, a TypingAction) {
	session, ok := m.registry.LookupBySocket(c.ID)
	if !ok {
		m.log.Debug("typing from unregistered connection", zap.String("conn", c.ID), zap.String("chat", a.ChatID))
		return
	}
	m.broadcast(a.ChatID, a.Name(), TypingPayload{
		UserID:   session.Identity.ID,
		UserName: session.Identity.Name,
		ChatID:   a.ChatID,
	}, c.ID)
}

func (m *Manager) handleRead(ctx context.Context, c *Client, a ReadAction) {
	session, ok := m.registry.LookupBySocket(c.ID)
	if !ok {
		m.emit(c, EventMessageRead, failure(ErrNotRegistered.Error()))
		return
	}
	readAt := m.now().UTC()
	if err := m.gateway.UpdateLastReadAt(ctx, a.ChatID, session.Identity.ID, readAt); err != nil {
		m.log.Error("update last read failed",
			zap.String("conn", c.ID), zap.String("user", session.Identity.ID), zap.String("chat", a.ChatID), zap.Error(err))
		m.emit(c, EventMessageRead, failure(clientError(err, "failed to mark messages as read")))
		return
	}
	m.broadcast(a.ChatID, EventMessageRead, ReadReceiptPayload{
		UserID: session.Identity.ID,
		ChatID: a.ChatID,
		ReadAt: readAt,
	}, c.ID)
}

func (m *Manager) handleJoinChat(ctx context.Context, c *Client, a JoinChatAction) {
	session, ok := m.registry.LookupBySocket(c.ID)
	if !ok {
		m.emit(c, EventError, failure(ErrNotRegistered.Error()))
		return
	}
	room, err := m.gateway.GetRoom(ctx, a.ChatID)
	if err == nil && !room.HasParticipant(session.Identity.ID) {
		err = ErrNotParticipant
	}
	if err != nil {
		m.log.Warn("join chat rejected",
			zap.String("conn", c.ID), zap.String("user", session.Identity.ID), zap.String("chat", a.ChatID), zap.Error(err))
		m.emit(c, EventError, failure(clientError(err, "failed to join chat")))
		return
	}
	m.rooms.Join(a.ChatID, c.ID)
	m.emit(c, EventChatJoined, ChatJoinedPayload{ChatID: a.ChatID})
	m.broadcast(a.ChatID, EventUserEnteredChat, ChatMemberPayload{UserID: session.Identity.ID, ChatID: a.ChatID}, c.ID)
}

func (m *Manager) handleLeaveChat(c *Client, a LeaveChatAction) {
	session, ok := m.registry.LookupBySocket(c.ID)
	if !ok {
		m.emit(c, EventError, failure(ErrNotRegistered.Error()))
		return
	}
	if !m.rooms.IsMember(a.ChatID, c.ID) {
		return
	}
	m.rooms.Leave(a.ChatID, c.ID)
	m.broadcast(a.ChatID, EventUserLeftChat, ChatMemberPayload{UserID: session.Identity.ID, ChatID: a.ChatID}, c.ID)
}

func (m *Manager) handleDisconnect(ctx context.Context, c *Client) {
	m.mu.Lock()
	delete(m.clients, c.ID)
	identity, registered := m.registry.Remove(c.ID)
	m.rooms.LeaveAll(c.ID)
	m.mu.Unlock()

	c.close()

	if !registered {
		m.log.Debug("client disconnected without session", zap.String("conn", c.ID))
		return
	}
	count := m.registry.Count()
	m.log.Info("user disconnected", zap.String("conn", c.ID), zap.String("user", identity.ID), zap.Int("connected", count))

	// A newer connection of the same user keeps it online.
	if _, stillOnline := m.registry.LookupByUser(identity.ID); !stillOnline {
		m.markOffline(ctx, identity.ID)
	}
	m.broadcastAll(EventUserLeft, PresencePayload{User: refOf(identity), ConnectedUsersCount: count}, c.ID)
}

func (m *Manager) markOffline(ctx context.Context, userID string) {
	if err := m.gateway.UpdateUserOnlineStatus(context.WithoutCancel(ctx), userID, false); err != nil {
		m.log.Warn("mark offline failed", zap.String("user", userID), zap.Error(err))
	}
}

// joinLive joins connID to roomID only while its client is connected and
// returns that client. Disconnect prunes membership under the same lock, so a
// closing connection is never left behind in a room.
func (m *Manager) joinLive(roomID, connID string) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[connID]
	if !ok {
		return nil
	}
	m.rooms.Join(roomID, connID)
	return c
}

func (m *Manager) client(connID string) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[connID]
}

func (m *Manager) emit(c *Client, event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		m.log.Error("encode event failed", zap.String("event", event), zap.Error(err))
		return
	}
	m.deliver(c, event, data)
}

// broadcast sends to every member of roomID except exclude and returns the
// number of connections the event was queued for.
func (m *Manager) broadcast(roomID, event string, payload any, exclude string) int {
	members := m.rooms.Members(roomID, exclude)
	if len(members) == 0 {
		return 0
	}
	data, err := encodeEvent(event, payload)
	if err != nil {
		m.log.Error("encode event failed", zap.String("event", event), zap.Error(err))
		return 0
	}
	n := 0
	for _, connID := range members {
		if c := m.client(connID); c != nil && m.deliver(c, event, data) {
			n++
		}
	}
	return n
}

// broadcastAll sends to every live connection except exclude.
func (m *Manager) broadcastAll(event string, payload any, exclude string) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		m.log.Error("encode event failed", zap.String("event", event), zap.Error(err))
		return
	}
	m.mu.RLock()
	snapshot := make([]*Client, 0, len(m.clients))
	for id, c := range m.clients {
		if id != exclude {
			snapshot = append(snapshot, c)
		}
	}
	m.mu.RUnlock()
	for _, c := range snapshot {
		m.deliver(c, event, data)
	}
}

func (m *Manager) deliver(c *Client, event string, data []byte) bool {
	if c.deliver(data) {
		return true
	}
	if !c.closed() {
		m.log.Warn("outbound queue full, event dropped", zap.String("conn", c.ID), zap.String("event", event))
	}
	return false
}

// Run logs the connected user count every interval and closes all clients
// when ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			if n := m.registry.Count(); n > 0 {
				m.log.Info("connected users", zap.Int("count", n), zap.Int("connections", m.Connections()))
			}
		}
	}
}

// Wait blocks until every Serve call has returned or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.serving.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) closeAll() {
	m.mu.RLock()
	snapshot := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		snapshot = append(snapshot, c)
	}
	m.mu.RUnlock()
	for _, c := range snapshot {
		c.close()
	}
	m.log.Info("closed all clients", zap.Int("count", len(snapshot)))
}
