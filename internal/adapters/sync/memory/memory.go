// Package memory implements the sync boundary with an in-process store and
// notification bus. It backs unit tests and single-process play, and doubles
// as the reference semantics for remote implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	syncapi "github.com/okian/mouton/internal/adapters/sync"
	"github.com/okian/mouton/internal/domain/model"
	"github.com/okian/mouton/pkg/metrics"
)

// Default bus configuration constants.
const (
	defaultChangeBuffer   = 256
	defaultPresenceBuffer = 64
)

// Client is an in-memory store plus change bus, safe for concurrent use.
// All game clients within the process share one Client, which makes the
// "both peers observe the same durable record set" assumption exact.
type Client struct {
	mu sync.RWMutex

	rooms   map[uuid.UUID]model.Room
	byCode  map[string]uuid.UUID
	players map[uuid.UUID][]model.Player
	answers map[uuid.UUID][]model.TurnAnswer
	scores  map[uuid.UUID]map[string]model.PairScore

	subs     map[uuid.UUID]map[int]chan syncapi.Change
	presSubs map[uuid.UUID]map[int]chan syncapi.Presence
	nextSub  int

	changeBuffer   int
	presenceBuffer int
	closed         bool
}

var _ syncapi.Client = (*Client)(nil)

// NewClient creates an in-memory sync client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		rooms:          make(map[uuid.UUID]model.Room),
		byCode:         make(map[string]uuid.UUID),
		players:        make(map[uuid.UUID][]model.Player),
		answers:        make(map[uuid.UUID][]model.TurnAnswer),
		scores:         make(map[uuid.UUID]map[string]model.PairScore),
		subs:           make(map[uuid.UUID]map[int]chan syncapi.Change),
		presSubs:       make(map[uuid.UUID]map[int]chan syncapi.Presence),
		changeBuffer:   defaultChangeBuffer,
		presenceBuffer: defaultPresenceBuffer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRoom creates a lobby room under the given code.
func (c *Client) CreateRoom(_ context.Context, code string) (model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return model.Room{}, syncapi.ErrClosed
	}
	if _, ok := c.byCode[code]; ok {
		metrics.RecordStoreConflict(string(syncapi.TableRooms))
		return model.Room{}, syncapi.ErrConflict
	}

	room := model.Room{
		ID:     uuid.New(),
		Code:   code,
		Status: model.RoomStatusLobby,
	}
	c.rooms[room.ID] = room
	c.byCode[code] = room.ID
	c.scores[room.ID] = make(map[string]model.PairScore)
	metrics.RecordStoreMutation(string(syncapi.TableRooms))
	return room, nil
}

// ReadRoomState performs a full read of a room and its records.
func (c *Client) ReadRoomState(_ context.Context, code string) (syncapi.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSnapshotReadLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byCode[code]
	if !ok {
		return syncapi.Snapshot{}, syncapi.ErrNotFound
	}

	snap := syncapi.Snapshot{
		Room:    c.rooms[id],
		Players: append([]model.Player(nil), c.players[id]...),
		Answers: append([]model.TurnAnswer(nil), c.answers[id]...),
	}
	for _, s := range c.scores[id] {
		snap.Scores = append(snap.Scores, s)
	}
	return snap, nil
}

// Subscribe starts a change feed for the room.
func (c *Client) Subscribe(_ context.Context, roomID uuid.UUID) (syncapi.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, syncapi.ErrClosed
	}
	if _, ok := c.rooms[roomID]; !ok {
		return nil, syncapi.ErrNotFound
	}

	id := c.nextSub
	c.nextSub++
	ch := make(chan syncapi.Change, c.changeBuffer)
	if c.subs[roomID] == nil {
		c.subs[roomID] = make(map[int]chan syncapi.Change)
	}
	c.subs[roomID][id] = ch

	return &subscription{
		ch: ch,
		close: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[roomID][id]; ok {
				delete(c.subs[roomID], id)
				close(sub)
			}
		},
	}, nil
}

// InsertPlayer adds a player record.
func (c *Client) InsertPlayer(_ context.Context, p model.Player) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[p.RoomID]; !ok {
		return syncapi.ErrNotFound
	}
	for _, existing := range c.players[p.RoomID] {
		if existing.ID == p.ID {
			metrics.RecordStoreConflict(string(syncapi.TablePlayers))
			return syncapi.ErrConflict
		}
	}
	c.players[p.RoomID] = append(c.players[p.RoomID], p)
	metrics.RecordStoreMutation(string(syncapi.TablePlayers))
	c.notifyLocked(p.RoomID, syncapi.TablePlayers)
	return nil
}

// InsertTurnAnswer records a submission, rejecting a second answer from the
// same player within one turn.
func (c *Client) InsertTurnAnswer(_ context.Context, a model.TurnAnswer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[a.RoomID]; !ok {
		return syncapi.ErrNotFound
	}
	for _, existing := range c.answers[a.RoomID] {
		if existing.PlayerID == a.PlayerID && existing.Turn == a.Turn {
			metrics.RecordStoreConflict(string(syncapi.TableAnswers))
			return syncapi.ErrConflict
		}
	}
	c.answers[a.RoomID] = append(c.answers[a.RoomID], a)
	metrics.RecordStoreMutation(string(syncapi.TableAnswers))
	c.notifyLocked(a.RoomID, syncapi.TableAnswers)
	return nil
}

// DeleteAllTurnAnswers clears every answer record of the room.
func (c *Client) DeleteAllTurnAnswers(_ context.Context, roomID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[roomID]; !ok {
		return syncapi.ErrNotFound
	}
	c.answers[roomID] = nil
	metrics.RecordStoreMutation(string(syncapi.TableAnswers))
	c.notifyLocked(roomID, syncapi.TableAnswers)
	return nil
}

// UpdateRoom applies a partial update to the room record.
func (c *Client) UpdateRoom(_ context.Context, roomID uuid.UUID, fields syncapi.RoomFields) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomID]
	if !ok {
		return syncapi.ErrNotFound
	}
	if fields.Status != nil {
		room.Status = *fields.Status
	}
	if fields.PromptID != nil {
		id := *fields.PromptID
		room.PromptID = &id
	}
	if fields.Turn != nil {
		room.Turn = *fields.Turn
	}
	c.rooms[roomID] = room
	metrics.RecordStoreMutation(string(syncapi.TableRooms))
	c.notifyLocked(roomID, syncapi.TableRooms)
	return nil
}

// UpsertPairScore creates or partially updates a pair score record.
func (c *Client) UpsertPairScore(_ context.Context, roomID uuid.UUID, pairID string, fields syncapi.ScoreFields) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[roomID]; !ok {
		return syncapi.ErrNotFound
	}
	if c.scores[roomID] == nil {
		c.scores[roomID] = make(map[string]model.PairScore)
	}
	score, ok := c.scores[roomID][pairID]
	if !ok {
		score = model.PairScore{RoomID: roomID, PairID: pairID}
	}
	if fields.Banked != nil {
		score.Banked = *fields.Banked
	}
	if fields.Temp != nil {
		score.Temp = *fields.Temp
	}
	if fields.Streak != nil {
		score.Streak = *fields.Streak
	}
	c.scores[roomID][pairID] = score
	metrics.RecordStoreMutation(string(syncapi.TableScores))
	c.notifyLocked(roomID, syncapi.TableScores)
	return nil
}

// PublishPresence broadcasts a typing signal to presence subscribers.
func (c *Client) PublishPresence(_ context.Context, roomID, playerID uuid.UUID, isTyping bool) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return syncapi.ErrClosed
	}
	metrics.RecordPresenceUpdate()
	for _, ch := range c.presSubs[roomID] {
		select {
		case ch <- syncapi.Presence{PlayerID: playerID, IsTyping: isTyping}:
		default:
			// Best effort: presence may be dropped at any time.
		}
	}
	return nil
}

// SubscribePresence starts the ephemeral presence feed for a room.
func (c *Client) SubscribePresence(_ context.Context, roomID uuid.UUID) (syncapi.PresenceSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, syncapi.ErrClosed
	}

	id := c.nextSub
	c.nextSub++
	ch := make(chan syncapi.Presence, c.presenceBuffer)
	if c.presSubs[roomID] == nil {
		c.presSubs[roomID] = make(map[int]chan syncapi.Presence)
	}
	c.presSubs[roomID][id] = ch

	return &presenceSubscription{
		ch: ch,
		close: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.presSubs[roomID][id]; ok {
				delete(c.presSubs[roomID], id)
				close(sub)
			}
		},
	}, nil
}

// Close shuts down the client and every open subscription.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for roomID, subs := range c.subs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
		delete(c.subs, roomID)
	}
	for roomID, subs := range c.presSubs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
		delete(c.presSubs, roomID)
	}
	return nil
}

// notifyLocked fans a change notification out to the room's subscribers.
// Must be called with c.mu held. A slow subscriber loses notifications
// rather than blocking writers; the observer re-derives state from a full
// snapshot, so a later notification heals the gap.
func (c *Client) notifyLocked(roomID uuid.UUID, table syncapi.Table) {
	change := syncapi.Change{RoomID: roomID, Table: table}
	for _, ch := range c.subs[roomID] {
		select {
		case ch <- change:
			metrics.RecordChangeNotification(string(table))
		default:
			metrics.RecordChangeDropped()
		}
	}
}

type subscription struct {
	ch    chan syncapi.Change
	once  sync.Once
	close func()
}

func (s *subscription) Changes() <-chan syncapi.Change { return s.ch }

func (s *subscription) Close() { s.once.Do(s.close) }

type presenceSubscription struct {
	ch    chan syncapi.Presence
	once  sync.Once
	close func()
}

func (s *presenceSubscription) Updates() <-chan syncapi.Presence { return s.ch }

func (s *presenceSubscription) Close() { s.once.Do(s.close) }
