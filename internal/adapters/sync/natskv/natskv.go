// Package natskv implements the sync boundary on NATS JetStream.
//
// Durable records live in one key-value bucket per table, keyed by room so
// a single watch pattern covers a room's records. The change feed is the
// buckets' own watch stream, which gives the at-least-once, unordered
// delivery the boundary promises. Presence rides plain core NATS subjects
// and is never persisted.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	syncapi "github.com/okian/mouton/internal/adapters/sync"
	"github.com/okian/mouton/internal/domain/model"
	"github.com/okian/mouton/pkg/logger"
	"github.com/okian/mouton/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultBucketPrefix   = "mouton"
	defaultPresencePrefix = "mouton.presence"
	defaultChangeBuffer   = 256
	defaultPresenceBuffer = 64
	defaultReconnectWait  = 2 * time.Second
	defaultMaxReconnects  = -1 // infinite
)

// Room records are stored under two keys so both lookup paths are one Get.
const (
	keyByCode = "by_code"
	keyByID   = "by_id"
)

// Client implements the sync boundary against a NATS server with JetStream.
type Client struct {
	nc *nats.Conn
	js jetstream.JetStream

	rooms   jetstream.KeyValue
	players jetstream.KeyValue
	answers jetstream.KeyValue
	scores  jetstream.KeyValue

	cfg    clientConfig
	logger logger.Logger

	closeOnce gosync.Once
}

var _ syncapi.Client = (*Client)(nil)

// NewClient connects to NATS and ensures the engine's buckets exist.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		url:            nats.DefaultURL,
		bucketPrefix:   defaultBucketPrefix,
		presencePrefix: defaultPresencePrefix,
		changeBuffer:   defaultChangeBuffer,
		presenceBuffer: defaultPresenceBuffer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		cfg:    cfg,
		logger: logger.Get().Named("natskv"),
	}

	natsOpts := []nats.Option{
		nats.MaxReconnects(defaultMaxReconnects),
		nats.ReconnectWait(defaultReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn(ctx, "nats disconnected", logger.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info(ctx, "nats reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	}
	natsOpts = append(natsOpts, cfg.natsOpts...)

	nc := cfg.conn
	if nc == nil {
		var err error
		nc, err = nats.Connect(cfg.url, natsOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
	}
	c.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}
	c.js = js

	if err := c.ensureBuckets(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	return c, nil
}

// ensureBuckets creates or binds the per-table buckets.
func (c *Client) ensureBuckets(ctx context.Context) error {
	buckets := []struct {
		table  syncapi.Table
		target *jetstream.KeyValue
	}{
		{syncapi.TableRooms, &c.rooms},
		{syncapi.TablePlayers, &c.players},
		{syncapi.TableAnswers, &c.answers},
		{syncapi.TableScores, &c.scores},
	}

	for _, b := range buckets {
		kv, err := c.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket: fmt.Sprintf("%s_%s", c.cfg.bucketPrefix, b.table),
		})
		if err != nil {
			return fmt.Errorf("failed to ensure bucket for %s: %w", b.table, err)
		}
		*b.target = kv
	}

	return nil
}

// CreateRoom creates a lobby room under the given code.
func (c *Client) CreateRoom(ctx context.Context, code string) (model.Room, error) {
	room := model.Room{
		ID:     uuid.New(),
		Code:   code,
		Status: model.RoomStatusLobby,
	}

	data, err := json.Marshal(room)
	if err != nil {
		return model.Room{}, fmt.Errorf("failed to encode room: %w", err)
	}

	// Create fails on an existing key, which is exactly the code-taken
	// conflict check.
	if _, err := c.rooms.Create(ctx, roomCodeKey(code), data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			metrics.RecordStoreConflict(string(syncapi.TableRooms))
			return model.Room{}, fmt.Errorf("room code %q: %w", code, syncapi.ErrConflict)
		}
		return model.Room{}, fmt.Errorf("failed to create room: %w", err)
	}

	if _, err := c.rooms.Put(ctx, roomIDKey(room.ID), data); err != nil {
		return model.Room{}, fmt.Errorf("failed to index room: %w", err)
	}

	metrics.RecordStoreMutation(string(syncapi.TableRooms))
	return room, nil
}

// ReadRoomState performs a full read of a room and its records.
func (c *Client) ReadRoomState(ctx context.Context, code string) (syncapi.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSnapshotReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	room, err := c.getRoom(ctx, roomCodeKey(code))
	if err != nil {
		return syncapi.Snapshot{}, err
	}

	snap := syncapi.Snapshot{Room: room}

	if err := readAll(ctx, c.players, room.ID, &snap.Players); err != nil {
		return syncapi.Snapshot{}, fmt.Errorf("failed to read players: %w", err)
	}
	if err := readAll(ctx, c.answers, room.ID, &snap.Answers); err != nil {
		return syncapi.Snapshot{}, fmt.Errorf("failed to read answers: %w", err)
	}
	if err := readAll(ctx, c.scores, room.ID, &snap.Scores); err != nil {
		return syncapi.Snapshot{}, fmt.Errorf("failed to read scores: %w", err)
	}

	return snap, nil
}

// Subscribe starts a change feed for the room backed by bucket watchers.
func (c *Client) Subscribe(ctx context.Context, roomID uuid.UUID) (syncapi.Subscription, error) {
	watches := []struct {
		table   syncapi.Table
		kv      jetstream.KeyValue
		pattern string
	}{
		{syncapi.TableRooms, c.rooms, roomIDKey(roomID)},
		{syncapi.TablePlayers, c.players, roomID.String() + ".>"},
		{syncapi.TableAnswers, c.answers, roomID.String() + ".>"},
		{syncapi.TableScores, c.scores, roomID.String() + ".>"},
	}

	sub := &subscription{
		ch: make(chan syncapi.Change, c.cfg.changeBuffer),
	}

	for _, w := range watches {
		watcher, err := w.kv.Watch(ctx, w.pattern, jetstream.UpdatesOnly())
		if err != nil {
			sub.stopWatchers()
			return nil, fmt.Errorf("failed to watch %s: %w", w.table, err)
		}
		sub.watchers = append(sub.watchers, watcher)

		sub.wg.Add(1)
		go sub.forward(watcher, roomID, w.table)
	}

	// Close the fan-in channel once every watcher has drained.
	go func() {
		sub.wg.Wait()
		close(sub.ch)
	}()

	return sub, nil
}

// InsertPlayer adds a player record.
func (c *Client) InsertPlayer(ctx context.Context, p model.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode player: %w", err)
	}

	key := fmt.Sprintf("%s.%s", p.RoomID, p.ID)
	if _, err := c.players.Create(ctx, key, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			metrics.RecordStoreConflict(string(syncapi.TablePlayers))
			return fmt.Errorf("player %s: %w", p.ID, syncapi.ErrConflict)
		}
		return fmt.Errorf("failed to insert player: %w", err)
	}

	metrics.RecordStoreMutation(string(syncapi.TablePlayers))
	return nil
}

// InsertTurnAnswer records a submission, one per player per turn.
func (c *Client) InsertTurnAnswer(ctx context.Context, a model.TurnAnswer) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode answer: %w", err)
	}

	key := fmt.Sprintf("%s.%s.%s", a.RoomID, a.PlayerID, strconv.Itoa(a.Turn))
	if _, err := c.answers.Create(ctx, key, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			metrics.RecordStoreConflict(string(syncapi.TableAnswers))
			return fmt.Errorf("answer for turn %d: %w", a.Turn, syncapi.ErrConflict)
		}
		return fmt.Errorf("failed to insert answer: %w", err)
	}

	metrics.RecordStoreMutation(string(syncapi.TableAnswers))
	return nil
}

// DeleteAllTurnAnswers clears every answer record of the room.
func (c *Client) DeleteAllTurnAnswers(ctx context.Context, roomID uuid.UUID) error {
	lister, err := c.answers.ListKeysFiltered(ctx, roomID.String()+".>")
	if err != nil {
		return fmt.Errorf("failed to list answers: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		if err := c.answers.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete answer %s: %w", key, err)
		}
	}

	metrics.RecordStoreMutation(string(syncapi.TableAnswers))
	return nil
}

// UpdateRoom applies a partial update to the room record.
func (c *Client) UpdateRoom(ctx context.Context, roomID uuid.UUID, fields syncapi.RoomFields) error {
	room, err := c.getRoom(ctx, roomIDKey(roomID))
	if err != nil {
		return err
	}

	if fields.Status != nil {
		room.Status = *fields.Status
	}
	if fields.PromptID != nil {
		room.PromptID = fields.PromptID
	}
	if fields.Turn != nil {
		room.Turn = *fields.Turn
	}

	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	// Both lookup keys carry the record; the id key is written last so
	// watchers fire only after the record is fully consistent.
	if _, err := c.rooms.Put(ctx, roomCodeKey(room.Code), data); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if _, err := c.rooms.Put(ctx, roomIDKey(roomID), data); err != nil {
		return fmt.Errorf("failed to update room index: %w", err)
	}

	metrics.RecordStoreMutation(string(syncapi.TableRooms))
	return nil
}

// UpsertPairScore creates or partially updates a pair score record.
func (c *Client) UpsertPairScore(ctx context.Context, roomID uuid.UUID, pairID string, fields syncapi.ScoreFields) error {
	key := fmt.Sprintf("%s.%s", roomID, pairID)

	score := model.PairScore{RoomID: roomID, PairID: pairID}
	if entry, err := c.scores.Get(ctx, key); err == nil {
		if err := json.Unmarshal(entry.Value(), &score); err != nil {
			return fmt.Errorf("failed to decode score: %w", err)
		}
	} else if !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to read score: %w", err)
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

	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to encode score: %w", err)
	}
	if _, err := c.scores.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to upsert score: %w", err)
	}

	metrics.RecordStoreMutation(string(syncapi.TableScores))
	return nil
}

// PublishPresence broadcasts a typing signal over core NATS.
func (c *Client) PublishPresence(_ context.Context, roomID, playerID uuid.UUID, isTyping bool) error {
	data, err := json.Marshal(syncapi.Presence{PlayerID: playerID, IsTyping: isTyping})
	if err != nil {
		return fmt.Errorf("failed to encode presence: %w", err)
	}

	if err := c.nc.Publish(c.presenceSubject(roomID), data); err != nil {
		return fmt.Errorf("failed to publish presence: %w", err)
	}

	metrics.RecordPresenceUpdate()
	return nil
}

// SubscribePresence starts the ephemeral presence feed for a room.
func (c *Client) SubscribePresence(_ context.Context, roomID uuid.UUID) (syncapi.PresenceSubscription, error) {
	ch := make(chan syncapi.Presence, c.cfg.presenceBuffer)
	sub := &presenceSubscription{ch: ch}

	natsSub, err := c.nc.Subscribe(c.presenceSubject(roomID), func(msg *nats.Msg) {
		var p syncapi.Presence
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		select {
		case ch <- p:
		default:
			// Presence is best effort; a slow consumer just misses a tick.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to presence: %w", err)
	}
	sub.natsSub = natsSub

	return sub, nil
}

// Close drains the NATS connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.nc.Close()
	})
	return nil
}

// getRoom reads and decodes a room record under the given key.
func (c *Client) getRoom(ctx context.Context, key string) (model.Room, error) {
	entry, err := c.rooms.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return model.Room{}, fmt.Errorf("room %s: %w", key, syncapi.ErrNotFound)
		}
		return model.Room{}, fmt.Errorf("failed to read room: %w", err)
	}

	var room model.Room
	if err := json.Unmarshal(entry.Value(), &room); err != nil {
		return model.Room{}, fmt.Errorf("failed to decode room: %w", err)
	}
	return room, nil
}

func (c *Client) presenceSubject(roomID uuid.UUID) string {
	return fmt.Sprintf("%s.%s", c.cfg.presencePrefix, roomID)
}

func roomCodeKey(code string) string { return keyByCode + "." + code }

func roomIDKey(id uuid.UUID) string { return keyByID + "." + id.String() }

// readAll decodes every record of the room from a bucket into out.
func readAll[T any](ctx context.Context, kv jetstream.KeyValue, roomID uuid.UUID, out *[]T) error {
	lister, err := kv.ListKeysFiltered(ctx, roomID.String()+".>")
	if err != nil {
		return err
	}
	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		entry, err := kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				// Deleted between list and get; skip.
				continue
			}
			return err
		}

		var rec T
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			return err
		}
		*out = append(*out, rec)
	}

	return nil
}

// subscription fans multiple bucket watchers into one change channel.
type subscription struct {
	ch       chan syncapi.Change
	watchers []jetstream.KeyWatcher
	wg       gosync.WaitGroup
	once     gosync.Once
}

func (s *subscription) Changes() <-chan syncapi.Change { return s.ch }

func (s *subscription) Close() {
	s.once.Do(s.stopWatchers)
}

func (s *subscription) stopWatchers() {
	for _, w := range s.watchers {
		_ = w.Stop()
	}
}

// forward turns a watcher's entries into table-level change notifications.
func (s *subscription) forward(w jetstream.KeyWatcher, roomID uuid.UUID, table syncapi.Table) {
	defer s.wg.Done()

	for entry := range w.Updates() {
		if entry == nil {
			// Initial-replay marker.
			continue
		}

		metrics.RecordChangeNotification(string(table))
		select {
		case s.ch <- syncapi.Change{RoomID: roomID, Table: table}:
		default:
			metrics.RecordChangeDropped()
		}
	}
}

// presenceSubscription adapts a core NATS subscription to the boundary.
type presenceSubscription struct {
	ch      chan syncapi.Presence
	natsSub *nats.Subscription
	once    gosync.Once
}

func (p *presenceSubscription) Updates() <-chan syncapi.Presence { return p.ch }

func (p *presenceSubscription) Close() {
	p.once.Do(func() {
		_ = p.natsSub.Unsubscribe()
		close(p.ch)
	})
}
