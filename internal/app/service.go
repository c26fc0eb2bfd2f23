// Package service wires one client node of the game engine: a sync client,
// the change queue feeding the reconciliation coordinator, the prompt
// corpus, and the presence tracker, behind the operations a front end calls.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mouton/internal/adapters/mq/queue"
	syncapi "github.com/okian/mouton/internal/adapters/sync"
	"github.com/okian/mouton/internal/adapters/sync/memory"
	"github.com/okian/mouton/internal/coordinator"
	"github.com/okian/mouton/internal/domain/dedupe"
	"github.com/okian/mouton/internal/domain/model"
	"github.com/okian/mouton/internal/domain/normalize"
	"github.com/okian/mouton/internal/domain/scoring"
	"github.com/okian/mouton/internal/domain/turn"
	"github.com/okian/mouton/internal/domain/types"
	"github.com/okian/mouton/internal/presence"
	"github.com/okian/mouton/internal/prompts"
	"github.com/okian/mouton/pkg/logger"
	"github.com/okian/mouton/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize   = 1024
	defaultDedupeSize  = 4096
	defaultPresenceTTL = 10 * time.Second
)

// session is the per-room runtime: one subscription, one queue, one
// coordinator, torn down together when the room is left.
type session struct {
	roomCode string
	self     model.Player

	sub     syncapi.Subscription
	presSub syncapi.PresenceSubscription
	queue   queue.Queue
	coord   *coordinator.Coordinator

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Service implements the game operations for one local player.
type Service struct {
	mu sync.RWMutex

	// Core components
	client  syncapi.Client
	corpus  *prompts.Corpus
	tracker *presence.Tracker

	// Configuration
	queueSize   int
	dedupeSize  int
	presenceTTL time.Duration
	promptSeed  *int64

	// State
	started bool
	session *session

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSyncClient injects the sync client. Defaults to the in-memory one.
func WithSyncClient(client syncapi.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithQueueSize sets the change queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the resolution dedupe cache size.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPresenceTTL sets how long a typing signal stays fresh.
func WithPresenceTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.presenceTTL = ttl
		}
	}
}

// WithPromptSeed fixes the prompt draw sequence, for tests and demos.
func WithPromptSeed(seed int64) Option {
	return func(s *Service) {
		s.promptSeed = &seed
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		presenceTTL: defaultPresenceTTL,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.client == nil {
		s.client = memory.NewClient()
	}

	corpusOpts := []prompts.Option{}
	if s.promptSeed != nil {
		corpusOpts = append(corpusOpts, prompts.WithSeed(*s.promptSeed))
	}
	corpus, err := prompts.Load(corpusOpts...)
	if err != nil {
		return fmt.Errorf("failed to load prompt corpus: %w", err)
	}
	s.corpus = corpus

	s.tracker = presence.NewTracker(presence.WithTTL(s.presenceTTL))

	s.started = true
	s.logger.Info(ctx, "game service started",
		logger.Int("prompts", corpus.Len()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop leaves any active room and releases the sync client.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.leaveLocked(ctx)

	if s.client != nil {
		_ = s.client.Close()
	}

	s.started = false
	s.logger.Info(ctx, "game service stopped")
}

// CreateRoom creates a room and joins it as the host.
func (s *Service) CreateRoom(ctx context.Context, code, username string) (model.Room, model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return model.Room{}, model.Player{}, ErrNotStarted
	}
	if s.session != nil {
		return model.Room{}, model.Player{}, ErrAlreadyInRoom
	}

	if _, err := s.client.CreateRoom(ctx, code); err != nil {
		return model.Room{}, model.Player{}, fmt.Errorf("failed to create room: %w", err)
	}

	return s.joinLocked(ctx, code, username)
}

// JoinRoom joins an existing room under a fresh player identity.
func (s *Service) JoinRoom(ctx context.Context, code, username string) (model.Room, model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return model.Room{}, model.Player{}, ErrNotStarted
	}
	if s.session != nil {
		return model.Room{}, model.Player{}, ErrAlreadyInRoom
	}

	return s.joinLocked(ctx, code, username)
}

// joinLocked inserts the player record and spins up the room session.
func (s *Service) joinLocked(ctx context.Context, code, username string) (model.Room, model.Player, error) {
	snap, err := s.client.ReadRoomState(ctx, code)
	if err != nil {
		return model.Room{}, model.Player{}, fmt.Errorf("failed to read room: %w", err)
	}

	// Pairs fill in arrival order: two players per pair, a new pair id
	// every second join. The first joiner hosts.
	pairID := fmt.Sprintf("pair%d", len(snap.Players)/2+1)
	player := model.Player{
		ID:       uuid.New(),
		RoomID:   snap.Room.ID,
		Username: username,
		PairID:   pairID,
		IsHost:   len(snap.Players) == 0,
	}

	if err := s.client.InsertPlayer(ctx, player); err != nil {
		return model.Room{}, model.Player{}, fmt.Errorf("failed to join room: %w", err)
	}

	if !hasScore(snap.Scores, pairID) {
		zero := 0
		err := s.client.UpsertPairScore(ctx, snap.Room.ID, pairID, syncapi.ScoreFields{
			Banked: &zero, Temp: &zero, Streak: &zero,
		})
		if err != nil {
			return model.Room{}, model.Player{}, fmt.Errorf("failed to seed pair score: %w", err)
		}
	}

	if err := s.startSessionLocked(ctx, code, player); err != nil {
		return model.Room{}, model.Player{}, err
	}

	s.logger.Info(ctx, "joined room",
		logger.String("room_code", code),
		logger.String("player_id", player.ID.String()),
		logger.String("pair_id", pairID),
		logger.Bool("host", player.IsHost),
	)

	return snap.Room, player, nil
}

// startSessionLocked wires the change feed, queue, coordinator and
// presence pump for the joined room.
func (s *Service) startSessionLocked(ctx context.Context, code string, self model.Player) error {
	sub, err := s.client.Subscribe(ctx, self.RoomID)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	presSub, err := s.client.SubscribePresence(ctx, self.RoomID)
	if err != nil {
		sub.Close()
		return fmt.Errorf("failed to subscribe to presence: %w", err)
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	deduper := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	coord := coordinator.New(s.client, q, deduper, code, self.ID)

	runCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		roomCode: code,
		self:     self,
		sub:      sub,
		presSub:  presSub,
		queue:    q,
		coord:    coord,
		cancel:   cancel,
	}

	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		coord.Run(runCtx)
	}()

	// Change pump: feed is never consumed directly, the queue's shedding
	// protects the loop under bursts.
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		for c := range sub.Changes() {
			q.Enqueue(runCtx, c)
		}
	}()

	// Presence pump.
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		for p := range presSub.Updates() {
			s.tracker.Observe(p.PlayerID, p.IsTyping)
		}
	}()

	s.session = sess
	return nil
}

// LeaveRoom tears down the active session without touching durable state.
func (s *Service) LeaveRoom(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.session == nil {
		return ErrNotInRoom
	}

	s.leaveLocked(ctx)
	return nil
}

func (s *Service) leaveLocked(ctx context.Context) {
	sess := s.session
	if sess == nil {
		return
	}

	sess.sub.Close()
	sess.presSub.Close()
	_ = sess.queue.Close()
	sess.cancel()
	_ = sess.coord.Shutdown(ctx)
	sess.wg.Wait()

	s.session = nil
}

// StartGame starts the first turn. Host only, needs a full lobby.
func (s *Service) StartGame(ctx context.Context) (model.Prompt, error) {
	return s.advanceTurn(ctx)
}

// NextTurn begins a new turn after a reveal. Any member may call it.
func (s *Service) NextTurn(ctx context.Context) (model.Prompt, error) {
	return s.advanceTurn(ctx)
}

// advanceTurn draws a prompt, validates the transition and applies its
// effect: clear answers first so no stale record can complete the new turn.
func (s *Service) advanceTurn(ctx context.Context) (model.Prompt, error) {
	sess, err := s.activeSession()
	if err != nil {
		return model.Prompt{}, err
	}

	snap, err := s.client.ReadRoomState(ctx, sess.roomCode)
	if err != nil {
		return model.Prompt{}, fmt.Errorf("failed to read room: %w", err)
	}

	prompt := s.corpus.Random()
	effect, err := turn.Advance(snap.Room, snap.Players, sess.self.ID, prompt)
	if err != nil {
		return model.Prompt{}, err
	}

	if err := s.client.DeleteAllTurnAnswers(ctx, snap.Room.ID); err != nil {
		return model.Prompt{}, fmt.Errorf("failed to clear answers: %w", err)
	}

	err = s.client.UpdateRoom(ctx, snap.Room.ID, syncapi.RoomFields{
		Status:   &effect.Status,
		PromptID: &effect.PromptID,
		Turn:     &effect.Turn,
	})
	if err != nil {
		return model.Prompt{}, fmt.Errorf("failed to start turn: %w", err)
	}

	metrics.RecordTurnStarted()
	s.logger.Info(ctx, "turn started",
		logger.String("room_code", sess.roomCode),
		logger.Int("turn", effect.Turn),
		logger.String("prompt_id", effect.PromptID.String()),
	)

	return prompt, nil
}

// SubmitAnswer normalizes and records the local player's answer for the
// active turn. Re-submitting the same turn is a silent no-op.
func (s *Service) SubmitAnswer(ctx context.Context, raw string) error {
	sess, err := s.activeSession()
	if err != nil {
		return err
	}

	snap, err := s.client.ReadRoomState(ctx, sess.roomCode)
	if err != nil {
		return fmt.Errorf("failed to read room: %w", err)
	}

	if snap.Room.Status != model.RoomStatusPlaying {
		return turn.ErrNotPlaying
	}

	answer := model.TurnAnswer{
		RoomID:     snap.Room.ID,
		PlayerID:   sess.self.ID,
		PairID:     sess.self.PairID,
		Turn:       snap.Room.Turn,
		Answer:     raw,
		Normalized: normalize.Answer(raw),
	}

	if err := s.client.InsertTurnAnswer(ctx, answer); err != nil {
		if errors.Is(err, syncapi.ErrConflict) {
			// First submission per turn wins.
			return nil
		}
		return fmt.Errorf("failed to submit answer: %w", err)
	}

	metrics.RecordAnswerSubmitted()
	return nil
}

// Secure banks the local pair's at-risk points and resets the streak.
func (s *Service) Secure(ctx context.Context) (model.PairScore, error) {
	sess, err := s.activeSession()
	if err != nil {
		return model.PairScore{}, err
	}

	snap, err := s.client.ReadRoomState(ctx, sess.roomCode)
	if err != nil {
		return model.PairScore{}, fmt.Errorf("failed to read room: %w", err)
	}

	score := model.PairScore{RoomID: snap.Room.ID, PairID: sess.self.PairID}
	for _, sc := range snap.Scores {
		if sc.PairID == sess.self.PairID {
			score = sc
			break
		}
	}

	banked := score.Temp
	next := scoring.Secure(score)

	err = s.client.UpsertPairScore(ctx, snap.Room.ID, sess.self.PairID, syncapi.ScoreFields{
		Banked: &next.Banked, Temp: &next.Temp, Streak: &next.Streak,
	})
	if err != nil {
		return model.PairScore{}, fmt.Errorf("failed to secure points: %w", err)
	}

	if banked > 0 {
		metrics.RecordPointsBanked(banked)
	}
	s.logger.Info(ctx, "points secured",
		logger.String("pair_id", sess.self.PairID),
		logger.Int("banked", banked),
	)

	return next, nil
}

// SetTyping broadcasts the local player's typing state.
func (s *Service) SetTyping(ctx context.Context, isTyping bool) error {
	sess, err := s.activeSession()
	if err != nil {
		return err
	}

	// Track locally first; the broadcast echo also lands here but the
	// tracker is last-write-wins so that is harmless.
	s.tracker.Observe(sess.self.ID, isTyping)

	if err := s.client.PublishPresence(ctx, sess.self.RoomID, sess.self.ID, isTyping); err != nil {
		return fmt.Errorf("failed to publish presence: %w", err)
	}
	return nil
}

// Typing lists the players currently composing an answer.
func (s *Service) Typing() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tracker == nil {
		return nil
	}
	return s.tracker.Typing()
}

// Resolutions exposes the pair resolutions derived by the local
// coordinator. Nil when no room is joined.
func (s *Service) Resolutions() <-chan types.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil
	}
	return s.session.coord.Resolutions()
}

// Snapshot reads the joined room's full durable state.
func (s *Service) Snapshot(ctx context.Context) (syncapi.Snapshot, error) {
	sess, err := s.activeSession()
	if err != nil {
		return syncapi.Snapshot{}, err
	}
	return s.client.ReadRoomState(ctx, sess.roomCode)
}

// Self returns the local player record. Zero-valued outside a session.
func (s *Service) Self() model.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return model.Player{}
	}
	return s.session.self
}

// Prompt resolves a prompt id against the loaded corpus.
func (s *Service) Prompt(id uuid.UUID) (model.Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.corpus == nil {
		return model.Prompt{}, false
	}
	return s.corpus.Get(id)
}

// GetStats reports runtime counters for the ops surface.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
		"in_room": s.session != nil,
	}
	if s.corpus != nil {
		stats["prompts"] = s.corpus.Len()
	}
	if s.tracker != nil {
		stats["typing"] = len(s.tracker.Typing())
	}
	if s.session != nil {
		stats["room_code"] = s.session.roomCode
		stats["queue_len"] = s.session.queue.Len(context.Background())
	}
	return stats
}

func (s *Service) activeSession() (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	if s.session == nil {
		return nil, ErrNotInRoom
	}
	return s.session, nil
}

func hasScore(scores []model.PairScore, pairID string) bool {
	for _, sc := range scores {
		if sc.PairID == pairID {
			return true
		}
	}
	return false
}
