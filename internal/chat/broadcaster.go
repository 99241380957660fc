// Package chat fans analysis-enriched chat messages out to room members with
// per-sender rate limiting. Transport is a collaborator: connections only
// need a Send method.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ClaudioL888/empathia/internal/models"
)

const (
	historyLimit       = 20
	defaultSendTimeout = 5 * time.Second
)

// Conn is one live connection. Send pushes a JSON-serializable event; it may
// block, so broadcasts bound it with their own timeout.
type Conn interface {
	Send(v any) error
}

// MessageStore persists chat messages and serves recent history, oldest
// first.
type MessageStore interface {
	Add(ctx context.Context, message *models.ChatMessage) error
	Recent(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error)
}

// Analyzer produces the analysis result for one message text.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (*models.AnalysisResult, error)
}

type Broadcaster struct {
	analyzer    Analyzer
	store       MessageStore
	limiter     *RateLimiter
	sendTimeout time.Duration

	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{}
}

func NewBroadcaster(analyzer Analyzer, store MessageStore, limiter *RateLimiter) *Broadcaster {
	if limiter == nil {
		limiter = RateLimiterFromEnv()
	}
	return &Broadcaster{
		analyzer:    analyzer,
		store:       store,
		limiter:     limiter,
		sendTimeout: defaultSendTimeout,
		rooms:       make(map[string]map[Conn]struct{}),
	}
}

// Connect registers the connection in the room and replays recent history to
// the newly joined connection only.
func (b *Broadcaster) Connect(ctx context.Context, roomID string, conn Conn) error {
	b.mu.Lock()
	room := b.rooms[roomID]
	if room == nil {
		room = make(map[Conn]struct{})
		b.rooms[roomID] = room
	}
	room[conn] = struct{}{}
	b.mu.Unlock()

	history, err := b.store.Recent(ctx, roomID, historyLimit)
	if err != nil {
		return fmt.Errorf("[Broadcaster] Failed to load room history: %w", err)
	}
	for i := range history {
		if err := conn.Send(&history[i]); err != nil {
			slog.Warn("[Broadcaster] History replay send failed",
				slog.String("room_id", roomID),
				slog.String("error", err.Error()))
			break
		}
	}
	return nil
}

// Disconnect removes the connection; the room entry disappears with its last
// member.
func (b *Broadcaster) Disconnect(roomID string, conn Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room, ok := b.rooms[roomID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// RoomSize reports the live connection count for a room.
func (b *Broadcaster) RoomSize(roomID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[roomID])
}

// HandleMessage applies the rate limit, analyzes the text, persists the chat
// record, and broadcasts it to the room. A limited sender gets the error
// event alone: no broadcast, no persistence.
func (b *Broadcaster) HandleMessage(ctx context.Context, sender Conn, msg models.InboundMessage) error {
	if !b.limiter.Allow(msg.UserID) {
		if err := sender.Send(models.NewRateLimitEvent()); err != nil {
			slog.Warn("[Broadcaster] Failed to deliver rate-limit event",
				slog.String("user_id", msg.UserID),
				slog.String("error", err.Error()))
		}
		return nil
	}

	result, err := b.analyzer.AnalyzeText(ctx, msg.Text)
	if result == nil {
		return fmt.Errorf("[Broadcaster] Analysis failed: %w", err)
	}
	if err != nil {
		// Result persistence already surfaced the error; the chat flow
		// continues with the derived values.
		slog.Warn("[Broadcaster] Analysis persisted with error",
			slog.String("error", err.Error()))
	}

	message := &models.ChatMessage{
		MessageID:         result.RequestID,
		RoomID:            msg.RoomID,
		UserID:            msg.UserID,
		Text:              msg.Text,
		Sentiment:         result.Sentiment.Label,
		CrisisProbability: result.Crisis.Probability,
		CreatedAt:         time.Now().UTC(),
	}
	if err := b.store.Add(ctx, message); err != nil {
		return fmt.Errorf("[Broadcaster] Failed to persist chat message: %w", err)
	}

	b.Broadcast(message.RoomID, message)
	return nil
}

// Broadcast fans payload out to every connection registered in the room at
// call time. Delivery is best effort: each send runs independently with its
// own timeout, and one failure never stalls siblings.
func (b *Broadcaster) Broadcast(roomID string, payload any) {
	b.mu.RLock()
	conns := make([]Conn, 0, len(b.rooms[roomID]))
	for conn := range b.rooms[roomID] {
		conns = append(conns, conn)
	}
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn Conn) {
			defer wg.Done()
			if err := b.sendWithTimeout(conn, payload); err != nil {
				slog.Warn("[Broadcaster] Delivery failed",
					slog.String("room_id", roomID),
					slog.String("error", err.Error()))
			}
		}(conn)
	}
	wg.Wait()
}

func (b *Broadcaster) sendWithTimeout(conn Conn, payload any) error {
	done := make(chan error, 1)
	go func() {
		done <- conn.Send(payload)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(b.sendTimeout):
		return fmt.Errorf("send timed out after %s", b.sendTimeout)
	}
}
