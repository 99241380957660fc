package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ClaudioL888/empathia/internal/models"
)

type mockConn struct {
	mu       sync.Mutex
	received []any
	sendErr  error
	delay    time.Duration
}

func (c *mockConn) Send(v any) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.received = append(c.received, v)
	return nil
}

func (c *mockConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func (c *mockConn) last() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.received) == 0 {
		return nil
	}
	return c.received[len(c.received)-1]
}

type mockMessageStore struct {
	mu      sync.Mutex
	added   []*models.ChatMessage
	history []models.ChatMessage
	addErr  error
}

func (m *mockMessageStore) Add(ctx context.Context, message *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, message)
	return nil
}

func (m *mockMessageStore) Recent(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) > limit {
		return m.history[len(m.history)-limit:], nil
	}
	return m.history, nil
}

type mockAnalyzer struct {
	result *models.AnalysisResult
	err    error
}

func (a *mockAnalyzer) AnalyzeText(ctx context.Context, text string) (*models.AnalysisResult, error) {
	return a.result, a.err
}

func negativeResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		RequestID: models.NewRequestID(),
		Sentiment: models.SentimentResult{Label: models.LabelNegative, Confidence: 0.9},
		Crisis:    models.CrisisResult{Probability: 0.2},
	}
}

func TestHandleMessageBroadcastsToRoom(t *testing.T) {
	store := &mockMessageStore{}
	b := NewBroadcaster(&mockAnalyzer{result: negativeResult()}, store, NewRateLimiter(100, time.Minute))

	sender := &mockConn{}
	peer := &mockConn{}
	if err := b.Connect(context.Background(), "room-1", sender); err != nil {
		t.Fatal(err)
	}
	if err := b.Connect(context.Background(), "room-1", peer); err != nil {
		t.Fatal(err)
	}
	outsider := &mockConn{}
	if err := b.Connect(context.Background(), "room-2", outsider); err != nil {
		t.Fatal(err)
	}

	err := b.HandleMessage(context.Background(), sender, models.InboundMessage{
		RoomID: "room-1", UserID: "alice", Text: "I feel bad today",
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if sender.count() != 1 || peer.count() != 1 {
		t.Errorf("room members got %d/%d messages, want 1/1", sender.count(), peer.count())
	}
	if outsider.count() != 0 {
		t.Error("message leaked into another room")
	}

	message, ok := peer.last().(*models.ChatMessage)
	if !ok {
		t.Fatalf("payload type %T", peer.last())
	}
	if message.Sentiment != models.LabelNegative || message.CrisisProbability != 0.2 {
		t.Errorf("message not enriched: %+v", message)
	}
	if len(store.added) != 1 {
		t.Errorf("message not persisted")
	}
}

func TestHandleMessageRateLimited(t *testing.T) {
	store := &mockMessageStore{}
	b := NewBroadcaster(&mockAnalyzer{result: negativeResult()}, store, NewRateLimiter(1, time.Minute))

	sender := &mockConn{}
	peer := &mockConn{}
	b.Connect(context.Background(), "room-1", sender)
	b.Connect(context.Background(), "room-1", peer)

	msg := models.InboundMessage{RoomID: "room-1", UserID: "alice", Text: "hi"}
	if err := b.HandleMessage(context.Background(), sender, msg); err != nil {
		t.Fatal(err)
	}
	if err := b.HandleMessage(context.Background(), sender, msg); err != nil {
		t.Fatal(err)
	}

	// The second message gets the rate-limit event on the sender only.
	if sender.count() != 2 {
		t.Fatalf("sender got %d events, want 2", sender.count())
	}
	event, ok := sender.last().(models.ErrorEvent)
	if !ok {
		t.Fatalf("payload type %T", sender.last())
	}
	if event.Code != models.RateLimitCode {
		t.Errorf("event code = %q", event.Code)
	}
	if peer.count() != 1 {
		t.Errorf("peer got %d messages, want 1", peer.count())
	}
	if len(store.added) != 1 {
		t.Errorf("rate-limited message persisted")
	}
}

func TestHandleMessageAnalysisFailure(t *testing.T) {
	b := NewBroadcaster(&mockAnalyzer{err: errors.New("pipeline down")}, &mockMessageStore{}, nil)
	sender := &mockConn{}
	b.Connect(context.Background(), "r", sender)

	err := b.HandleMessage(context.Background(), sender, models.InboundMessage{RoomID: "r", UserID: "u", Text: "x"})
	if err == nil {
		t.Error("nil-result analysis not reported")
	}
}

func TestHandleMessagePersistFailureSkipsBroadcast(t *testing.T) {
	store := &mockMessageStore{addErr: errors.New("dynamo down")}
	b := NewBroadcaster(&mockAnalyzer{result: negativeResult()}, store, nil)

	sender := &mockConn{}
	peer := &mockConn{}
	b.Connect(context.Background(), "r", sender)
	b.Connect(context.Background(), "r", peer)

	err := b.HandleMessage(context.Background(), sender, models.InboundMessage{RoomID: "r", UserID: "u", Text: "x"})
	if err == nil {
		t.Error("persistence failure swallowed")
	}
	if peer.count() != 0 {
		t.Error("unpersisted message broadcast")
	}
}

func TestConnectReplaysHistoryToJoinerOnly(t *testing.T) {
	store := &mockMessageStore{history: []models.ChatMessage{
		{RoomID: "r", Text: "first"},
		{RoomID: "r", Text: "second"},
	}}
	b := NewBroadcaster(&mockAnalyzer{result: negativeResult()}, store, nil)

	existing := &mockConn{}
	b.Connect(context.Background(), "r", existing)
	existingBefore := existing.count()

	joiner := &mockConn{}
	if err := b.Connect(context.Background(), "r", joiner); err != nil {
		t.Fatal(err)
	}

	if joiner.count() != 2 {
		t.Errorf("joiner got %d history messages, want 2", joiner.count())
	}
	if existing.count() != existingBefore {
		t.Error("history re-broadcast to existing member")
	}
	first, ok := joiner.received[0].(*models.ChatMessage)
	if !ok || first.Text != "first" {
		t.Errorf("history out of order: %+v", joiner.received)
	}
}

func TestBroadcastSurvivesFailingConn(t *testing.T) {
	b := NewBroadcaster(&mockAnalyzer{result: negativeResult()}, &mockMessageStore{}, nil)

	broken := &mockConn{sendErr: errors.New("closed")}
	healthy := &mockConn{}
	b.Connect(context.Background(), "r", broken)
	b.Connect(context.Background(), "r", healthy)

	b.Broadcast("r", "payload")
	if healthy.count() != 1 {
		t.Errorf("healthy conn got %d messages", healthy.count())
	}
}

func TestBroadcastTimesOutSlowConn(t *testing.T) {
	b := NewBroadcaster(&mockAnalyzer{result: negativeResult()}, &mockMessageStore{}, nil)
	b.sendTimeout = 20 * time.Millisecond

	slow := &mockConn{delay: 200 * time.Millisecond}
	fast := &mockConn{}
	b.Connect(context.Background(), "r", slow)
	b.Connect(context.Background(), "r", fast)

	start := time.Now()
	b.Broadcast("r", "payload")
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("broadcast blocked on slow conn for %v", elapsed)
	}
	if fast.count() != 1 {
		t.Errorf("fast conn got %d messages", fast.count())
	}
}

func TestDisconnectPrunesRoom(t *testing.T) {
	b := NewBroadcaster(&mockAnalyzer{result: negativeResult()}, &mockMessageStore{}, nil)

	conn := &mockConn{}
	b.Connect(context.Background(), "r", conn)
	if b.RoomSize("r") != 1 {
		t.Fatalf("room size = %d", b.RoomSize("r"))
	}

	b.Disconnect("r", conn)
	if b.RoomSize("r") != 0 {
		t.Errorf("room size after disconnect = %d", b.RoomSize("r"))
	}
}
