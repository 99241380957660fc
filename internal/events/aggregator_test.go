package events

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ClaudioL888/empathia/internal/models"
)

type mockResultSource struct {
	results []models.AnalysisResult
	err     error
}

func (m *mockResultSource) ResultsSince(ctx context.Context, since time.Time, keyword string) ([]models.AnalysisResult, error) {
	return m.results, m.err
}

type mockSnapshotStore struct {
	mu      sync.Mutex
	saved   []*models.EventSnapshot
	latest  *models.EventSnapshot
	saveErr error
}

func (m *mockSnapshotStore) Latest(ctx context.Context, keyword string) (*models.EventSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, nil
}

func (m *mockSnapshotStore) Save(ctx context.Context, snapshot *models.EventSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, snapshot)
	return nil
}

func resultAt(t time.Time, label models.SentimentLabel, crisis float64, text string) models.AnalysisResult {
	return models.AnalysisResult{
		RequestID: models.NewRequestID(),
		Text:      text,
		Sentiment: models.SentimentResult{Label: label},
		Crisis:    models.CrisisResult{Probability: crisis},
		CreatedAt: t,
	}
}

func fixedAggregator(source ResultSource, snapshots SnapshotStore, now time.Time) *Aggregator {
	a := NewAggregator(source, snapshots)
	a.now = func() time.Time { return now }
	return a
}

func TestAnalyzeEventBuildsSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 30, 0, 0, time.UTC)
	source := &mockResultSource{results: []models.AnalysisResult{
		resultAt(now.Add(-90*time.Minute), models.LabelPositive, 0.1, "doing fine"),
		resultAt(now.Add(-85*time.Minute), models.LabelNegative, 0.8, "really struggling"),
		resultAt(now.Add(-30*time.Minute), models.LabelNeutral, 0.4, "not sure"),
	}}
	store := &mockSnapshotStore{}
	a := fixedAggregator(source, store, now)

	snapshot, err := a.AnalyzeEvent(context.Background(), "support", 24)
	if err != nil {
		t.Fatalf("AnalyzeEvent: %v", err)
	}

	if snapshot.Keyword != "support" {
		t.Errorf("keyword = %q", snapshot.Keyword)
	}
	if !snapshot.WindowEnd.Equal(now) || !snapshot.WindowStart.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("window = [%v, %v)", snapshot.WindowStart, snapshot.WindowEnd)
	}

	// Two hour buckets, ascending, shares summing to 1 each.
	if len(snapshot.EmotionSeries) != 2 {
		t.Fatalf("series length = %d", len(snapshot.EmotionSeries))
	}
	first := snapshot.EmotionSeries[0]
	if !first.Timestamp.Before(snapshot.EmotionSeries[1].Timestamp) {
		t.Error("series not ascending")
	}
	if math.Abs(first.Positive+first.Neutral+first.Negative-1) > 1e-9 {
		t.Errorf("bucket shares sum to %v", first.Positive+first.Neutral+first.Negative)
	}
	if first.Positive != 0.5 || first.Negative != 0.5 {
		t.Errorf("first bucket = %+v", first)
	}

	if snapshot.CrisisSummary.MaxProbability != 0.8 {
		t.Errorf("max probability = %v", snapshot.CrisisSummary.MaxProbability)
	}
	if snapshot.CrisisSummary.HighRiskCount != 1 {
		t.Errorf("high risk count = %d", snapshot.CrisisSummary.HighRiskCount)
	}
	wantAvg := (0.1 + 0.8 + 0.4) / 3
	if math.Abs(snapshot.CrisisSummary.AvgProbability-wantAvg) > 1e-9 {
		t.Errorf("avg probability = %v, want %v", snapshot.CrisisSummary.AvgProbability, wantAvg)
	}

	// Quotes ordered by crisis probability descending.
	if len(snapshot.RepresentativeQuotes) != 3 {
		t.Fatalf("quotes length = %d", len(snapshot.RepresentativeQuotes))
	}
	if snapshot.RepresentativeQuotes[0].Text != "really struggling" {
		t.Errorf("top quote = %q", snapshot.RepresentativeQuotes[0].Text)
	}

	if len(snapshot.NetworkGraph.Nodes) != 3 {
		t.Errorf("graph nodes = %v", snapshot.NetworkGraph.Nodes)
	}
	if len(snapshot.NetworkGraph.Edges) != 3 {
		t.Errorf("graph edges = %v", snapshot.NetworkGraph.Edges)
	}

	if len(store.saved) != 1 {
		t.Errorf("snapshot not appended to store")
	}
}

func TestAnalyzeEventCapsQuotesAtFive(t *testing.T) {
	now := time.Now()
	var results []models.AnalysisResult
	for i := 0; i < 8; i++ {
		results = append(results, resultAt(now.Add(-time.Minute), models.LabelNeutral, float64(i)/10, "quote"))
	}
	a := fixedAggregator(&mockResultSource{results: results}, &mockSnapshotStore{}, now)

	snapshot, err := a.AnalyzeEvent(context.Background(), "k", 1)
	if err != nil {
		t.Fatalf("AnalyzeEvent: %v", err)
	}
	if len(snapshot.RepresentativeQuotes) != 5 {
		t.Errorf("quotes length = %d, want 5", len(snapshot.RepresentativeQuotes))
	}
	if snapshot.RepresentativeQuotes[0].CrisisProbability != 0.7 {
		t.Errorf("top quote probability = %v", snapshot.RepresentativeQuotes[0].CrisisProbability)
	}
}

func TestAnalyzeEventServesCachedSnapshotWhenEmpty(t *testing.T) {
	now := time.Now()
	prior := &models.EventSnapshot{Keyword: "k", WindowEnd: now.Add(-2 * time.Hour)}
	store := &mockSnapshotStore{latest: prior}
	a := fixedAggregator(&mockResultSource{}, store, now)

	snapshot, err := a.AnalyzeEvent(context.Background(), "k", 24)
	if err != nil {
		t.Fatalf("AnalyzeEvent: %v", err)
	}
	if snapshot != prior {
		t.Error("cached snapshot not served")
	}
	if len(store.saved) != 0 {
		t.Error("empty window appended a snapshot")
	}
}

func TestAnalyzeEventEmptyInsight(t *testing.T) {
	now := time.Now()
	a := fixedAggregator(&mockResultSource{}, &mockSnapshotStore{}, now)

	snapshot, err := a.AnalyzeEvent(context.Background(), "nothing", 24)
	if err != nil {
		t.Fatalf("AnalyzeEvent: %v", err)
	}
	if snapshot.EmotionSeries == nil || snapshot.RepresentativeQuotes == nil ||
		snapshot.NetworkGraph.Nodes == nil || snapshot.NetworkGraph.Edges == nil {
		t.Error("empty insight has nil slices")
	}
	if len(snapshot.EmotionSeries) != 0 {
		t.Errorf("empty insight has series: %v", snapshot.EmotionSeries)
	}
}

func TestAnalyzeEventReturnsSnapshotWithSaveError(t *testing.T) {
	now := time.Now()
	source := &mockResultSource{results: []models.AnalysisResult{
		resultAt(now.Add(-time.Minute), models.LabelNeutral, 0.2, "text"),
	}}
	a := fixedAggregator(source, &mockSnapshotStore{saveErr: errors.New("dynamo down")}, now)

	snapshot, err := a.AnalyzeEvent(context.Background(), "k", 1)
	if err == nil {
		t.Error("save failure not surfaced")
	}
	if snapshot == nil {
		t.Fatal("computed snapshot dropped on save failure")
	}
	if len(snapshot.RepresentativeQuotes) != 1 {
		t.Errorf("snapshot incomplete: %+v", snapshot)
	}
}

func TestAnalyzeEventWindowQueryError(t *testing.T) {
	a := fixedAggregator(&mockResultSource{err: errors.New("scan failed")}, &mockSnapshotStore{}, time.Now())
	if _, err := a.AnalyzeEvent(context.Background(), "k", 1); err == nil {
		t.Error("window query error swallowed")
	}
}

func TestBuildSentimentGraph(t *testing.T) {
	quotes := []models.RepresentativeQuote{
		{Label: models.LabelNegative},
		{Label: models.LabelNegative},
		{Label: models.LabelPositive},
	}
	graph := BuildSentimentGraph(quotes)

	if len(graph.Nodes) != 2 {
		t.Fatalf("nodes = %v", graph.Nodes)
	}
	if graph.Nodes[0].ID != "negative" || graph.Nodes[0].Size != 2 {
		t.Errorf("first node = %+v", graph.Nodes[0])
	}
	if len(graph.Edges) != 1 || graph.Edges[0].Weight != 1 {
		t.Errorf("edges = %v", graph.Edges)
	}
}

func TestBuildSentimentGraphSingleLabel(t *testing.T) {
	graph := BuildSentimentGraph([]models.RepresentativeQuote{{Label: models.LabelNeutral}})
	if len(graph.Nodes) != 1 {
		t.Errorf("nodes = %v", graph.Nodes)
	}
	if len(graph.Edges) != 0 {
		t.Errorf("single label produced edges: %v", graph.Edges)
	}
}
