package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ClaudioL888/empathia/internal/clients"
	"github.com/ClaudioL888/empathia/internal/models"
)

// EventSnapshotStore implements events.SnapshotStore and
// search.SnapshotSearcher. Snapshots are keyed by keyword with window end as
// the sort key, so the latest snapshot is a single descending query. A Valkey
// cache fronts Latest; cache misses and write-through failures fall back to
// DynamoDB silently.
type EventSnapshotStore struct {
	client *dynamodb.Client
	cache  *clients.ValkeyClient
}

// NewEventSnapshotStore builds the store. cache may be nil, which disables
// the Valkey fast path.
func NewEventSnapshotStore(cache *clients.ValkeyClient) *EventSnapshotStore {
	return &EventSnapshotStore{client: clients.GetDynamoDBClient(), cache: cache}
}

type snapshotItem struct {
	Keyword     string `dynamodbav:"keyword"`
	WindowEnd   int64  `dynamodbav:"window_end"`
	WindowStart int64  `dynamodbav:"window_start"`
	Document    string `dynamodbav:"document"`
}

func toSnapshotItem(snapshot *models.EventSnapshot) (snapshotItem, error) {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return snapshotItem{}, fmt.Errorf("[DynamoDB] Failed to marshal snapshot: %w", err)
	}
	return snapshotItem{
		Keyword:     snapshot.Keyword,
		WindowEnd:   snapshot.WindowEnd.UnixNano(),
		WindowStart: snapshot.WindowStart.UnixNano(),
		Document:    string(doc),
	}, nil
}

func (it snapshotItem) toSnapshot() (*models.EventSnapshot, error) {
	var snapshot models.EventSnapshot
	if err := json.Unmarshal([]byte(it.Document), &snapshot); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal snapshot document: %w", err)
	}
	return &snapshot, nil
}

func (s *EventSnapshotStore) Save(ctx context.Context, snapshot *models.EventSnapshot) error {
	item, err := toSnapshotItem(snapshot)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to marshal snapshot item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(EVENT_SNAPSHOTS_TABLE_NAME),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to store snapshot: %w", err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.CacheLatestSnapshot(ctx, snapshot); cacheErr != nil {
			slog.Warn("[DynamoDB] Snapshot cache write failed, continuing",
				slog.String("keyword", snapshot.Keyword),
				slog.String("error", cacheErr.Error()))
		}
	}
	return nil
}

// Latest returns the snapshot with the newest window end for the keyword, or
// (nil, nil) when none exists.
func (s *EventSnapshotStore) Latest(ctx context.Context, keyword string) (*models.EventSnapshot, error) {
	if s.cache != nil {
		if cached, ok := s.cache.CachedLatestSnapshot(ctx, keyword); ok {
			return cached, nil
		}
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(EVENT_SNAPSHOTS_TABLE_NAME),
		KeyConditionExpression: aws.String("keyword = :kw"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kw": &types.AttributeValueMemberS{Value: keyword},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] Latest snapshot query failed: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var item snapshotItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal snapshot item: %w", err)
	}
	return item.toSnapshot()
}

// Search scans snapshots whose keyword contains the query substring, newest
// window first, then applies offset paging.
func (s *EventSnapshotStore) Search(ctx context.Context, keyword string, limit, offset int) ([]models.EventSnapshot, error) {
	snapshots, err := s.scanMatching(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if offset >= len(snapshots) {
		return []models.EventSnapshot{}, nil
	}
	end := offset + limit
	if end > len(snapshots) {
		end = len(snapshots)
	}
	return snapshots[offset:end], nil
}

func (s *EventSnapshotStore) Count(ctx context.Context, keyword string) (int, error) {
	snapshots, err := s.scanMatching(ctx, keyword)
	if err != nil {
		return 0, err
	}
	return len(snapshots), nil
}

func (s *EventSnapshotStore) scanMatching(ctx context.Context, keyword string) ([]models.EventSnapshot, error) {
	var snapshots []models.EventSnapshot
	keywordLower := strings.ToLower(keyword)

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(EVENT_SNAPSHOTS_TABLE_NAME),
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Snapshot scan failed: %w", err)
		}
		var page []snapshotItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal snapshot page: %w", err)
		}
		for _, item := range page {
			if keyword != "" && !strings.Contains(strings.ToLower(item.Keyword), keywordLower) {
				continue
			}
			snapshot, err := item.toSnapshot()
			if err != nil {
				slog.Warn("[DynamoDB] Skipping unreadable snapshot item",
					slog.String("keyword", item.Keyword))
				continue
			}
			snapshots = append(snapshots, *snapshot)
		}
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].WindowEnd.After(snapshots[j].WindowEnd)
	})
	return snapshots, nil
}
