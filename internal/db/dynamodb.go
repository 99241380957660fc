// Package db implements the persistence contracts of the core packages
// against DynamoDB, with a Valkey fast path for latest-snapshot lookups.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ClaudioL888/empathia/internal/clients"
	"github.com/ClaudioL888/empathia/internal/models"
)

func nanoTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

const (
	ANALYSIS_LOGS_TABLE_NAME   = "AnalysisLogs"
	CHAT_MESSAGES_TABLE_NAME   = "ChatMessages"
	EVENT_SNAPSHOTS_TABLE_NAME = "EventSnapshots"
	FILTER_AUDITS_TABLE_NAME   = "FilterAudits"
)

// analysisItem flattens an AnalysisResult for storage; the nested structures
// ride along as a JSON document attribute.
type analysisItem struct {
	RequestID         string  `dynamodbav:"request_id"`
	TextHash          string  `dynamodbav:"text_hash"`
	Text              string  `dynamodbav:"text"`
	Label             string  `dynamodbav:"label"`
	EmpathyScore      float64 `dynamodbav:"empathy_score"`
	CrisisProbability float64 `dynamodbav:"crisis_probability"`
	CreatedAt         int64   `dynamodbav:"created_at"`
	Document          string  `dynamodbav:"document"`
}

func toAnalysisItem(result *models.AnalysisResult) (analysisItem, error) {
	doc, err := json.Marshal(result)
	if err != nil {
		return analysisItem{}, fmt.Errorf("[DynamoDB] Failed to marshal analysis result: %w", err)
	}
	return analysisItem{
		RequestID:         result.RequestID,
		TextHash:          result.TextHash,
		Text:              result.Text,
		Label:             string(result.Sentiment.Label),
		EmpathyScore:      result.Empathy.Score,
		CrisisProbability: result.Crisis.Probability,
		CreatedAt:         result.CreatedAt.UnixNano(),
		Document:          string(doc),
	}, nil
}

func (it analysisItem) toResult() (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(it.Document), &result); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal analysis document: %w", err)
	}
	return &result, nil
}

// AnalysisLogStore implements pipeline.AnalysisStore and
// events.ResultSource.
type AnalysisLogStore struct {
	client *dynamodb.Client
}

func NewAnalysisLogStore() *AnalysisLogStore {
	return &AnalysisLogStore{client: clients.GetDynamoDBClient()}
}

func (s *AnalysisLogStore) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	item, err := toAnalysisItem(result)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to marshal analysis item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ANALYSIS_LOGS_TABLE_NAME),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to store analysis result: %w", err)
	}
	return nil
}

// SaveResults batch-writes analysis results, retrying unprocessed items with
// doubling backoff.
func (s *AnalysisLogStore) SaveResults(ctx context.Context, results []models.AnalysisResult) error {
	const maxBatchSize = 25
	for i := 0; i < len(results); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(results) {
			end = len(results)
		}

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for j := i; j < end; j++ {
			item, err := toAnalysisItem(&results[j])
			if err != nil {
				return err
			}
			av, err := attributevalue.MarshalMap(item)
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to marshal analysis item: %w", err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: av},
			})
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				ANALYSIS_LOGS_TABLE_NAME: writeRequests,
			},
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to batch write analysis results: %w", err)
		}

		retryCount := 0
		backoff := 500 * time.Millisecond
		for len(out.UnprocessedItems) > 0 && retryCount < 3 {
			time.Sleep(backoff)
			backoff *= 2
			slog.Warn("[DynamoDB] Retrying unprocessed analysis items...",
				slog.Int("attempt", retryCount+1),
				slog.Int("remaining", len(out.UnprocessedItems[ANALYSIS_LOGS_TABLE_NAME])))

			out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: out.UnprocessedItems,
			})
			if err != nil {
				return fmt.Errorf("[DynamoDB] Retry error: %w", err)
			}
			retryCount++
		}
		if len(out.UnprocessedItems) > 0 {
			slog.Error("[DynamoDB] Some analysis items failed after retries",
				slog.Int("remaining", len(out.UnprocessedItems[ANALYSIS_LOGS_TABLE_NAME])))
		}
	}
	return nil
}

func (s *AnalysisLogStore) ResultByRequestID(ctx context.Context, requestID string) (*models.AnalysisResult, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ANALYSIS_LOGS_TABLE_NAME),
		Key: map[string]types.AttributeValue{
			"request_id": &types.AttributeValueMemberS{Value: requestID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] Lookup by request id failed: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var item analysisItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal analysis item: %w", err)
	}
	return item.toResult()
}

// ResultsSince scans the window [since, now), optionally filtered by keyword
// substring, ordered by creation time ascending.
func (s *AnalysisLogStore) ResultsSince(ctx context.Context, since time.Time, keyword string) ([]models.AnalysisResult, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(ANALYSIS_LOGS_TABLE_NAME),
		FilterExpression: aws.String("created_at >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":since": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", since.UnixNano())},
		},
	}

	var results []models.AnalysisResult
	keywordLower := strings.ToLower(keyword)
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan for analysis results failed: %w", err)
		}
		var page []analysisItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal analysis page: %w", err)
		}
		for _, item := range page {
			if keyword != "" && !strings.Contains(strings.ToLower(item.Text), keywordLower) {
				continue
			}
			result, err := item.toResult()
			if err != nil {
				slog.Warn("[DynamoDB] Skipping unreadable analysis item",
					slog.String("request_id", item.RequestID))
				continue
			}
			results = append(results, *result)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}
