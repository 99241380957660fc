package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ClaudioL888/empathia/internal/clients"
	"github.com/ClaudioL888/empathia/internal/models"
)

// FilterAuditStore implements filter.AuditStore.
type FilterAuditStore struct {
	client *dynamodb.Client
}

func NewFilterAuditStore() *FilterAuditStore {
	return &FilterAuditStore{client: clients.GetDynamoDBClient()}
}

type auditItem struct {
	RequestID string `dynamodbav:"request_id"`
	TextHash  string `dynamodbav:"text_hash"`
	Decision  string `dynamodbav:"decision"`
	CreatedAt int64  `dynamodbav:"created_at"`
	Document  string `dynamodbav:"document"`
}

func (s *FilterAuditStore) SaveAudit(ctx context.Context, audit *models.FilterAudit) error {
	doc, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to marshal audit: %w", err)
	}
	av, err := attributevalue.MarshalMap(auditItem{
		RequestID: audit.RequestID,
		TextHash:  audit.TextHash,
		Decision:  audit.Decision,
		CreatedAt: audit.CreatedAt.UnixNano(),
		Document:  string(doc),
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to marshal audit item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(FILTER_AUDITS_TABLE_NAME),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to store audit: %w", err)
	}
	return nil
}

func (s *FilterAuditStore) AuditByRequestID(ctx context.Context, requestID string) (*models.FilterAudit, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(FILTER_AUDITS_TABLE_NAME),
		Key: map[string]types.AttributeValue{
			"request_id": &types.AttributeValueMemberS{Value: requestID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] Audit lookup failed: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var item auditItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal audit item: %w", err)
	}
	var audit models.FilterAudit
	if err := json.Unmarshal([]byte(item.Document), &audit); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal audit document: %w", err)
	}
	return &audit, nil
}
