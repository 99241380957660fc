package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ClaudioL888/empathia/internal/clients"
	"github.com/ClaudioL888/empathia/internal/models"
)

// ChatMessageStore implements chat.MessageStore. Messages are keyed by room
// with creation time as the sort key, so recent-history reads are a single
// descending query.
type ChatMessageStore struct {
	client *dynamodb.Client
}

func NewChatMessageStore() *ChatMessageStore {
	return &ChatMessageStore{client: clients.GetDynamoDBClient()}
}

type chatItem struct {
	RoomID            string  `dynamodbav:"room_id"`
	CreatedAt         int64   `dynamodbav:"created_at"`
	MessageID         string  `dynamodbav:"message_id"`
	UserID            string  `dynamodbav:"user_id"`
	Text              string  `dynamodbav:"text"`
	Sentiment         string  `dynamodbav:"sentiment"`
	CrisisProbability float64 `dynamodbav:"crisis_probability"`
}

func (s *ChatMessageStore) Add(ctx context.Context, message *models.ChatMessage) error {
	item := chatItem{
		RoomID:            message.RoomID,
		CreatedAt:         message.CreatedAt.UnixNano(),
		MessageID:         message.MessageID,
		UserID:            message.UserID,
		Text:              message.Text,
		Sentiment:         string(message.Sentiment),
		CrisisProbability: message.CrisisProbability,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to marshal chat message: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(CHAT_MESSAGES_TABLE_NAME),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to store chat message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages for the room in chronological order.
func (s *ChatMessageStore) Recent(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(CHAT_MESSAGES_TABLE_NAME),
		KeyConditionExpression: aws.String("room_id = :room"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":room": &types.AttributeValueMemberS{Value: roomID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to query chat history: %w", err)
	}

	var items []chatItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to unmarshal chat history: %w", err)
	}

	messages := make([]models.ChatMessage, 0, len(items))
	for _, item := range items {
		messages = append(messages, models.ChatMessage{
			MessageID:         item.MessageID,
			RoomID:            item.RoomID,
			UserID:            item.UserID,
			Text:              item.Text,
			Sentiment:         models.SentimentLabel(item.Sentiment),
			CrisisProbability: item.CrisisProbability,
			CreatedAt:         nanoTime(item.CreatedAt),
		})
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}
