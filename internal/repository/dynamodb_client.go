package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"portfolio-chat/internal/domain"
)

const (
	skPrefixMsg = "MSG#"
	skMeta      = "META#"
	ttlDuration = 24 * time.Hour

	// Fixed width so sort keys order lexically by time.
	sortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

	conditionFailed = "ConditionalCheckFailed"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client stores chat sessions in a single DynamoDB table. Each session has a
// META# item holding the sending flag and one MSG# item per message.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func msgSK(ts time.Time) string {
	return skPrefixMsg + ts.UTC().Format(sortKeyLayout)
}

func (c *Client) ttlValue() int64 {
	return c.now().Add(ttlDuration).Unix()
}

func (c *Client) metaKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK": &types.AttributeValueMemberS{Value: skMeta},
	}
}

// Load reads the META# item and every MSG# item in sort-key order. A session
// that was never written comes back empty with input enabled.
func (c *Client) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.Session{}, errors.New("repository: Load: session id is required")
	}

	meta, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.metaKey(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("repository: Load get meta: %w", err)
	}
	sess := domain.Session{ID: sessionID}
	if meta != nil && len(meta.Item) > 0 {
		sending, err := boolAttr(meta.Item, "sending")
		if err != nil {
			return domain.Session{}, fmt.Errorf("repository: Load decode meta: %w", err)
		}
		sess.Sending = sending
	}

	var startKey map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
			},
			ScanIndexForward:  aws.Bool(true),
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return domain.Session{}, fmt.Errorf("repository: Load query: %w", err)
		}
		for _, item := range out.Items {
			msg, err := itemToMessage(item)
			if err != nil {
				return domain.Session{}, fmt.Errorf("repository: Load unmarshal: %w", err)
			}
			sess.Messages = append(sess.Messages, msg)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return sess, nil
}

// BeginTurn writes the user message and sets sending in one transaction. The
// meta update is conditional on sending being unset, so a second turn on the
// same session fails with domain.ErrTurnInFlight and writes nothing.
func (c *Client) BeginTurn(ctx context.Context, sessionID string, msg domain.ChatMessage) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: BeginTurn: session id is required")
	}
	ttl := c.ttlValue()

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(c.tableName),
					Key:                 c.metaKey(sessionID),
					UpdateExpression:    aws.String("SET sending = :true, messages = if_not_exists(messages, :zero) + :one, lastActivity = :now, #ttl = :ttl"),
					ConditionExpression: aws.String("attribute_not_exists(sending) OR sending = :false"),
					ExpressionAttributeNames: map[string]string{
						"#ttl": "ttl",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":true":  &types.AttributeValueMemberBOOL{Value: true},
						":false": &types.AttributeValueMemberBOOL{Value: false},
						":zero":  &types.AttributeValueMemberN{Value: "0"},
						":one":   &types.AttributeValueMemberN{Value: "1"},
						":now":   &types.AttributeValueMemberS{Value: c.now().UTC().Format(time.RFC3339)},
						":ttl":   &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                messageItem(sessionID, msg, ttl),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
		},
	})
	if err != nil {
		if metaConditionFailed(err) {
			return fmt.Errorf("repository: BeginTurn: %w", domain.ErrTurnInFlight)
		}
		return fmt.Errorf("repository: BeginTurn: %w", err)
	}
	return nil
}

// SettleTurn writes the assistant message and clears sending. It is
// unconditional: the session leaves the sending state however the turn went.
func (c *Client) SettleTurn(ctx context.Context, sessionID string, msg domain.ChatMessage) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: SettleTurn: session id is required")
	}
	ttl := c.ttlValue()

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:        aws.String(c.tableName),
					Key:              c.metaKey(sessionID),
					UpdateExpression: aws.String("SET sending = :false, messages = if_not_exists(messages, :zero) + :one, lastActivity = :now, #ttl = :ttl"),
					ExpressionAttributeNames: map[string]string{
						"#ttl": "ttl",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":false": &types.AttributeValueMemberBOOL{Value: false},
						":zero":  &types.AttributeValueMemberN{Value: "0"},
						":one":   &types.AttributeValueMemberN{Value: "1"},
						":now":   &types.AttributeValueMemberS{Value: c.now().UTC().Format(time.RFC3339)},
						":ttl":   &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                messageItem(sessionID, msg, ttl),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SettleTurn: %w", err)
	}
	return nil
}

// ReleaseTurn clears sending without appending anything. Releasing a session
// that does not exist is a no-op.
func (c *Client) ReleaseTurn(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: ReleaseTurn: session id is required")
	}
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 c.metaKey(sessionID),
		UpdateExpression:    aws.String("SET sending = :false"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return fmt.Errorf("repository: ReleaseTurn: %w", err)
	}
	return nil
}

// metaConditionFailed reports whether a transaction was cancelled because the
// META# update (always the first item) failed its condition.
func metaConditionFailed(err error) bool {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return false
	}
	if len(txErr.CancellationReasons) == 0 {
		return false
	}
	return aws.ToString(txErr.CancellationReasons[0].Code) == conditionFailed
}

func itemToMessage(item map[string]types.AttributeValue) (domain.ChatMessage, error) {
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.ChatMessage{}, err
	}
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.ChatMessage{}, err
	}
	html, _ := strAttr(item, "html") // allow empty
	msg := domain.ChatMessage{
		Role: domain.Role(role),
		Text: text,
		HTML: html,
	}
	if raw, err := strAttr(item, "createdAt"); err == nil {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.ChatMessage{}, fmt.Errorf("repository: parse createdAt: %w", err)
		}
		msg.CreatedAt = ts
	}
	return msg, nil
}

func messageItem(sessionID string, msg domain.ChatMessage, ttl int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK":        &types.AttributeValueMemberS{Value: msgSK(msg.CreatedAt)},
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
		"role":      &types.AttributeValueMemberS{Value: string(msg.Role)},
		"text":      &types.AttributeValueMemberS{Value: msg.Text},
		"html":      &types.AttributeValueMemberS{Value: msg.HTML},
		"createdAt": &types.AttributeValueMemberS{Value: msg.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

// boolAttr treats a missing attribute as false.
func boolAttr(item map[string]types.AttributeValue, key string) (bool, error) {
	v, ok := item[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false, fmt.Errorf("repository: attribute %q is not a bool", key)
	}
	return b.Value, nil
}
