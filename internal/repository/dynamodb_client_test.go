package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/domain"
)

type fakeDynamo struct {
	getOut    *dynamodb.GetItemOutput
	getErr    error
	queryOuts []*dynamodb.QueryOutput
	queryErr  error
	updateErr error
	txErr     error

	lastGetInput    *dynamodb.GetItemInput
	queryInputs     []*dynamodb.QueryInput
	lastUpdateInput *dynamodb.UpdateItemInput
	lastTxInput     *dynamodb.TransactWriteItemsInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	idx := len(f.queryInputs) - 1
	if idx >= len(f.queryOuts) {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.queryOuts[idx], nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdateInput = in
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTxInput = in
	return &dynamodb.TransactWriteItemsOutput{}, f.txErr
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	return c
}

func makeMsgItem(role, text string, at time.Time) map[string]types.AttributeValue {
	return messageItem("abc", domain.ChatMessage{
		Role:      domain.Role(role),
		Text:      text,
		HTML:      "<p>" + text + "</p>",
		CreatedAt: at,
	}, 1)
}

func makeMetaItem(sending bool) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":      &types.AttributeValueMemberS{Value: sessionPK("abc")},
		"SK":      &types.AttributeValueMemberS{Value: skMeta},
		"sending": &types.AttributeValueMemberBOOL{Value: sending},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestLoad_HappyPath(t *testing.T) {
	t1 := fixedNow
	t2 := fixedNow.Add(time.Second)
	db := &fakeDynamo{
		getOut: &dynamodb.GetItemOutput{Item: makeMetaItem(true)},
		queryOuts: []*dynamodb.QueryOutput{
			{
				Items:            []map[string]types.AttributeValue{makeMsgItem("user", "hi", t1)},
				LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "x"}},
			},
			{
				Items: []map[string]types.AttributeValue{makeMsgItem("assistant", "hello", t2)},
			},
		},
	}
	c := mustNewClient(t, db)

	sess, err := c.Load(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", sess.ID)
	require.True(t, sess.Sending)
	require.Len(t, sess.Messages, 2)
	require.Equal(t, domain.RoleUser, sess.Messages[0].Role)
	require.Equal(t, "hello", sess.Messages[1].Text)
	require.Equal(t, "<p>hello</p>", sess.Messages[1].HTML)
	require.True(t, t2.Equal(sess.Messages[1].CreatedAt))

	require.True(t, aws.ToBool(db.lastGetInput.ConsistentRead))
	require.Len(t, db.queryInputs, 2)
	require.True(t, aws.ToBool(db.queryInputs[0].ScanIndexForward))
	require.Nil(t, db.queryInputs[0].ExclusiveStartKey)
	require.NotNil(t, db.queryInputs[1].ExclusiveStartKey)
}

func TestLoad_UnknownSession(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewClient(t, db)

	sess, err := c.Load(context.Background(), "abc")
	require.NoError(t, err)
	require.Empty(t, sess.Messages)
	require.True(t, sess.InputEnabled())
}

func TestLoad_Errors(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getErr: errors.New("boom")})
	_, err := c.Load(context.Background(), "abc")
	require.ErrorContains(t, err, "get meta")

	c = mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}, queryErr: errors.New("ResourceNotFoundException")})
	_, err = c.Load(context.Background(), "abc")
	require.ErrorContains(t, err, "Load query")

	c = mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"sending": &types.AttributeValueMemberS{Value: "yes"},
	}}})
	_, err = c.Load(context.Background(), "abc")
	require.ErrorContains(t, err, "decode meta")

	c = mustNewClient(t, &fakeDynamo{})
	_, err = c.Load(context.Background(), "")
	require.Error(t, err)
}

func TestLoad_MalformedItem_MissingRole(t *testing.T) {
	item := map[string]types.AttributeValue{
		"PK":   &types.AttributeValueMemberS{Value: sessionPK("abc")},
		"SK":   &types.AttributeValueMemberS{Value: "MSG#ts"},
		"text": &types.AttributeValueMemberS{Value: "hi"},
	}
	db := &fakeDynamo{
		getOut:    &dynamodb.GetItemOutput{},
		queryOuts: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{item}}},
	}
	c := mustNewClient(t, db)
	_, err := c.Load(context.Background(), "abc")
	require.ErrorContains(t, err, "missing attribute \"role\"")
}

func TestBeginTurn_Transaction(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	msg := domain.ChatMessage{Role: domain.RoleUser, Text: "hi", HTML: "<p>hi</p>", CreatedAt: fixedNow}

	require.NoError(t, c.BeginTurn(context.Background(), "abc", msg))
	require.NotNil(t, db.lastTxInput)
	require.Len(t, db.lastTxInput.TransactItems, 2)

	update := db.lastTxInput.TransactItems[0].Update
	require.NotNil(t, update)
	require.Equal(t, "attribute_not_exists(sending) OR sending = :false", aws.ToString(update.ConditionExpression))
	require.Equal(t, &types.AttributeValueMemberS{Value: "SESSION#abc"}, update.Key["PK"])
	require.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, update.ExpressionAttributeValues[":true"])
	require.Equal(t, "ttl", update.ExpressionAttributeNames["#ttl"])
	require.Equal(t,
		&types.AttributeValueMemberN{Value: "1772445600"},
		update.ExpressionAttributeValues[":ttl"],
	)

	put := db.lastTxInput.TransactItems[1].Put
	require.NotNil(t, put)
	require.Equal(t, &types.AttributeValueMemberS{Value: "MSG#2026-03-01T10:00:00.000000000Z"}, put.Item["SK"])
	require.Equal(t, &types.AttributeValueMemberS{Value: "user"}, put.Item["role"])
	require.Equal(t, &types.AttributeValueMemberS{Value: "<p>hi</p>"}, put.Item["html"])
}

func TestBeginTurn_InFlight(t *testing.T) {
	db := &fakeDynamo{txErr: &types.TransactionCanceledException{
		Message: aws.String("Transaction cancelled"),
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
			{Code: aws.String("None")},
		},
	}}
	c := mustNewClient(t, db)

	err := c.BeginTurn(context.Background(), "abc", domain.ChatMessage{Role: domain.RoleUser, Text: "hi", CreatedAt: fixedNow})
	require.ErrorIs(t, err, domain.ErrTurnInFlight)
}

func TestBeginTurn_OtherCancellation(t *testing.T) {
	db := &fakeDynamo{txErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}}
	c := mustNewClient(t, db)

	err := c.BeginTurn(context.Background(), "abc", domain.ChatMessage{Role: domain.RoleUser, Text: "hi", CreatedAt: fixedNow})
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrTurnInFlight)
	require.Contains(t, err.Error(), "BeginTurn")
}

func TestSettleTurn_Unconditional(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	msg := domain.ChatMessage{Role: domain.RoleAssistant, Text: "hello", CreatedAt: fixedNow.Add(time.Millisecond)}

	require.NoError(t, c.SettleTurn(context.Background(), "abc", msg))
	update := db.lastTxInput.TransactItems[0].Update
	require.Nil(t, update.ConditionExpression)
	require.Contains(t, aws.ToString(update.UpdateExpression), "sending = :false")

	put := db.lastTxInput.TransactItems[1].Put
	require.Equal(t, &types.AttributeValueMemberS{Value: "assistant"}, put.Item["role"])
	require.Equal(t, &types.AttributeValueMemberS{Value: "MSG#2026-03-01T10:00:00.001000000Z"}, put.Item["SK"])
}

func TestSettleTurn_Error(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{txErr: errors.New("throttled")})
	err := c.SettleTurn(context.Background(), "abc", domain.ChatMessage{Role: domain.RoleAssistant, CreatedAt: fixedNow})
	require.ErrorContains(t, err, "SettleTurn")
}

func TestReleaseTurn(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	require.NoError(t, c.ReleaseTurn(context.Background(), "abc"))
	require.Equal(t, "attribute_exists(PK)", aws.ToString(db.lastUpdateInput.ConditionExpression))
	require.Equal(t, "SET sending = :false", aws.ToString(db.lastUpdateInput.UpdateExpression))

	db.updateErr = &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	require.NoError(t, c.ReleaseTurn(context.Background(), "never-written"))

	db.updateErr = errors.New("boom")
	require.ErrorContains(t, c.ReleaseTurn(context.Background(), "abc"), "ReleaseTurn")
}

func TestMsgSK_SortsChronologically(t *testing.T) {
	a := msgSK(fixedNow.Add(100 * time.Millisecond))
	b := msgSK(fixedNow.Add(120 * time.Millisecond))
	require.Less(t, a, b)
}
