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
	"github.com/google/uuid"

	"github.com/sangukO/haru-word/internal/domain"
)

const (
	skPrefixLog   = "AILOG#"
	skPrefixVisit = "VISIT#"
	// skLogUpper sorts after every AILOG# key; '~' is above all digits.
	skLogUpper = skPrefixLog + "~"

	entityUsageLog = "AI_USAGE_LOG"
	entityVisit    = "DAILY_VISIT"

	// SortableTimeLayout is a fixed-width UTC layout, so lexical order of
	// sort keys matches time order. RFC3339Nano drops trailing zeros.
	SortableTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client stores usage logs and daily visits in one DynamoDB table, keyed by
// user. Log entries sort by creation time within the user partition.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
	newID     func() string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{
		api:       api,
		tableName: tableName,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

func userPK(userID string) string {
	return "USER#" + userID
}

func logSKBound(ts time.Time) string {
	return skPrefixLog + ts.UTC().Format(SortableTimeLayout)
}

func logSK(ts time.Time, id string) string {
	return logSKBound(ts) + "#" + id
}

func visitSK(date string) string {
	return skPrefixVisit + date
}

// CountUsageSince counts the user's log entries created at or after since,
// of any status and feature.
func (c *Client) CountUsageSince(ctx context.Context, userID string, since time.Time) (int, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: userPK(userID)},
			":from": &types.AttributeValueMemberS{Value: logSKBound(since)},
			":to":   &types.AttributeValueMemberS{Value: skLogUpper},
		},
		Select:         types.SelectCount,
		ConsistentRead: aws.Bool(true),
	}

	total := 0
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return 0, fmt.Errorf("repository: CountUsageSince query: %w", err)
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// InsertUsageLog writes entry with a fresh id and the current time as
// CreatedAt, and returns the stored entry.
func (c *Client) InsertUsageLog(ctx context.Context, entry domain.UsageLogEntry) (domain.UsageLogEntry, error) {
	if err := entry.Validate(); err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("repository: InsertUsageLog: %w", err)
	}
	entry.ID = c.newID()
	entry.CreatedAt = c.now().UTC()

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                usageLogItem(entry),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("repository: InsertUsageLog: %w", err)
	}
	return entry, nil
}

// ListUsageLogs returns the user's log entries matching q, newest first.
func (c *Client) ListUsageLogs(ctx context.Context, userID string, q domain.UsageQuery) ([]domain.UsageLogEntry, error) {
	from := skPrefixLog
	if !q.From.IsZero() {
		from = logSKBound(q.From)
	}
	// Keys carry a "#<id>" suffix, so an entry at exactly q.To sorts above
	// the bare bound and stays excluded.
	to := skLogUpper
	if !q.To.IsZero() {
		to = logSKBound(q.To)
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: userPK(userID)},
			":from": &types.AttributeValueMemberS{Value: from},
			":to":   &types.AttributeValueMemberS{Value: to},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if q.Status != "" {
		in.FilterExpression = aws.String("#status = :status")
		in.ExpressionAttributeNames = map[string]string{"#status": "status"}
		in.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: string(q.Status)}
	}

	entries := make([]domain.UsageLogEntry, 0)
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: ListUsageLogs query: %w", err)
		}
		for _, item := range out.Items {
			entry, err := itemToUsageLog(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ListUsageLogs unmarshal: %w", err)
			}
			entries = append(entries, entry)
		}
		if q.Limit > 0 && len(entries) >= q.Limit {
			return entries[:q.Limit], nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			return entries, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// RecordVisit marks visitDate as visited. Writing the same day twice leaves
// a single item.
func (c *Client) RecordVisit(ctx context.Context, userID, visitDate string) error {
	if _, err := time.Parse(domain.DateLayout, visitDate); err != nil {
		return fmt.Errorf("repository: RecordVisit: invalid date %q: %w", visitDate, err)
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK":        &types.AttributeValueMemberS{Value: visitSK(visitDate)},
			"entity":    &types.AttributeValueMemberS{Value: entityVisit},
			"userId":    &types.AttributeValueMemberS{Value: userID},
			"visitDate": &types.AttributeValueMemberS{Value: visitDate},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: RecordVisit: %w", err)
	}
	return nil
}

// ListVisits returns visits between fromDate and toDate inclusive, oldest first.
func (c *Client) ListVisits(ctx context.Context, userID, fromDate, toDate string) ([]domain.DailyVisit, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: userPK(userID)},
			":from": &types.AttributeValueMemberS{Value: visitSK(fromDate)},
			":to":   &types.AttributeValueMemberS{Value: visitSK(toDate)},
		},
	}

	visits := make([]domain.DailyVisit, 0)
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: ListVisits query: %w", err)
		}
		for _, item := range out.Items {
			date, err := strAttr(item, "visitDate")
			if err != nil {
				return nil, fmt.Errorf("repository: ListVisits unmarshal: %w", err)
			}
			visits = append(visits, domain.DailyVisit{UserID: userID, VisitDate: date})
		}
		if len(out.LastEvaluatedKey) == 0 {
			return visits, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func usageLogItem(e domain.UsageLogEntry) map[string]types.AttributeValue {
	ids := make([]types.AttributeValue, 0, len(e.TargetWordIDs))
	for _, id := range e.TargetWordIDs {
		ids = append(ids, &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)})
	}
	item := map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: userPK(e.UserID)},
		"SK":            &types.AttributeValueMemberS{Value: logSK(e.CreatedAt, e.ID)},
		"entity":        &types.AttributeValueMemberS{Value: entityUsageLog},
		"id":            &types.AttributeValueMemberS{Value: e.ID},
		"userId":        &types.AttributeValueMemberS{Value: e.UserID},
		"featureName":   &types.AttributeValueMemberS{Value: e.FeatureName},
		"targetWordIds": &types.AttributeValueMemberL{Value: ids},
		"status":        &types.AttributeValueMemberS{Value: string(e.Status)},
		"createdAt":     &types.AttributeValueMemberS{Value: e.CreatedAt.UTC().Format(SortableTimeLayout)},
	}
	if e.GeneratedSentence != nil {
		item["generatedSentence"] = &types.AttributeValueMemberS{Value: *e.GeneratedSentence}
	}
	if e.ErrorMessage != nil {
		item["errorMessage"] = &types.AttributeValueMemberS{Value: *e.ErrorMessage}
	}
	return item
}

// itemToUsageLog converts a DynamoDB attribute map to a UsageLogEntry.
func itemToUsageLog(item map[string]types.AttributeValue) (domain.UsageLogEntry, error) {
	var e domain.UsageLogEntry
	var err error
	if e.ID, err = strAttr(item, "id"); err != nil {
		return domain.UsageLogEntry{}, err
	}
	if e.UserID, err = strAttr(item, "userId"); err != nil {
		return domain.UsageLogEntry{}, err
	}
	if e.FeatureName, err = strAttr(item, "featureName"); err != nil {
		return domain.UsageLogEntry{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return domain.UsageLogEntry{}, err
	}
	e.Status = domain.UsageStatus(status)

	created, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.UsageLogEntry{}, err
	}
	if e.CreatedAt, err = time.Parse(SortableTimeLayout, created); err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("repository: parse createdAt: %w", err)
	}

	if e.TargetWordIDs, err = int64ListAttr(item, "targetWordIds"); err != nil {
		return domain.UsageLogEntry{}, err
	}
	if s, err := strAttr(item, "generatedSentence"); err == nil {
		e.GeneratedSentence = &s
	}
	if s, err := strAttr(item, "errorMessage"); err == nil {
		e.ErrorMessage = &s
	}
	return e, nil
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

func int64ListAttr(item map[string]types.AttributeValue, key string) ([]int64, error) {
	v, ok := item[key]
	if !ok {
		return []int64{}, nil
	}
	l, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a list", key)
	}
	out := make([]int64, 0, len(l.Value))
	for i, el := range l.Value {
		n, ok := el.(*types.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("repository: attribute %q[%d] is not a number", key, i)
		}
		parsed, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("repository: parse attribute %q[%d]: %w", key, i, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}
