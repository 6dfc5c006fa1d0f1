package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory DynamoAPI that understands the handful of
// condition and filter expressions DynamoStorage issues
type fakeDynamo struct {
	mu       sync.Mutex
	table    bool
	items    map[string]map[string]types.AttributeValue
	pageSize int
	creates  int
}

func newFakeDynamo(pageSize int) *fakeDynamo {
	return &fakeDynamo{
		items:    make(map[string]map[string]types.AttributeValue),
		pageSize: pageSize,
	}
}

func pkOf(item map[string]types.AttributeValue) string {
	if v, ok := item["pk"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// conditionHolds evaluates the two conditions the storage uses against the current state
func (f *fakeDynamo) conditionHolds(cond *string, pk string) bool {
	_, exists := f.items[pk]
	switch aws.ToString(cond) {
	case conditionAbsent:
		return !exists
	case conditionPresent:
		return exists
	default:
		return true
	}
}

func (f *fakeDynamo) DescribeTable(_ context.Context, params *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.table {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   params.TableName,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.table = true
	f.creates++
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return &dynamodb.GetItemOutput{Item: f.items[pkOf(params.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk := pkOf(params.Item)
	if !f.conditionHolds(params.ConditionExpression, pk) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional check failed")}
	}
	f.items[pk] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk := pkOf(params.Key)
	if !f.conditionHolds(params.ConditionExpression, pk) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional check failed")}
	}
	delete(f.items, pk)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		reasons[i].Code = aws.String("None")

		var ok bool
		switch {
		case it.Delete != nil:
			ok = f.conditionHolds(it.Delete.ConditionExpression, pkOf(it.Delete.Key))
		case it.Put != nil:
			ok = f.conditionHolds(it.Put.ConditionExpression, pkOf(it.Put.Item))
		default:
			ok = true
		}
		if !ok {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
		}
	}

	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, it := range params.TransactItems {
		switch {
		case it.Delete != nil:
			delete(f.items, pkOf(it.Delete.Key))
		case it.Put != nil:
			f.items[pkOf(it.Put.Item)] = it.Put.Item
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// Scan walks the items in pk order, pageSize at a time, applying the contains() filter after paging
func (f *fakeDynamo) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.items))
	for pk := range f.items {
		keys = append(keys, pk)
	}
	slices.Sort(keys)

	start := 0
	if params.ExclusiveStartKey != nil {
		after := pkOf(params.ExclusiveStartKey)
		start, _ = slices.BinarySearch(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}

	end := min(start+f.pageSize, len(keys))

	var fragment *string
	if params.FilterExpression != nil {
		v := stringAttr(params.ExpressionAttributeValues, ":fragment")
		fragment = &v
	}

	out := &dynamodb.ScanOutput{}
	for _, pk := range keys[start:end] {
		item := f.items[pk]
		if fragment != nil && !strings.Contains(stringAttr(item, "surname_fold"), *fragment) {
			continue
		}
		out.Items = append(out.Items, item)
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}
