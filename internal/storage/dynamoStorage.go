package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	conditionAbsent  = "attribute_not_exists(pk)"
	conditionPresent = "attribute_exists(pk)"

	// tableWaitTimeout bounds how long a freshly created table may take to become active
	tableWaitTimeout = 2 * time.Minute
)

// DynamoAPI is the subset of the DynamoDB client the storage needs
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	dynamodb.DescribeTableAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// dynamoItem is the stored shape of an entry. pk is a hash of the whole tuple
type dynamoItem struct {
	PK          string `dynamodbav:"pk"`
	Surname     string `dynamodbav:"surname"`
	SurnameFold string `dynamodbav:"surname_fold"`
	Firstname   string `dynamodbav:"firstname"`
	Number      string `dynamodbav:"number"`
	Address     string `dynamodbav:"address"`
}

// DynamoStorage keeps the phonebook in a DynamoDB table keyed by the tuple hash.
// Conditional writes make duplicate detection atomic
type DynamoStorage struct {
	client DynamoAPI
	table  string
}

// NewDynamoStorage creates the table if it is missing and returns the storage
func NewDynamoStorage(ctx context.Context, client DynamoAPI, table string) (*DynamoStorage, error) {
	d := &DynamoStorage{client: client, table: table}
	if err := d.ensureTable(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// EntryPK computes the partition key of an entry: 128-bit sha256 of the NUL-joined fields
func EntryPK(e Entry) string {
	data := strings.Join([]string{e.Surname, e.Firstname, e.Number, e.Address}, "\x00")
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:16])
}

func (d *DynamoStorage) key(e Entry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: EntryPK(e)},
	}
}

func (d *DynamoStorage) item(e Entry) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(dynamoItem{
		PK:          EntryPK(e),
		Surname:     e.Surname,
		SurnameFold: Fold(e.Surname),
		Firstname:   e.Firstname,
		Number:      e.Number,
		Address:     e.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}
	return item, nil
}

// List scans the whole table and orders the result by surname
func (d *DynamoStorage) List(ctx context.Context) ([]Entry, error) {
	return d.scan(ctx, &dynamodb.ScanInput{
		TableName:      aws.String(d.table),
		ConsistentRead: aws.Bool(true),
	})
}

// Exists reads the item by its tuple hash
func (d *DynamoStorage) Exists(ctx context.Context, e Entry) (bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            d.key(e),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("check entry: %w", err)
	}
	return out.Item != nil, nil
}

// Insert puts the item only if no item with the same tuple hash exists
func (d *DynamoStorage) Insert(ctx context.Context, e Entry) error {
	item, err := d.item(e)
	if err != nil {
		return err
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String(conditionAbsent),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Delete removes the item if present. A failed condition means nothing was removed
func (d *DynamoStorage) Delete(ctx context.Context, e Entry) (int64, error) {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(d.table),
		Key:                 d.key(e),
		ConditionExpression: aws.String(conditionPresent),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, nil
		}
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	return 1, nil
}

// Update deletes old and puts updated in one transaction
func (d *DynamoStorage) Update(ctx context.Context, old, updated Entry) error {
	if EntryPK(old) == EntryPK(updated) {
		// a transaction cannot touch the same item twice
		ok, err := d.Exists(ctx, old)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	}

	item, err := d.item(updated)
	if err != nil {
		return err
	}

	_, err = d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:           aws.String(d.table),
					Key:                 d.key(old),
					ConditionExpression: aws.String(conditionPresent),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(d.table),
					Item:                item,
					ConditionExpression: aws.String(conditionAbsent),
				},
			},
		},
	})

	return mapUpdateTransactionError(err)
}

// Search scans with a contains() filter on the folded surname
func (d *DynamoStorage) Search(ctx context.Context, fragment string) ([]Entry, error) {
	return d.scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(d.table),
		ConsistentRead:   aws.Bool(true),
		FilterExpression: aws.String("contains(#fold, :fragment)"),
		ExpressionAttributeNames: map[string]string{
			"#fold": "surname_fold",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fragment": &types.AttributeValueMemberS{Value: Fold(fragment)},
		},
	})
}

// Close is a no-op, the SDK client holds no connections that need closing
func (d *DynamoStorage) Close() error {
	return nil
}

func (d *DynamoStorage) scan(ctx context.Context, input *dynamodb.ScanInput) ([]Entry, error) {
	var entries []Entry

	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan entries: %w", err)
		}

		var items []dynamoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal entries: %w", err)
		}
		for _, it := range items {
			entries = append(entries, Entry{
				Surname:   it.Surname,
				Firstname: it.Firstname,
				Number:    it.Number,
				Address:   it.Address,
			})
		}
	}

	Sort(entries)
	return entries, nil
}

func (d *DynamoStorage) ensureTable(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", d.table, err)
	}

	_, err = d.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", d.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", d.table, err)
	}
	return nil
}

// mapUpdateTransactionError translates cancellation reasons by item index:
// 0 is the delete of the old tuple, 1 the put of the new one
func mapUpdateTransactionError(err error) error {
	if err == nil {
		return nil
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for i, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
				continue
			}
			switch i {
			case 0:
				return ErrNotFound
			case 1:
				return ErrDuplicate
			}
		}
	}
	return fmt.Errorf("update entry: %w", err)
}
