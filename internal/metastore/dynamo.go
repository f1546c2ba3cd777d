package metastore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ternlund/datapact/internal/apperr"
	"github.com/ternlund/datapact/internal/contract"
)

// DynamoAPI is the subset of the DynamoDB client the store needs.
type DynamoAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

const tableWaitTimeout = 2 * time.Minute

// Dynamo stores records in a DynamoDB table, creating the table on first
// write if it does not exist.
type Dynamo struct {
	api   DynamoAPI
	table string

	ensureOnce sync.Once
	ensureErr  error
}

var _ Store = (*Dynamo)(nil)

// NewDynamo creates a store bound to the given table.
func NewDynamo(api DynamoAPI, table string) *Dynamo {
	return &Dynamo{api: api, table: table}
}

func (d *Dynamo) key(id string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		contract.FieldContractID: &ddbtypes.AttributeValueMemberS{Value: id},
	}
}

// ensureTable creates the table if absent and waits for it to become
// active. Safe to race across cold starts: create-if-absent is
// idempotent on the service side.
func (d *Dynamo) ensureTable(ctx context.Context) error {
	d.ensureOnce.Do(func() {
		_, err := d.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
		if err == nil {
			return
		}
		var notFound *ddbtypes.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			d.ensureErr = fmt.Errorf("describe table %s: %w", d.table, err)
			return
		}
		_, err = d.api.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(d.table),
			AttributeDefinitions: []ddbtypes.AttributeDefinition{
				{AttributeName: aws.String(contract.FieldContractID), AttributeType: ddbtypes.ScalarAttributeTypeS},
			},
			KeySchema: []ddbtypes.KeySchemaElement{
				{AttributeName: aws.String(contract.FieldContractID), KeyType: ddbtypes.KeyTypeHash},
			},
			BillingMode: ddbtypes.BillingModePayPerRequest,
		})
		if err != nil {
			var inUse *ddbtypes.ResourceInUseException
			if !errors.As(err, &inUse) {
				d.ensureErr = fmt.Errorf("create table %s: %w", d.table, err)
				return
			}
		}
		waiter := dynamodb.NewTableExistsWaiter(d.api)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)}, tableWaitTimeout); err != nil {
			d.ensureErr = fmt.Errorf("wait for table %s: %w", d.table, err)
		}
	})
	return d.ensureErr
}

func (d *Dynamo) Create(ctx context.Context, id, owner, location string) (contract.Record, error) {
	if err := d.ensureTable(ctx); err != nil {
		return contract.Record{}, fmt.Errorf("%w: %v", apperr.ErrMetadataWrite, err)
	}
	rec := contract.NewRecord(id, owner, location)
	item, err := attributevalue.MarshalMap(rec.AsMap())
	if err != nil {
		return contract.Record{}, fmt.Errorf("%w: marshal record: %v", apperr.ErrMetadataWrite, err)
	}
	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return contract.Record{}, fmt.Errorf("%w: put %s: %v", apperr.ErrMetadataWrite, id, err)
	}
	return rec, nil
}

func (d *Dynamo) Get(ctx context.Context, id string) (contract.Record, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(id),
	})
	if err != nil {
		return contract.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return contract.Record{}, fmt.Errorf("%w: contract %s", apperr.ErrNotFound, id)
	}
	return itemToRecord(out.Item)
}

// buildUpdate turns tagged patch values into an update expression. The
// expression builder aliases every attribute name, which also covers
// collisions with DynamoDB reserved words.
func buildUpdate(fields map[string]contract.Value) (expression.Expression, error) {
	var update expression.UpdateBuilder
	for name, v := range fields {
		update = update.Set(expression.Name(name), expression.Value(v.Interface()))
	}
	return expression.NewBuilder().WithUpdate(update).Build()
}

func (d *Dynamo) Update(ctx context.Context, id string, fields map[string]contract.Value) error {
	if len(fields) == 0 {
		return nil
	}
	expr, err := buildUpdate(fields)
	if err != nil {
		return fmt.Errorf("%w: build expression: %v", apperr.ErrUpdateFailed, err)
	}
	_, err = d.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.table),
		Key:                       d.key(id),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", apperr.ErrUpdateFailed, id, err)
	}
	return nil
}

func (d *Dynamo) Delete(ctx context.Context, id string) error {
	_, err := d.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(id),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (d *Dynamo) List(ctx context.Context) ([]contract.Record, error) {
	records := []contract.Record{}
	var startKey map[string]ddbtypes.AttributeValue
	for {
		out, err := d.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.table, err)
		}
		for _, item := range out.Items {
			rec, err := itemToRecord(item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func itemToRecord(item map[string]ddbtypes.AttributeValue) (contract.Record, error) {
	m := map[string]any{}
	if err := attributevalue.UnmarshalMap(item, &m); err != nil {
		return contract.Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return contract.RecordFromMap(m), nil
}
