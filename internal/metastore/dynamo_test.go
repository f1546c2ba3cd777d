package metastore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ternlund/datapact/internal/apperr"
	"github.com/ternlund/datapact/internal/contract"
)

// fakeDynamo is an in-memory DynamoAPI keyed by contract_id.
type fakeDynamo struct {
	tableExists bool
	items       map[string]map[string]ddbtypes.AttributeValue

	describeCalls int
	createCalls   int
	lastUpdate    *dynamodb.UpdateItemInput
	pageSize      int
}

func newFakeDynamo(tableExists bool) *fakeDynamo {
	return &fakeDynamo{
		tableExists: tableExists,
		items:       map[string]map[string]ddbtypes.AttributeValue{},
	}
}

func (f *fakeDynamo) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.describeCalls++
	if !f.tableExists {
		return nil, &ddbtypes.ResourceNotFoundException{}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &ddbtypes.TableDescription{TableStatus: ddbtypes.TableStatusActive},
	}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.createCalls++
	if f.tableExists {
		return nil, &ddbtypes.ResourceInUseException{}
	}
	f.tableExists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id := in.Item[contract.FieldContractID].(*ddbtypes.AttributeValueMemberS).Value
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key[contract.FieldContractID].(*ddbtypes.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdate = in
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	id := in.Key[contract.FieldContractID].(*ddbtypes.AttributeValueMemberS).Value
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	var ids []string
	for id := range f.items {
		ids = append(ids, id)
	}
	// Stable iteration so pagination cursors line up.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}

	start := 0
	if in.ExclusiveStartKey != nil {
		after := in.ExclusiveStartKey[contract.FieldContractID].(*ddbtypes.AttributeValueMemberS).Value
		for i, id := range ids {
			if id == after {
				start = i + 1
				break
			}
		}
	}

	page := len(ids)
	if f.pageSize > 0 {
		page = f.pageSize
	}
	end := start + page
	if end > len(ids) {
		end = len(ids)
	}

	out := &dynamodb.ScanOutput{}
	for _, id := range ids[start:end] {
		out.Items = append(out.Items, f.items[id])
	}
	if end < len(ids) {
		out.LastEvaluatedKey = map[string]ddbtypes.AttributeValue{
			contract.FieldContractID: &ddbtypes.AttributeValueMemberS{Value: ids[end-1]},
		}
	}
	return out, nil
}

func TestDynamo_CreateProvisionsMissingTable(t *testing.T) {
	fake := newFakeDynamo(false)
	store := NewDynamo(fake, "ContractMetadata")

	rec, err := store.Create(context.Background(), "id-1", "a@b.com", "s3://b/contracts/id-1.yaml")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fake.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", fake.createCalls)
	}
	if rec.Status != contract.StatusDraft {
		t.Errorf("status = %q", rec.Status)
	}
}

func TestDynamo_EnsureTableOnce(t *testing.T) {
	fake := newFakeDynamo(true)
	store := NewDynamo(fake, "ContractMetadata")
	ctx := context.Background()

	store.Create(ctx, "id-1", "a@b.com", "loc")
	store.Create(ctx, "id-2", "a@b.com", "loc")
	if fake.describeCalls != 1 {
		t.Errorf("describeCalls = %d, want 1", fake.describeCalls)
	}
}

func TestDynamo_GetRoundTrip(t *testing.T) {
	fake := newFakeDynamo(true)
	store := NewDynamo(fake, "ContractMetadata")
	ctx := context.Background()

	rec, err := store.Create(ctx, "id-1", "a@b.com", "loc")
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Owner != rec.Owner || got.CreatedTime != rec.CreatedTime || got.S3Path != rec.S3Path {
		t.Errorf("got %+v, want %+v", got, rec)
	}
}

func TestDynamo_GetMissing(t *testing.T) {
	store := NewDynamo(newFakeDynamo(true), "ContractMetadata")
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDynamo_UpdateBuildsExpression(t *testing.T) {
	fake := newFakeDynamo(true)
	store := NewDynamo(fake, "ContractMetadata")

	err := store.Update(context.Background(), "id-1", map[string]contract.Value{
		contract.FieldStatus: {Kind: contract.KindText, Text: "ACTIVE"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	in := fake.lastUpdate
	if in == nil {
		t.Fatal("UpdateItem not called")
	}
	if *in.TableName != "ContractMetadata" {
		t.Errorf("table = %q", *in.TableName)
	}

	// The expression builder aliases both the name and the value; the
	// material fact is that "ACTIVE" lands in the value map under an
	// alias referenced by the update expression.
	var found bool
	for alias, av := range in.ExpressionAttributeValues {
		s, ok := av.(*ddbtypes.AttributeValueMemberS)
		if ok && s.Value == "ACTIVE" && alias != "" {
			found = true
		}
	}
	if !found {
		t.Errorf("no ACTIVE value in expression values: %v", in.ExpressionAttributeValues)
	}
	var named bool
	for _, name := range in.ExpressionAttributeNames {
		if name == contract.FieldStatus {
			named = true
		}
	}
	if !named {
		t.Errorf("status not aliased in names: %v", in.ExpressionAttributeNames)
	}
}

func TestDynamo_UpdateEmptyIsNoop(t *testing.T) {
	fake := newFakeDynamo(true)
	store := NewDynamo(fake, "ContractMetadata")
	if err := store.Update(context.Background(), "id-1", nil); err != nil {
		t.Fatalf("empty update should be a no-op: %v", err)
	}
	if fake.lastUpdate != nil {
		t.Error("UpdateItem should not be called for an empty patch")
	}
}

func TestDynamo_ListPaginates(t *testing.T) {
	fake := newFakeDynamo(true)
	fake.pageSize = 2
	store := NewDynamo(fake, "ContractMetadata")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if _, err := store.Create(ctx, id, "a@b.com", "loc"); err != nil {
			t.Fatal(err)
		}
	}
	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("len = %d, want 5", len(records))
	}
}

func TestDynamo_Delete(t *testing.T) {
	fake := newFakeDynamo(true)
	store := NewDynamo(fake, "ContractMetadata")
	ctx := context.Background()

	store.Create(ctx, "id-1", "a@b.com", "loc")
	if err := store.Delete(ctx, "id-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "id-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDynamo_RecordWithExtraFieldsRoundTrips(t *testing.T) {
	fake := newFakeDynamo(true)
	store := NewDynamo(fake, "ContractMetadata")
	ctx := context.Background()

	rec := contract.NewRecord("id-1", "a@b.com", "loc")
	rec.Fields = map[string]any{"domain": "sales"}
	item, err := attributevalue.MarshalMap(rec.AsMap())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fake.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String("ContractMetadata"), Item: item,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fields["domain"] != "sales" {
		t.Errorf("extra field lost: %+v", got.Fields)
	}
}
