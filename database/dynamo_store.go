package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/yashrajoria/storefront-bff/models"
)

// DynamoAPI is the subset of the DynamoDB client used by the store.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// deviceItem is one row of the device table. Item is "cart" or "draft#<form>".
type deviceItem struct {
	DeviceID  string `dynamodbav:"device_id"`
	Item      string `dynamodbav:"item"`
	CartID    int64  `dynamodbav:"cart_id,omitempty"`
	Draft     string `dynamodbav:"draft,omitempty"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

type DynamoDeviceStore struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
	now    func() time.Time
}

func NewDynamoDeviceStore(client DynamoAPI, table string, ttl time.Duration) *DynamoDeviceStore {
	return &DynamoDeviceStore{client: client, table: table, ttl: ttl, now: time.Now}
}

func draftItem(form string) string { return "draft#" + form }

func (d *DynamoDeviceStore) key(deviceID, item string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"device_id": &types.AttributeValueMemberS{Value: deviceID},
		"item":      &types.AttributeValueMemberS{Value: item},
	}
}

func (d *DynamoDeviceStore) get(ctx context.Context, deviceID, item string) (*deviceItem, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      sdkaws.String(d.table),
		Key:            d.key(deviceID, item),
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get %s/%s: %w", deviceID, item, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var row deviceItem
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, fmt.Errorf("decode device item: %w", err)
	}
	// Expired rows may linger until DynamoDB's TTL sweeper removes them.
	if row.ExpiresAt > 0 && d.now().Unix() >= row.ExpiresAt {
		return nil, nil
	}
	return &row, nil
}

func (d *DynamoDeviceStore) put(ctx context.Context, row deviceItem) error {
	if d.ttl > 0 {
		row.ExpiresAt = d.now().Add(d.ttl).Unix()
	}
	av, err := attributevalue.MarshalMap(row)
	if err != nil {
		return fmt.Errorf("encode device item: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: sdkaws.String(d.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("dynamodb put %s/%s: %w", row.DeviceID, row.Item, err)
	}
	return nil
}

func (d *DynamoDeviceStore) delete(ctx context.Context, deviceID, item string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: sdkaws.String(d.table),
		Key:       d.key(deviceID, item),
	}); err != nil {
		return fmt.Errorf("dynamodb delete %s/%s: %w", deviceID, item, err)
	}
	return nil
}

func (d *DynamoDeviceStore) GetCartID(ctx context.Context, deviceID string) (*int64, error) {
	row, err := d.get(ctx, deviceID, "cart")
	if err != nil || row == nil {
		return nil, err
	}
	id := row.CartID
	return &id, nil
}

func (d *DynamoDeviceStore) SetCartID(ctx context.Context, deviceID string, cartID int64) error {
	return d.put(ctx, deviceItem{DeviceID: deviceID, Item: "cart", CartID: cartID})
}

func (d *DynamoDeviceStore) ClearCartID(ctx context.Context, deviceID string) error {
	return d.delete(ctx, deviceID, "cart")
}

func (d *DynamoDeviceStore) GetDraft(ctx context.Context, deviceID, form string) (*models.Draft, error) {
	row, err := d.get(ctx, deviceID, draftItem(form))
	if err != nil || row == nil {
		return nil, err
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(row.Draft), &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &draft, nil
}

func (d *DynamoDeviceStore) SaveDraft(ctx context.Context, deviceID string, draft *models.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return d.put(ctx, deviceItem{DeviceID: deviceID, Item: draftItem(draft.Form), Draft: string(data)})
}

func (d *DynamoDeviceStore) DeleteDraft(ctx context.Context, deviceID, form string) error {
	return d.delete(ctx, deviceID, draftItem(form))
}
