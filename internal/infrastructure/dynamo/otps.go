package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-wallet-otp/internal/domain"
)

// itemAPI is the subset of *dynamodb.Client used by OTPRepo.
type itemAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// otpItem is the stored shape of a domain.OTPRecord.
// expires_at (Unix seconds) drives DynamoDB TTL, which only sweeps lazily;
// expires_at_ms is the authoritative expiry.
type otpItem struct {
	Email       string `dynamodbav:"email"`
	Code        string `dynamodbav:"code"`
	ExpiresAtMs int64  `dynamodbav:"expires_at_ms"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`
}

func toItem(rec *domain.OTPRecord) otpItem {
	return otpItem{
		Email:       rec.Email,
		Code:        rec.Code,
		ExpiresAtMs: rec.ExpiresAt.UnixMilli(),
		ExpiresAt:   rec.ExpiresAt.Unix(),
	}
}

func (it otpItem) record() *domain.OTPRecord {
	return &domain.OTPRecord{
		Email:     it.Email,
		Code:      it.Code,
		ExpiresAt: time.UnixMilli(it.ExpiresAtMs).UTC(),
	}
}

// OTPRepo stores pending OTPs in DynamoDB. PK: email.
type OTPRepo struct {
	client    itemAPI
	tableName string
}

func NewOTPRepo(client itemAPI, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *OTPRepo) Get(ctx context.Context, email string) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var it otpItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal otp: %w", err)
	}
	return it.record(), nil
}

func (r *OTPRepo) Delete(ctx context.Context, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrEmail, email),
	})
	return err
}
