/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package gateway

import (
	"context"
	goerrors "errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/angryss/idpstore/config"
	"github.com/angryss/idpstore/errors"
	"github.com/angryss/idpstore/keycodec"
	"github.com/angryss/idpstore/record"
)

// DynamoDBAPI is the slice of the DynamoDB client the gateway depends on.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// WriteMode selects the create-vs-update semantics of Put.
type WriteMode int

const (
	// Upsert overwrites any existing item under the same primary key.
	Upsert WriteMode = iota
	// CreateOnly issues a conditional write that fails with AlreadyExists
	// when an item is already present. Callers decide whether to retry;
	// the gateway never retries a conditional failure.
	CreateOnly
)

// Gateway translates record operations into backend key-value operations.
// It is the sole writer of physical items and is safe for concurrent use.
type Gateway struct {
	client DynamoDBAPI
	cfg    config.Config
	log    *zap.Logger
	retry  retryPolicy
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger attaches a structured logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(g *Gateway) { g.log = log }
}

// WithRetryPolicy overrides the transient-failure retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(g *Gateway) { g.retry = retryPolicy(p) }
}

// New creates a Gateway over the given client and table configuration.
func New(client DynamoDBAPI, cfg config.Config, opts ...Option) *Gateway {
	g := &Gateway{
		client: client,
		cfg:    cfg,
		log:    zap.NewNop(),
		retry:  defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Put writes the record as one physical item, including any populated index
// projections. CreateOnly uses a true conditional write; concurrent creates
// racing on the same key resolve to exactly one winner.
func (g *Gateway) Put(ctx context.Context, rec *record.Record, mode WriteMode) error {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	item, err := rec.Serialize()
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: &g.cfg.TableName,
		Item:      item,
	}
	if mode == CreateOnly {
		cond := expression.AttributeNotExists(expression.Name(record.AttrPK))
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return errors.NewValidationError("condition", err.Error())
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	}

	return g.withRetry(ctx, "PutItem", func(ctx context.Context) error {
		_, err := g.client.PutItem(ctx, input)
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if goerrors.As(err, &ccf) {
				return errors.NewAlreadyExistsError(rec.EntityType, rec.EntityID)
			}
			return err
		}
		g.log.Debug("item written",
			zap.String("table", g.cfg.TableName),
			zap.String("entityType", rec.EntityType),
			zap.String("entityId", rec.EntityID))
		return nil
	})
}

// GetByIdentity reads the entity's own record by primary key. No index is
// involved, so the read is strongly consistent with the last write.
func (g *Gateway) GetByIdentity(ctx context.Context, entityType, entityID string) (*record.Record, error) {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	key, err := primaryKeyAttrs(entityType, entityID)
	if err != nil {
		return nil, err
	}

	var out *dynamodb.GetItemOutput
	err = g.withRetry(ctx, "GetItem", func(ctx context.Context) error {
		var err error
		out, err = g.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: &g.cfg.TableName,
			Key:       key,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, errors.NewNotFoundError(entityType, entityID)
	}
	return record.Deserialize(out.Item)
}

// Exists reports whether the entity's record is present. Implemented as a
// key read with a key-only projection, never a scan.
func (g *Gateway) Exists(ctx context.Context, entityType, entityID string) (bool, error) {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	key, err := primaryKeyAttrs(entityType, entityID)
	if err != nil {
		return false, err
	}

	projection := record.AttrPK
	var out *dynamodb.GetItemOutput
	err = g.withRetry(ctx, "GetItem", func(ctx context.Context) error {
		var err error
		out, err = g.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:            &g.cfg.TableName,
			Key:                  key,
			ProjectionExpression: &projection,
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

// Delete removes the entity's primary item. Other items sharing the
// partition are never touched, and deleting a nonexistent identity succeeds.
func (g *Gateway) Delete(ctx context.Context, entityType, entityID string) error {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	key, err := primaryKeyAttrs(entityType, entityID)
	if err != nil {
		return err
	}

	return g.withRetry(ctx, "DeleteItem", func(ctx context.Context) error {
		_, err := g.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: &g.cfg.TableName,
			Key:       key,
		})
		return err
	})
}

func (g *Gateway) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.cfg.DefaultTimeout)
}

func primaryKeyAttrs(entityType, entityID string) (map[string]types.AttributeValue, error) {
	key, err := keycodec.BuildPrimaryKey(entityType, entityID)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{
		record.AttrPK: &types.AttributeValueMemberS{Value: key.PK},
		record.AttrSK: &types.AttributeValueMemberS{Value: key.SK},
	}, nil
}
