/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package gateway

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/angryss/idpstore/errors"
	"github.com/angryss/idpstore/record"
)

// Query describes one index read: partition-key equality plus an optional
// sort-key prefix. Results are always in ascending sort-key order. Index
// reads are eventually consistent with the primary item; callers needing
// strict consistency read the primary key directly.
type Query struct {
	// Index is the logical index name (e.g. "GSI1"). Empty queries the
	// table's primary key.
	Index          string
	PartitionValue string
	SortPrefix     string
}

// Page is one bounded slice of query results. NextToken is empty when the
// result set is exhausted; otherwise it resumes the query where this page
// stopped.
type Page struct {
	Records   []*record.Record
	NextToken string
}

// Result is one element of a streamed query.
type Result struct {
	Record *record.Record
	Err    error
}

// QueryAll drains every page of the query and returns the full result set.
// Intended for the unbounded access patterns ("all stacks for a team").
func (g *Gateway) QueryAll(ctx context.Context, q Query) ([]*record.Record, error) {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	var records []*record.Record
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.queryPage(ctx, q, nil, startKey)
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			rec, err := record.Deserialize(item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if out.LastEvaluatedKey == nil {
			return records, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// QueryPage returns one bounded page of at most limit records, plus an opaque
// continuation token for the next page. Pass the previous page's token to
// resume; tokens hold no server-side state.
func (g *Gateway) QueryPage(ctx context.Context, q Query, limit int32, token string) (Page, error) {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	if limit <= 0 {
		return Page{}, errors.NewValidationError("limit", "must be positive")
	}
	startKey, err := decodePageToken(token)
	if err != nil {
		return Page{}, err
	}

	out, err := g.queryPage(ctx, q, aws.Int32(limit), startKey)
	if err != nil {
		return Page{}, err
	}

	page := Page{Records: make([]*record.Record, 0, len(out.Items))}
	for _, item := range out.Items {
		rec, err := record.Deserialize(item)
		if err != nil {
			return Page{}, err
		}
		page.Records = append(page.Records, rec)
	}
	if out.LastEvaluatedKey != nil {
		page.NextToken, err = encodePageToken(out.LastEvaluatedKey)
		if err != nil {
			return Page{}, err
		}
	}
	return page, nil
}

// Stream lazily pages through the query, sending each record on the returned
// channel. Cancelling the context stops further page requests; the channel is
// closed when the query is exhausted, fails, or is cancelled. A failure is
// delivered as the final Result before close.
func (g *Gateway) Stream(ctx context.Context, q Query) <-chan Result {
	results := make(chan Result)
	go func() {
		defer close(results)
		var startKey map[string]types.AttributeValue
		for {
			out, err := g.queryPage(ctx, q, nil, startKey)
			if err != nil {
				select {
				case results <- Result{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			for _, item := range out.Items {
				rec, err := record.Deserialize(item)
				select {
				case results <- Result{Record: rec, Err: err}:
				case <-ctx.Done():
					return
				}
				if err != nil {
					return
				}
			}
			if out.LastEvaluatedKey == nil {
				return
			}
			startKey = out.LastEvaluatedKey

			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return results
}

func (g *Gateway) queryPage(ctx context.Context, q Query, limit *int32, startKey map[string]types.AttributeValue) (*dynamodb.QueryOutput, error) {
	input, err := g.buildQueryInput(q, limit, startKey)
	if err != nil {
		return nil, err
	}
	var out *dynamodb.QueryOutput
	err = g.withRetry(ctx, "Query", func(ctx context.Context) error {
		var err error
		out, err = g.client.Query(ctx, input)
		return err
	})
	return out, err
}

func (g *Gateway) buildQueryInput(q Query, limit *int32, startKey map[string]types.AttributeValue) (*dynamodb.QueryInput, error) {
	if q.PartitionValue == "" {
		return nil, errors.NewValidationError("partitionValue", "must not be empty")
	}

	pkAttr, skAttr := record.AttrPK, record.AttrSK
	var indexName *string
	if q.Index != "" {
		idx, ok := g.cfg.Index(q.Index)
		if !ok {
			return nil, errors.NewValidationError("index", "no index named "+q.Index+" is configured")
		}
		pkAttr, skAttr = idx.PartitionKeyName, idx.SortKeyName
		indexName = aws.String(idx.IndexName)
	}

	keyCond := pkAttr + " = :pv"
	values := map[string]types.AttributeValue{
		":pv": &types.AttributeValueMemberS{Value: q.PartitionValue},
	}
	if q.SortPrefix != "" {
		keyCond += " AND begins_with(" + skAttr + ", :sp)"
		values[":sp"] = &types.AttributeValueMemberS{Value: q.SortPrefix}
	}

	return &dynamodb.QueryInput{
		TableName:                 &g.cfg.TableName,
		IndexName:                 indexName,
		KeyConditionExpression:    &keyCond,
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKey,
		Limit:                     limit,
		ScanIndexForward:          aws.Bool(true),
	}, nil
}
