/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

// Package ddbmock is an in-memory stand-in for the DynamoDB operations the
// gateway uses. It honors the semantics the store relies on: per-item atomic
// writes, attribute_not_exists conditional puts, sparse secondary indexes,
// ascending sort-key order, and page continuation. It exists so storage
// behavior is testable without AWS; it is not a general DynamoDB emulator.
package ddbmock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/angryss/idpstore/config"
)

type item = map[string]types.AttributeValue

// Server holds the table state. Safe for concurrent use.
type Server struct {
	mu    sync.Mutex
	cfg   config.Config
	items map[string]item

	// pending errors injected with FailNext, consumed one per call
	failures []error
}

// New creates an empty in-memory table for the given configuration.
func New(cfg config.Config) *Server {
	return &Server{
		cfg:   cfg,
		items: make(map[string]item),
	}
}

// FailNext makes the next n API calls return err before touching state.
// Used to exercise the gateway's retry path.
func (s *Server) FailNext(err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, err)
	}
}

// Len reports the number of stored items.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Server) takeFailure() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

// PutItem stores an item, honoring an attribute_not_exists(PK) condition.
func (s *Server) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	key := itemKey(params.Item)
	if params.ConditionExpression != nil {
		cond := substituteNames(*params.ConditionExpression, params.ExpressionAttributeNames)
		if strings.ReplaceAll(cond, " ", "") != "attribute_not_exists(PK)" {
			return nil, &types.InternalServerError{Message: aws.String("unsupported condition expression: " + cond)}
		}
		if _, exists := s.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	s.items[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem reads one item by primary key.
func (s *Server) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	stored, ok := s.items[itemKey(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(stored)}, nil
}

// DeleteItem removes one item by primary key; deleting a missing item succeeds.
func (s *Server) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	delete(s.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query supports the two key-condition shapes the gateway emits:
//
//	<pk> = :pv
//	<pk> = :pv AND begins_with(<sk>, :sp)
//
// Items not populating an index's partition attribute are invisible to
// queries against it.
func (s *Server) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	cond, err := parseKeyCondition(*params.KeyConditionExpression, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	matched := make([]item, 0)
	for _, stored := range s.items {
		pk := stringValue(stored, cond.pkAttr)
		if pk == "" || pk != cond.pkValue {
			continue
		}
		if cond.skPrefix != "" && !strings.HasPrefix(stringValue(stored, cond.skAttr), cond.skPrefix) {
			continue
		}
		matched = append(matched, stored)
	}
	sort.Slice(matched, func(i, j int) bool {
		si, sj := stringValue(matched[i], cond.skAttr), stringValue(matched[j], cond.skAttr)
		if si != sj {
			return si < sj
		}
		return stringValue(matched[i], "PK") < stringValue(matched[j], "PK")
	})

	start := 0
	if params.ExclusiveStartKey != nil {
		after := itemKey(params.ExclusiveStartKey)
		for i, stored := range matched {
			if itemKey(stored) == after {
				start = i + 1
				break
			}
		}
	}

	end := len(matched)
	if params.Limit != nil && start+int(*params.Limit) < end {
		end = start + int(*params.Limit)
	}

	out := &dynamodb.QueryOutput{}
	for _, stored := range matched[start:end] {
		out.Items = append(out.Items, copyItem(stored))
	}
	if end < len(matched) && end > start {
		last := matched[end-1]
		out.LastEvaluatedKey = item{
			"PK": last["PK"],
			"SK": last["SK"],
		}
	}
	return out, nil
}

type keyCondition struct {
	pkAttr   string
	pkValue  string
	skAttr   string
	skPrefix string
}

func parseKeyCondition(expr string, values map[string]types.AttributeValue) (keyCondition, error) {
	var cond keyCondition
	parts := strings.SplitN(expr, " AND ", 2)

	pkAttr, pkPlaceholder, found := strings.Cut(parts[0], " = ")
	if !found {
		return cond, &types.InternalServerError{Message: aws.String("unsupported key condition: " + expr)}
	}
	cond.pkAttr = strings.TrimSpace(pkAttr)
	cond.pkValue = placeholderValue(values, strings.TrimSpace(pkPlaceholder))

	if len(parts) == 2 {
		clause := strings.TrimSpace(parts[1])
		inner, ok := strings.CutPrefix(clause, "begins_with(")
		if !ok || !strings.HasSuffix(inner, ")") {
			return cond, &types.InternalServerError{Message: aws.String("unsupported key condition: " + expr)}
		}
		inner = strings.TrimSuffix(inner, ")")
		skAttr, skPlaceholder, found := strings.Cut(inner, ",")
		if !found {
			return cond, &types.InternalServerError{Message: aws.String("unsupported key condition: " + expr)}
		}
		cond.skAttr = strings.TrimSpace(skAttr)
		cond.skPrefix = placeholderValue(values, strings.TrimSpace(skPlaceholder))
	}
	if cond.skAttr == "" {
		// derive the sort attribute from the partition attribute so results
		// are ordered even without a prefix clause (PK -> SK, GSI1PK -> GSI1SK)
		cond.skAttr = strings.TrimSuffix(cond.pkAttr, "PK") + "SK"
	}
	return cond, nil
}

func placeholderValue(values map[string]types.AttributeValue, placeholder string) string {
	if av, ok := values[placeholder]; ok {
		if sv, ok := av.(*types.AttributeValueMemberS); ok {
			return sv.Value
		}
	}
	return ""
}

func substituteNames(expr string, names map[string]string) string {
	for placeholder, name := range names {
		expr = strings.ReplaceAll(expr, placeholder, name)
	}
	return expr
}

func itemKey(it item) string {
	return stringValue(it, "PK") + "\x00" + stringValue(it, "SK")
}

func stringValue(it item, attr string) string {
	if av, ok := it[attr]; ok {
		if sv, ok := av.(*types.AttributeValueMemberS); ok {
			return sv.Value
		}
	}
	return ""
}

func copyItem(it item) item {
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
