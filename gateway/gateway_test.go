/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package gateway_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/angryss/idpstore/config"
	"github.com/angryss/idpstore/ddbmock"
	"github.com/angryss/idpstore/errors"
	"github.com/angryss/idpstore/gateway"
	"github.com/angryss/idpstore/keycodec"
	"github.com/angryss/idpstore/record"
)

func newTestGateway(t *testing.T) (*gateway.Gateway, *ddbmock.Server) {
	t.Helper()
	cfg := config.Default()
	server := ddbmock.New(cfg)
	gw := gateway.New(server, cfg, gateway.WithRetryPolicy(gateway.RetryPolicy{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Millisecond,
	}))
	return gw, server
}

func mustRecord(t *testing.T, entityType, entityID string, attrs map[string]any) *record.Record {
	t.Helper()
	rec, err := record.New(entityType, entityID, attrs, nil)
	if err != nil {
		t.Fatalf("record.New: %v", err)
	}
	return rec
}

func TestPutAndGetRoundTrip(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	rec := mustRecord(t, keycodec.TypeTeam, "t1", map[string]any{"name": "platform"})
	if err := gw.Put(ctx, rec, gateway.CreateOnly); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := gw.GetByIdentity(ctx, keycodec.TypeTeam, "t1")
	if err != nil {
		t.Fatalf("GetByIdentity: %v", err)
	}
	if got.Attributes["name"] != "platform" {
		t.Errorf("name = %v", got.Attributes["name"])
	}
}

func TestGetByIdentityNotFound(t *testing.T) {
	gw, _ := newTestGateway(t)
	_, err := gw.GetByIdentity(context.Background(), keycodec.TypeTeam, "absent")
	if !errors.IsNotFound(err) {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestCreateOnlyConflict(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	first := mustRecord(t, keycodec.TypeStack, "s1", map[string]any{"name": "one"})
	if err := gw.Put(ctx, first, gateway.CreateOnly); err != nil {
		t.Fatalf("first Put: %v", err)
	}

	second := mustRecord(t, keycodec.TypeStack, "s1", map[string]any{"name": "two"})
	err := gw.Put(ctx, second, gateway.CreateOnly)
	if !errors.IsAlreadyExists(err) {
		t.Fatalf("got %v, want AlreadyExists", err)
	}

	// the loser must not have clobbered the winner
	got, err := gw.GetByIdentity(ctx, keycodec.TypeStack, "s1")
	if err != nil {
		t.Fatalf("GetByIdentity: %v", err)
	}
	if got.Attributes["name"] != "one" {
		t.Errorf("conflicting create overwrote the item: name = %v", got.Attributes["name"])
	}
}

func TestConcurrentCreatesResolveToOneWinner(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := record.New(keycodec.TypeTeam, "contested", map[string]any{"name": "x"}, nil)
			if err != nil {
				results <- err
				return
			}
			results <- gw.Put(ctx, rec, gateway.CreateOnly)
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.IsAlreadyExists(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if conflicts != writers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, writers-1)
	}
}

func TestUpsertOverwrites(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	if err := gw.Put(ctx, mustRecord(t, keycodec.TypeTeam, "t1", map[string]any{"name": "before"}), gateway.Upsert); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := gw.Put(ctx, mustRecord(t, keycodec.TypeTeam, "t1", map[string]any{"name": "after"}), gateway.Upsert); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := gw.GetByIdentity(ctx, keycodec.TypeTeam, "t1")
	if err != nil {
		t.Fatalf("GetByIdentity: %v", err)
	}
	if got.Attributes["name"] != "after" {
		t.Errorf("name = %v, want after", got.Attributes["name"])
	}
}

func TestExists(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	ok, err := gw.Exists(ctx, keycodec.TypeStack, "s1")
	if err != nil || ok {
		t.Fatalf("Exists before write = (%v, %v)", ok, err)
	}

	if err := gw.Put(ctx, mustRecord(t, keycodec.TypeStack, "s1", nil), gateway.Upsert); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err = gw.Exists(ctx, keycodec.TypeStack, "s1")
	if err != nil || !ok {
		t.Fatalf("Exists after write = (%v, %v)", ok, err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	gw, server := newTestGateway(t)
	ctx := context.Background()

	if err := gw.Put(ctx, mustRecord(t, keycodec.TypeStack, "s1", nil), gateway.Upsert); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := gw.Delete(ctx, keycodec.TypeStack, "s1"); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := gw.Delete(ctx, keycodec.TypeStack, "s1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if server.Len() != 0 {
		t.Errorf("items remaining = %d", server.Len())
	}
}

func TestDeleteLeavesPartitionNeighborsAlone(t *testing.T) {
	gw, server := newTestGateway(t)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2"} {
		if err := gw.Put(ctx, mustRecord(t, keycodec.TypeStack, id, nil), gateway.Upsert); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}
	if err := gw.Delete(ctx, keycodec.TypeStack, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if server.Len() != 1 {
		t.Errorf("items remaining = %d, want 1", server.Len())
	}
	if _, err := gw.GetByIdentity(ctx, keycodec.TypeStack, "s2"); err != nil {
		t.Errorf("neighbor lost: %v", err)
	}
}

func TestInvalidIdentityRejectedBeforeBackend(t *testing.T) {
	gw, server := newTestGateway(t)
	ctx := context.Background()

	if _, err := gw.GetByIdentity(ctx, "", "id"); !errors.IsInvalidIdentity(err) {
		t.Errorf("GetByIdentity: %v", err)
	}
	if err := gw.Delete(ctx, keycodec.TypeStack, "a#b"); !errors.IsInvalidIdentity(err) {
		t.Errorf("Delete: %v", err)
	}
	if server.Len() != 0 {
		t.Errorf("malformed identity reached the backend")
	}
}

func TestTransientFailuresAreRetried(t *testing.T) {
	gw, server := newTestGateway(t)
	ctx := context.Background()

	server.FailNext(&types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}, 2)
	err := gw.Put(ctx, mustRecord(t, keycodec.TypeTeam, "t1", nil), gateway.Upsert)
	if err != nil {
		t.Fatalf("retries did not absorb transient failures: %v", err)
	}
	if server.Len() != 1 {
		t.Errorf("item not written after retries")
	}
}

func TestRetriesExhaustedYieldUnavailable(t *testing.T) {
	gw, server := newTestGateway(t)
	ctx := context.Background()

	server.FailNext(&types.InternalServerError{Message: aws.String("down")}, 10)
	err := gw.Put(ctx, mustRecord(t, keycodec.TypeTeam, "t1", nil), gateway.Upsert)
	if !errors.IsUnavailable(err) {
		t.Fatalf("got %v, want Unavailable", err)
	}
}

func TestNonTransientFailurePropagates(t *testing.T) {
	gw, server := newTestGateway(t)
	ctx := context.Background()

	server.FailNext(&types.ResourceNotFoundException{Message: aws.String("no such table")}, 1)
	err := gw.Put(ctx, mustRecord(t, keycodec.TypeTeam, "t1", nil), gateway.Upsert)
	if err == nil || errors.IsUnavailable(err) {
		t.Fatalf("got %v, want the raw backend error", err)
	}
	// only one call consumed: no retry happened
	if server.Len() != 0 {
		t.Errorf("item written despite failure")
	}
}

func TestConditionalFailureIsNeverRetried(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	if err := gw.Put(ctx, mustRecord(t, keycodec.TypeStack, "s1", nil), gateway.CreateOnly); err != nil {
		t.Fatalf("Put: %v", err)
	}
	start := time.Now()
	err := gw.Put(ctx, mustRecord(t, keycodec.TypeStack, "s1", nil), gateway.CreateOnly)
	if !errors.IsAlreadyExists(err) {
		t.Fatalf("got %v, want AlreadyExists", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("conflict took %v, suggesting a retry loop", elapsed)
	}
}

func TestCancelledContextYieldsUnavailable(t *testing.T) {
	gw, server := newTestGateway(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	server.FailNext(&types.InternalServerError{Message: aws.String("down")}, 1)

	err := gw.Put(ctx, mustRecord(t, keycodec.TypeTeam, "t1", nil), gateway.Upsert)
	if !errors.IsUnavailable(err) {
		t.Fatalf("got %v, want Unavailable", err)
	}
}

func TestCorruptItemSurfacesAsCorruptRecord(t *testing.T) {
	gw, server := newTestGateway(t)
	ctx := context.Background()

	// write a structurally broken item straight into the backend
	item := map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: "STACK#bad"},
		"SK":            &types.AttributeValueMemberS{Value: keycodec.MetadataSortKey},
		"configuration": &types.AttributeValueMemberS{Value: "not json"},
	}
	if _, err := server.PutItem(ctx, putItemInput(t, item)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := gw.GetByIdentity(ctx, keycodec.TypeStack, "bad")
	if !errors.IsCorruptRecord(err) {
		t.Fatalf("got %v, want CorruptRecord", err)
	}
}

func putItemInput(t *testing.T, item map[string]types.AttributeValue) *dynamodb.PutItemInput {
	t.Helper()
	table := config.Default().TableName
	return &dynamodb.PutItemInput{TableName: &table, Item: item}
}
