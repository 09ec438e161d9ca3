/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

// Package idp is the typed access layer of the metadata store. Each entity
// gets explicit create/save/get/delete operations plus the relation queries
// the platform actually serves; every method is a thin wrapper over the
// storage gateway, so the error contract (NotFound, AlreadyExists,
// Validation, Unavailable and friends) passes through unchanged.
package idp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/angryss/idpstore/errors"
	"github.com/angryss/idpstore/gateway"
	"github.com/angryss/idpstore/keycodec"
	"github.com/angryss/idpstore/record"
)

const (
	// teamIndex carries parent-to-child ownership relations
	// (team to stacks, blueprint to resources).
	teamIndex = "GSI1"
	// providerIndex carries cloud-provider relations (provider to blueprints).
	providerIndex = "GSI2"
)

// Store exposes the platform's access patterns over the storage gateway.
type Store struct {
	gw *gateway.Gateway
}

// NewStore wraps a gateway in the typed access layer.
func NewStore(gw *gateway.Gateway) *Store {
	return &Store{gw: gw}
}

// Gateway exposes the underlying gateway for callers needing raw record
// operations or streaming queries.
func (s *Store) Gateway() *gateway.Gateway {
	return s.gw
}

// partition composes an index partition value from a parent identity.
// The IDs here are UUID strings or hex digests, so composition cannot
// fail; a malformed value would come back empty and be rejected by the
// gateway's query validation.
func partition(entityType, id string) string {
	v, _ := keycodec.Compose(entityType, id)
	return v
}

// HashAPIKey derives the storage identity of an API key from its secret.
// The store never sees or persists the raw secret; lookups present the
// same hash.
func HashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ---------- Stack ----------

// CreateStack persists a new stack. A zero ID is assigned; an existing ID
// fails with AlreadyExists instead of overwriting.
func (s *Store) CreateStack(ctx context.Context, stack *Stack) error {
	if stack.ID == uuid.Nil {
		stack.ID = uuid.New()
	}
	touchCreate(&stack.CreatedAt, &stack.UpdatedAt)
	if err := validateEntity(stack); err != nil {
		return err
	}
	rec, err := stackToRecord(stack)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.CreateOnly)
}

// SaveStack writes the stack unconditionally, replacing any prior state.
func (s *Store) SaveStack(ctx context.Context, stack *Stack) error {
	if stack.ID == uuid.Nil {
		return errors.NewValidationError("id", "must not be empty")
	}
	touchUpdate(&stack.CreatedAt, &stack.UpdatedAt)
	if err := validateEntity(stack); err != nil {
		return err
	}
	rec, err := stackToRecord(stack)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.Upsert)
}

// GetStack reads one stack by ID.
func (s *Store) GetStack(ctx context.Context, id uuid.UUID) (*Stack, error) {
	rec, err := s.gw.GetByIdentity(ctx, keycodec.TypeStack, id.String())
	if err != nil {
		return nil, err
	}
	return stackFromRecord(rec)
}

// DeleteStack removes one stack. Deleting a missing stack succeeds.
func (s *Store) DeleteStack(ctx context.Context, id uuid.UUID) error {
	return s.gw.Delete(ctx, keycodec.TypeStack, id.String())
}

// StacksForTeam returns every stack owned by the team, in ascending
// sort-key order. The read goes through the ownership index and is
// eventually consistent with the latest writes.
func (s *Store) StacksForTeam(ctx context.Context, teamID uuid.UUID) ([]*Stack, error) {
	recs, err := s.gw.QueryAll(ctx, gateway.Query{
		Index:          teamIndex,
		PartitionValue: partition(keycodec.TypeTeam, teamID.String()),
		SortPrefix:     keycodec.TypeStack + keycodec.Delimiter,
	})
	if err != nil {
		return nil, err
	}
	stacks := make([]*Stack, 0, len(recs))
	for _, rec := range recs {
		stack, err := stackFromRecord(rec)
		if err != nil {
			return nil, err
		}
		stacks = append(stacks, stack)
	}
	return stacks, nil
}

// StacksForTeamPage returns one bounded page of the team's stacks plus a
// continuation token. An empty returned token means the set is exhausted.
func (s *Store) StacksForTeamPage(ctx context.Context, teamID uuid.UUID, limit int32, token string) ([]*Stack, string, error) {
	page, err := s.gw.QueryPage(ctx, gateway.Query{
		Index:          teamIndex,
		PartitionValue: partition(keycodec.TypeTeam, teamID.String()),
		SortPrefix:     keycodec.TypeStack + keycodec.Delimiter,
	}, limit, token)
	if err != nil {
		return nil, "", err
	}
	stacks := make([]*Stack, 0, len(page.Records))
	for _, rec := range page.Records {
		stack, err := stackFromRecord(rec)
		if err != nil {
			return nil, "", err
		}
		stacks = append(stacks, stack)
	}
	return stacks, page.NextToken, nil
}

// ---------- Team ----------

// CreateTeam persists a new team.
func (s *Store) CreateTeam(ctx context.Context, team *Team) error {
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	touchCreate(&team.CreatedAt, &team.UpdatedAt)
	if err := validateEntity(team); err != nil {
		return err
	}
	rec, err := teamToRecord(team)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.CreateOnly)
}

// SaveTeam writes the team unconditionally.
func (s *Store) SaveTeam(ctx context.Context, team *Team) error {
	if team.ID == uuid.Nil {
		return errors.NewValidationError("id", "must not be empty")
	}
	touchUpdate(&team.CreatedAt, &team.UpdatedAt)
	if err := validateEntity(team); err != nil {
		return err
	}
	rec, err := teamToRecord(team)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.Upsert)
}

// GetTeam reads one team by ID.
func (s *Store) GetTeam(ctx context.Context, id uuid.UUID) (*Team, error) {
	rec, err := s.gw.GetByIdentity(ctx, keycodec.TypeTeam, id.String())
	if err != nil {
		return nil, err
	}
	return teamFromRecord(rec)
}

// DeleteTeam removes one team. Stacks that referenced it keep their
// dangling projection until they are themselves rewritten or removed.
func (s *Store) DeleteTeam(ctx context.Context, id uuid.UUID) error {
	return s.gw.Delete(ctx, keycodec.TypeTeam, id.String())
}

// ---------- Blueprint ----------

// CreateBlueprint persists a new blueprint.
func (s *Store) CreateBlueprint(ctx context.Context, bp *Blueprint) error {
	if bp.ID == uuid.Nil {
		bp.ID = uuid.New()
	}
	touchCreate(&bp.CreatedAt, &bp.UpdatedAt)
	if err := validateEntity(bp); err != nil {
		return err
	}
	rec, err := blueprintToRecord(bp)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.CreateOnly)
}

// SaveBlueprint writes the blueprint unconditionally.
func (s *Store) SaveBlueprint(ctx context.Context, bp *Blueprint) error {
	if bp.ID == uuid.Nil {
		return errors.NewValidationError("id", "must not be empty")
	}
	touchUpdate(&bp.CreatedAt, &bp.UpdatedAt)
	if err := validateEntity(bp); err != nil {
		return err
	}
	rec, err := blueprintToRecord(bp)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.Upsert)
}

// GetBlueprint reads one blueprint by ID.
func (s *Store) GetBlueprint(ctx context.Context, id uuid.UUID) (*Blueprint, error) {
	rec, err := s.gw.GetByIdentity(ctx, keycodec.TypeBlueprint, id.String())
	if err != nil {
		return nil, err
	}
	return blueprintFromRecord(rec)
}

// DeleteBlueprint removes one blueprint.
func (s *Store) DeleteBlueprint(ctx context.Context, id uuid.UUID) error {
	return s.gw.Delete(ctx, keycodec.TypeBlueprint, id.String())
}

// BlueprintsForProvider returns every blueprint targeting the cloud
// provider, in ascending sort-key order.
func (s *Store) BlueprintsForProvider(ctx context.Context, providerID uuid.UUID) ([]*Blueprint, error) {
	recs, err := s.gw.QueryAll(ctx, gateway.Query{
		Index:          providerIndex,
		PartitionValue: partition(keycodec.TypeCloudProvider, providerID.String()),
		SortPrefix:     keycodec.TypeBlueprint + keycodec.Delimiter,
	})
	if err != nil {
		return nil, err
	}
	bps := make([]*Blueprint, 0, len(recs))
	for _, rec := range recs {
		bp, err := blueprintFromRecord(rec)
		if err != nil {
			return nil, err
		}
		bps = append(bps, bp)
	}
	return bps, nil
}

// BlueprintsForProviderPage returns one bounded page of the provider's
// blueprints plus a continuation token.
func (s *Store) BlueprintsForProviderPage(ctx context.Context, providerID uuid.UUID, limit int32, token string) ([]*Blueprint, string, error) {
	page, err := s.gw.QueryPage(ctx, gateway.Query{
		Index:          providerIndex,
		PartitionValue: partition(keycodec.TypeCloudProvider, providerID.String()),
		SortPrefix:     keycodec.TypeBlueprint + keycodec.Delimiter,
	}, limit, token)
	if err != nil {
		return nil, "", err
	}
	bps := make([]*Blueprint, 0, len(page.Records))
	for _, rec := range page.Records {
		bp, err := blueprintFromRecord(rec)
		if err != nil {
			return nil, "", err
		}
		bps = append(bps, bp)
	}
	return bps, page.NextToken, nil
}

// ---------- CloudProvider ----------

// CreateCloudProvider persists a new cloud provider.
func (s *Store) CreateCloudProvider(ctx context.Context, p *CloudProvider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	touchCreate(&p.CreatedAt, &p.UpdatedAt)
	if err := validateEntity(p); err != nil {
		return err
	}
	rec, err := cloudProviderToRecord(p)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.CreateOnly)
}

// SaveCloudProvider writes the provider unconditionally.
func (s *Store) SaveCloudProvider(ctx context.Context, p *CloudProvider) error {
	if p.ID == uuid.Nil {
		return errors.NewValidationError("id", "must not be empty")
	}
	touchUpdate(&p.CreatedAt, &p.UpdatedAt)
	if err := validateEntity(p); err != nil {
		return err
	}
	rec, err := cloudProviderToRecord(p)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.Upsert)
}

// GetCloudProvider reads one provider by ID.
func (s *Store) GetCloudProvider(ctx context.Context, id uuid.UUID) (*CloudProvider, error) {
	rec, err := s.gw.GetByIdentity(ctx, keycodec.TypeCloudProvider, id.String())
	if err != nil {
		return nil, err
	}
	return cloudProviderFromRecord(rec)
}

// DeleteCloudProvider removes one provider.
func (s *Store) DeleteCloudProvider(ctx context.Context, id uuid.UUID) error {
	return s.gw.Delete(ctx, keycodec.TypeCloudProvider, id.String())
}

// ---------- APIKey ----------

// CreateAPIKey persists a new API key. The key's storage identity is its
// secret hash, so issuing the same secret twice fails with AlreadyExists.
func (s *Store) CreateAPIKey(ctx context.Context, k *APIKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	if timeIsZero(k.CreatedAt) {
		k.CreatedAt = now()
	}
	if err := validateEntity(k); err != nil {
		return err
	}
	rec, err := apiKeyToRecord(k)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.CreateOnly)
}

// SaveAPIKey writes the key unconditionally. Used for revocation and
// last-used bookkeeping.
func (s *Store) SaveAPIKey(ctx context.Context, k *APIKey) error {
	if err := validateEntity(k); err != nil {
		return err
	}
	rec, err := apiKeyToRecord(k)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.Upsert)
}

// GetAPIKeyByHash reads one key by its secret hash.
func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	rec, err := s.gw.GetByIdentity(ctx, keycodec.TypeAPIKey, keyHash)
	if err != nil {
		return nil, err
	}
	return apiKeyFromRecord(rec)
}

// GetAPIKeyBySecret hashes the presented secret and reads the matching key.
// The secret itself never reaches the backend.
func (s *Store) GetAPIKeyBySecret(ctx context.Context, secret string) (*APIKey, error) {
	return s.GetAPIKeyByHash(ctx, HashAPIKey(secret))
}

// DeleteAPIKey removes one key by its secret hash.
func (s *Store) DeleteAPIKey(ctx context.Context, keyHash string) error {
	return s.gw.Delete(ctx, keycodec.TypeAPIKey, keyHash)
}

// ---------- BlueprintResource ----------

// CreateBlueprintResource persists a new shared-infrastructure resource.
// Its polymorphic configuration is validated before anything is written.
func (s *Store) CreateBlueprintResource(ctx context.Context, r *BlueprintResource) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	touchCreate(&r.CreatedAt, &r.UpdatedAt)
	if err := validateEntity(r); err != nil {
		return err
	}
	rec, err := blueprintResourceToRecord(r)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.CreateOnly)
}

// SaveBlueprintResource writes the resource unconditionally.
func (s *Store) SaveBlueprintResource(ctx context.Context, r *BlueprintResource) error {
	if r.ID == uuid.Nil {
		return errors.NewValidationError("id", "must not be empty")
	}
	touchUpdate(&r.CreatedAt, &r.UpdatedAt)
	if err := validateEntity(r); err != nil {
		return err
	}
	rec, err := blueprintResourceToRecord(r)
	if err != nil {
		return err
	}
	return s.gw.Put(ctx, rec, gateway.Upsert)
}

// GetBlueprintResource reads one resource by ID.
func (s *Store) GetBlueprintResource(ctx context.Context, id uuid.UUID) (*BlueprintResource, error) {
	rec, err := s.gw.GetByIdentity(ctx, keycodec.TypeBlueprintResource, id.String())
	if err != nil {
		return nil, err
	}
	return blueprintResourceFromRecord(rec)
}

// DeleteBlueprintResource removes one resource.
func (s *Store) DeleteBlueprintResource(ctx context.Context, id uuid.UUID) error {
	return s.gw.Delete(ctx, keycodec.TypeBlueprintResource, id.String())
}

// ResourcesForBlueprint returns every resource attached to the blueprint,
// in ascending sort-key order.
func (s *Store) ResourcesForBlueprint(ctx context.Context, blueprintID uuid.UUID) ([]*BlueprintResource, error) {
	recs, err := s.gw.QueryAll(ctx, gateway.Query{
		Index:          teamIndex,
		PartitionValue: partition(keycodec.TypeBlueprint, blueprintID.String()),
		SortPrefix:     keycodec.TypeBlueprintResource + keycodec.Delimiter,
	})
	if err != nil {
		return nil, err
	}
	resources := make([]*BlueprintResource, 0, len(recs))
	for _, rec := range recs {
		r, err := blueprintResourceFromRecord(rec)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// ---------- record passthrough ----------

// PutRecord writes a raw record through the gateway. For callers managing
// their own entity shapes.
func (s *Store) PutRecord(ctx context.Context, rec *record.Record, mode gateway.WriteMode) error {
	return s.gw.Put(ctx, rec, mode)
}

// touchCreate stamps both timestamps on first write, preserving any values
// the caller set explicitly.
func touchCreate(createdAt, updatedAt *strfmt.DateTime) {
	ts := now()
	if timeIsZero(*createdAt) {
		*createdAt = ts
	}
	if timeIsZero(*updatedAt) {
		*updatedAt = ts
	}
}

// touchUpdate refreshes UpdatedAt and backfills CreatedAt for records
// written before timestamps were tracked.
func touchUpdate(createdAt, updatedAt *strfmt.DateTime) {
	*updatedAt = now()
	if timeIsZero(*createdAt) {
		*createdAt = *updatedAt
	}
}
