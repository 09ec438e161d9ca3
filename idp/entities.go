/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package idp

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angryss/idpstore/errors"
	"github.com/angryss/idpstore/keycodec"
	"github.com/angryss/idpstore/record"
	"github.com/angryss/idpstore/sharedinfra"
)

// Stack is a deployable unit of software owned by a team.
type Stack struct {
	ID                  uuid.UUID `validate:"-"`
	Name                string    `validate:"required,max=100"`
	Description         string    `validate:"max=500"`
	CloudName           string    `validate:"max=100"`
	RoutePath           string    `validate:"max=200"`
	RepositoryURL       string    `validate:"max=500"`
	StackType           string    `validate:"max=50"`
	ProgrammingLanguage string    `validate:"max=50"`
	IsPublic            bool
	CreatedBy           string `validate:"max=200"`
	TeamID              uuid.UUID
	BlueprintID         uuid.UUID
	CreatedAt           strfmt.DateTime
	UpdatedAt           strfmt.DateTime
}

// Team groups stacks under one owning organization unit.
type Team struct {
	ID          uuid.UUID `validate:"-"`
	Name        string    `validate:"required,max=100"`
	Description string    `validate:"max=500"`
	IsActive    bool
	CreatedAt   strfmt.DateTime
	UpdatedAt   strfmt.DateTime
}

// Blueprint is a reusable stack template, optionally bound to the cloud
// provider it targets.
type Blueprint struct {
	ID                        uuid.UUID `validate:"-"`
	Name                      string    `validate:"required,max=100"`
	Description               string    `validate:"max=500"`
	IsActive                  bool
	CloudProviderID           uuid.UUID
	SupportedCloudProviderIDs []uuid.UUID
	CreatedAt                 strfmt.DateTime
	UpdatedAt                 strfmt.DateTime
}

// CloudProvider is a configured cloud account/platform target.
type CloudProvider struct {
	ID          uuid.UUID `validate:"-"`
	Name        string    `validate:"required,max=100"`
	DisplayName string    `validate:"max=100"`
	Type        string    `validate:"max=50"`
	Enabled     bool
	CreatedAt   strfmt.DateTime
	UpdatedAt   strfmt.DateTime
}

// APIKey is an issued platform credential. Its storage identity is the
// SHA-256 hash of the secret; the raw secret never reaches the store.
type APIKey struct {
	ID             uuid.UUID `validate:"-"`
	KeyName        string    `validate:"required,max=100"`
	KeyHash        string    `validate:"required,max=100"`
	KeyPrefix      string    `validate:"max=20"`
	KeyType        string    `validate:"max=50"`
	UserEmail      string    `validate:"max=200"`
	CreatedByEmail string    `validate:"max=200"`
	IsActive       bool
	CreatedAt      strfmt.DateTime
	ExpiresAt      strfmt.DateTime
	LastUsedAt     strfmt.DateTime
	RevokedAt      strfmt.DateTime
}

// BlueprintResource is a shared-infrastructure resource attached to a
// blueprint. Its configuration is the polymorphic payload; the variant is
// selected by the configuration's discriminator.
type BlueprintResource struct {
	ID              uuid.UUID `validate:"-"`
	Name            string    `validate:"required,max=100"`
	Description     string    `validate:"max=500"`
	ResourceTypeID  uuid.UUID
	CloudProviderID uuid.UUID
	BlueprintID     uuid.UUID
	Configuration   sharedinfra.Configuration `validate:"-"`
	IsActive        bool
	CreatedAt       strfmt.DateTime
	UpdatedAt       strfmt.DateTime
}

var entityValidate = newEntityValidator()

func newEntityValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return lowerFirst(fld.Name)
	})
	return v
}

func validateEntity(e any) error {
	err := entityValidate.Struct(e)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError("entity", err.Error())
	}
	violations := make([]errors.FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		msg := "failed \"" + fe.Tag() + "\" constraint"
		switch fe.Tag() {
		case "required":
			msg = "is required and must not be blank"
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		}
		violations = append(violations, errors.FieldViolation{Field: fe.Field(), Message: msg})
	}
	return errors.NewValidationErrors(violations)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// ---------- Stack mapping ----------

func stackToRecord(s *Stack) (*record.Record, error) {
	attrs := map[string]any{
		"id":                  s.ID.String(),
		"name":                s.Name,
		"description":         s.Description,
		"cloudName":           s.CloudName,
		"routePath":           s.RoutePath,
		"repositoryURL":       s.RepositoryURL,
		"stackType":           s.StackType,
		"programmingLanguage": s.ProgrammingLanguage,
		"isPublic":            s.IsPublic,
		"createdBy":           s.CreatedBy,
		"createdAt":           s.CreatedAt.String(),
		"updatedAt":           s.UpdatedAt.String(),
	}
	if s.TeamID != uuid.Nil {
		attrs["teamId"] = s.TeamID.String()
	}
	if s.BlueprintID != uuid.Nil {
		attrs["blueprintId"] = s.BlueprintID.String()
	}

	rec, err := record.New(keycodec.TypeStack, s.ID.String(), attrs, nil)
	if err != nil {
		return nil, err
	}
	if s.TeamID != uuid.Nil {
		// query path: all stacks for a team
		if _, err := rec.WithIndexProjection(teamIndex, keycodec.Relation{
			ParentType: keycodec.TypeTeam,
			ParentID:   s.TeamID.String(),
			ChildType:  keycodec.TypeStack,
			ChildID:    s.ID.String(),
		}); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func stackFromRecord(rec *record.Record) (*Stack, error) {
	id, err := uuid.Parse(rec.EntityID)
	if err != nil {
		return nil, errors.NewCorruptRecordError(rec.EntityType, rec.EntityID, "identifier is not a UUID", err)
	}
	s := &Stack{
		ID:                  id,
		Name:                attrString(rec, "name"),
		Description:         attrString(rec, "description"),
		CloudName:           attrString(rec, "cloudName"),
		RoutePath:           attrString(rec, "routePath"),
		RepositoryURL:       attrString(rec, "repositoryURL"),
		StackType:           attrString(rec, "stackType"),
		ProgrammingLanguage: attrString(rec, "programmingLanguage"),
		IsPublic:            attrBool(rec, "isPublic"),
		CreatedBy:           attrString(rec, "createdBy"),
		TeamID:              attrUUID(rec, "teamId"),
		BlueprintID:         attrUUID(rec, "blueprintId"),
		CreatedAt:           attrTime(rec, "createdAt"),
		UpdatedAt:           attrTime(rec, "updatedAt"),
	}
	return s, nil
}

// ---------- Team mapping ----------

func teamToRecord(t *Team) (*record.Record, error) {
	attrs := map[string]any{
		"id":          t.ID.String(),
		"name":        t.Name,
		"description": t.Description,
		"isActive":    t.IsActive,
		"createdAt":   t.CreatedAt.String(),
		"updatedAt":   t.UpdatedAt.String(),
	}
	return record.New(keycodec.TypeTeam, t.ID.String(), attrs, nil)
}

func teamFromRecord(rec *record.Record) (*Team, error) {
	id, err := uuid.Parse(rec.EntityID)
	if err != nil {
		return nil, errors.NewCorruptRecordError(rec.EntityType, rec.EntityID, "identifier is not a UUID", err)
	}
	return &Team{
		ID:          id,
		Name:        attrString(rec, "name"),
		Description: attrString(rec, "description"),
		IsActive:    attrBool(rec, "isActive"),
		CreatedAt:   attrTime(rec, "createdAt"),
		UpdatedAt:   attrTime(rec, "updatedAt"),
	}, nil
}

// ---------- Blueprint mapping ----------

func blueprintToRecord(b *Blueprint) (*record.Record, error) {
	attrs := map[string]any{
		"id":          b.ID.String(),
		"name":        b.Name,
		"description": b.Description,
		"isActive":    b.IsActive,
		"createdAt":   b.CreatedAt.String(),
		"updatedAt":   b.UpdatedAt.String(),
	}
	if b.CloudProviderID != uuid.Nil {
		attrs["cloudProviderId"] = b.CloudProviderID.String()
	}
	if len(b.SupportedCloudProviderIDs) > 0 {
		ids := make([]string, len(b.SupportedCloudProviderIDs))
		for i, pid := range b.SupportedCloudProviderIDs {
			ids[i] = pid.String()
		}
		attrs["supportedCloudProviderIds"] = ids
	}

	rec, err := record.New(keycodec.TypeBlueprint, b.ID.String(), attrs, nil)
	if err != nil {
		return nil, err
	}
	if b.CloudProviderID != uuid.Nil {
		// query path: all blueprints for a cloud provider
		if _, err := rec.WithIndexProjection(providerIndex, keycodec.Relation{
			ParentType: keycodec.TypeCloudProvider,
			ParentID:   b.CloudProviderID.String(),
			ChildType:  keycodec.TypeBlueprint,
			ChildID:    b.ID.String(),
		}); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func blueprintFromRecord(rec *record.Record) (*Blueprint, error) {
	id, err := uuid.Parse(rec.EntityID)
	if err != nil {
		return nil, errors.NewCorruptRecordError(rec.EntityType, rec.EntityID, "identifier is not a UUID", err)
	}
	b := &Blueprint{
		ID:              id,
		Name:            attrString(rec, "name"),
		Description:     attrString(rec, "description"),
		IsActive:        attrBool(rec, "isActive"),
		CloudProviderID: attrUUID(rec, "cloudProviderId"),
		CreatedAt:       attrTime(rec, "createdAt"),
		UpdatedAt:       attrTime(rec, "updatedAt"),
	}
	if raw, ok := rec.Attributes["supportedCloudProviderIds"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				if pid, err := uuid.Parse(s); err == nil {
					b.SupportedCloudProviderIDs = append(b.SupportedCloudProviderIDs, pid)
				}
			}
		}
	}
	return b, nil
}

// ---------- CloudProvider mapping ----------

func cloudProviderToRecord(p *CloudProvider) (*record.Record, error) {
	attrs := map[string]any{
		"id":          p.ID.String(),
		"name":        p.Name,
		"displayName": p.DisplayName,
		"type":        p.Type,
		"enabled":     p.Enabled,
		"createdAt":   p.CreatedAt.String(),
		"updatedAt":   p.UpdatedAt.String(),
	}
	return record.New(keycodec.TypeCloudProvider, p.ID.String(), attrs, nil)
}

func cloudProviderFromRecord(rec *record.Record) (*CloudProvider, error) {
	id, err := uuid.Parse(rec.EntityID)
	if err != nil {
		return nil, errors.NewCorruptRecordError(rec.EntityType, rec.EntityID, "identifier is not a UUID", err)
	}
	return &CloudProvider{
		ID:          id,
		Name:        attrString(rec, "name"),
		DisplayName: attrString(rec, "displayName"),
		Type:        attrString(rec, "type"),
		Enabled:     attrBool(rec, "enabled"),
		CreatedAt:   attrTime(rec, "createdAt"),
		UpdatedAt:   attrTime(rec, "updatedAt"),
	}, nil
}

// ---------- APIKey mapping ----------

func apiKeyToRecord(k *APIKey) (*record.Record, error) {
	attrs := map[string]any{
		"id":             k.ID.String(),
		"keyName":        k.KeyName,
		"keyHash":        k.KeyHash,
		"keyPrefix":      k.KeyPrefix,
		"keyType":        k.KeyType,
		"userEmail":      k.UserEmail,
		"createdByEmail": k.CreatedByEmail,
		"isActive":       k.IsActive,
		"createdAt":      k.CreatedAt.String(),
		"expiresAt":      k.ExpiresAt.String(),
		"lastUsedAt":     k.LastUsedAt.String(),
		"revokedAt":      k.RevokedAt.String(),
	}
	// the key hash, never the secret, is the storage identity
	return record.New(keycodec.TypeAPIKey, k.KeyHash, attrs, nil)
}

func apiKeyFromRecord(rec *record.Record) (*APIKey, error) {
	id, err := uuid.Parse(attrString(rec, "id"))
	if err != nil {
		return nil, errors.NewCorruptRecordError(rec.EntityType, rec.EntityID, "id attribute is not a UUID", err)
	}
	return &APIKey{
		ID:             id,
		KeyName:        attrString(rec, "keyName"),
		KeyHash:        rec.EntityID,
		KeyPrefix:      attrString(rec, "keyPrefix"),
		KeyType:        attrString(rec, "keyType"),
		UserEmail:      attrString(rec, "userEmail"),
		CreatedByEmail: attrString(rec, "createdByEmail"),
		IsActive:       attrBool(rec, "isActive"),
		CreatedAt:      attrTime(rec, "createdAt"),
		ExpiresAt:      attrTime(rec, "expiresAt"),
		LastUsedAt:     attrTime(rec, "lastUsedAt"),
		RevokedAt:      attrTime(rec, "revokedAt"),
	}, nil
}

// ---------- BlueprintResource mapping ----------

func blueprintResourceToRecord(r *BlueprintResource) (*record.Record, error) {
	attrs := map[string]any{
		"id":          r.ID.String(),
		"name":        r.Name,
		"description": r.Description,
		"isActive":    r.IsActive,
		"createdAt":   r.CreatedAt.String(),
		"updatedAt":   r.UpdatedAt.String(),
	}
	if r.ResourceTypeID != uuid.Nil {
		attrs["resourceTypeId"] = r.ResourceTypeID.String()
	}
	if r.CloudProviderID != uuid.Nil {
		attrs["cloudProviderId"] = r.CloudProviderID.String()
	}
	if r.BlueprintID != uuid.Nil {
		attrs["blueprintId"] = r.BlueprintID.String()
	}

	rec, err := record.New(keycodec.TypeBlueprintResource, r.ID.String(), attrs, r.Configuration)
	if err != nil {
		return nil, err
	}
	if r.BlueprintID != uuid.Nil {
		// query path: all resources for a blueprint
		if _, err := rec.WithIndexProjection(teamIndex, keycodec.Relation{
			ParentType: keycodec.TypeBlueprint,
			ParentID:   r.BlueprintID.String(),
			ChildType:  keycodec.TypeBlueprintResource,
			ChildID:    r.ID.String(),
		}); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func blueprintResourceFromRecord(rec *record.Record) (*BlueprintResource, error) {
	id, err := uuid.Parse(rec.EntityID)
	if err != nil {
		return nil, errors.NewCorruptRecordError(rec.EntityType, rec.EntityID, "identifier is not a UUID", err)
	}
	return &BlueprintResource{
		ID:              id,
		Name:            attrString(rec, "name"),
		Description:     attrString(rec, "description"),
		ResourceTypeID:  attrUUID(rec, "resourceTypeId"),
		CloudProviderID: attrUUID(rec, "cloudProviderId"),
		BlueprintID:     attrUUID(rec, "blueprintId"),
		Configuration:   rec.Configuration,
		IsActive:        attrBool(rec, "isActive"),
		CreatedAt:       attrTime(rec, "createdAt"),
		UpdatedAt:       attrTime(rec, "updatedAt"),
	}, nil
}

// ---------- attribute helpers ----------

func attrString(rec *record.Record, name string) string {
	if v, ok := rec.Attributes[name].(string); ok {
		return v
	}
	return ""
}

func attrBool(rec *record.Record, name string) bool {
	if v, ok := rec.Attributes[name].(bool); ok {
		return v
	}
	return false
}

func attrUUID(rec *record.Record, name string) uuid.UUID {
	if v, ok := rec.Attributes[name].(string); ok {
		if id, err := uuid.Parse(v); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func attrTime(rec *record.Record, name string) strfmt.DateTime {
	if v, ok := rec.Attributes[name].(string); ok {
		if dt, err := strfmt.ParseDateTime(v); err == nil {
			return dt
		}
	}
	return strfmt.DateTime{}
}

func now() strfmt.DateTime {
	return strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond))
}

func timeIsZero(dt strfmt.DateTime) bool {
	return time.Time(dt).IsZero()
}
