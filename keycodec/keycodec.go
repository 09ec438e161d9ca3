/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package keycodec

import (
	"strings"

	"github.com/angryss/idpstore/errors"
)

// Delimiter joins the entity type prefix and the identifier inside a key.
// It must never appear inside either component; the codec rejects it at
// construction time so distinct identities can never collide.
const Delimiter = "#"

// MetadataSortKey is the sort key of an entity's own record. Relationship
// items co-located in the same partition use relationKind#relatedId instead.
const MetadataSortKey = "METADATA"

// Entity type prefixes for the single-table design.
const (
	TypeStack                    = "STACK"
	TypeTeam                     = "TEAM"
	TypeBlueprint                = "BLUEPRINT"
	TypeCloudProvider            = "CLOUDPROVIDER"
	TypeAPIKey                   = "APIKEY"
	TypeStackResource            = "STACKRESOURCE"
	TypeBlueprintResource        = "BLUEPRINTRESOURCE"
	TypeResourceType             = "RESOURCETYPE"
	TypeCategory                 = "CATEGORY"
	TypeDomain                   = "DOMAIN"
	TypeEnvironment              = "ENVIRONMENT"
	TypeStackCollection          = "STACKCOLLECTION"
	TypePropertySchema           = "PROPERTYSCHEMA"
	TypeResourceTypeCloudMapping = "RESOURCETYPECLOUDMAPPING"
)

// PrimaryKey is the physical (PK, SK) pair identifying exactly one item.
type PrimaryKey struct {
	PK string
	SK string
}

// IndexKey is a (partition, sort) pair projected onto a secondary index.
type IndexKey struct {
	PK string
	SK string
}

// Relation names the parent/child pair a secondary index projects.
// For example, a stack owned by a team projects
// {ParentType: TEAM, ParentID: teamId, ChildType: STACK, ChildID: stackId}
// onto GSI1, enabling the "all stacks for a team" query.
type Relation struct {
	ParentType string
	ParentID   string
	ChildType  string
	ChildID    string
}

// BuildPrimaryKey derives the physical primary key for an entity identity.
// Deterministic and injective: distinct identities never produce the same
// (PK, SK) pair. Malformed components yield InvalidIdentity.
func BuildPrimaryKey(entityType, entityID string) (PrimaryKey, error) {
	pk, err := Compose(entityType, entityID)
	if err != nil {
		return PrimaryKey{}, err
	}
	return PrimaryKey{PK: pk, SK: MetadataSortKey}, nil
}

// BuildRelationKey derives the key of a relationship item co-located under
// the owning entity's partition.
func BuildRelationKey(entityType, entityID, relationKind, relatedID string) (PrimaryKey, error) {
	pk, err := Compose(entityType, entityID)
	if err != nil {
		return PrimaryKey{}, err
	}
	sk, err := Compose(relationKind, relatedID)
	if err != nil {
		return PrimaryKey{}, err
	}
	return PrimaryKey{PK: pk, SK: sk}, nil
}

// BuildIndexKey derives the secondary-index key pair for a relation.
// indexName selects the index (e.g. "GSI1") but does not alter the values;
// it is validated non-empty so a typo fails loudly instead of projecting
// onto nothing.
func BuildIndexKey(indexName string, rel Relation) (IndexKey, error) {
	if indexName == "" {
		return IndexKey{}, errors.NewInvalidIdentityError(rel.ParentType, rel.ParentID, "empty index name")
	}
	pk, err := Compose(rel.ParentType, rel.ParentID)
	if err != nil {
		return IndexKey{}, err
	}
	sk, err := Compose(rel.ChildType, rel.ChildID)
	if err != nil {
		return IndexKey{}, err
	}
	return IndexKey{PK: pk, SK: sk}, nil
}

// Compose joins an entity type and identifier into a prefixed key value.
func Compose(entityType, id string) (string, error) {
	if err := checkComponent(entityType, id, "entity type", entityType); err != nil {
		return "", err
	}
	if err := checkComponent(entityType, id, "identifier", id); err != nil {
		return "", err
	}
	return entityType + Delimiter + id, nil
}

// Split breaks a prefixed key value back into its entity type and identifier.
// The identifier may itself contain the delimiter only if it was composed
// from one; Split cuts at the first occurrence, mirroring Compose.
func Split(key string) (entityType, id string, err error) {
	entityType, id, found := strings.Cut(key, Delimiter)
	if !found || entityType == "" || id == "" {
		return "", "", errors.NewInvalidIdentityError("", key, "key is not of the form TYPE"+Delimiter+"id")
	}
	return entityType, id, nil
}

// SortKeyAttributes returns the partition and sort key attribute names a
// given index stores its projection under (e.g. GSI1 -> GSI1PK, GSI1SK).
func SortKeyAttributes(indexName string) (pkAttr, skAttr string) {
	return indexName + "PK", indexName + "SK"
}

func checkComponent(entityType, entityID, what, value string) error {
	if value == "" {
		return errors.NewInvalidIdentityError(entityType, entityID, "empty "+what)
	}
	if strings.Contains(value, Delimiter) {
		return errors.NewInvalidIdentityError(entityType, entityID, what+" contains key delimiter "+Delimiter)
	}
	return nil
}
