/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package record

import (
	"regexp"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/angryss/idpstore/errors"
	"github.com/angryss/idpstore/keycodec"
	"github.com/angryss/idpstore/sharedinfra"
)

// Physical attribute names reserved for the key scheme and payload envelope.
const (
	AttrPK            = "PK"
	AttrSK            = "SK"
	AttrEntityType    = "entityType"
	AttrConfiguration = "configuration"
)

var indexAttrPattern = regexp.MustCompile(`^GSI\d+(PK|SK)$`)

// Record is the canonical in-memory form of one stored item: an entity
// identity, its typed attributes, an optional polymorphic configuration, and
// any sparse secondary-index projections.
//
// Attribute values round-trip through DynamoDB attribute values; numeric
// attributes come back as float64 regardless of the Go type they went in as.
type Record struct {
	EntityType    string
	EntityID      string
	Attributes    map[string]any
	Configuration sharedinfra.Configuration

	indexes map[string]keycodec.IndexKey
}

// New validates an entity identity and optional configuration and returns the
// record. The identity must compose into a well-formed primary key; the
// configuration, when present, must validate against its registered variant.
func New(entityType, entityID string, attributes map[string]any, cfg sharedinfra.Configuration) (*Record, error) {
	if _, err := keycodec.BuildPrimaryKey(entityType, entityID); err != nil {
		return nil, err
	}
	for name := range attributes {
		if isReservedAttr(name) {
			return nil, errors.NewValidationError(name, "attribute name is reserved by the key scheme")
		}
	}
	if cfg != nil {
		if err := sharedinfra.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return &Record{
		EntityType:    entityType,
		EntityID:      entityID,
		Attributes:    attributes,
		Configuration: cfg,
		indexes:       make(map[string]keycodec.IndexKey),
	}, nil
}

// WithIndexProjection attaches a sparse secondary-index projection. Records
// without a projection for an index are invisible to queries against it;
// omission is valid and intentional.
func (r *Record) WithIndexProjection(indexName string, rel keycodec.Relation) (*Record, error) {
	key, err := keycodec.BuildIndexKey(indexName, rel)
	if err != nil {
		return nil, err
	}
	if r.indexes == nil {
		r.indexes = make(map[string]keycodec.IndexKey)
	}
	r.indexes[indexName] = key
	return r, nil
}

// PrimaryKey returns the physical primary key of the record.
func (r *Record) PrimaryKey() keycodec.PrimaryKey {
	key, _ := keycodec.BuildPrimaryKey(r.EntityType, r.EntityID)
	return key
}

// IndexProjection reports the projection attached for an index, if any.
func (r *Record) IndexProjection(indexName string) (keycodec.IndexKey, bool) {
	key, ok := r.indexes[indexName]
	return key, ok
}

// IndexProjections returns a copy of all attached projections.
func (r *Record) IndexProjections() map[string]keycodec.IndexKey {
	out := make(map[string]keycodec.IndexKey, len(r.indexes))
	for name, key := range r.indexes {
		out[name] = key
	}
	return out
}

// Serialize converts the record into the physical item map, including key
// attributes, the entity type stamp, index projections, and the tagged
// configuration payload.
func (r *Record) Serialize() (map[string]types.AttributeValue, error) {
	key, err := keycodec.BuildPrimaryKey(r.EntityType, r.EntityID)
	if err != nil {
		return nil, err
	}

	item := map[string]types.AttributeValue{
		AttrPK:         &types.AttributeValueMemberS{Value: key.PK},
		AttrSK:         &types.AttributeValueMemberS{Value: key.SK},
		AttrEntityType: &types.AttributeValueMemberS{Value: r.EntityType},
	}

	for name, value := range r.Attributes {
		if isReservedAttr(name) {
			return nil, errors.NewValidationError(name, "attribute name is reserved by the key scheme")
		}
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return nil, errors.NewValidationError(name, err.Error())
		}
		item[name] = av
	}

	for indexName, idx := range r.indexes {
		pkAttr, skAttr := keycodec.SortKeyAttributes(indexName)
		item[pkAttr] = &types.AttributeValueMemberS{Value: idx.PK}
		item[skAttr] = &types.AttributeValueMemberS{Value: idx.SK}
	}

	if r.Configuration != nil {
		payload, err := sharedinfra.Marshal(r.Configuration)
		if err != nil {
			return nil, err
		}
		item[AttrConfiguration] = &types.AttributeValueMemberS{Value: string(payload)}
	}

	return item, nil
}

// Deserialize reconstructs a record from a physical item. The stored
// discriminator selects the configuration variant; an unrecognized
// discriminator yields UnknownVariant, never a guessed default. Any other
// structural defect yields CorruptRecord.
func Deserialize(item map[string]types.AttributeValue) (*Record, error) {
	pk := stringAttr(item, AttrPK)
	sk := stringAttr(item, AttrSK)
	if pk == "" {
		return nil, errors.NewCorruptRecordError(pk, sk, "missing PK attribute", nil)
	}

	entityType, entityID, err := keycodec.Split(pk)
	if err != nil {
		return nil, errors.NewCorruptRecordError(pk, sk, "malformed partition key", err)
	}
	if stamped := stringAttr(item, AttrEntityType); stamped != "" && stamped != entityType {
		return nil, errors.NewCorruptRecordError(pk, sk, "entityType attribute disagrees with key prefix", nil)
	}

	rec := &Record{
		EntityType: entityType,
		EntityID:   entityID,
		Attributes: make(map[string]any),
		indexes:    make(map[string]keycodec.IndexKey),
	}

	for name, av := range item {
		switch {
		case name == AttrPK || name == AttrSK || name == AttrEntityType:
			// key scheme, already consumed
		case name == AttrConfiguration:
			sv, ok := av.(*types.AttributeValueMemberS)
			if !ok {
				return nil, errors.NewCorruptRecordError(pk, sk, "configuration attribute is not a string", nil)
			}
			cfg, err := sharedinfra.Unmarshal([]byte(sv.Value))
			if err != nil {
				if errors.IsUnknownVariant(err) {
					return nil, err
				}
				return nil, errors.NewCorruptRecordError(pk, sk, "configuration payload failed to decode", err)
			}
			rec.Configuration = cfg
		case indexAttrPattern.MatchString(name):
			// paired up after the loop
		default:
			var value any
			if err := attributevalue.Unmarshal(av, &value); err != nil {
				return nil, errors.NewCorruptRecordError(pk, sk, "attribute "+name+" failed to decode", err)
			}
			rec.Attributes[name] = value
		}
	}

	if err := rec.collectIndexProjections(item, pk, sk); err != nil {
		return nil, err
	}
	if len(rec.Attributes) == 0 {
		rec.Attributes = nil
	}
	return rec, nil
}

func (r *Record) collectIndexProjections(item map[string]types.AttributeValue, pk, sk string) error {
	for name := range item {
		if !indexAttrPattern.MatchString(name) {
			continue
		}
		indexName := name[:len(name)-2] // trim PK/SK suffix
		if _, seen := r.indexes[indexName]; seen {
			continue
		}
		pkAttr, skAttr := keycodec.SortKeyAttributes(indexName)
		idxPK := stringAttr(item, pkAttr)
		idxSK := stringAttr(item, skAttr)
		if idxPK == "" || idxSK == "" {
			return errors.NewCorruptRecordError(pk, sk, "index projection "+indexName+" is missing its key pair", nil)
		}
		r.indexes[indexName] = keycodec.IndexKey{PK: idxPK, SK: idxSK}
	}
	return nil
}

func isReservedAttr(name string) bool {
	switch name {
	case AttrPK, AttrSK, AttrEntityType, AttrConfiguration:
		return true
	}
	return indexAttrPattern.MatchString(name)
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if av, ok := item[name]; ok {
		if sv, ok := av.(*types.AttributeValueMemberS); ok {
			return sv.Value
		}
	}
	return ""
}
