/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package keycodec

import (
	"testing"

	"github.com/angryss/idpstore/errors"
)

func TestBuildPrimaryKey(t *testing.T) {
	key, err := BuildPrimaryKey(TypeStack, "stack-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.PK != "STACK#stack-1" {
		t.Errorf("PK = %q, want %q", key.PK, "STACK#stack-1")
	}
	if key.SK != MetadataSortKey {
		t.Errorf("SK = %q, want %q", key.SK, MetadataSortKey)
	}

	// same identity, same key
	again, err := BuildPrimaryKey(TypeStack, "stack-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != key {
		t.Errorf("key derivation is not deterministic: %v vs %v", again, key)
	}
}

func TestBuildPrimaryKeyRejectsMalformedComponents(t *testing.T) {
	cases := []struct {
		name       string
		entityType string
		entityID   string
	}{
		{"empty type", "", "id-1"},
		{"empty id", TypeTeam, ""},
		{"delimiter in type", "TE#AM", "id-1"},
		{"delimiter in id", TypeTeam, "id#1"},
		{"both empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildPrimaryKey(tc.entityType, tc.entityID)
			if !errors.IsInvalidIdentity(err) {
				t.Errorf("BuildPrimaryKey(%q, %q) = %v, want InvalidIdentity", tc.entityType, tc.entityID, err)
			}
		})
	}
}

func TestDistinctIdentitiesNeverCollide(t *testing.T) {
	// Without delimiter rejection, (TEAM, a#b) and a relation of (TEAM#a, b)
	// style identities could collide. The codec refuses the ambiguous inputs.
	a, err := Compose(TypeTeam, "alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Compose(TypeTeam, "alphabeta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Errorf("distinct identities composed to the same key %q", a)
	}
	if _, err := Compose(TypeTeam, "alpha#beta"); !errors.IsInvalidIdentity(err) {
		t.Errorf("delimiter-bearing id accepted: %v", err)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	key, err := Compose(TypeBlueprint, "bp-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entityType, id, err := Split(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entityType != TypeBlueprint || id != "bp-9" {
		t.Errorf("Split(%q) = (%q, %q)", key, entityType, id)
	}
}

func TestSplitRejectsMalformedKeys(t *testing.T) {
	for _, key := range []string{"", "METADATA", "STACK#", "#id"} {
		if _, _, err := Split(key); !errors.IsInvalidIdentity(err) {
			t.Errorf("Split(%q) = %v, want InvalidIdentity", key, err)
		}
	}
}

func TestBuildRelationKey(t *testing.T) {
	key, err := BuildRelationKey(TypeStack, "s1", TypeStackResource, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.PK != "STACK#s1" || key.SK != "STACKRESOURCE#r1" {
		t.Errorf("relation key = %+v", key)
	}
}

func TestBuildIndexKey(t *testing.T) {
	rel := Relation{ParentType: TypeTeam, ParentID: "t1", ChildType: TypeStack, ChildID: "s1"}
	key, err := BuildIndexKey("GSI1", rel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.PK != "TEAM#t1" || key.SK != "STACK#s1" {
		t.Errorf("index key = %+v", key)
	}

	if _, err := BuildIndexKey("", rel); !errors.IsInvalidIdentity(err) {
		t.Errorf("empty index name accepted: %v", err)
	}
	rel.ChildID = ""
	if _, err := BuildIndexKey("GSI1", rel); !errors.IsInvalidIdentity(err) {
		t.Errorf("empty child id accepted: %v", err)
	}
}

func TestSortKeyAttributes(t *testing.T) {
	pk, sk := SortKeyAttributes("GSI2")
	if pk != "GSI2PK" || sk != "GSI2SK" {
		t.Errorf("SortKeyAttributes(GSI2) = (%q, %q)", pk, sk)
	}
}
