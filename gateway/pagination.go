/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/angryss/idpstore/errors"
)

func init() {
	// The continuation token gob-encodes the backend's LastEvaluatedKey,
	// which holds attribute values behind an interface.
	gob.Register(map[string]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberBOOL{})
	gob.Register(&types.AttributeValueMemberNULL{})
}

// encodePageToken turns a LastEvaluatedKey into an opaque continuation token.
func encodePageToken(key map[string]types.AttributeValue) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(key); err != nil {
		return "", errors.NewValidationError("pageToken", err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// decodePageToken restores the ExclusiveStartKey from a continuation token.
// An empty token means the first page.
func decodePageToken(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.NewValidationError("pageToken", "malformed continuation token")
	}
	var key map[string]types.AttributeValue
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&key); err != nil {
		return nil, errors.NewValidationError("pageToken", "malformed continuation token")
	}
	return key, nil
}
