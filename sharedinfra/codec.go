/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package sharedinfra

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/angryss/idpstore/errors"
)

// discriminatorField is the wire-format field carrying the variant tag.
const discriminatorField = "type"

// Marshal encodes a configuration as a JSON object with an explicit
// discriminator field, e.g. {"type":"service-bus","cloudServiceName":"x"}.
// The value is validated before encoding so invalid configurations never
// reach the wire.
func Marshal(cfg Configuration) ([]byte, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.NewValidationError("configuration", err.Error())
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.NewValidationError("configuration", err.Error())
	}
	tag, err := json.Marshal(cfg.ConfigurationType())
	if err != nil {
		return nil, errors.NewValidationError(discriminatorField, err.Error())
	}
	fields[discriminatorField] = tag
	return json.Marshal(fields)
}

// Unmarshal decodes a tagged JSON payload into its configuration variant.
// A missing discriminator is a validation failure; an unregistered one is
// UnknownVariant. Fields not declared by the resolved variant are rejected,
// and the decoded value is validated against the variant's field rules.
func Unmarshal(data []byte) (Configuration, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.NewValidationError("configuration", "payload is not a JSON object")
	}
	rawTag, ok := fields[discriminatorField]
	if !ok {
		return nil, errors.NewValidationError(discriminatorField, "missing discriminator field")
	}
	var discriminator string
	if err := json.Unmarshal(rawTag, &discriminator); err != nil {
		return nil, errors.NewValidationError(discriminatorField, "discriminator must be a string")
	}
	factory, err := Resolve(discriminator)
	if err != nil {
		return nil, err
	}

	delete(fields, discriminatorField)
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.NewValidationError("configuration", err.Error())
	}

	cfg := factory()
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.NewValidationError("configuration", decodeErrorDetail(err, discriminator))
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeErrorDetail(err error, discriminator string) string {
	msg := err.Error()
	// json reports undeclared fields as: json: unknown field "x"
	if rest, ok := strings.CutPrefix(msg, "json: unknown field "); ok {
		return "field " + rest + " is not declared for variant " + discriminator
	}
	return msg
}
