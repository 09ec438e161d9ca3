/*
Package idpstore is the persistence layer of the internal developer platform:
a single-table DynamoDB store for the platform's metadata entities (stacks,
teams, blueprints, cloud providers, API keys, shared-infrastructure
resources) and their polymorphic configurations.

All entities share one physical table. An entity's own record lives at
(TYPE#id, METADATA); relation queries go through sparse global secondary
indexes that records opt into per relation. Configuration payloads are
discriminated unions: a closed set of variants selected by a "type" tag,
validated on the way in and strictly decoded on the way out.

The layers, bottom up:

  - keycodec: deterministic mapping from entity identities to physical keys
  - sharedinfra: the configuration variant registry and tagged-JSON codec
  - record: the canonical item form with sparse index projections
  - gateway: record operations over DynamoDB with bounded retries
  - idp: typed entities and the platform's concrete access patterns

Basic usage:

	store, err := idpstore.Open(ctx, idpstore.Options{TableName: "idp-data"})
	if err != nil {
		log.Fatal(err)
	}
	stack := &idp.Stack{Name: "payments", TeamID: teamID}
	if err := store.CreateStack(ctx, stack); err != nil {
		// errors carry stable kinds: errors.IsAlreadyExists(err) etc.
	}

Every operation returns errors classified by the errors package; transport
layers map a kind to a status code without parsing messages.
*/
package idpstore
