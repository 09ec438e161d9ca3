/*
Package errors defines the semantic error taxonomy of the metadata store.

Every error the store returns belongs to one of seven kinds:

	InvalidIdentity  malformed entity type or identifier
	Validation       field-level input violations (carries the full list)
	UnknownVariant   unregistered configuration discriminator
	AlreadyExists    conditional create raced with an existing item
	NotFound         no item under the requested primary key
	CorruptRecord    stored item failed to deserialize
	Unavailable      backend still failing after bounded retries

Errors are matched structurally, never by message:

	if errors.IsNotFound(err) { ... }

HTTPStatus gives the transport mapping consumed by the REST layer
(400/404/409/503/500) from the Kind alone.
*/
package errors
