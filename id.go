package clientledger

import "github.com/xraph/clientledger/id"

// ID is the primary identifier type for all client-ledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
