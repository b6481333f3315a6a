// Package ident implements the identifier scheme shared by every stored
// record: a small tenant-local id is combined with the owning tenant id into
// a single storage id that is unique across all tenants.
package ident

import (
	"errors"
	"fmt"
)

// Scale is the namespacing factor between tenant ids and local ids.
// A storage id is tenant_id*Scale + local_id, so Scale bounds how many
// employees or departments a single tenant can ever hold. It is part of the
// persisted id format: changing it invalidates every id already handed out.
const Scale int64 = 10000

// ErrLocalIDOutOfRange is returned when a local id cannot be encoded without
// colliding with another tenant's id range.
var ErrLocalIDOutOfRange = errors.New("local id out of range")

// Encode combines a tenant id and a tenant-local id into a storage id.
func Encode(tenantID, localID int64) (int64, error) {
	if localID < 0 || localID >= Scale {
		return 0, fmt.Errorf("%w: %d (must be in [0, %d))", ErrLocalIDOutOfRange, localID, Scale)
	}
	return tenantID*Scale + localID, nil
}

// Decode splits a storage id back into its tenant id and local id.
func Decode(storageID int64) (tenantID, localID int64) {
	return storageID / Scale, storageID % Scale
}
