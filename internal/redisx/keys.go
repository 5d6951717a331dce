package redisx

import "time"

const (
	// Offline sync idempotency: idem:sync:{client_id} -> sale_id
	KeyIdemSync = "idem:sync:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 72 * time.Hour
	TTLDedup       = 48 * time.Hour
)
