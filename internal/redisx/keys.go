package redisx

import "time"

const (
	// Idempotent placement: idem:order:place:{buyer_id}:{idempotency_key} -> order_id
	KeyIdemOrderPlace = "idem:order:place:%s:%s"

	// Cached order read model: order:{order_id} -> order JSON
	KeyOrder = "order:%s"

	// Bumped on every order save; a cache fill only lands if it did not move: order:gen:{order_id}
	KeyOrderGen = "order:gen:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Stock snapshot per product: hash stock:{product_id}, field per warehouse plus "_total"
	KeyStock = "stock:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLOrderCache  = 5 * time.Minute
	TTLOrderGen    = time.Hour
	TTLDedup       = 48 * time.Hour
)

// idemPending marks a placement that has been claimed but not finished.
const idemPending = "-"
