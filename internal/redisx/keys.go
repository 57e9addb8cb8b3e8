package redisx

import "time"

const (
	// Cache detail order: order:{order_id} -> JSON orders.Order
	KeyOrder = "order:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
