package orders

import "strconv"

const (
	TopicOrderCreated    = "shop.order.created"
	TopicPaymentRecorded = "shop.payment.recorded"
)

// Partition key = order id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
