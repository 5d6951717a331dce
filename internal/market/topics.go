package market

const (
	TopicAudit       = "market.audit"
	TopicPayoutReady = "market.payout.ready"
)

// Partition key = correlation id, so all events of one sale or payout stay ordered.
func PartitionKey(id string) []byte { return []byte(id) }
