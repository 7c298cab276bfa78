package taskname

const (
	// Ledger tasks
	LedgerReconcile = "ledger:reconcile"

	// Order tasks
	OrderCreated = "order:created"
)

// Queues served by the worker, by priority weight.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
