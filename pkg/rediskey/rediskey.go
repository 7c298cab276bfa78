package rediskey

import "fmt"

const (
	SequencePrefix  = "seq"
	ReconcilePrefix = "ledger:reconcile"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildDailySequenceKey returns "seq:{prefix}:{yymmdd}"
func BuildDailySequenceKey(prefix, day string) string {
	return NamespaceKey(SequencePrefix, prefix+":"+day)
}

// BuildReconcileReportKey returns "ledger:reconcile:{runID}"
func BuildReconcileReportKey(runID string) string {
	return NamespaceKey(ReconcilePrefix, runID)
}
