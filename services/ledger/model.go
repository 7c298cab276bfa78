package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"creditshop/pkg/db/pagination"
	"creditshop/services/account"

	"gorm.io/datatypes"
)

type TransactionType string

const (
	TypeReward     TransactionType = "REWARD"
	TypePurchase   TransactionType = "PURCHASE"
	TypeAdjustment TransactionType = "ADJUSTMENT"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeReward, TypePurchase, TypeAdjustment:
		return true
	}
	return false
}

const genesisHash = "GENESIS"

// CreditTransaction is an append-only record of one balance change. Sequence
// numbers a customer's transactions from 1 and anchors the hash chain.
type CreditTransaction struct {
	ID              string          `gorm:"column:id;primaryKey" json:"id"`
	CustomerID      string          `gorm:"column:customer_id;not null;uniqueIndex:idx_credit_tx_customer_seq,priority:1" json:"customerId"`
	Sequence        int64           `gorm:"column:sequence;not null;uniqueIndex:idx_credit_tx_customer_seq,priority:2" json:"sequence"`
	Amount          int64           `gorm:"column:amount;not null" json:"amount"`
	Type            TransactionType `gorm:"column:type;type:varchar(16);not null;index" json:"type"`
	Reason          string          `gorm:"column:reason;not null" json:"reason"`
	CreatedByUserID *string         `gorm:"column:created_by_user_id" json:"createdByUserId,omitempty"`
	RelatedOrderID  *string         `gorm:"column:related_order_id;index" json:"relatedOrderId,omitempty"`
	Metadata        datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
	PreviousHash    string          `gorm:"column:previous_hash;not null" json:"previousHash"`
	Hash            string          `gorm:"column:hash;not null" json:"hash"`
	CreatedAt       time.Time       `gorm:"column:created_at;index" json:"createdAt"`
}

func (CreditTransaction) TableName() string { return "credit_transactions" }

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (m *CreditTransaction) HashFields() map[string]string {
	return map[string]string{
		"id":                 m.ID,
		"customer_id":        m.CustomerID,
		"sequence":           fmt.Sprintf("%d", m.Sequence),
		"type":               string(m.Type),
		"amount":             fmt.Sprintf("%d", m.Amount),
		"reason":             m.Reason,
		"created_by_user_id": optional(m.CreatedByUserID),
		"related_order_id":   optional(m.RelatedOrderID),
		"created_at":         m.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":      m.PreviousHash,
	}
}

func (m *CreditTransaction) GenerateHash() string {
	fields := m.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

// PostingParams describes one balance change. Purchases must be fully funded;
// other types honour the negative-balance policy.
type PostingParams struct {
	CustomerID      string
	Amount          int64
	Type            TransactionType
	Reason          string
	CreatedByUserID *string
	RelatedOrderID  *string
	Metadata        map[string]any
}

type AdjustCreditsRequest struct {
	CustomerID string          `json:"customerId" binding:"required"`
	Amount     int64           `json:"amount"`
	Type       TransactionType `json:"type" binding:"required"`
	Reason     string          `json:"reason"`
}

type AdjustCreditsResult struct {
	Customer    *account.Account   `json:"customer"`
	Transaction *CreditTransaction `json:"transaction"`
}

// HistoryEntry is a transaction plus the balance right after it. BalanceAfter
// is derived on read and never stored.
type HistoryEntry struct {
	CreditTransaction
	BalanceAfter int64 `json:"balanceAfter"`
}

type BalanceValidation struct {
	IsValid           bool  `json:"isValid"`
	ActualBalance     int64 `json:"actualBalance"`
	CalculatedBalance int64 `json:"calculatedBalance"`
}

type CreditStatistics struct {
	TotalCreditsIssued int64 `json:"totalCreditsIssued"`
	TotalCreditsSpent  int64 `json:"totalCreditsSpent"`
	TotalCustomers     int64 `json:"totalCustomers"`
}

type TransactionFilter struct {
	CustomerID string          `form:"customerId"`
	Type       TransactionType `form:"type"`
	StartDate  *time.Time      `form:"startDate" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate    *time.Time      `form:"endDate" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit      int             `form:"limit"`
	Offset     int             `form:"offset"`
	// Cursor continues from a previous page and takes precedence over Offset.
	Cursor string `form:"cursor"`
}

type TransactionPage struct {
	Transactions []*CreditTransaction `json:"transactions"`
	PageInfo     *pagination.PageInfo `json:"pageInfo"`
}

type ChainVerification struct {
	Valid    bool   `json:"valid"`
	Checked  int    `json:"checked"`
	BrokenAt string `json:"brokenAt,omitempty"`
}
