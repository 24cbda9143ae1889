package domain

import "time"

// Transaction types recorded by the ledger. Every balance mutation writes one
// of these in the same database transaction as the mutation itself.
const (
	TxClaimReward = "claim_reward"
	TxPurchase    = "purchase"
	TxTransferOut = "transfer_out"
	TxTransferIn  = "transfer_in"
	TxRedeem      = "redeem"
	TxAdminGrant  = "admin_grant"
)

// Transaction is one audit row for a balance mutation.
type Transaction struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Type      string                 `db:"type" json:"type"`
	Amount    int64                  `db:"amount" json:"amount"`
	Meta      map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}
