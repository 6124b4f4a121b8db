package types

// ProgramState is the singleton sequencing cell for the whole ledger.
// TotalTransactions is the next sequence number to assign; it advances by
// exactly one for every committed payment and never decreases. All
// mutation happens inside the same atomic unit as the payment it
// sequences.
type ProgramState struct {
	TotalTransactions uint64 `json:"total_transactions"`
}
