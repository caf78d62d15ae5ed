package domain

// ResultVersion is the schema version written into stored results.
const ResultVersion = 1

// FundResult is returned by Fund and stored for idempotent replay.
type FundResult struct {
	Version     int          `json:"version"`
	Wallet      *Wallet      `json:"wallet"`
	Transaction *Transaction `json:"transaction"`
}

func (r *FundResult) SchemaVersion() int { return r.Version }

// TransferResult is returned by Transfer and stored for idempotent replay.
type TransferResult struct {
	Version int          `json:"version"`
	From    *Wallet      `json:"from"`
	To      *Wallet      `json:"to"`
	Debit   *Transaction `json:"debit"`
	Credit  *Transaction `json:"credit"`
}

func (r *TransferResult) SchemaVersion() int { return r.Version }
