package indexer

// sqlite models. Amounts are decimal strings since sqlite has no 256 bit
// integer column.

type Height struct {
	Id     uint64 `gorm:"primaryKey" json:"id"`
	Height uint64 `json:"height"`
}

const (
	ProposalStatusActive   = "active"
	ProposalStatusCanceled = "canceled"
	ProposalStatusQueued   = "queued"
)

type Proposal struct {
	Id          uint64 `gorm:"primaryKey" json:"id"`
	Proposer    string `json:"proposer"`
	Recipient   string `json:"recipient"`
	Description string `json:"description"`
	Status      string `json:"status"`
	VoteCount   uint64 `json:"vote_count"`
	Shares      string `json:"shares"`
	Distributed string `json:"distributed"`
	NewHeight   uint64 `json:"new_height"`
	QueueHeight uint64 `json:"queue_height"`
}

type Vote struct {
	Id       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal uint64 `json:"proposal"`
	Voter    string `json:"voter"`
	Weight   string `json:"weight"`
	Height   uint64 `json:"height"`
}

type Redemption struct {
	Id       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Caller   string `json:"caller"`
	Owner    string `json:"owner"`
	Receiver string `json:"receiver"`
	Shares   string `json:"shares"`
	Assets   string `json:"assets"`
	Height   uint64 `json:"height"`
}

// Round has a single row, written when the tally is finalized.
type Round struct {
	Id              uint64 `gorm:"primaryKey" json:"id"`
	FinalizedAt     int64  `json:"finalized_at"`
	RedemptionStart int64  `json:"redemption_start"`
	Height          uint64 `json:"height"`
}
