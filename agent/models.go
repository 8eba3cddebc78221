package agent

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primaryKey" json:"id"`
	Height uint64 `json:"height"`
}

type Community struct {
	Id             string `gorm:"primaryKey" json:"id"`
	Name           string `json:"name"`
	RegisterHeight uint64 `json:"register_height"`
	Removed        bool   `json:"removed"`
}

type Proposal struct {
	Id           uint64 `gorm:"primaryKey" json:"id"`
	Proposer     string `json:"proposer"`
	Kind         uint64 `json:"kind"`
	Community    string `json:"community"`
	Action       string `json:"action"`
	Start        uint64 `json:"start"`
	StartCycle   uint64 `json:"start_cycle"`
	State        uint64 `json:"state"`
	StateSince   uint64 `json:"state_since"`
	Turnout      uint64 `json:"turnout"`
	Ayes         uint64 `json:"ayes"`
	UpdateHeight uint64 `json:"update_height"`
}

type ProposalVote struct {
	Id       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal uint64 `json:"proposal"`
	Voter    string `json:"voter"`
	Vote     uint64 `json:"vote"`
	Spent    uint64 `json:"spent"`
	Height   uint64 `json:"height"`
}

type Enactment struct {
	Id        uint64 `gorm:"primaryKey" json:"id"`
	Kind      uint64 `json:"kind"`
	Community string `json:"community"`
	Height    uint64 `json:"height"`
}
