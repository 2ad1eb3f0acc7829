package models

// Snapshot is the per-user dashboard aggregate. All fields come from one
// consistent read; a snapshot never mixes state from different moments.
type Snapshot struct {
	Position         int64  `json:"position" example:"42"`
	DownlineCount    int64  `json:"downline_count" example:"17"`
	TotalEarnedPaise int64  `json:"total_earned_paise" example:"150"`
	StarBalance      int64  `json:"star_balance" example:"25"`
	RefCode          string `json:"ref_code" example:"aBcD1234xyz"`
	ReferralLink     string `json:"referral_link" example:"https://t.me/YourBot?start=aBcD1234xyz"`
}
