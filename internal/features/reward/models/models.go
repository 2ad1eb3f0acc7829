package models

import "time"

// Source tags a ledger entry with what earned it.
type Source string

const (
	SourceSignupBonus        Source = "signup-bonus"
	SourceReferralCommission Source = "referral-commission"
	SourceTaskReward         Source = "task-reward"
	SourcePurchase           Source = "purchase"
	SourceOther              Source = "other"
)

func (s Source) Valid() bool {
	switch s {
	case SourceSignupBonus, SourceReferralCommission, SourceTaskReward, SourcePurchase, SourceOther:
		return true
	}
	return false
}

// EventKind identifies an external triggering event.
type EventKind string

const (
	EventSignup       EventKind = "signup"
	EventTaskVerified EventKind = "task-verified"
	EventPurchase     EventKind = "purchase"
	EventProUpgrade   EventKind = "pro-upgrade"
)

// RewardEvent is an inbound trigger for the reward engine. AmountPaise is
// only meaningful for purchase events; pro-upgrade falls back to the
// configured pro price when it is zero.
type RewardEvent struct {
	Kind        EventKind `json:"event_kind" example:"signup"`
	TelegramID  int64     `json:"user_id" example:"123456789"`
	AmountPaise int64     `json:"amount_paise,omitempty" example:"49900"`
}

// LedgerEntry is one immutable row of the monetary ledger. Depth records how
// many hops from the triggering event this credit represents (nil when the
// credit is not chain-derived).
type LedgerEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	AmountPaise int64     `json:"amount_paise"`
	Source      Source    `json:"source"`
	Depth       *int      `json:"depth,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StarCredit is one wallet increment inside a credit batch.
type StarCredit struct {
	UserID int64
	Stars  int64
}

// ProExtension extends a user's pro expiry inside a credit batch.
type ProExtension struct {
	UserID int64
	Days   int
}

// CreditBatch is the atomic unit the engine commits per triggering event:
// either every entry, star credit and extension becomes visible, or none do.
type CreditBatch struct {
	Entries      []LedgerEntry
	Stars        []StarCredit
	ProExtension *ProExtension
}

// UserIDs returns the distinct users touched by the batch.
func (b *CreditBatch) UserIDs() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, e := range b.Entries {
		add(e.UserID)
	}
	for _, s := range b.Stars {
		add(s.UserID)
	}
	if b.ProExtension != nil {
		add(b.ProExtension.UserID)
	}
	return ids
}
