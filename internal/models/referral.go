package models

// Referral is a node of the user's referral tree
type Referral struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	TelegramID   int64      `json:"telegram_id"`
	ReferralLink string     `json:"referral_link"`
	InvitedCount int        `json:"invited_count"`
	ReferredBy   *int64     `json:"referred_by"`
	InvitedUsers []Referral `json:"invited_users"`
}

// Count returns the number of descendants below r
func (r Referral) Count() int {
	n := 0
	for _, child := range r.InvitedUsers {
		n += 1 + child.Count()
	}
	return n
}

// CheckReferralRequest binds a user to the owner of a referral link
type CheckReferralRequest struct {
	TelegramID   int64  `json:"telegram_id"`
	ReferralLink string `json:"referral_link"`
}

// CheckReferralResult is the backend's reply to a referral binding
type CheckReferralResult struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message"`
}
