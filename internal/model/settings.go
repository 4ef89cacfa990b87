package model

// Settings is the singleton numeric policy read by every flow. It is loaded
// fresh per operation; configuration may change between calls.
type Settings struct {
	SignupBonus          int64
	ReferralSignupBonus  int64
	PremiumReferralBonus int64
	PremiumPrice         int64

	MinWithdrawFree int64
	MaxWithdrawFree int64
	MinWithdrawMain int64
	MaxWithdrawMain int64
	MinWithdrawJob  int64
	MaxWithdrawJob  int64

	FreeWithdrawLimit int
	DailyTaskLimit    int

	ClaimRate        int64
	ClaimWaitSeconds int

	SocialSellRate int64
	JobCoinRate    int64

	HouseReferralCode string
}
