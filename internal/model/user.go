package model

import (
	"time"

	"github.com/google/uuid"
)

type AccountType string

const (
	AccountTypeFree    AccountType = "FREE"
	AccountTypePremium AccountType = "PREMIUM"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
)

type Wallet string

const (
	WalletFree            Wallet = "free"
	WalletMain            Wallet = "main"
	WalletPendingReferral Wallet = "pending_referral"
	WalletJob             Wallet = "job"
)

func ParseWallet(s string) (Wallet, bool) {
	switch Wallet(s) {
	case WalletFree, WalletMain, WalletPendingReferral, WalletJob:
		return Wallet(s), true
	}
	return "", false
}

type User struct {
	ID                   uuid.UUID
	Username             string
	PasswordHash         string
	ReferralCode         string
	ReferrerID           *uuid.UUID
	Referrals            int
	AccountType          AccountType
	Status               UserStatus
	BalanceFree          int64
	BalanceMain          int64
	PendingReferralBonus int64
	BalanceJob           int64
	IsAdmin              bool
	RegistrationDate     time.Time
}

// Balance returns the current amount held in the named wallet.
func (u *User) Balance(w Wallet) int64 {
	switch w {
	case WalletFree:
		return u.BalanceFree
	case WalletMain:
		return u.BalanceMain
	case WalletPendingReferral:
		return u.PendingReferralBonus
	case WalletJob:
		return u.BalanceJob
	}
	return 0
}

// BalanceChange is a signed delta against one wallet of one user. Negative
// amounts are debits and must never drive the wallet below zero.
type BalanceChange struct {
	UserID uuid.UUID
	Wallet Wallet
	Amount int64
}
