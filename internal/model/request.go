package model

import (
	"time"

	"github.com/google/uuid"
)

type RequestKind string

const (
	RequestKindTask        RequestKind = "task_submission"
	RequestKindWithdraw    RequestKind = "withdraw"
	RequestKindPremium     RequestKind = "premium_upgrade"
	RequestKindSocialSell  RequestKind = "social_sell"
	RequestKindJobWithdraw RequestKind = "job_withdraw"
)

func ParseRequestKind(s string) (RequestKind, bool) {
	switch RequestKind(s) {
	case RequestKindTask, RequestKindWithdraw, RequestKindPremium,
		RequestKindSocialSell, RequestKindJobWithdraw:
		return RequestKind(s), true
	}
	return "", false
}

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Request is the envelope shared by every approval flow. Kind selects the
// payload shape and the ledger effect applied on the terminal transition.
type Request struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      RequestKind
	Status    RequestStatus
	Amount    int64
	CreatedAt time.Time
	DecidedAt *time.Time

	Task        *TaskPayload
	Withdraw    *WithdrawPayload
	Premium     *PremiumPayload
	SocialSell  *SocialSellPayload
	JobWithdraw *JobWithdrawPayload
}

type TaskPayload struct {
	TaskTitle   string   `json:"task_title"`
	Wallet      Wallet   `json:"wallet"`
	ProofLink   string   `json:"proof_link"`
	ProofImages []string `json:"proof_images,omitempty"`
}

type WithdrawPayload struct {
	Wallet        Wallet `json:"wallet"`
	Method        string `json:"method"`
	AccountNumber string `json:"account_number"`
}

type PremiumPayload struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
}

type SocialSellPayload struct {
	Platform    string `json:"platform"`
	AccountLink string `json:"account_link"`
}

type JobWithdrawPayload struct {
	Coins int64 `json:"coins"`
}
