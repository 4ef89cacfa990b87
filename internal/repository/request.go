package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskpay_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Request struct {
	ID          uuid.UUID      `db:"id"`
	UserID      uuid.UUID      `db:"user_id"`
	Kind        string         `db:"kind"`
	Status      string         `db:"status"`
	Amount      int64          `db:"amount"`
	Payload     []byte         `db:"payload"`
	ProofImages pq.StringArray `db:"proof_images"`
	CreatedAt   time.Time      `db:"created_at"`
	DecidedAt   *time.Time     `db:"decided_at"`
}

func (r *Request) toModel() (*model.Request, error) {
	req := &model.Request{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      model.RequestKind(r.Kind),
		Status:    model.RequestStatus(r.Status),
		Amount:    r.Amount,
		CreatedAt: r.CreatedAt,
		DecidedAt: r.DecidedAt,
	}

	if len(r.Payload) > 0 {
		var err error
		switch req.Kind {
		case model.RequestKindTask:
			req.Task = &model.TaskPayload{}
			err = json.Unmarshal(r.Payload, req.Task)
		case model.RequestKindWithdraw:
			req.Withdraw = &model.WithdrawPayload{}
			err = json.Unmarshal(r.Payload, req.Withdraw)
		case model.RequestKindPremium:
			req.Premium = &model.PremiumPayload{}
			err = json.Unmarshal(r.Payload, req.Premium)
		case model.RequestKindSocialSell:
			req.SocialSell = &model.SocialSellPayload{}
			err = json.Unmarshal(r.Payload, req.SocialSell)
		case model.RequestKindJobWithdraw:
			req.JobWithdraw = &model.JobWithdrawPayload{}
			err = json.Unmarshal(r.Payload, req.JobWithdraw)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", r.Kind, err)
		}
	}

	if req.Kind == model.RequestKindTask && req.Task != nil {
		req.Task.ProofImages = r.ProofImages
	}

	return req, nil
}

func marshalPayload(req *model.Request) ([]byte, pq.StringArray, error) {
	var (
		payload interface{}
		images  pq.StringArray
	)

	switch req.Kind {
	case model.RequestKindTask:
		payload = req.Task
		if req.Task != nil {
			images = req.Task.ProofImages
		}
	case model.RequestKindWithdraw:
		payload = req.Withdraw
	case model.RequestKindPremium:
		payload = req.Premium
	case model.RequestKindSocialSell:
		payload = req.SocialSell
	case model.RequestKindJobWithdraw:
		payload = req.JobWithdraw
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal %s payload: %w", req.Kind, err)
	}

	return data, images, nil
}

func (r *Repository) CreateRequest(ctx context.Context, req *model.Request) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return r.createRequestWithTx(ctx, tx, req)
	})
}

// CreateRequestWithHold inserts the request and debits the optimistic hold in
// one transaction. Used by withdrawals: a PENDING withdrawal represents funds
// already removed from the wallet. When freeLimit is set, the free-wallet
// PENDING/APPROVED count is re-checked after the debit: the debit takes the
// user row lock, so concurrent free-wallet submissions serialize and the
// loser sees the winner's inserted row. Exceeding the cap rolls the whole
// transaction back, hold included.
func (r *Repository) CreateRequestWithHold(ctx context.Context, req *model.Request, hold model.BalanceChange, freeLimit *int) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := r.applyBalanceChangeWithTx(ctx, tx, hold); err != nil {
			return err
		}

		if freeLimit != nil {
			count, err := countWithdrawRequests(ctx, tx, req.UserID, model.WalletFree,
				[]model.RequestStatus{model.RequestStatusPending, model.RequestStatusApproved})
			if err != nil {
				return err
			}
			if count >= *freeLimit {
				return ErrWithdrawLimit
			}
		}

		return r.createRequestWithTx(ctx, tx, req)
	})
}

func (r *Repository) createRequestWithTx(ctx context.Context, tx *sqlx.Tx, req *model.Request) error {
	payload, images, err := marshalPayload(req)
	if err != nil {
		return err
	}

	query, args, err := squirrel.
		Insert("requests").
		SetMap(map[string]interface{}{
			"id":           req.ID,
			"user_id":      req.UserID,
			"kind":         string(req.Kind),
			"status":       string(req.Status),
			"amount":       req.Amount,
			"payload":      payload,
			"proof_images": images,
			"created_at":   req.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build request insert query: %w", err)
	}

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	return nil
}

func (r *Repository) GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var row Request
	query, args, err := squirrel.
		Select("*").
		From("requests").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.toModel()
}

type RequestFilter struct {
	UserID *uuid.UUID
	Kind   *model.RequestKind
	Status *model.RequestStatus
}

func (r *Repository) ListRequests(ctx context.Context, filter RequestFilter) ([]*model.Request, error) {
	builder := squirrel.
		Select("*").
		From("requests").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.UserID != nil {
		builder = builder.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.Kind != nil {
		builder = builder.Where(squirrel.Eq{"kind": string(*filter.Kind)})
	}
	if filter.Status != nil {
		builder = builder.Where(squirrel.Eq{"status": string(*filter.Status)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []Request
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	requests := make([]*model.Request, len(rows))
	for i := range rows {
		requests[i], err = rows[i].toModel()
		if err != nil {
			return nil, err
		}
	}

	return requests, nil
}

// CountWithdrawRequests counts withdrawals against one wallet in any of the
// given statuses. The free-withdraw-once rule counts PENDING and APPROVED so
// a concurrent pending request blocks double submission.
func (r *Repository) CountWithdrawRequests(ctx context.Context, userID uuid.UUID, wallet model.Wallet, statuses []model.RequestStatus) (int, error) {
	return countWithdrawRequests(ctx, r.db, userID, wallet, statuses)
}

func countWithdrawRequests(ctx context.Context, q sqlx.QueryerContext, userID uuid.UUID, wallet model.Wallet, statuses []model.RequestStatus) (int, error) {
	states := make([]string, len(statuses))
	for i, s := range statuses {
		states[i] = string(s)
	}

	query, args, err := squirrel.
		Select("count(*)").
		From("requests").
		Where(squirrel.Eq{
			"user_id": userID,
			"kind":    string(model.RequestKindWithdraw),
			"status":  states,
		}).
		Where(squirrel.Expr("payload->>'wallet' = ?", string(wallet))).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = sqlx.GetContext(ctx, q, &count, query, args...)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) CountTaskSubmissionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	query, args, err := squirrel.
		Select("count(*)").
		From("requests").
		Where(squirrel.Eq{
			"user_id": userID,
			"kind":    string(model.RequestKindTask),
		}).
		Where(squirrel.GtOrEq{"created_at": since}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ApplyDecision flips the request to its terminal status and applies the
// bound ledger effect in one transaction. The status flip is a compare-and-
// swap on PENDING: of two concurrent decisions exactly one commits, the other
// gets ErrAlreadyProcessed. A failed balance change rolls back the flip.
func (r *Repository) ApplyDecision(ctx context.Context, requestID uuid.UUID, status model.RequestStatus, amount *int64, changes []model.BalanceChange, promote *uuid.UUID) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		builder := squirrel.
			Update("requests").
			Set("status", string(status)).
			Set("decided_at", time.Now().UTC())
		if amount != nil {
			builder = builder.Set("amount", *amount)
		}

		query, args, err := builder.
			Where(squirrel.Eq{
				"id":     requestID,
				"status": string(model.RequestStatusPending),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			var exists bool
			checkQuery, checkArgs, err := squirrel.
				Select("true").
				From("requests").
				Where(squirrel.Eq{"id": requestID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}

			err = tx.GetContext(ctx, &exists, checkQuery, checkArgs...)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return err
			}
			return ErrAlreadyProcessed
		}

		for _, change := range changes {
			if err := r.applyBalanceChangeWithTx(ctx, tx, change); err != nil {
				return err
			}
		}

		if promote != nil {
			if err := r.setAccountTypeWithTx(ctx, tx, *promote, model.AccountTypePremium); err != nil {
				return err
			}
		}

		return nil
	})
}
