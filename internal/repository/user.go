package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskpay_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

type User struct {
	ID                   uuid.UUID   `db:"id"`
	Username             string      `db:"username"`
	PasswordHash         string      `db:"password_hash"`
	ReferralCode         string      `db:"referral_code"`
	ReferrerID           *uuid.UUID  `db:"referrer_id"`
	Referrals            int         `db:"referrals"`
	AccountType          string      `db:"account_type"`
	Status               string      `db:"status"`
	BalanceFree          int64       `db:"balance_free"`
	BalanceMain          int64       `db:"balance_main"`
	PendingReferralBonus int64       `db:"pending_referral_bonus"`
	BalanceJob           int64       `db:"balance_job"`
	IsAdmin              bool        `db:"is_admin"`
	RegistrationDate     time.Time   `db:"registration_date"`
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:                   u.ID,
		Username:             u.Username,
		PasswordHash:         u.PasswordHash,
		ReferralCode:         u.ReferralCode,
		ReferrerID:           u.ReferrerID,
		Referrals:            u.Referrals,
		AccountType:          model.AccountType(u.AccountType),
		Status:               model.UserStatus(u.Status),
		BalanceFree:          u.BalanceFree,
		BalanceMain:          u.BalanceMain,
		PendingReferralBonus: u.PendingReferralBonus,
		BalanceJob:           u.BalanceJob,
		IsAdmin:              u.IsAdmin,
		RegistrationDate:     u.RegistrationDate,
	}
}

func walletColumn(w model.Wallet) (string, error) {
	switch w {
	case model.WalletFree:
		return "balance_free", nil
	case model.WalletMain:
		return "balance_main", nil
	case model.WalletPendingReferral:
		return "pending_referral_bonus", nil
	case model.WalletJob:
		return "balance_job", nil
	}
	return "", ErrUnknownWallet
}

// CreateUser inserts the user, bumps the referrer's counter and applies the
// upline signup bonus in one transaction. The referral edge is resolved to an
// id by the caller before insert and never mutated afterwards.
func (r *Repository) CreateUser(ctx context.Context, user *model.User, uplineBonus *model.BalanceChange) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"id":                     user.ID,
				"username":               user.Username,
				"password_hash":          user.PasswordHash,
				"referral_code":          user.ReferralCode,
				"referrer_id":            user.ReferrerID,
				"referrals":              user.Referrals,
				"account_type":           string(user.AccountType),
				"status":                 string(user.Status),
				"balance_free":           user.BalanceFree,
				"balance_main":           user.BalanceMain,
				"pending_referral_bonus": user.PendingReferralBonus,
				"balance_job":            user.BalanceJob,
				"is_admin":               user.IsAdmin,
				"registration_date":      user.RegistrationDate,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return translateUniqueViolation(err)
		}

		if user.ReferrerID != nil {
			updateQuery, updateArgs, err := squirrel.
				Update("users").
				Set("referrals", squirrel.Expr("referrals + 1")).
				Where(squirrel.Eq{"id": user.ReferrerID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build referrer update query: %w", err)
			}

			_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
			if err != nil {
				return fmt.Errorf("failed to update referrer: %w", err)
			}
		}

		if uplineBonus != nil {
			if err := r.applyBalanceChangeWithTx(ctx, tx, *uplineBonus); err != nil {
				return fmt.Errorf("failed to credit upline bonus: %w", err)
			}
		}

		return nil
	})
}

func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return ErrDuplicateUsername
		case "users_referral_code_key":
			return ErrDuplicateCode
		}
	}
	return fmt.Errorf("failed to insert user: %w", err)
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getUserWhere(ctx, squirrel.Eq{"id": id})
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUserWhere(ctx, squirrel.Eq{"username": username})
}

func (r *Repository) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	return r.getUserWhere(ctx, squirrel.Eq{"referral_code": code})
}

func (r *Repository) getUserWhere(ctx context.Context, where squirrel.Eq) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) getUserWithTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

// ApplyBalanceChanges applies every delta in one transaction. Debits are
// guarded in the UPDATE itself so a concurrent writer can never drive a
// wallet negative.
func (r *Repository) ApplyBalanceChanges(ctx context.Context, changes ...model.BalanceChange) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, change := range changes {
			if err := r.applyBalanceChangeWithTx(ctx, tx, change); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) applyBalanceChangeWithTx(ctx context.Context, tx *sqlx.Tx, change model.BalanceChange) error {
	column, err := walletColumn(change.Wallet)
	if err != nil {
		return err
	}

	builder := squirrel.
		Update("users").
		Set(column, squirrel.Expr(column+" + ?", change.Amount)).
		Where(squirrel.Eq{"id": change.UserID})

	if change.Amount < 0 {
		builder = builder.Where(squirrel.GtOrEq{column: -change.Amount})
	}

	updateQuery, updateArgs, err := builder.
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, updateQuery, updateArgs...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.getUserWithTx(ctx, tx, change.UserID); err != nil {
			return err
		}
		return ErrInsufficientBalance
	}

	return nil
}

func (r *Repository) setAccountTypeWithTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, accountType model.AccountType) error {
	query, args, err := squirrel.
		Update("users").
		Set("account_type", string(accountType)).
		Where(squirrel.Eq{"id": userID}).
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
		return ErrNotFound
	}

	return nil
}

// ClaimPendingBonus converts pending referral value into spendable free
// balance as one atomic decrement/credit pair.
func (r *Repository) ClaimPendingBonus(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		err := r.applyBalanceChangeWithTx(ctx, tx, model.BalanceChange{
			UserID: userID,
			Wallet: model.WalletPendingReferral,
			Amount: -amount,
		})
		if err != nil {
			return err
		}

		return r.applyBalanceChangeWithTx(ctx, tx, model.BalanceChange{
			UserID: userID,
			Wallet: model.WalletFree,
			Amount: amount,
		})
	})
}

func (r *Repository) GetDownline(ctx context.Context, referrerID uuid.UUID) ([]*model.User, error) {
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"referrer_id": referrerID}).
		OrderBy("registration_date DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var users []User
	err = r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get downline: %w", err)
	}

	downline := make([]*model.User, len(users))
	for i := range users {
		downline[i] = users[i].toModel()
	}

	return downline, nil
}

func (r *Repository) GetTopEarners(ctx context.Context, limit int) ([]*model.User, error) {
	query, args, err := squirrel.
		Select("*").
		From("users").
		OrderBy("balance_free + balance_main DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	err = r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, err
	}

	top := make([]*model.User, len(users))
	for i := range users {
		top[i] = users[i].toModel()
	}

	return top, nil
}
