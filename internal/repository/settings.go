package repository

import (
	"context"
	"database/sql"
	"errors"

	"taskpay_backend/internal/model"

	"github.com/Masterminds/squirrel"
)

type Settings struct {
	SignupBonus          int64  `db:"signup_bonus"`
	ReferralSignupBonus  int64  `db:"referral_signup_bonus"`
	PremiumReferralBonus int64  `db:"premium_referral_bonus"`
	PremiumPrice         int64  `db:"premium_price"`
	MinWithdrawFree      int64  `db:"min_withdraw_free"`
	MaxWithdrawFree      int64  `db:"max_withdraw_free"`
	MinWithdrawMain      int64  `db:"min_withdraw_main"`
	MaxWithdrawMain      int64  `db:"max_withdraw_main"`
	MinWithdrawJob       int64  `db:"min_withdraw_job"`
	MaxWithdrawJob       int64  `db:"max_withdraw_job"`
	FreeWithdrawLimit    int    `db:"free_withdraw_limit"`
	DailyTaskLimit       int    `db:"daily_task_limit"`
	ClaimRate            int64  `db:"claim_rate"`
	ClaimWaitSeconds     int    `db:"claim_wait_seconds"`
	SocialSellRate       int64  `db:"social_sell_rate"`
	JobCoinRate          int64  `db:"job_coin_rate"`
	HouseReferralCode    string `db:"house_referral_code"`
}

// GetSettings reads the singleton policy row. Callers fetch it per operation;
// rates may change between calls.
func (r *Repository) GetSettings(ctx context.Context) (*model.Settings, error) {
	var row Settings
	query, args, err := squirrel.
		Select("*").
		From("settings").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotSeeded
		}
		return nil, err
	}

	return &model.Settings{
		SignupBonus:          row.SignupBonus,
		ReferralSignupBonus:  row.ReferralSignupBonus,
		PremiumReferralBonus: row.PremiumReferralBonus,
		PremiumPrice:         row.PremiumPrice,
		MinWithdrawFree:      row.MinWithdrawFree,
		MaxWithdrawFree:      row.MaxWithdrawFree,
		MinWithdrawMain:      row.MinWithdrawMain,
		MaxWithdrawMain:      row.MaxWithdrawMain,
		MinWithdrawJob:       row.MinWithdrawJob,
		MaxWithdrawJob:       row.MaxWithdrawJob,
		FreeWithdrawLimit:    row.FreeWithdrawLimit,
		DailyTaskLimit:       row.DailyTaskLimit,
		ClaimRate:            row.ClaimRate,
		ClaimWaitSeconds:     row.ClaimWaitSeconds,
		SocialSellRate:       row.SocialSellRate,
		JobCoinRate:          row.JobCoinRate,
		HouseReferralCode:    row.HouseReferralCode,
	}, nil
}

func (r *Repository) UpdateSettings(ctx context.Context, s *model.Settings) error {
	query, args, err := squirrel.
		Update("settings").
		SetMap(map[string]interface{}{
			"signup_bonus":           s.SignupBonus,
			"referral_signup_bonus":  s.ReferralSignupBonus,
			"premium_referral_bonus": s.PremiumReferralBonus,
			"premium_price":          s.PremiumPrice,
			"min_withdraw_free":      s.MinWithdrawFree,
			"max_withdraw_free":      s.MaxWithdrawFree,
			"min_withdraw_main":      s.MinWithdrawMain,
			"max_withdraw_main":      s.MaxWithdrawMain,
			"min_withdraw_job":       s.MinWithdrawJob,
			"max_withdraw_job":       s.MaxWithdrawJob,
			"free_withdraw_limit":    s.FreeWithdrawLimit,
			"daily_task_limit":       s.DailyTaskLimit,
			"claim_rate":             s.ClaimRate,
			"claim_wait_seconds":     s.ClaimWaitSeconds,
			"social_sell_rate":       s.SocialSellRate,
			"job_coin_rate":          s.JobCoinRate,
			"house_referral_code":    s.HouseReferralCode,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSettingsNotSeeded
	}

	return nil
}
