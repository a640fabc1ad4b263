package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/storefront/internal/model"
)

type SettingsRepository interface {
	// Ensure inserts defaults as the settings row unless one already exists.
	Ensure(ctx context.Context, defaults model.Settings) (bool, error)
	Get(ctx context.Context) (*model.Settings, error)
	Update(ctx context.Context, s *model.Settings) error
}

type pgSettingsRepo struct{ pool *pgxpool.Pool }

func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &pgSettingsRepo{pool: pool}
}

// settingsID is the primary key of the one settings row; the table's CHECK
// constraint rejects any other value.
const settingsID = 1

func settingsArgs(s *model.Settings) []any {
	return []any{
		settingsID,
		s.BackgroundImage, s.PrimaryColor, s.SecondaryColor, s.AccentColor, s.TextColor,
		s.HeaderText, s.HeaderDescription, s.Phone1, s.Phone2, s.WhatsApp, s.Email, s.Address,
		s.LocationURL, s.FacebookURL, s.InstagramURL, s.TwitterURL,
		s.AboutTitle, s.AboutDescription, s.AboutServices,
	}
}

func (r *pgSettingsRepo) Ensure(ctx context.Context, defaults model.Settings) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`INSERT INTO settings (id, background_image, primary_color, secondary_color, accent_color, text_color,
			header_text, header_description, phone1, phone2, whatsapp, email, address,
			location_url, facebook_url, instagram_url, twitter_url,
			about_title, about_description, about_services, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW())
		 ON CONFLICT (id) DO NOTHING`,
		settingsArgs(&defaults)...,
	)
	if err != nil {
		return false, fmt.Errorf("ensure settings: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgSettingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	s := &model.Settings{}
	err := r.pool.QueryRow(ctx,
		`SELECT background_image, primary_color, secondary_color, accent_color, text_color,
			header_text, header_description, phone1, phone2, whatsapp, email, address,
			location_url, facebook_url, instagram_url, twitter_url,
			about_title, about_description, about_services, updated_at
		 FROM settings WHERE id = $1`, settingsID,
	).Scan(
		&s.BackgroundImage, &s.PrimaryColor, &s.SecondaryColor, &s.AccentColor, &s.TextColor,
		&s.HeaderText, &s.HeaderDescription, &s.Phone1, &s.Phone2, &s.WhatsApp, &s.Email, &s.Address,
		&s.LocationURL, &s.FacebookURL, &s.InstagramURL, &s.TwitterURL,
		&s.AboutTitle, &s.AboutDescription, &s.AboutServices, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (r *pgSettingsRepo) Update(ctx context.Context, s *model.Settings) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE settings SET background_image=$2, primary_color=$3, secondary_color=$4, accent_color=$5, text_color=$6,
			header_text=$7, header_description=$8, phone1=$9, phone2=$10, whatsapp=$11, email=$12, address=$13,
			location_url=$14, facebook_url=$15, instagram_url=$16, twitter_url=$17,
			about_title=$18, about_description=$19, about_services=$20, updated_at=NOW()
		 WHERE id = $1 RETURNING updated_at`,
		settingsArgs(s)...,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
