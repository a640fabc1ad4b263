package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/model"
	"github.com/flicky/storefront/internal/repository"
)

var ErrSettingsMissing = fmt.Errorf("settings %w", ErrNotFound)

const (
	settingsCacheKey = "settings"
	settingsCacheTTL = 5 * time.Minute
)

type SettingsService struct {
	settingsRepo repository.SettingsRepository
	redisClient  *redis.Client
	images       ImageStore
	log          *slog.Logger
}

func NewSettingsService(settingsRepo repository.SettingsRepository, redisClient *redis.Client, images ImageStore, log *slog.Logger) *SettingsService {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsService{settingsRepo: settingsRepo, redisClient: redisClient, images: images, log: log}
}

// Ensure creates the settings row with default values if it does not exist.
// Reads never create it.
func (s *SettingsService) Ensure(ctx context.Context) error {
	created, err := s.settingsRepo.Ensure(ctx, model.DefaultSettings())
	if err != nil {
		return err
	}
	if created {
		s.log.Info("default settings created")
	}
	return nil
}

func (s *SettingsService) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, settingsCacheKey).Result(); err == nil {
			var resp dto.SettingsResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	resp := toSettingsResponse(settings)
	s.cache(ctx, resp)
	return &resp, nil
}

// Update applies the non-nil fields of req.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	applySettingsPatch(settings, req)
	return s.save(ctx, settings)
}

// SetBackground stores a new background image and removes the previous
// uploaded one.
func (s *SettingsService) SetBackground(ctx context.Context, image *ImageUpload) (*dto.SettingsResponse, error) {
	if image == nil {
		return nil, ErrImageRequired
	}
	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	url, err := saveImage(s.images, image, "background_")
	if err != nil {
		return nil, err
	}
	previous := settings.BackgroundImage
	settings.BackgroundImage = url

	resp, err := s.save(ctx, settings)
	if err != nil {
		_ = s.images.Remove(url)
		return nil, err
	}
	if err := s.images.Remove(previous); err != nil {
		s.log.Warn("remove previous background", "url", previous, "error", err)
	}
	return resp, nil
}

func (s *SettingsService) load(ctx context.Context) (*model.Settings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsMissing
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *SettingsService) save(ctx context.Context, settings *model.Settings) (*dto.SettingsResponse, error) {
	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsMissing
		}
		return nil, err
	}
	if s.redisClient != nil {
		s.redisClient.Del(ctx, settingsCacheKey)
	}
	resp := toSettingsResponse(settings)
	return &resp, nil
}

func (s *SettingsService) cache(ctx context.Context, resp dto.SettingsResponse) {
	if s.redisClient == nil {
		return
	}
	if data, err := json.Marshal(resp); err == nil {
		s.redisClient.Set(ctx, settingsCacheKey, data, settingsCacheTTL)
	}
}

func applySettingsPatch(st *model.Settings, req dto.UpdateSettingsRequest) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&st.PrimaryColor, req.PrimaryColor)
	set(&st.SecondaryColor, req.SecondaryColor)
	set(&st.AccentColor, req.AccentColor)
	set(&st.TextColor, req.TextColor)
	set(&st.HeaderText, req.HeaderText)
	set(&st.HeaderDescription, req.HeaderDescription)
	set(&st.Phone1, req.Phone1)
	set(&st.Phone2, req.Phone2)
	set(&st.WhatsApp, req.WhatsApp)
	set(&st.Email, req.Email)
	set(&st.Address, req.Address)
	set(&st.LocationURL, req.LocationURL)
	set(&st.FacebookURL, req.FacebookURL)
	set(&st.InstagramURL, req.InstagramURL)
	set(&st.TwitterURL, req.TwitterURL)
	set(&st.AboutTitle, req.AboutTitle)
	set(&st.AboutDescription, req.AboutDescription)
	set(&st.AboutServices, req.AboutServices)
}

func toSettingsResponse(st *model.Settings) dto.SettingsResponse {
	return dto.SettingsResponse{
		BackgroundImage:   st.BackgroundImage,
		PrimaryColor:      st.PrimaryColor,
		SecondaryColor:    st.SecondaryColor,
		AccentColor:       st.AccentColor,
		TextColor:         st.TextColor,
		HeaderText:        st.HeaderText,
		HeaderDescription: st.HeaderDescription,
		Phone1:            st.Phone1,
		Phone2:            st.Phone2,
		WhatsApp:          st.WhatsApp,
		Email:             st.Email,
		Address:           st.Address,
		LocationURL:       st.LocationURL,
		FacebookURL:       st.FacebookURL,
		InstagramURL:      st.InstagramURL,
		TwitterURL:        st.TwitterURL,
		AboutTitle:        st.AboutTitle,
		AboutDescription:  st.AboutDescription,
		AboutServices:     st.AboutServices,
		UpdatedAt:         st.UpdatedAt,
	}
}
