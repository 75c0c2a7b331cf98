package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service manages system settings, the homepage layout and exchange rates.
type Service interface {
	GetSettings(ctx context.Context) (map[string]json.RawMessage, error)
	PutSettings(ctx context.Context, values map[string]json.RawMessage) (map[string]json.RawMessage, error)
	GetLayout(ctx context.Context) (*LayoutConfig, error)
	PutLayout(ctx context.Context, cfg *LayoutConfig) (*LayoutConfig, error)
	StorefrontLayout(ctx context.Context, locale string) (*StorefrontLayout, error)
	ListExchangeRates(ctx context.Context) ([]models.ExchangeRate, error)
	PutExchangeRates(ctx context.Context, rates []RateInput) ([]models.ExchangeRate, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService wires the settings service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) GetSettings(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settings")
	}
	out := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		value := json.RawMessage(row.Value)
		if row.Key == LayoutKey {
			if normalized, err := normalizeLayout([]byte(row.Value)); err == nil {
				value = normalized
			}
		}
		out[row.Key] = value
	}
	return out, nil
}

func (s *service) PutSettings(ctx context.Context, values map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	if len(values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no settings provided")
	}
	rows := make([]models.SystemSetting, 0, len(values))
	for key, raw := range values {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "setting keys cannot be empty")
		}
		if !json.Valid(raw) {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "setting %q is not valid JSON", key)
		}
		if key == LayoutKey {
			normalized, err := normalizeLayout(raw)
			if err != nil {
				return nil, err
			}
			raw = normalized
		}
		rows = append(rows, models.SystemSetting{Key: key, Value: datatypes.JSON(raw)})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i := range rows {
			if err := repo.Upsert(ctx, &rows[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save setting")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSettings(ctx)
}

func (s *service) GetLayout(ctx context.Context) (*LayoutConfig, error) {
	row, err := s.repo.Get(ctx, LayoutKey)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &LayoutConfig{Sections: []Section{}}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load layout")
	}
	cfg, err := ParseLayout([]byte(row.Value))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored layout is unreadable")
	}
	return cfg, nil
}

func (s *service) PutLayout(ctx context.Context, cfg *LayoutConfig) (*LayoutConfig, error) {
	if cfg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "layout is required")
	}
	for i := range cfg.Sections {
		cfg.Sections[i].upgrade()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode layout")
	}
	if err := s.repo.Upsert(ctx, &models.SystemSetting{Key: LayoutKey, Value: datatypes.JSON(raw)}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save layout")
	}
	return s.GetLayout(ctx)
}

func (s *service) StorefrontLayout(ctx context.Context, locale string) (*StorefrontLayout, error) {
	cfg, err := s.GetLayout(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(locale) == "" {
		locale = types.DefaultLocale
	}
	return cfg.Storefront(locale), nil
}

func (s *service) ListExchangeRates(ctx context.Context) ([]models.ExchangeRate, error) {
	rows, err := s.repo.ListRates(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchange rates")
	}
	if rows == nil {
		rows = []models.ExchangeRate{}
	}
	return rows, nil
}

func (s *service) PutExchangeRates(ctx context.Context, rates []RateInput) ([]models.ExchangeRate, error) {
	if len(rates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no exchange rates provided")
	}
	rows := make([]models.ExchangeRate, 0, len(rates))
	for i, in := range rates {
		code := strings.TrimSpace(in.Currency)
		if !validCurrency(code) {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "rates[%d].currency %q must be 3 upper-case letters", i, in.Currency)
		}
		if !in.Rate.IsPositive() {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "rates[%d].rate must be greater than zero", i)
		}
		rows = append(rows, models.ExchangeRate{Currency: code, Rate: in.Rate})
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i := range rows {
			if err := repo.UpsertRate(ctx, &rows[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save exchange rate")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ListExchangeRates(ctx)
}

func (s *service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rows, err := s.repo.ListRates(ctx)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchange rates")
	}
	rates := make(Rates, len(rows))
	for _, row := range rows {
		rates[row.Currency] = row.Rate
	}
	return rates.Convert(amount, from, to)
}

func normalizeLayout(raw []byte) (json.RawMessage, error) {
	cfg, err := ParseLayout(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "layout_config is not a valid layout")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode layout")
	}
	return out, nil
}
