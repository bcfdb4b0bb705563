package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sports-academy-api/internal/models"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
)

type pricingRepository interface {
	FindSportPrice(ctx context.Context, sportID string) (*models.SportPrice, error)
	FindCountryPrice(ctx context.Context, country string) (*models.CountryPrice, error)
	ListCountries(ctx context.Context) ([]string, error)
}

// PricingService resolves fee breakdowns from the sport and country price tables.
type PricingService struct {
	repo      pricingRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPricingService constructs the resolver. cache may be nil.
func NewPricingService(repo pricingRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *PricingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PricingService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// NormaliseCountry trims and lower-cases a country key.
func NormaliseCountry(country string) string {
	return strings.ToLower(strings.TrimSpace(country))
}

// Calculate computes the fee breakdown. A sport price wins over a country price.
func (s *PricingService) Calculate(ctx context.Context, req models.PricingRequest) (*models.PricingCalculation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "studentCount must be at least 1")
	}
	country := NormaliseCountry(req.Country)
	sportID := strings.TrimSpace(req.SportID)
	if sportID == "" && country == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sportId or country is required")
	}

	if sportID != "" {
		price, err := s.sportPrice(ctx, sportID)
		if err != nil {
			return nil, err
		}
		if price != nil {
			calc, err := compute(price.Currency, price.RegistrationFeeMinor, price.CertificationFeeMinor, req)
			if err != nil {
				return nil, err
			}
			calc.Country = country
			calc.SportName = price.SportName
			calc.Source = models.PricingSourceSport
			return calc, nil
		}
	}

	if country != "" {
		price, err := s.countryPrice(ctx, country)
		if err != nil {
			return nil, err
		}
		if price != nil {
			calc, err := compute(price.Currency, price.RegistrationFeeMinor, price.CertificationFeeMinor, req)
			if err != nil {
				return nil, err
			}
			calc.Country = country
			calc.Source = models.PricingSourceCountry
			return calc, nil
		}
	}

	return nil, appErrors.WithDetails(appErrors.ErrUnknownPricingKey, "key", firstNonEmpty(sportID, country))
}

// ListCountries returns the country keys with a configured price.
func (s *PricingService) ListCountries(ctx context.Context) ([]string, error) {
	var countries []string
	if s.cache.Get(ctx, "countries", &countries) {
		return countries, nil
	}
	countries, err := s.repo.ListCountries(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list countries")
	}
	if countries == nil {
		countries = []string{}
	}
	s.cache.Set(ctx, "countries", countries, s.cacheTTL)
	return countries, nil
}

func (s *PricingService) sportPrice(ctx context.Context, sportID string) (*models.SportPrice, error) {
	key := "sport:" + sportID
	var cached models.SportPrice
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	price, err := s.repo.FindSportPrice(ctx, sportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sport price")
	}
	s.cache.Set(ctx, key, price, s.cacheTTL)
	return price, nil
}

func (s *PricingService) countryPrice(ctx context.Context, country string) (*models.CountryPrice, error) {
	key := "country:" + country
	var cached models.CountryPrice
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	price, err := s.repo.FindCountryPrice(ctx, country)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load country price")
	}
	s.cache.Set(ctx, key, price, s.cacheTTL)
	return price, nil
}

// compute applies total = (registration + certification if included) * students in integer minor units.
func compute(currency string, registration, certification int64, req models.PricingRequest) (*models.PricingCalculation, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if registration < 0 || certification < 0 || !isCurrencyCode(currency) {
		return nil, appErrors.Clone(appErrors.ErrInvalidPriceTable, "")
	}
	perStudent := registration
	if req.IncludeCertification {
		if perStudent > math.MaxInt64-certification {
			return nil, appErrors.Clone(appErrors.ErrValidation, "amount overflows")
		}
		perStudent += certification
	}
	count := int64(req.StudentCount)
	if perStudent != 0 && count > math.MaxInt64/perStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount overflows")
	}
	total := perStudent * count

	outcome := models.PricingOutcomePaymentRequired
	if total == 0 {
		outcome = models.PricingOutcomeFree
	}
	return &models.PricingCalculation{
		Currency:                   currency,
		RegistrationFeeMinorUnits:  registration,
		CertificationFeeMinorUnits: certification,
		TotalAmountMinorUnits:      total,
		StudentCount:               req.StudentCount,
		IncludeCertification:       req.IncludeCertification,
		Outcome:                    outcome,
	}, nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
