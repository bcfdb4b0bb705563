package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sports-academy-api/internal/models"
)

// PricingRepository reads the sport and country price tables.
type PricingRepository struct {
	db *sqlx.DB
}

// NewPricingRepository constructs the repository.
func NewPricingRepository(db *sqlx.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// FindSportPrice returns the price row for a sport or sql.ErrNoRows.
func (r *PricingRepository) FindSportPrice(ctx context.Context, sportID string) (*models.SportPrice, error) {
	const query = `SELECT sp.sport_id, s.name AS sport_name, sp.currency, sp.registration_fee_minor, sp.certification_fee_minor
FROM sport_prices sp
JOIN sports s ON s.id = sp.sport_id
WHERE sp.sport_id = $1`
	var price models.SportPrice
	if err := r.db.GetContext(ctx, &price, query, sportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find sport price: %w", err)
	}
	return &price, nil
}

// FindCountryPrice returns the price row for a normalised country key or sql.ErrNoRows.
func (r *PricingRepository) FindCountryPrice(ctx context.Context, country string) (*models.CountryPrice, error) {
	const query = `SELECT country, currency, registration_fee_minor, certification_fee_minor FROM country_prices WHERE country = $1`
	var price models.CountryPrice
	if err := r.db.GetContext(ctx, &price, query, country); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find country price: %w", err)
	}
	return &price, nil
}

// ListCountries returns every country with a configured price.
func (r *PricingRepository) ListCountries(ctx context.Context) ([]string, error) {
	const query = `SELECT country FROM country_prices ORDER BY country ASC`
	var countries []string
	if err := r.db.SelectContext(ctx, &countries, query); err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return countries, nil
}
