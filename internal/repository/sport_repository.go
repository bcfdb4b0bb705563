package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sports-academy-api/internal/models"
)

// SportRepository reads sports and their option tables.
type SportRepository struct {
	db *sqlx.DB
}

// NewSportRepository constructs the repository.
func NewSportRepository(db *sqlx.DB) *SportRepository {
	return &SportRepository{db: db}
}

// FindByID returns a sport or sql.ErrNoRows.
func (r *SportRepository) FindByID(ctx context.Context, id string) (*models.Sport, error) {
	const query = `SELECT id, name, is_group, min_students, distance_by_age FROM sports WHERE id = $1`
	var sport models.Sport
	if err := r.db.GetContext(ctx, &sport, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find sport: %w", err)
	}
	return &sport, nil
}

// ListAgeCategories returns the categories of a sport.
func (r *SportRepository) ListAgeCategories(ctx context.Context, sportID string) ([]models.AgeCategory, error) {
	const query = `SELECT id, sport_id, name, age_group_id FROM age_categories WHERE sport_id = $1 ORDER BY name ASC`
	var categories []models.AgeCategory
	if err := r.db.SelectContext(ctx, &categories, query, sportID); err != nil {
		return nil, fmt.Errorf("list age categories: %w", err)
	}
	return categories, nil
}

// ListDistances returns every distance of a sport, across categories.
func (r *SportRepository) ListDistances(ctx context.Context, sportID string) ([]models.Distance, error) {
	const query = `SELECT id, sport_id, age_category_id, label FROM distances WHERE sport_id = $1 ORDER BY label ASC`
	var distances []models.Distance
	if err := r.db.SelectContext(ctx, &distances, query, sportID); err != nil {
		return nil, fmt.Errorf("list distances: %w", err)
	}
	return distances, nil
}

// ListSubTypes returns every sub type of a sport, across categories.
func (r *SportRepository) ListSubTypes(ctx context.Context, sportID string) ([]models.SportSubType, error) {
	const query = `SELECT id, sport_id, age_category_id, name FROM sport_sub_types WHERE sport_id = $1 ORDER BY name ASC`
	var subTypes []models.SportSubType
	if err := r.db.SelectContext(ctx, &subTypes, query, sportID); err != nil {
		return nil, fmt.Errorf("list sport sub types: %w", err)
	}
	return subTypes, nil
}
