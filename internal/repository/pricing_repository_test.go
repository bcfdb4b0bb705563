package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSportPrice(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPricingRepository(db)

	rows := sqlmock.NewRows([]string{"sport_id", "sport_name", "currency", "registration_fee_minor", "certification_fee_minor"}).
		AddRow("badminton-id", "Badminton", "USD", 5000, 1000)
	mock.ExpectQuery("FROM sport_prices sp").WithArgs("badminton-id").WillReturnRows(rows)

	price, err := repo.FindSportPrice(context.Background(), "badminton-id")
	require.NoError(t, err)
	assert.Equal(t, "Badminton", price.SportName)
	assert.Equal(t, int64(5000), price.RegistrationFeeMinor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCountryPriceMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPricingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM country_prices WHERE country = $1")).WithArgs("atlantis").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindCountryPrice(context.Background(), "atlantis")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListCountries(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPricingRepository(db)

	mock.ExpectQuery("SELECT country FROM country_prices").
		WillReturnRows(sqlmock.NewRows([]string{"country"}).AddRow("india").AddRow("malaysia"))

	countries, err := repo.ListCountries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"india", "malaysia"}, countries)
}
