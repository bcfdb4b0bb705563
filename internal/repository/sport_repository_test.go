package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSportFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSportRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "is_group", "min_students", "distance_by_age"}).
		AddRow("football", "Football", true, nil, false)
	mock.ExpectQuery("FROM sports WHERE id = \\$1").WithArgs("football").WillReturnRows(rows)

	sport, err := repo.FindByID(context.Background(), "football")
	require.NoError(t, err)
	assert.True(t, sport.IsGroup)
	assert.Nil(t, sport.MinStudents)
	assert.Equal(t, 7, sport.MinStudentsRequired())
}

func TestSportListOptions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSportRepository(db)

	mock.ExpectQuery("FROM distances WHERE sport_id").WithArgs("running").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sport_id", "age_category_id", "label"}).
			AddRow("d1", "running", "u12", "1km").
			AddRow("d2", "running", nil, "Open"))
	mock.ExpectQuery("FROM sport_sub_types WHERE sport_id").WithArgs("running").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sport_id", "age_category_id", "name"}).AddRow("s1", "running", nil, "Relay"))
	mock.ExpectQuery("FROM age_categories WHERE sport_id").WithArgs("running").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sport_id", "name", "age_group_id"}).AddRow("u12", "running", "Under 12", "g12"))

	distances, err := repo.ListDistances(context.Background(), "running")
	require.NoError(t, err)
	require.Len(t, distances, 2)
	require.NotNil(t, distances[0].AgeCategoryID)
	assert.Equal(t, "u12", *distances[0].AgeCategoryID)
	assert.Nil(t, distances[1].AgeCategoryID)

	subTypes, err := repo.ListSubTypes(context.Background(), "running")
	require.NoError(t, err)
	assert.Len(t, subTypes, 1)

	categories, err := repo.ListAgeCategories(context.Background(), "running")
	require.NoError(t, err)
	assert.Equal(t, "g12", categories[0].AgeGroupID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
