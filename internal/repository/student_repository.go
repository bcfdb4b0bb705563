package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sports-academy-api/internal/models"
)

// Eligibility is computed here: a student is registered when a registration exists for the
// sport and event, and eligible when the age group matches the category and they are not
// yet registered. $1 sport, $2 age category, $3 event ('' for none).
const studentEligibilitySelect = `SELECT s.id, s.name, s.age_group_id, s.owner_id, s.parent_name, s.parent_email,
	(reg.student_id IS NOT NULL) AS is_registered,
	(s.age_group_id = ac.age_group_id AND reg.student_id IS NULL) AS is_eligible
FROM students s
JOIN age_categories ac ON ac.id = $2 AND ac.sport_id = $1
LEFT JOIN LATERAL (
	SELECT r.student_id FROM registrations r
	WHERE r.student_id = s.id AND r.sport_id = $1 AND COALESCE(r.event_id, '') = $3
	LIMIT 1
) reg ON TRUE`

// StudentRepository reads students with their eligibility for a sport.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListForSport returns students scoped by the query with eligibility flags populated.
func (r *StudentRepository) ListForSport(ctx context.Context, q models.StudentQuery) ([]models.Student, error) {
	args := []interface{}{q.SportID, q.AgeCategoryID, q.EventID}
	var conditions []string
	if q.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("s.owner_id = $%d", len(args)+1))
		args = append(args, q.OwnerID)
	}
	if len(q.IDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("s.id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(q.IDs))
	}

	query := studentEligibilitySelect
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nORDER BY s.name ASC"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students for sport: %w", err)
	}
	return students, nil
}
