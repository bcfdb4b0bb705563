package models

// DefaultGroupMinStudents applies to group sports without an explicit minimum.
const DefaultGroupMinStudents = 7

// MaxGroupStudents caps a group sport roster.
const MaxGroupStudents = 9

// MaxSubstitutes caps substitutes per roster.
const MaxSubstitutes = 2

// Sport describes a registrable sport and its roster rules.
type Sport struct {
	ID            string `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	IsGroup       bool   `db:"is_group" json:"isGroup"`
	MinStudents   *int   `db:"min_students" json:"minStudents,omitempty"`
	DistanceByAge bool   `db:"distance_by_age" json:"distanceByAge"`
}

// MinStudentsRequired resolves the roster minimum.
func (s *Sport) MinStudentsRequired() int {
	if s.MinStudents != nil && *s.MinStudents > 0 {
		return *s.MinStudents
	}
	if s.IsGroup {
		return DefaultGroupMinStudents
	}
	return 1
}

// AgeCategory maps a sport category to the student age group it admits.
type AgeCategory struct {
	ID         string `db:"id" json:"id"`
	SportID    string `db:"sport_id" json:"sportId"`
	Name       string `db:"name" json:"name"`
	AgeGroupID string `db:"age_group_id" json:"ageGroupId"`
}

// Distance is a race distance option. AgeCategoryID is nil when it applies to every category.
type Distance struct {
	ID            string  `db:"id" json:"id"`
	SportID       string  `db:"sport_id" json:"sportId"`
	AgeCategoryID *string `db:"age_category_id" json:"ageCategoryId,omitempty"`
	Label         string  `db:"label" json:"label"`
}

// SportSubType is a discipline within a sport.
type SportSubType struct {
	ID            string  `db:"id" json:"id"`
	SportID       string  `db:"sport_id" json:"sportId"`
	AgeCategoryID *string `db:"age_category_id" json:"ageCategoryId,omitempty"`
	Name          string  `db:"name" json:"name"`
}

// SportOptions bundles the choices offered for a sport and age category.
type SportOptions struct {
	Sport         Sport          `json:"sport"`
	AgeCategories []AgeCategory  `json:"ageCategories"`
	Distances     []Distance     `json:"distances"`
	SubTypes      []SportSubType `json:"subTypes"`
}
