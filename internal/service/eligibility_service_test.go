package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sports-academy-api/internal/dto"
	"github.com/noah-isme/sports-academy-api/internal/models"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
)

type mockSportRepo struct {
	sports     map[string]*models.Sport
	categories []models.AgeCategory
	distances  []models.Distance
	subTypes   []models.SportSubType
	err        error
}

func (m *mockSportRepo) FindByID(ctx context.Context, id string) (*models.Sport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.sports[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSportRepo) ListAgeCategories(ctx context.Context, sportID string) ([]models.AgeCategory, error) {
	return m.categories, nil
}

func (m *mockSportRepo) ListDistances(ctx context.Context, sportID string) ([]models.Distance, error) {
	return m.distances, nil
}

func (m *mockSportRepo) ListSubTypes(ctx context.Context, sportID string) ([]models.SportSubType, error) {
	return m.subTypes, nil
}

type mockStudentRepo struct {
	students  []models.Student
	err       error
	lastQuery models.StudentQuery
}

func (m *mockStudentRepo) ListForSport(ctx context.Context, q models.StudentQuery) ([]models.Student, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Student
	for _, st := range m.students {
		if q.OwnerID != "" && st.OwnerID != q.OwnerID {
			continue
		}
		if len(q.IDs) > 0 && !contains(q.IDs, st.ID) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func newSportRepo() *mockSportRepo {
	return &mockSportRepo{
		sports: map[string]*models.Sport{
			"sport-sprint": {ID: "sport-sprint", Name: "Sprint"},
			"sport-relay":  {ID: "sport-relay", Name: "Relay", IsGroup: true},
			"sport-swim":   {ID: "sport-swim", Name: "Swimming", DistanceByAge: true},
			"sport-duo":    {ID: "sport-duo", Name: "Doubles", IsGroup: true, MinStudents: intPtr(2)},
		},
		categories: []models.AgeCategory{
			{ID: "cat-u12", Name: "Under 12", AgeGroupID: "ag-u12"},
			{ID: "cat-u16", Name: "Under 16", AgeGroupID: "ag-u16"},
		},
		distances: []models.Distance{
			{ID: "d-50", Label: "50m", AgeCategoryID: strPtr("cat-u12")},
			{ID: "d-100", Label: "100m", AgeCategoryID: strPtr("cat-u16")},
			{ID: "d-open", Label: "Open"},
		},
		subTypes: []models.SportSubType{
			{ID: "st-free", Name: "Freestyle"},
			{ID: "st-fly", Name: "Butterfly", AgeCategoryID: strPtr("cat-u16")},
		},
	}
}

func newStudentRepo(owner string, n int) *mockStudentRepo {
	repo := &mockStudentRepo{}
	for i := 1; i <= n; i++ {
		repo.students = append(repo.students, models.Student{ID: fmt.Sprintf("s%d", i), Name: fmt.Sprintf("Student %d", i), OwnerID: owner, IsEligible: true})
	}
	return repo
}

func ids(n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("s%d", i))
	}
	return out
}

var (
	parent = models.Actor{ID: "parent-1", Role: models.RoleParent}
	school = models.Actor{ID: "school-1", Role: models.RoleSchool}
	admin  = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

func TestApplySelectSingleSelectReplaces(t *testing.T) {
	rules := models.SelectionRules{MinStudents: 1}
	sel, _, err := ApplySelect(rules, models.Student{ID: "s1", IsEligible: true}, models.SelectionSet{})
	require.NoError(t, err)
	sel, _, err = ApplySelect(rules, models.Student{ID: "s2", IsEligible: true}, sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sel.Selected)

	sel, _, err = ApplySelect(rules, models.Student{ID: "s2", IsEligible: true}, sel)
	require.NoError(t, err)
	assert.Empty(t, sel.Selected)
}

func TestApplySelectPrivilegedIndividualToggles(t *testing.T) {
	rules := models.RulesFor(&models.Sport{ID: "sport-sprint"}, models.RoleSchool)
	sel := models.SelectionSet{}
	for _, id := range ids(12) {
		var err error
		sel, _, err = ApplySelect(rules, models.Student{ID: id, IsEligible: true}, sel)
		require.NoError(t, err)
	}
	assert.Len(t, sel.Selected, 12)
}

func TestApplySelectRejectsIneligibleButAllowsDeselect(t *testing.T) {
	rules := models.SelectionRules{IsGroup: true, MinStudents: 7}
	ineligible := models.Student{ID: "s1", IsEligible: false}

	_, _, err := ApplySelect(rules, ineligible, models.SelectionSet{})
	assert.True(t, errors.Is(err, appErrors.ErrStudentNotEligible))

	sel, _, err := ApplySelect(rules, ineligible, models.SelectionSet{Selected: []string{"s1", "s2"}, Substitutes: []string{"s1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sel.Selected)
	assert.Empty(t, sel.Substitutes)
}

func TestApplySelectGroupCapTruncates(t *testing.T) {
	rules := models.SelectionRules{IsGroup: true, MinStudents: 7}
	current := models.SelectionSet{Selected: ids(9)}

	sel, truncated, err := ApplySelect(rules, models.Student{ID: "s10", IsEligible: true}, current)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, sel.Selected, 9)
	assert.False(t, sel.Contains("s10"))
}

func TestApplySelectClampsOversizedRoster(t *testing.T) {
	rules := models.SelectionRules{IsGroup: true, MinStudents: 7}
	current := models.SelectionSet{Selected: ids(12), Substitutes: []string{"s2", "s11"}}

	sel, truncated, err := ApplySelect(rules, models.Student{ID: "s13", IsEligible: true}, current)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, ids(9), sel.Selected)
	assert.Equal(t, []string{"s2"}, sel.Substitutes)
	assert.Len(t, current.Selected, 12)

	sel, truncated, err = ApplySelect(rules, models.Student{ID: "s3", IsEligible: true}, current)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, sel.Selected, 8)
	assert.False(t, sel.Contains("s3"))
}

func TestApplySubstitute(t *testing.T) {
	rules := models.SelectionRules{IsGroup: true, MinStudents: 7}
	current := models.SelectionSet{Selected: ids(9)}

	sel, err := ApplySubstitute(rules, "s1", current)
	require.NoError(t, err)
	sel, err = ApplySubstitute(rules, "s2", sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, sel.Substitutes)

	unchanged, err := ApplySubstitute(rules, "s3", sel)
	assert.True(t, errors.Is(err, appErrors.ErrSubstituteLimitExceeded))
	assert.Equal(t, sel, unchanged)

	_, err = ApplySubstitute(rules, "s99", sel)
	assert.True(t, errors.Is(err, appErrors.ErrSubstituteNotSelected))

	sel, err = ApplySubstitute(rules, "s1", sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sel.Substitutes)

	_, err = ApplySubstitute(models.SelectionRules{MinStudents: 1}, "s1", sel)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestValidateSelection(t *testing.T) {
	group := models.SelectionRules{IsGroup: true, MinStudents: 7}
	single := models.SelectionRules{MinStudents: 1}

	cases := []struct {
		name  string
		rules models.SelectionRules
		sel   models.SelectionSet
		err   *appErrors.Error
	}{
		{"team of six", group, models.SelectionSet{Selected: ids(6)}, appErrors.ErrInsufficientTeamSize},
		{"team of seven", group, models.SelectionSet{Selected: ids(7)}, nil},
		{"team of ten", group, models.SelectionSet{Selected: ids(10)}, appErrors.ErrValidation},
		{"three substitutes", group, models.SelectionSet{Selected: ids(9), Substitutes: []string{"s1", "s2", "s3"}}, appErrors.ErrSubstituteLimitExceeded},
		{"substitute not selected", group, models.SelectionSet{Selected: ids(7), Substitutes: []string{"s8"}}, appErrors.ErrSubstituteNotSelected},
		{"duplicate student", group, models.SelectionSet{Selected: append(ids(7), "s1")}, appErrors.ErrValidation},
		{"individual two", single, models.SelectionSet{Selected: ids(2)}, appErrors.ErrValidation},
		{"individual none", single, models.SelectionSet{}, appErrors.ErrInsufficientTeamSize},
		{"individual substitutes", single, models.SelectionSet{Selected: ids(1), Substitutes: ids(1)}, appErrors.ErrValidation},
		{"individual one", single, models.SelectionSet{Selected: ids(1)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSelection(tc.rules, tc.sel)
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestEligibilitySelectStudentScopesToOwner(t *testing.T) {
	students := newStudentRepo(parent.ID, 2)
	students.students = append(students.students, models.Student{ID: "other", OwnerID: "someone-else", IsEligible: true})
	svc := NewEligibilityService(newSportRepo(), students, nil, nil)

	res, err := svc.SelectStudent(context.Background(), parent, dto.SelectRequest{SportID: "sport-sprint", AgeCategoryID: "cat-u12", CandidateID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, res.Selection.Selected)
	assert.True(t, res.CanSubmit)
	assert.Equal(t, parent.ID, students.lastQuery.OwnerID)

	_, err = svc.SelectStudent(context.Background(), parent, dto.SelectRequest{SportID: "sport-sprint", AgeCategoryID: "cat-u12", CandidateID: "other"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestEligibilitySelectStudentGroupProgress(t *testing.T) {
	svc := NewEligibilityService(newSportRepo(), newStudentRepo(school.ID, 10), nil, nil)

	res, err := svc.SelectStudent(context.Background(), school, dto.SelectRequest{SportID: "sport-relay", AgeCategoryID: "cat-u12", CandidateID: "s7", Selection: models.SelectionSet{Selected: ids(6)}})
	require.NoError(t, err)
	assert.Equal(t, 7, res.MinStudents)
	assert.True(t, res.CanSubmit)

	res, err = svc.SelectStudent(context.Background(), school, dto.SelectRequest{SportID: "sport-relay", AgeCategoryID: "cat-u12", CandidateID: "s10", Selection: models.SelectionSet{Selected: ids(9)}})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
}

func TestEligibilityToggleSubstitute(t *testing.T) {
	svc := NewEligibilityService(newSportRepo(), newStudentRepo(school.ID, 9), nil, nil)

	res, err := svc.ToggleSubstitute(context.Background(), school, dto.SubstituteRequest{SportID: "sport-relay", CandidateID: "s3", Selection: models.SelectionSet{Selected: ids(9)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3"}, res.Selection.Substitutes)

	_, err = svc.ToggleSubstitute(context.Background(), school, dto.SubstituteRequest{SportID: "missing", CandidateID: "s3"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestEligibilityListStudentsAdminSeesAll(t *testing.T) {
	students := newStudentRepo("owner-a", 2)
	svc := NewEligibilityService(newSportRepo(), students, nil, nil)

	list, err := svc.ListStudents(context.Background(), admin, "sport-sprint", "cat-u12", "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Empty(t, students.lastQuery.OwnerID)

	_, err = svc.ListStudents(context.Background(), admin, "", "cat-u12", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestEligibilityOptionsFilterByAge(t *testing.T) {
	svc := NewEligibilityService(newSportRepo(), &mockStudentRepo{}, nil, nil)

	opts, err := svc.Options(context.Background(), "sport-swim", "cat-u12")
	require.NoError(t, err)
	var labels []string
	for _, d := range opts.Distances {
		labels = append(labels, d.Label)
	}
	assert.Equal(t, []string{"50m", "Open"}, labels)
	assert.Len(t, opts.SubTypes, 1)

	opts, err = svc.Options(context.Background(), "sport-relay", "cat-u12")
	require.NoError(t, err)
	assert.Len(t, opts.Distances, 3)
}

func TestEligibilityCheckEligibility(t *testing.T) {
	students := newStudentRepo(school.ID, 9)
	students.students[7].IsEligible = false
	students.students[7].IsRegistered = true
	students.students[8].IsEligible = false
	svc := NewEligibilityService(newSportRepo(), students, nil, nil)

	validated, err := svc.CheckEligibility(context.Background(), school, models.RegistrationSubmission{SportID: "sport-relay", AgeCategoryID: "cat-u12", StudentIDs: ids(8)}, ValidateOptions{})
	require.NoError(t, err)
	assert.Len(t, validated.Students, 8)
	assert.Equal(t, "s8", validated.Students[7].ID)

	_, err = svc.CheckEligibility(context.Background(), school, models.RegistrationSubmission{SportID: "sport-relay", AgeCategoryID: "cat-u12", StudentIDs: ids(9)}, ValidateOptions{})
	assert.True(t, errors.Is(err, appErrors.ErrStudentNotEligible))

	_, err = svc.CheckEligibility(context.Background(), school, models.RegistrationSubmission{SportID: "sport-relay", AgeCategoryID: "cat-u12", StudentIDs: ids(6)}, ValidateOptions{})
	assert.True(t, errors.Is(err, appErrors.ErrInsufficientTeamSize))

	_, err = svc.CheckEligibility(context.Background(), admin, models.RegistrationSubmission{SportID: "sport-relay", AgeCategoryID: "cat-u12", StudentIDs: []string{"s1"}}, ValidateOptions{SkipTeamSize: true})
	assert.NoError(t, err)
}

func TestEligibilityCheckOptions(t *testing.T) {
	svc := NewEligibilityService(newSportRepo(), &mockStudentRepo{}, nil, nil)
	ctx := context.Background()

	assert.NoError(t, svc.CheckOptions(ctx, models.RegistrationSubmission{SportID: "sport-swim", AgeCategoryID: "cat-u16", DistanceID: "d-100", SportSubTypeID: "st-fly"}))
	assert.Error(t, svc.CheckOptions(ctx, models.RegistrationSubmission{SportID: "sport-swim", AgeCategoryID: "cat-u12", DistanceID: "d-100"}))
	assert.Error(t, svc.CheckOptions(ctx, models.RegistrationSubmission{SportID: "sport-swim", AgeCategoryID: "cat-u12", SportSubTypeID: "st-fly"}))
	assert.Error(t, svc.CheckOptions(ctx, models.RegistrationSubmission{SportID: "sport-swim", AgeCategoryID: "cat-x"}))
}
