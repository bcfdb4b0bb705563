package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sports-academy-api/internal/dto"
	"github.com/noah-isme/sports-academy-api/internal/models"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
)

type sportRepository interface {
	FindByID(ctx context.Context, id string) (*models.Sport, error)
	ListAgeCategories(ctx context.Context, sportID string) ([]models.AgeCategory, error)
	ListDistances(ctx context.Context, sportID string) ([]models.Distance, error)
	ListSubTypes(ctx context.Context, sportID string) ([]models.SportSubType, error)
}

type studentRepository interface {
	ListForSport(ctx context.Context, q models.StudentQuery) ([]models.Student, error)
}

// ValidatedSubmission is what the eligibility stages established about a submission.
type ValidatedSubmission struct {
	Sport    *models.Sport
	Rules    models.SelectionRules
	Students []models.Student
}

// ValidateOptions relaxes roster checks for per-row imports.
type ValidateOptions struct {
	SkipTeamSize bool
}

// EligibilityService enforces who can be selected for a sport and how rosters are composed.
type EligibilityService struct {
	sports    sportRepository
	students  studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEligibilityService constructs the service.
func NewEligibilityService(sports sportRepository, students studentRepository, validate *validator.Validate, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EligibilityService{sports: sports, students: students, validator: validate, logger: logger}
}

// ApplySelect toggles candidate in the selection under rules. Selecting an already selected
// student removes it. A group roster at capacity drops the candidate and reports truncated.
// A group roster sent over capacity is cut back to the cap first, which also reports truncated.
func ApplySelect(rules models.SelectionRules, candidate models.Student, current models.SelectionSet) (models.SelectionSet, bool, error) {
	next, clamped := clampRoster(rules, current.Clone())
	if next.Contains(candidate.ID) {
		next.Selected = remove(next.Selected, candidate.ID)
		next.Substitutes = remove(next.Substitutes, candidate.ID)
		return next, clamped, nil
	}
	if !candidate.IsEligible {
		return current, false, appErrors.WithDetails(appErrors.ErrStudentNotEligible, "studentId", candidate.ID)
	}
	if !rules.MultiSelect() {
		return models.SelectionSet{Selected: []string{candidate.ID}, Substitutes: []string{}}, false, nil
	}
	if rules.IsGroup && len(next.Selected) >= models.MaxGroupStudents {
		return next, true, nil
	}
	next.Selected = append(next.Selected, candidate.ID)
	return next, clamped, nil
}

// clampRoster keeps the first MaxGroupStudents of a group roster and drops substitutes that
// fell off it.
func clampRoster(rules models.SelectionRules, sel models.SelectionSet) (models.SelectionSet, bool) {
	if !rules.IsGroup || len(sel.Selected) <= models.MaxGroupStudents {
		return sel, false
	}
	sel.Selected = sel.Selected[:models.MaxGroupStudents]
	sel.Substitutes = keepSelected(sel.Substitutes, sel.Selected)
	return sel, true
}

// ApplySubstitute toggles candidateID as a substitute. The selection is unchanged on error.
func ApplySubstitute(rules models.SelectionRules, candidateID string, current models.SelectionSet) (models.SelectionSet, error) {
	if !rules.IsGroup {
		return current, appErrors.Clone(appErrors.ErrValidation, "substitutes apply to group sports only")
	}
	if !current.Contains(candidateID) {
		return current, appErrors.WithDetails(appErrors.ErrSubstituteNotSelected, "studentId", candidateID)
	}
	next := current.Clone()
	if next.IsSubstitute(candidateID) {
		next.Substitutes = remove(next.Substitutes, candidateID)
		return next, nil
	}
	if len(next.Substitutes) >= models.MaxSubstitutes {
		return current, appErrors.WithDetails(appErrors.ErrSubstituteLimitExceeded, "limit", models.MaxSubstitutes)
	}
	next.Substitutes = append(next.Substitutes, candidateID)
	return next, nil
}

// ValidateSelection checks every roster invariant, including the minimum team size.
func ValidateSelection(rules models.SelectionRules, sel models.SelectionSet) error {
	seen := make(map[string]bool, len(sel.Selected))
	for _, id := range sel.Selected {
		if seen[id] {
			return appErrors.WithDetails(appErrors.ErrValidation, "studentId", id)
		}
		seen[id] = true
	}
	if len(sel.Substitutes) > 0 && !rules.IsGroup {
		return appErrors.Clone(appErrors.ErrValidation, "substitutes apply to group sports only")
	}
	if len(sel.Substitutes) > models.MaxSubstitutes {
		return appErrors.WithDetails(appErrors.ErrSubstituteLimitExceeded, "limit", models.MaxSubstitutes)
	}
	subSeen := make(map[string]bool, len(sel.Substitutes))
	for _, id := range sel.Substitutes {
		if !seen[id] {
			return appErrors.WithDetails(appErrors.ErrSubstituteNotSelected, "studentId", id)
		}
		if subSeen[id] {
			return appErrors.WithDetails(appErrors.ErrValidation, "studentId", id)
		}
		subSeen[id] = true
	}
	if !rules.MultiSelect() && len(sel.Selected) > 1 {
		return appErrors.Clone(appErrors.ErrValidation, "only one student may be registered for this sport")
	}
	if rules.IsGroup && len(sel.Selected) > models.MaxGroupStudents {
		return appErrors.WithDetails(appErrors.ErrValidation, "max", models.MaxGroupStudents)
	}
	if len(sel.Selected) < rules.MinStudents {
		err := appErrors.WithDetails(appErrors.ErrInsufficientTeamSize, "required", rules.MinStudents)
		err.Details["selected"] = len(sel.Selected)
		return err
	}
	return nil
}

// Rules loads the sport and derives the roster rules for actor.
func (s *EligibilityService) Rules(ctx context.Context, actor models.Actor, sportID string) (*models.Sport, models.SelectionRules, error) {
	sport, err := s.sports.FindByID(ctx, sportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.SelectionRules{}, appErrors.Clone(appErrors.ErrNotFound, "sport not found")
		}
		return nil, models.SelectionRules{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sport")
	}
	return sport, models.RulesFor(sport, actor.Role), nil
}

// SelectStudent applies a selection toggle after loading the candidate's eligibility.
func (s *EligibilityService) SelectStudent(ctx context.Context, actor models.Actor, req dto.SelectRequest) (*dto.SelectionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	_, rules, err := s.Rules(ctx, actor, req.SportID)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListForSport(ctx, models.StudentQuery{
		SportID:       req.SportID,
		AgeCategoryID: req.AgeCategoryID,
		EventID:       req.EventID,
		OwnerID:       ownerScope(actor),
		IDs:           []string{req.CandidateID},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	next, truncated, err := ApplySelect(rules, students[0], req.Selection)
	if err != nil {
		return nil, err
	}
	if truncated {
		s.logger.Debug("selection truncated at roster cap", zap.String("sport_id", req.SportID), zap.String("student_id", req.CandidateID))
	}
	return selectionResult(rules, next, truncated), nil
}

// ToggleSubstitute applies a substitute toggle.
func (s *EligibilityService) ToggleSubstitute(ctx context.Context, actor models.Actor, req dto.SubstituteRequest) (*dto.SelectionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitute payload")
	}
	_, rules, err := s.Rules(ctx, actor, req.SportID)
	if err != nil {
		return nil, err
	}
	next, err := ApplySubstitute(rules, req.CandidateID, req.Selection)
	if err != nil {
		return nil, err
	}
	return selectionResult(rules, next, false), nil
}

// ListStudents returns the actor's students with eligibility for the sport and category.
func (s *EligibilityService) ListStudents(ctx context.Context, actor models.Actor, sportID, ageCategoryID, eventID string) ([]models.Student, error) {
	if sportID == "" || ageCategoryID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sportId and ageCategoryId are required")
	}
	students, err := s.students.ListForSport(ctx, models.StudentQuery{
		SportID:       sportID,
		AgeCategoryID: ageCategoryID,
		EventID:       eventID,
		OwnerID:       ownerScope(actor),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Options returns the age categories, distances and sub types of a sport. For sports whose
// distance depends on age, distances and sub types are narrowed to ageCategoryID.
func (s *EligibilityService) Options(ctx context.Context, sportID, ageCategoryID string) (*models.SportOptions, error) {
	sport, err := s.sports.FindByID(ctx, sportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sport not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sport")
	}
	categories, err := s.sports.ListAgeCategories(ctx, sportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load age categories")
	}
	distances, err := s.sports.ListDistances(ctx, sportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load distances")
	}
	subTypes, err := s.sports.ListSubTypes(ctx, sportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub types")
	}

	opts := &models.SportOptions{
		Sport:         *sport,
		AgeCategories: nonNil(categories),
		Distances:     nonNil(distances),
		SubTypes:      nonNil(subTypes),
	}
	if sport.DistanceByAge && ageCategoryID != "" {
		opts.Distances = filterByCategory(opts.Distances, ageCategoryID, func(d models.Distance) *string { return d.AgeCategoryID })
		opts.SubTypes = filterByCategory(opts.SubTypes, ageCategoryID, func(st models.SportSubType) *string { return st.AgeCategoryID })
	}
	return opts, nil
}

// CheckEligibility is the first submission stage: roster invariants and per-student eligibility.
// Students who are only ineligible because they are already registered pass through so the
// registration stage can report them as row failures.
func (s *EligibilityService) CheckEligibility(ctx context.Context, actor models.Actor, sub models.RegistrationSubmission, opts ValidateOptions) (*ValidatedSubmission, error) {
	sport, rules, err := s.Rules(ctx, actor, sub.SportID)
	if err != nil {
		return nil, err
	}
	if opts.SkipTeamSize {
		rules.MinStudents = 0
	}
	if err := ValidateSelection(rules, models.SelectionSet{Selected: sub.StudentIDs, Substitutes: sub.SubstituteIDs}); err != nil {
		return nil, err
	}

	students, err := s.students.ListForSport(ctx, models.StudentQuery{
		SportID:       sub.SportID,
		AgeCategoryID: sub.AgeCategoryID,
		EventID:       sub.EventID,
		OwnerID:       ownerScope(actor),
		IDs:           sub.StudentIDs,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	byID := make(map[string]models.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	ordered := make([]models.Student, 0, len(sub.StudentIDs))
	for _, id := range sub.StudentIDs {
		st, ok := byID[id]
		if !ok || (!st.IsEligible && !st.IsRegistered) {
			return nil, appErrors.WithDetails(appErrors.ErrStudentNotEligible, "studentId", id)
		}
		ordered = append(ordered, st)
	}
	return &ValidatedSubmission{Sport: sport, Rules: rules, Students: ordered}, nil
}

// CheckOptions is the second submission stage: the age category, distance and sub type must
// belong to the sport, and to the category when the sport narrows options by age.
func (s *EligibilityService) CheckOptions(ctx context.Context, sub models.RegistrationSubmission) error {
	opts, err := s.Options(ctx, sub.SportID, sub.AgeCategoryID)
	if err != nil {
		return err
	}
	if !containsID(opts.AgeCategories, sub.AgeCategoryID, func(c models.AgeCategory) string { return c.ID }) {
		return appErrors.WithDetails(appErrors.ErrValidation, "ageCategoryId", sub.AgeCategoryID)
	}
	if sub.DistanceID != "" && !containsID(opts.Distances, sub.DistanceID, func(d models.Distance) string { return d.ID }) {
		return appErrors.WithDetails(appErrors.ErrValidation, "distanceId", sub.DistanceID)
	}
	if sub.SportSubTypeID != "" && !containsID(opts.SubTypes, sub.SportSubTypeID, func(st models.SportSubType) string { return st.ID }) {
		return appErrors.WithDetails(appErrors.ErrValidation, "sportSubTypeId", sub.SportSubTypeID)
	}
	return nil
}

func selectionResult(rules models.SelectionRules, sel models.SelectionSet, truncated bool) *dto.SelectionResult {
	if sel.Selected == nil {
		sel.Selected = []string{}
	}
	if sel.Substitutes == nil {
		sel.Substitutes = []string{}
	}
	return &dto.SelectionResult{
		Selection:   sel,
		Truncated:   truncated,
		MinStudents: rules.MinStudents,
		CanSubmit:   ValidateSelection(rules, sel) == nil,
	}
}

// ownerScope limits students to the actor's own unless the actor is an admin.
func ownerScope(actor models.Actor) string {
	if actor.Role == models.RoleAdmin {
		return ""
	}
	return actor.ID
}

func remove(list []string, id string) []string {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func filterByCategory[T any](list []T, categoryID string, category func(T) *string) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if c := category(item); c == nil || *c == categoryID {
			out = append(out, item)
		}
	}
	return out
}

func containsID[T any](list []T, id string, key func(T) string) bool {
	for _, item := range list {
		if key(item) == id {
			return true
		}
	}
	return false
}
