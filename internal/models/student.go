package models

// Student is a registrable student with server-computed eligibility flags.
type Student struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	AgeGroupID   string `db:"age_group_id" json:"ageGroupId"`
	OwnerID      string `db:"owner_id" json:"-"`
	ParentName   string `db:"parent_name" json:"-"`
	ParentEmail  string `db:"parent_email" json:"-"`
	IsEligible   bool   `db:"is_eligible" json:"isEligible"`
	IsRegistered bool   `db:"is_registered" json:"isRegistered"`
}

// StudentQuery scopes an eligibility listing.
type StudentQuery struct {
	SportID       string
	AgeCategoryID string
	EventID       string
	// OwnerID limits results to one owner; empty means every student.
	OwnerID string
	IDs     []string
}

// SelectionSet is the roster under construction. Substitutes are always a subset of Selected.
type SelectionSet struct {
	Selected    []string `json:"selectedStudents"`
	Substitutes []string `json:"substitutes"`
}

// Contains reports whether id is selected.
func (s SelectionSet) Contains(id string) bool {
	return indexOf(s.Selected, id) >= 0
}

// IsSubstitute reports whether id is a substitute.
func (s SelectionSet) IsSubstitute(id string) bool {
	return indexOf(s.Substitutes, id) >= 0
}

// Clone returns a copy that shares no backing arrays.
func (s SelectionSet) Clone() SelectionSet {
	return SelectionSet{
		Selected:    append([]string{}, s.Selected...),
		Substitutes: append([]string{}, s.Substitutes...),
	}
}

func indexOf(list []string, id string) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}

// SelectionRules are the roster rules in force for one sport and actor.
type SelectionRules struct {
	IsGroup     bool
	Privileged  bool
	MinStudents int
}

// MultiSelect reports whether the roster toggles membership instead of replacing it.
func (r SelectionRules) MultiSelect() bool {
	return r.IsGroup || r.Privileged
}

// RulesFor derives selection rules for a sport and actor role.
func RulesFor(sport *Sport, role UserRole) SelectionRules {
	return SelectionRules{
		IsGroup:     sport.IsGroup,
		Privileged:  role.IsPrivileged(),
		MinStudents: sport.MinStudentsRequired(),
	}
}
