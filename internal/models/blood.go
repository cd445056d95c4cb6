package models

import "strings"

// BloodGroup is one of the eight ABO/Rh types.
type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

var bloodGroups = map[BloodGroup]struct{}{
	BloodGroupAPos:  {},
	BloodGroupANeg:  {},
	BloodGroupBPos:  {},
	BloodGroupBNeg:  {},
	BloodGroupABPos: {},
	BloodGroupABNeg: {},
	BloodGroupOPos:  {},
	BloodGroupONeg:  {},
}

// NormalizeBloodGroup trims whitespace and upper-cases the group so that
// stored values with inconsistent casing compare equal.
func NormalizeBloodGroup(raw string) BloodGroup {
	return BloodGroup(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsValid reports whether the group is one of the eight ABO/Rh types.
func (g BloodGroup) IsValid() bool {
	_, ok := bloodGroups[NormalizeBloodGroup(string(g))]
	return ok
}
