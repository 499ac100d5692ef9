package domain

// SubjectType differentiates staff vs player identities.
type SubjectType string

const (
	SubjectTypeStaff  SubjectType = "STAFF"
	SubjectTypePlayer SubjectType = "PLAYER"
)
