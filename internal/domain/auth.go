package domain

// SubjectType differentiates tenant vs staff credentials.
type SubjectType string

const (
	SubjectTypeTenant SubjectType = "TENANT"
	SubjectTypeStaff  SubjectType = "STAFF"
)
