package entity

// Role ID constants carried in access token claims.
// Users and roles are owned by the identity service.
const (
	RoleIDAdmin    = 1
	RoleIDProvider = 2
	RoleIDPatient  = 3
)
