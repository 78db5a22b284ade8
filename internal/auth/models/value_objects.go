package models

// GlobalRole is a User's system-wide privilege level.
// Ordering lives in the rbac package; do not compare roles here.
type GlobalRole string

const (
	RoleSuperAdmin GlobalRole = "SUPER_ADMIN"
	RoleAdmin      GlobalRole = "ADMIN"
	RoleUser       GlobalRole = "USER"
	RoleGuest      GlobalRole = "GUEST"
)

func (r GlobalRole) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser, RoleGuest:
		return true
	default:
		return false
	}
}

func (r GlobalRole) String() string {
	return string(r)
}

// UserStatus represents whether a user is active or inactive.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusInactive
}

// OTPState is the position of a session in the login OTP state machine.
type OTPState string

const (
	OTPStateNotNeeded OTPState = "NOT_NEEDED"
	OTPStatePending   OTPState = "PENDING"
	OTPStateSatisfied OTPState = "SATISFIED"
)

// DeliveryMethod selects the channel a one-time code is sent over.
type DeliveryMethod string

const (
	DeliverySMS   DeliveryMethod = "sms"
	DeliveryEmail DeliveryMethod = "email"
)

func (m DeliveryMethod) IsValid() bool {
	return m == DeliverySMS || m == DeliveryEmail
}
