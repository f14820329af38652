package profile

import "time"

type Role string

const (
	RoleClient Role = "CLIENT"
	RoleBroker Role = "BROKER"
)

// User is the domain representation of a profile row.
// It mirrors the profiles table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID                 string
	Name               string
	Email              string
	PasswordHash       string
	Role               Role
	ContactNumber      *string
	CurrentAddress     *string
	CompanyName        *string
	IsAdmin            bool
	IsTeamManager      bool
	IsBrokerAdmin      bool
	MustChangePassword bool
	CreatedBy          *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Tier is a visibility rank derived from the elevated flags. Higher tiers see
// more; the flags are independent booleans and may be combined, so the rank is
// computed by an ordered check rather than stored.
type Tier int

const (
	// TierSelf sees only records it owns.
	TierSelf Tier = iota
	// TierCompany sees records owned by brokers sharing its company name.
	TierCompany
	// TierAdmin sees everything.
	TierAdmin
)

// Tier resolves the precedence admin > team-manager/broker-admin > self.
func (u User) Tier() Tier {
	switch {
	case u.IsAdmin:
		return TierAdmin
	case u.IsTeamManager || u.IsBrokerAdmin:
		return TierCompany
	default:
		return TierSelf
	}
}

// Elevated reports whether u may see beyond its own records.
func (u User) Elevated() bool {
	return u.Tier() > TierSelf
}

// Company returns the denormalized company string, empty when unset. Company
// grouping is a plain string match; an empty company only matches other empty
// companies.
func (u User) Company() string {
	if u.CompanyName == nil {
		return ""
	}
	return *u.CompanyName
}
