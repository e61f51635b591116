package domain

import "time"

// UserRole is the clinical role a user plays in the escalation chain.
type UserRole string

const (
	RoleEMO         UserRole = "emo"
	RoleClinician   UserRole = "clinician"
	RoleRadiologist UserRole = "radiologist"
)

// NotificationPreferences holds a recipient's per-channel enable flags.
// UrgentOnly suppresses every channel unless the notification priority is
// urgent.
type NotificationPreferences struct {
	Push       bool `json:"push"`
	SMS        bool `json:"sms"`
	Email      bool `json:"email"`
	UrgentOnly bool `json:"urgent_only"`
}

// User is the recipient read model resolved from the user directory.
type User struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	Email       string                  `json:"email"`
	Phone       string                  `json:"phone,omitempty"`
	Role        UserRole                `json:"role"`
	Department  string                  `json:"department,omitempty"`
	HospitalID  string                  `json:"hospital_id,omitempty"`
	PushToken   string                  `json:"push_token,omitempty"`
	Preferences NotificationPreferences `json:"notification_preferences"`
	IsAvailable bool                    `json:"is_available"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}
