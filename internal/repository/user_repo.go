package repository

import (
	"context"
	"time"

	"medalert/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name"`
	Email       string    `gorm:"column:email;uniqueIndex"`
	Phone       *string   `gorm:"column:phone"`
	Role        string    `gorm:"column:role;index"`
	Department  *string   `gorm:"column:department"`
	HospitalID  *string   `gorm:"column:hospital_id"`
	PushToken   *string   `gorm:"column:push_token"`
	PrefPush    bool      `gorm:"column:pref_push;default:true"`
	PrefSMS     bool      `gorm:"column:pref_sms;default:false"`
	PrefEmail   bool      `gorm:"column:pref_email;default:true"`
	UrgentOnly  bool      `gorm:"column:urgent_only;default:false"`
	IsAvailable bool      `gorm:"column:is_available;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

// Model exported for store migration.
func (r *UserRepository) Model() interface{} { return &userModel{} }

func toDomainUser(m userModel) *domain.User {
	var phone, department, hospitalID, pushToken string
	if m.Phone != nil {
		phone = *m.Phone
	}
	if m.Department != nil {
		department = *m.Department
	}
	if m.HospitalID != nil {
		hospitalID = *m.HospitalID
	}
	if m.PushToken != nil {
		pushToken = *m.PushToken
	}

	return &domain.User{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      phone,
		Role:       domain.UserRole(m.Role),
		Department: department,
		HospitalID: hospitalID,
		PushToken:  pushToken,
		Preferences: domain.NotificationPreferences{
			Push:       m.PrefPush,
			SMS:        m.PrefSMS,
			Email:      m.PrefEmail,
			UrgentOnly: m.UrgentOnly,
		},
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	var phone, department, hospitalID, pushToken *string
	if u.Phone != "" {
		v := u.Phone
		phone = &v
	}
	if u.Department != "" {
		v := u.Department
		department = &v
	}
	if u.HospitalID != "" {
		v := u.HospitalID
		hospitalID = &v
	}
	if u.PushToken != "" {
		v := u.PushToken
		pushToken = &v
	}

	return userModel{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       phone,
		Role:        string(u.Role),
		Department:  department,
		HospitalID:  hospitalID,
		PushToken:   pushToken,
		PrefPush:    u.Preferences.Push,
		PrefSMS:     u.Preferences.SMS,
		PrefEmail:   u.Preferences.Email,
		UrgentOnly:  u.Preferences.UrgentOnly,
		IsAvailable: u.IsAvailable,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// FindByID resolves a recipient from the user directory. Returns
// gorm.ErrRecordNotFound when the id does not exist.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return toDomainUser(m), nil
}

// Create inserts a user record (used by the seeder and tests).
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	u.ID = m.ID
	u.CreatedAt = m.CreatedAt
	u.UpdatedAt = m.UpdatedAt
	return nil
}
