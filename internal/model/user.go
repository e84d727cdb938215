package model

import "time"

// User 用户；Followers / Following 由 fans / follows 表加载，不落在 users 表
type User struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username      string    `json:"username" gorm:"type:varchar(60);uniqueIndex;not null"`
	Email         string    `json:"-" gorm:"type:varchar(150);uniqueIndex;not null"`
	Password      string    `json:"-" gorm:"type:varchar(80)"`
	Karma         int       `json:"karma" gorm:"not null"`
	Role          Role      `json:"role" gorm:"not null;index"`
	ReceiveEmail  bool      `json:"receive_email"`
	EmailAlerts   bool      `json:"email_alerts"`
	ActivationKey *string   `json:"-" gorm:"type:varchar(80);uniqueIndex"`
	CreatedAt     time.Time `json:"date_joined"`
	UpdatedAt     time.Time `json:"-"`

	Followers IDSet `json:"-" gorm:"-"`
	Following IDSet `json:"-" gorm:"-"`
}

func (User) TableName() string { return "users" }

// NewUser 新用户默认 member 角色、空关系集合
func NewUser(username, email string) *User {
	return &User{
		Username:  username,
		Email:     email,
		Role:      RoleMember,
		Followers: IDSet{},
		Following: IDSet{},
	}
}

func (u *User) IsModerator() bool { return u != nil && u.Role >= RoleModerator }

func (u *User) IsAdmin() bool { return u != nil && u.Role >= RoleAdmin }

// AddKarma 调整 karma，下限为 0
func (u *User) AddKarma(delta int) {
	u.Karma += delta
	if u.Karma < 0 {
		u.Karma = 0
	}
}
