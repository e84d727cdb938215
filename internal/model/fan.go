package model

import "time"

// Fan 粉丝关系（B 的粉丝是 A）冗余自 Follow，即 B 的 followers 集合
type Fan struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    int64  `gorm:"index:idx_fan_user;index:idx_fan_pair,unique;not null"`
	FanID     int64  `gorm:"not null;index:idx_fan_pair,unique;index:idx_fan_fan"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Fan) TableName() string { return "fans" }
