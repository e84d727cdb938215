package model

import "fmt"

// Access 内容可见级别；数值可比较
type Access int

const (
	AccessPublic  Access = 100
	AccessFriends Access = 200
	AccessPrivate Access = 300
)

func (a Access) String() string {
	switch a {
	case AccessFriends:
		return "friends"
	case AccessPrivate:
		return "private"
	default:
		return "public"
	}
}

func (a Access) Valid() bool {
	return a == AccessPublic || a == AccessFriends || a == AccessPrivate
}

// ParseAccess 接受名称或数值字符串，空串为 public
func ParseAccess(s string) (Access, error) {
	switch s {
	case "", "public", "100":
		return AccessPublic, nil
	case "friends", "200":
		return AccessFriends, nil
	case "private", "300":
		return AccessPrivate, nil
	}
	return 0, fmt.Errorf("unknown access level %q", s)
}

// Role 用户角色；member < moderator < admin
type Role int

const (
	RoleMember    Role = 100
	RoleModerator Role = 200
	RoleAdmin     Role = 300
)

func (r Role) String() string {
	switch {
	case r >= RoleAdmin:
		return "admin"
	case r >= RoleModerator:
		return "moderator"
	default:
		return "member"
	}
}
