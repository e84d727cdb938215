package model

// All 需要迁移的全部模型
func All() []interface{} {
	return []interface{}{&User{}, &Post{}, &Comment{}, &Tag{}, &PostTag{}, &Follow{}, &Fan{}}
}
