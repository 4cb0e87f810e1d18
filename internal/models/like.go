package models

// Like records a user liking a post.
type Like struct {
	BaseModel

	PostID uint `gorm:"index;not null" json:"post_id"`
	UserID uint `gorm:"index;not null" json:"user_id"`
}

// All returns every model managed by the schema migrator, parents first.
func All() []any {
	return []any{
		&User{},
		&Post{},
		&Comment{},
		&Like{},
	}
}
