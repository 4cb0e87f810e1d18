package models

// Comment belongs to a post and its author.
type Comment struct {
	BaseModel

	Body   string `gorm:"type:text;not null" json:"body"`
	PostID uint   `gorm:"index;not null" json:"post_id"`
	UserID uint   `gorm:"index;not null" json:"user_id"`
}
