package models

// Post is a user authored entry. ImageURL is filled in at most once by the
// enrichment pipeline.
type Post struct {
	BaseModel

	Body     string  `gorm:"type:text;not null" json:"body"`
	UserID   uint    `gorm:"index;not null" json:"user_id"`
	ImageURL *string `json:"image_url"`
}

// PostWithLikes is a post annotated with its like count.
type PostWithLikes struct {
	Post
	Likes int64 `json:"likes"`
}
