package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/socialink/internal/models"
	apperrors "github.com/charlesng35/socialink/pkg/errors"
)

// Sorting selects the order posts are listed in.
type Sorting string

const (
	SortNew       Sorting = "new"
	SortOld       Sorting = "old"
	SortMostLikes Sorting = "most_likes"
)

// ParseSorting validates a sorting query value. Empty selects SortNew.
func ParseSorting(value string) (Sorting, error) {
	switch Sorting(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortNew:
		return SortNew, nil
	case SortOld:
		return SortOld, nil
	case SortMostLikes:
		return SortMostLikes, nil
	default:
		return "", ErrInvalidSorting
	}
}

func (s Sorting) orderClause() string {
	switch s {
	case SortOld:
		return "posts.created_at ASC, posts.id ASC"
	case SortMostLikes:
		return "likes DESC, posts.id DESC"
	default:
		return "posts.created_at DESC, posts.id DESC"
	}
}

// PostService manages posts, their comments and likes.
type PostService struct {
	db *gorm.DB
}

// NewPostService constructs a PostService instance.
func NewPostService(db *gorm.DB) (*PostService, error) {
	if db == nil {
		return nil, errors.New("post service: db is required")
	}
	return &PostService{db: db}, nil
}

// Create stores a new post without an image.
func (s *PostService) Create(ctx context.Context, userID uint, body string) (*models.Post, error) {
	ctx = ensureContext(ctx)

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewBadRequest("body is required")
	}

	post := &models.Post{Body: body, UserID: userID}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("post service: create post: %w", err)
	}
	return post, nil
}

// Get returns a post with its like count.
func (s *PostService) Get(ctx context.Context, id uint) (*models.PostWithLikes, error) {
	ctx = ensureContext(ctx)

	var rows []models.PostWithLikes
	err := s.withLikes(ctx).Where("posts.id = ?", id).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("post service: get post: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrPostNotFound
	}
	return &rows[0], nil
}

// List returns all posts with like counts in the requested order.
func (s *PostService) List(ctx context.Context, sorting Sorting) ([]models.PostWithLikes, error) {
	ctx = ensureContext(ctx)

	rows := make([]models.PostWithLikes, 0)
	if err := s.withLikes(ctx).Order(sorting.orderClause()).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("post service: list posts: %w", err)
	}
	return rows, nil
}

func (s *PostService) withLikes(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.*, COUNT(likes.id) AS likes").
		Joins("LEFT JOIN likes ON likes.post_id = posts.id").
		Group("posts.id")
}

// Comments lists the comments on a post, oldest first.
func (s *PostService) Comments(ctx context.Context, postID uint) ([]models.Comment, error) {
	ctx = ensureContext(ctx)

	if err := s.ensurePost(ctx, postID); err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0)
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("post service: list comments: %w", err)
	}
	return comments, nil
}

// AddComment attaches a comment by userID to an existing post.
func (s *PostService) AddComment(ctx context.Context, userID, postID uint, body string) (*models.Comment, error) {
	ctx = ensureContext(ctx)

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewBadRequest("body is required")
	}
	if err := s.ensurePost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{Body: body, PostID: postID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("post service: create comment: %w", err)
	}
	return comment, nil
}

// Like records userID liking an existing post.
func (s *PostService) Like(ctx context.Context, userID, postID uint) (*models.Like, error) {
	ctx = ensureContext(ctx)

	if err := s.ensurePost(ctx, postID); err != nil {
		return nil, err
	}

	like := &models.Like{PostID: postID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(like).Error; err != nil {
		return nil, fmt.Errorf("post service: create like: %w", err)
	}
	return like, nil
}

// SetImageURL stores the generated image for a post. The URL can only be set
// once; later calls fail with ErrImageAlreadySet.
func (s *PostService) SetImageURL(ctx context.Context, postID uint, url string) error {
	ctx = ensureContext(ctx)

	url = strings.TrimSpace(url)
	if url == "" {
		return apperrors.NewBadRequest("image url is required")
	}

	result := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND image_url IS NULL", postID).
		Update("image_url", url)
	if result.Error != nil {
		return fmt.Errorf("post service: set image url: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if err := s.ensurePost(ctx, postID); err != nil {
		return err
	}
	return ErrImageAlreadySet
}

func (s *PostService) ensurePost(ctx context.Context, postID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return fmt.Errorf("post service: load post: %w", err)
	}
	if count == 0 {
		return ErrPostNotFound
	}
	return nil
}
