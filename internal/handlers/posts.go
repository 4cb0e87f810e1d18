package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/socialink/internal/enrichment"
	"github.com/charlesng35/socialink/internal/models"
	"github.com/charlesng35/socialink/internal/services"
	"github.com/charlesng35/socialink/pkg/logger"
	"github.com/charlesng35/socialink/pkg/response"
)

// PostHandler serves posts, comments and likes.
type PostHandler struct {
	posts     *services.PostService
	pipeline  *enrichment.Pipeline
	scheduler Scheduler
	publicURL string
}

// NewPostHandler wires the post routes. A nil pipeline disables image
// generation; prompts are then ignored.
func NewPostHandler(posts *services.PostService, pipeline *enrichment.Pipeline, scheduler Scheduler, publicURL string) *PostHandler {
	return &PostHandler{posts: posts, pipeline: pipeline, scheduler: scheduler, publicURL: publicURL}
}

type postRequest struct {
	Body string `json:"body" validate:"required,notblank"`
}

type commentRequest struct {
	Body   string `json:"body" validate:"required,notblank"`
	PostID uint   `json:"post_id" validate:"required,gt=0"`
}

type likeRequest struct {
	PostID uint `json:"post_id" validate:"required,gt=0"`
}

type postWithComments struct {
	Post     models.PostWithLikes `json:"post"`
	Comments []models.Comment     `json:"comments"`
}

// POST /post?prompt=
func (h *PostHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req postRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.posts.Create(requestContext(c), user.ID, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}

	if prompt := strings.TrimSpace(c.Query("prompt")); prompt != "" {
		h.scheduleEnrichment(c, user, post, prompt)
	}

	response.Success(c, http.StatusCreated, post)
}

func (h *PostHandler) scheduleEnrichment(c *gin.Context, user *models.User, post *models.Post, prompt string) {
	log := logger.WithModule("posts").With(zap.Uint("post_id", post.ID))
	if h.pipeline == nil {
		log.Warn("image generation not configured, ignoring prompt")
		return
	}

	job := enrichment.Job{
		UserEmail: user.Email,
		PostID:    post.ID,
		PostURL:   externalURL(c, h.publicURL, fmt.Sprintf("/post/%d", post.ID)),
		Prompt:    prompt,
	}
	if !h.scheduler.Submit(enrichment.TaskName, h.pipeline.Task(job)) {
		log.Warn("image generation not scheduled")
	}
}

// GET /post?sorting=
func (h *PostHandler) List(c *gin.Context) {
	sorting, err := services.ParseSorting(c.Query("sorting"))
	if err != nil {
		response.Error(c, err)
		return
	}

	posts, err := h.posts.List(requestContext(c), sorting)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, posts)
}

// GET /post/:id
func (h *PostHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	post, err := h.posts.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	comments, err := h.posts.Comments(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, postWithComments{Post: *post, Comments: comments})
}

// GET /post/:id/comments
func (h *PostHandler) Comments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.posts.Comments(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, comments)
}

// POST /comment
func (h *PostHandler) CreateComment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req commentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.posts.AddComment(requestContext(c), user.ID, req.PostID, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, comment)
}

// POST /like
func (h *PostHandler) Like(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req likeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	like, err := h.posts.Like(requestContext(c), user.ID, req.PostID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, like)
}
