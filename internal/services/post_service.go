package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/isdelr/postboard-be/internal/apperror"
	"github.com/isdelr/postboard-be/internal/models"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Post feed actions.
const (
	PostCreated = "post.created"
	PostUpdated = "post.updated"
	PostDeleted = "post.deleted"
)

var (
	ErrPostNotFound = apperror.NewNotFoundError("Post not found", nil)
	ErrNotPostOwner = apperror.NewForbiddenError("Not authorized to modify this post", nil)
)

// PostNotifier receives every committed post change.
type PostNotifier interface {
	BroadcastPost(action string, post models.Post)
}

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	CreatePost(ctx context.Context, author models.User, title, content string) (models.Post, error)
	GetPost(ctx context.Context, id int64) (models.Post, error)
	UpdatePost(ctx context.Context, user models.User, id int64, title, content string) (models.Post, error)
	DeletePost(ctx context.Context, user models.User, id int64) error
}

// PostService provides business logic for post management.
type PostService struct {
	db       *sqlx.DB
	events   EventServiceProvider
	notifier PostNotifier
}

// NewPostService creates a new PostService. notifier may be nil.
func NewPostService(db *sqlx.DB, events EventServiceProvider, notifier PostNotifier) *PostService {
	return &PostService{db: db, events: events, notifier: notifier}
}

var postColumns = []string{"id", "title", "content", "author_id", "created_at", "updated_at"}

// CreatePost stores a new post owned by author.
func (s *PostService) CreatePost(ctx context.Context, author models.User, title, content string) (post models.Post, err error) {
	ctx, span := startSpan(ctx, "PostService.CreatePost", trace.WithAttributes(attribute.Int64("user.id", author.ID)))
	defer endSpan(span, &err)

	query, args, err := builder.Insert("posts").
		Columns("title", "content", "author_id").
		Values(title, content, author.ID).
		ToSql()
	if err != nil {
		return models.Post{}, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Post{}, apperror.NewDatabaseError("failed to create post", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Post{}, apperror.NewDatabaseError("failed to read new post id", err)
	}

	post, err = s.GetPost(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	recordEvent(ctx, s.events, "post.create", "info", fmt.Sprintf("Post %d created by '%s'.", post.ID, author.Username), &author.ID)
	s.notify(PostCreated, post)
	return post, nil
}

// GetPost retrieves a post by id. Reads are not restricted to the owner.
func (s *PostService) GetPost(ctx context.Context, id int64) (post models.Post, err error) {
	ctx, span := startSpan(ctx, "PostService.GetPost", trace.WithAttributes(attribute.Int64("post.id", id)))
	defer endSpan(span, &err)

	query, args, err := builder.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Post{}, err
	}
	if err = s.db.GetContext(ctx, &post, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, ErrPostNotFound
		}
		return models.Post{}, apperror.NewDatabaseError("failed to get post", err)
	}
	return post, nil
}

// UpdatePost overwrites title and content of a post owned by user. The
// ownership check and the write are one statement.
func (s *PostService) UpdatePost(ctx context.Context, user models.User, id int64, title, content string) (post models.Post, err error) {
	ctx, span := startSpan(ctx, "PostService.UpdatePost", trace.WithAttributes(
		attribute.Int64("post.id", id), attribute.Int64("user.id", user.ID)))
	defer endSpan(span, &err)

	query, args, err := builder.Update("posts").
		Set("title", title).
		Set("content", content).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id, "author_id": user.ID}).
		ToSql()
	if err != nil {
		return models.Post{}, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Post{}, apperror.NewDatabaseError("failed to update post", err)
	}
	if err = s.explainMiss(ctx, res, id); err != nil {
		return models.Post{}, err
	}

	post, err = s.GetPost(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	recordEvent(ctx, s.events, "post.update", "info", fmt.Sprintf("Post %d updated by '%s'.", id, user.Username), &user.ID)
	s.notify(PostUpdated, post)
	return post, nil
}

// DeletePost removes a post owned by user.
func (s *PostService) DeletePost(ctx context.Context, user models.User, id int64) (err error) {
	ctx, span := startSpan(ctx, "PostService.DeletePost", trace.WithAttributes(
		attribute.Int64("post.id", id), attribute.Int64("user.id", user.ID)))
	defer endSpan(span, &err)

	query, args, err := builder.Delete("posts").
		Where(sq.Eq{"id": id, "author_id": user.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperror.NewDatabaseError("failed to delete post", err)
	}
	if err = s.explainMiss(ctx, res, id); err != nil {
		return err
	}

	recordEvent(ctx, s.events, "post.delete", "warn", fmt.Sprintf("Post %d deleted by '%s'.", id, user.Username), &user.ID)
	s.notify(PostDeleted, models.Post{ID: id, AuthorID: user.ID})
	return nil
}

// explainMiss turns an owner-scoped write that touched no rows into
// ErrPostNotFound or ErrNotPostOwner.
func (s *PostService) explainMiss(ctx context.Context, res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDatabaseError("failed to read affected rows", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.GetPost(ctx, id); err != nil {
		return err
	}
	return ErrNotPostOwner
}

func (s *PostService) notify(action string, post models.Post) {
	if s.notifier != nil {
		s.notifier.BroadcastPost(action, post)
	}
}
