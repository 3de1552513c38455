package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"retro-board-api/internal/domain"
)

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	FindScoped(ctx context.Context, boardID, columnID, commentID uuid.UUID) (*domain.Comment, error)
	FindByColumnOrdered(ctx context.Context, columnID uuid.UUID, order domain.SortOrder) ([]*domain.Comment, error)
	FindByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Comment, error)
	UpdateVotes(ctx context.Context, comment *domain.Comment) error
	UpdateAuthor(ctx context.Context, boardID uuid.UUID, oldAuthor, newAuthor string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBoard(ctx context.Context, boardID uuid.UUID) error
	DeleteByAuthor(ctx context.Context, boardID uuid.UUID, author string) error
}

// commentRepositoryImpl is the GORM implementation of CommentRepository
type commentRepositoryImpl struct {
	db *gorm.DB
}

// NewCommentRepository creates a new instance of CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepositoryImpl{db: db}
}

// Create creates a new comment
func (r *commentRepositoryImpl) Create(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// FindScoped finds a comment scoped to its column and board
func (r *commentRepositoryImpl) FindScoped(ctx context.Context, boardID, columnID, commentID uuid.UUID) (*domain.Comment, error) {
	var comment domain.Comment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND column_id = ? AND board_id = ?", commentID, columnID, boardID).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// FindByColumnOrdered returns a column's comments in the board's
// configured sort order. By-author ties break on creation time.
func (r *commentRepositoryImpl) FindByColumnOrdered(ctx context.Context, columnID uuid.UUID, order domain.SortOrder) ([]*domain.Comment, error) {
	clause := "created_at ASC"
	switch order {
	case domain.SortReverseChronological:
		clause = "created_at DESC"
	case domain.SortByAuthor:
		clause = "author ASC, created_at ASC"
	}

	var comments []*domain.Comment
	if err := r.db.WithContext(ctx).
		Where("column_id = ?", columnID).
		Order(clause).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// FindByBoard returns every comment on a board
func (r *commentRepositoryImpl) FindByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	if err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// UpdateVotes persists the like/dislike sets of a comment
func (r *commentRepositoryImpl) UpdateVotes(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", comment.ID).
		Updates(map[string]interface{}{
			"likes":    comment.Likes,
			"dislikes": comment.Dislikes,
		}).Error
}

// UpdateAuthor bulk-rewrites the denormalized author field after a
// rename.
func (r *commentRepositoryImpl) UpdateAuthor(ctx context.Context, boardID uuid.UUID, oldAuthor, newAuthor string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("board_id = ? AND author = ?", boardID, oldAuthor).
		Update("author", newAuthor).Error
}

// Delete removes one comment
func (r *commentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", id).Error
}

// DeleteByBoard removes all comments of a board
func (r *commentRepositoryImpl) DeleteByBoard(ctx context.Context, boardID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Delete(&domain.Comment{}).Error
}

// DeleteByAuthor removes all comments a nickname authored on a board
func (r *commentRepositoryImpl) DeleteByAuthor(ctx context.Context, boardID uuid.UUID, author string) error {
	return r.db.WithContext(ctx).
		Where("board_id = ? AND author = ?", boardID, author).
		Delete(&domain.Comment{}).Error
}
