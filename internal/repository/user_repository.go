package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"retro-board-api/internal/domain"
)

// UserRepository defines the interface for session data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByBoardAndNickname(ctx context.Context, boardID uuid.UUID, nickname string) (*domain.User, error)
	FindByBoardAndSocket(ctx context.Context, boardID, socketID uuid.UUID) (*domain.User, error)
	FindBySocket(ctx context.Context, socketID uuid.UUID) (*domain.User, error)
	NicknameTakenByOther(ctx context.Context, boardID uuid.UUID, nickname string, excludeID uuid.UUID) (bool, error)
	CountByBoard(ctx context.Context, boardID uuid.UUID) (int64, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBoard(ctx context.Context, boardID uuid.UUID) error
}

// userRepositoryImpl is the GORM implementation of UserRepository
type userRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepositoryImpl{db: db}
}

// Create creates a new session row
func (r *userRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByBoardAndNickname finds a session by its case-sensitive nickname
func (r *userRepositoryImpl) FindByBoardAndNickname(ctx context.Context, boardID uuid.UUID, nickname string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).
		Where("board_id = ? AND nickname = ?", boardID, nickname).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByBoardAndSocket resolves the acting session for a connection
func (r *userRepositoryImpl) FindByBoardAndSocket(ctx context.Context, boardID, socketID uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).
		Where("board_id = ? AND socket_id = ?", boardID, socketID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindBySocket resolves a session by connection id alone, for
// disconnect handling where the board is not known in advance.
func (r *userRepositoryImpl) FindBySocket(ctx context.Context, socketID uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).
		Where("socket_id = ?", socketID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// NicknameTakenByOther reports whether a different session on the board
// already holds the nickname.
func (r *userRepositoryImpl) NicknameTakenByOther(ctx context.Context, boardID uuid.UUID, nickname string, excludeID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("board_id = ? AND nickname = ? AND id <> ?", boardID, nickname, excludeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByBoard returns the participant count
func (r *userRepositoryImpl) CountByBoard(ctx context.Context, boardID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("board_id = ?", boardID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Update saves all session fields
func (r *userRepositoryImpl) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete removes a session row
func (r *userRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id).Error
}

// DeleteByBoard removes all sessions of a board
func (r *userRepositoryImpl) DeleteByBoard(ctx context.Context, boardID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Delete(&domain.User{}).Error
}
