package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"retro-board-api/internal/domain"
)

// ColumnRepository defines the interface for column data access
type ColumnRepository interface {
	CreateBatch(ctx context.Context, columns []*domain.Column) error
	FindByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error)
	FindByBoardAndID(ctx context.Context, boardID, columnID uuid.UUID) (*domain.Column, error)
	DeleteByBoard(ctx context.Context, boardID uuid.UUID) error
}

// columnRepositoryImpl is the GORM implementation of ColumnRepository
type columnRepositoryImpl struct {
	db *gorm.DB
}

// NewColumnRepository creates a new instance of ColumnRepository
func NewColumnRepository(db *gorm.DB) ColumnRepository {
	return &columnRepositoryImpl{db: db}
}

// CreateBatch creates all columns of a board in one insert
func (r *columnRepositoryImpl) CreateBatch(ctx context.Context, columns []*domain.Column) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(columns).Error
}

// FindByBoard returns a board's columns in display order
func (r *columnRepositoryImpl) FindByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error) {
	var columns []*domain.Column
	if err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("position ASC").
		Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

// FindByBoardAndID finds one column scoped to its board
func (r *columnRepositoryImpl) FindByBoardAndID(ctx context.Context, boardID, columnID uuid.UUID) (*domain.Column, error) {
	var column domain.Column
	if err := r.db.WithContext(ctx).
		Where("id = ? AND board_id = ?", columnID, boardID).
		First(&column).Error; err != nil {
		return nil, err
	}
	return &column, nil
}

// DeleteByBoard removes all columns of a board
func (r *columnRepositoryImpl) DeleteByBoard(ctx context.Context, boardID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Delete(&domain.Column{}).Error
}
