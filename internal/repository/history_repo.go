package repository

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HistoryFilter struct {
	Username string
	Action   string
	Module   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type HistoryRepository interface {
	Create(tx *gorm.DB, entry *model.HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter) (*model.Page[model.HistoryEntry], error)
}

type historyRepo struct {
	db *gorm.DB
}

func NewHistoryRepo(db *gorm.DB) HistoryRepository {
	return &historyRepo{db}
}

func (r *historyRepo) Create(tx *gorm.DB, entry *model.HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return tx.Create(entry).Error
}

func (r *historyRepo) List(ctx context.Context, filter HistoryFilter) (*model.Page[model.HistoryEntry], error) {
	out := &model.Page[model.HistoryEntry]{Page: filter.Page, PageSize: filter.PageSize}

	db := r.db.WithContext(ctx).Model(&model.HistoryEntry{})
	if filter.Username != "" {
		db = db.Where("username = ?", filter.Username)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.Module != "" {
		db = db.Where("module = ?", filter.Module)
	}
	if filter.From != nil {
		db = db.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("created_at <= ?", *filter.To)
	}

	if err := db.Count(&out.Total).Error; err != nil {
		return nil, err
	}
	err := db.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&out.Items).Error
	return out, err
}
