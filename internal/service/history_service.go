package service

import (
	"context"
	"encoding/json"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// History modules.
const (
	ModuleSales      = "sales"
	ModulePurchases  = "purchases"
	ModuleProducts   = "products"
	ModuleCategories = "categories"
	ModuleInventory  = "inventory"
	ModuleUsers      = "users"
)

// HistoryService records who changed what. Record must be called with the
// mutation's own transaction so the entry commits or rolls back with it.
type HistoryService interface {
	Record(tx *gorm.DB, actor *model.User, action model.HistoryAction, module, description string, before, after any) error
	List(ctx context.Context, filter repository.HistoryFilter) (*model.Page[model.HistoryEntry], error)
}

type historyService struct {
	repo repository.HistoryRepository
}

func NewHistoryService(repo repository.HistoryRepository) HistoryService {
	return &historyService{repo: repo}
}

func (s *historyService) Record(tx *gorm.DB, actor *model.User, action model.HistoryAction, module, description string, before, after any) error {
	entry := &model.HistoryEntry{
		UserID:      actor.ID,
		Username:    actor.Username,
		Action:      action,
		Module:      module,
		Description: description,
	}
	var err error
	if entry.Before, err = snapshot(before); err != nil {
		return err
	}
	if entry.After, err = snapshot(after); err != nil {
		return err
	}
	return s.repo.Create(tx, entry)
}

func snapshot(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (s *historyService) List(ctx context.Context, filter repository.HistoryFilter) (*model.Page[model.HistoryEntry], error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "list history")
	}
	return page, nil
}

// normalizePage clamps paging input to page >= 1 and 1..100 items.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = 20
	case pageSize > 100:
		pageSize = 100
	}
	return page, pageSize
}
