package service

import (
	"context"
	"fmt"
	"strings"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type CategoryService interface {
	Create(ctx context.Context, actor *model.User, in CategoryInput) (*model.Category, error)
	List(ctx context.Context, page, pageSize int) (*model.Page[model.Category], error)
	Get(ctx context.Context, id uuid.UUID) (*model.Category, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, in CategoryInput) (*model.Category, error)
	// Delete fails with Conflict while any product, archived or not, references the category.
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type categoryService struct {
	db         *gorm.DB
	categories repository.CategoryRepository
	history    HistoryService
}

func NewCategoryService(db *gorm.DB, categories repository.CategoryRepository, history HistoryService) CategoryService {
	return &categoryService{db: db, categories: categories, history: history}
}

func (s *categoryService) validate(ctx context.Context, in *CategoryInput, exclude uuid.UUID) error {
	in.Name = strings.TrimSpace(in.Name)
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return apperr.Validation("%s", validator.Summary(errs))
	}
	taken, err := s.categories.NameTaken(ctx, in.Name, exclude)
	if err != nil {
		return apperr.Internal(err, "check category name")
	}
	if taken {
		return apperr.Conflict("category %q already exists", in.Name)
	}
	return nil
}

func (s *categoryService) Create(ctx context.Context, actor *model.User, in CategoryInput) (*model.Category, error) {
	if err := s.validate(ctx, &in, uuid.Nil); err != nil {
		return nil, err
	}
	category := &model.Category{
		AuditFields: model.AuditFields{CreatedBy: actor.Username, UpdatedBy: actor.Username},
		Name:        in.Name,
		Description: in.Description,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.categories.Create(tx, category); err != nil {
			return err
		}
		return s.history.Record(tx, actor, model.ActionCreate, ModuleCategories,
			fmt.Sprintf("created category %s", category.Name), nil, category)
	})
	if err != nil {
		return nil, classify(err, "create category")
	}
	return category, nil
}

func (s *categoryService) List(ctx context.Context, page, pageSize int) (*model.Page[model.Category], error) {
	page, pageSize = normalizePage(page, pageSize)
	out, err := s.categories.List(ctx, page, pageSize)
	if err != nil {
		return nil, apperr.Internal(err, "list categories")
	}
	return out, nil
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if isNotFound(err) {
		return nil, apperr.NotFound("category not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load category")
	}
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in CategoryInput) (*model.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in, id); err != nil {
		return nil, err
	}

	before := *category
	category.Name = in.Name
	category.Description = in.Description
	category.UpdatedBy = actor.Username

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.categories.Update(tx, category); err != nil {
			return err
		}
		return s.history.Record(tx, actor, model.ActionUpdate, ModuleCategories,
			fmt.Sprintf("updated category %s", category.Name), before, category)
	})
	if err != nil {
		return nil, classify(err, "update category")
	}
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.categories.CountProducts(tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("category %q still has %d product(s)", category.Name, n)
		}
		if err := s.categories.Delete(tx, id); err != nil {
			return err
		}
		return s.history.Record(tx, actor, model.ActionDelete, ModuleCategories,
			fmt.Sprintf("deleted category %s", category.Name), category, nil)
	})
	return classify(err, "delete category")
}
