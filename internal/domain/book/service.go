package book

import (
	"context"
)

// Service 图书目录领域服务
type Service interface {
	Create(ctx context.Context, d Draft) (*Book, error)

	Get(ctx context.Context, id uint) (*Book, error)

	// Update 返回修改前的快照,用于审计
	Update(ctx context.Context, id uint, d Draft) (before map[string]any, after *Book, err error)

	// Delete 返回被删除图书,用于审计
	Delete(ctx context.Context, id uint) (*Book, error)

	List(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

type service struct {
	repo Repository
}

// NewService 创建图书服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, d Draft) (*Book, error) {
	b, err := NewBook(d)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Get(ctx context.Context, id uint) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id uint, d Draft) (map[string]any, *Book, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	before := b.Snapshot()

	if err := b.Update(d); err != nil {
		return nil, nil, err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, nil, err
	}
	return before, b, nil
}

func (s *service) Delete(ctx context.Context, id uint) (*Book, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	return s.repo.List(ctx, params)
}
