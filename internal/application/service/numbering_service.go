package service

import (
	"context"
	"fmt"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// NumberingService computes sequential voucher numbers per (owner, category).
// Numbers are never reused: deleting the latest voucher leaves a gap.
type NumberingService interface {
	// Peek returns the next number without reserving it
	Peek(ctx context.Context, owner, category string) (int, error)
	// Allocate reserves the next number. Concurrent callers never receive the same number.
	Allocate(ctx context.Context, owner, category string) (int, error)
}

type numberingServiceImpl struct {
	allocator port.NumberAllocator
	logger    Logger
}

// NewNumberingService creates a new NumberingService
func NewNumberingService(allocator port.NumberAllocator, logger Logger) NumberingService {
	return &numberingServiceImpl{
		allocator: allocator,
		logger:    logger,
	}
}

func (s *numberingServiceImpl) Peek(ctx context.Context, owner, category string) (int, error) {
	if !entity.IsValidCategory(category) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	n, err := s.allocator.PeekNumber(ctx, owner, category)
	if err != nil {
		return 0, fmt.Errorf("peek voucher number: %w", err)
	}
	return n, nil
}

func (s *numberingServiceImpl) Allocate(ctx context.Context, owner, category string) (int, error) {
	if !entity.IsValidCategory(category) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	n, err := s.allocator.AllocateNumber(ctx, owner, category)
	if err != nil {
		s.logger.Error("Failed to allocate voucher number", "owner", owner, "category", category, "error", err)
		return 0, fmt.Errorf("%w: allocate voucher number: %v", ErrUpstreamWriteFailure, err)
	}

	s.logger.Info("Voucher number allocated", "owner", owner, "category", category, "number", n)
	return n, nil
}
