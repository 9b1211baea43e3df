package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

func TestNumberingService(t *testing.T) {
	repo := newFakeRecordStore()
	logger := &mockLogger{}
	svc := NewNumberingService(repo, logger)
	ctx := context.Background()

	n, err := svc.Peek(ctx, alice, entity.CategoryContentstack)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Allocate(ctx, alice, entity.CategoryContentstack)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Peek(ctx, alice, entity.CategoryContentstack)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "peek does not reserve")

	n, err = svc.Peek(ctx, alice, entity.CategoryContentstack)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Number 1 was never stored, yet it is not handed out again.
	n, err = svc.Allocate(ctx, alice, entity.CategoryContentstack)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Peek(ctx, alice, "Acme")
	assert.True(t, errors.Is(err, ErrInvalidCategory))
	_, err = svc.Allocate(ctx, alice, "")
	assert.True(t, errors.Is(err, ErrInvalidCategory))

	repo.allocateErr = errBoom
	_, err = svc.Allocate(ctx, alice, entity.CategoryContentstack)
	assert.True(t, errors.Is(err, ErrUpstreamWriteFailure))
	assert.Contains(t, logger.errors, "Failed to allocate voucher number")
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrUnauthenticated, CodeUnauthenticated},
		{errors.Join(errBoom, ErrRowNotFound), CodeRowNotFound},
		{wrap(ErrInvalidCategory), CodeInvalidCategory},
		{wrap(ErrProvisioningFailed), CodeProvisioningFailed},
		{errBoom, CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}

func wrap(err error) error {
	return &wrappedErr{err}
}

type wrappedErr struct{ err error }

func (w *wrappedErr) Error() string { return "outer: " + w.err.Error() }
func (w *wrappedErr) Unwrap() error { return w.err }
