package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordStep(log *[]string, name string, err error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		*log = append(*log, name)
		return err
	}
}

func TestSaga_Execute_Success(t *testing.T) {
	var executed []string

	s := NewSaga("checkout", 5*time.Second)
	s.AddStep("create-order", recordStep(&executed, "create-order", nil), recordStep(&executed, "fail-order", nil))
	s.AddStep("create-session", recordStep(&executed, "create-session", nil), nil)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"create-order", "create-session"}, executed)
}

func TestSaga_Execute_FailureCompensatesInReverse(t *testing.T) {
	var executed []string
	gatewayDown := errors.New("gateway down")

	s := NewSaga("checkout", 5*time.Second)
	s.AddStep("reserve", recordStep(&executed, "reserve", nil), recordStep(&executed, "release", nil))
	s.AddStep("create-order", recordStep(&executed, "create-order", nil), recordStep(&executed, "fail-order", nil))
	s.AddStep("create-session", recordStep(&executed, "create-session", gatewayDown), recordStep(&executed, "expire-session", nil))

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gatewayDown)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "create-session", stepErr.Step)
	assert.Equal(t, 2, stepErr.Index)

	// 失败步骤自身不补偿
	assert.Equal(t, []string{"reserve", "create-order", "create-session", "fail-order", "release"}, executed)
}

func TestSaga_CompensationFailureContinues(t *testing.T) {
	var executed []string

	s := NewSaga("checkout", 0)
	s.AddStep("a", recordStep(&executed, "a", nil), recordStep(&executed, "undo-a", nil))
	s.AddStep("b", recordStep(&executed, "b", nil), recordStep(&executed, "undo-b", errors.New("boom")))
	s.AddStep("c", recordStep(&executed, "c", errors.New("c failed")), nil)

	require.Error(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"a", "b", "c", "undo-b", "undo-a"}, executed)
}

func TestSaga_Timeout(t *testing.T) {
	var executed []string

	s := NewSaga("slow", 20*time.Millisecond)
	s.AddStep("slow", func(ctx context.Context) error {
		executed = append(executed, "slow")
		<-ctx.Done()
		return nil
	}, recordStep(&executed, "undo-slow", nil))
	s.AddStep("never", recordStep(&executed, "never", nil), nil)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"slow", "undo-slow"}, executed)
}

func TestSaga_CompensationIgnoresParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var compensateErr error

	s := NewSaga("cancel", 0)
	s.AddStep("first", func(ctx context.Context) error { return nil }, func(ctx context.Context) error {
		compensateErr = ctx.Err()
		return nil
	})
	s.AddStep("second", func(ctx context.Context) error {
		cancel()
		return errors.New("client went away")
	}, nil)

	require.Error(t, s.Execute(ctx))
	assert.NoError(t, compensateErr)
}
