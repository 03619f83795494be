// Package saga 顺序执行的Saga事务
//
// 步骤按添加顺序执行,某步失败时按逆序执行已完成步骤的补偿操作。
// 补偿在独立的context中执行,不受原请求超时影响;补偿失败会记录日志并继续。
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/pkg/logger"
	"github.com/xiebiao/bookstore-orders/pkg/metrics"
)

// Step Saga中的一个步骤
// Action和Compensate都必须幂等,Compensate可以为nil
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga 一次Saga事务
type Saga struct {
	name     string
	steps    []Step
	executed []Step
	timeout  time.Duration
}

// NewSaga 创建Saga,timeout为整体超时(0表示不限制)
//
//	s := saga.NewSaga("checkout", 30*time.Second)
//	s.AddStep("create-order", createOrder, markOrderFailed)
//	s.AddStep("create-payment-session", createSession, nil)
//	err := s.Execute(ctx)
func NewSaga(name string, timeout time.Duration) *Saga {
	return &Saga{
		name:    name,
		steps:   make([]Step, 0, 4),
		timeout: timeout,
	}
}

// AddStep 添加步骤
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// StepError 某一步骤失败
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga步骤[%d:%s]执行失败: %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Execute 依次执行所有步骤
// 返回的错误链中包含原始步骤错误,调用方可以用errors.As取出业务错误
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.compensate(ctx)
			metrics.SagaExecutionsTotal.WithLabelValues(s.name, "timeout").Inc()
			return fmt.Errorf("saga %s 超时: %w", s.name, err)
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				logger.Warn(ctx, "saga step failed",
					zap.String("saga", s.name),
					zap.String("step", step.Name),
					zap.Error(err),
				)
				s.compensate(ctx)
				metrics.SagaExecutionsTotal.WithLabelValues(s.name, "failure").Inc()
				return &StepError{Index: i, Step: step.Name, Err: err}
			}
		}
		s.executed = append(s.executed, step)
	}

	metrics.SagaExecutionsTotal.WithLabelValues(s.name, "success").Inc()
	return nil
}

// compensate 逆序执行已完成步骤的补偿
func (s *Saga) compensate(parent context.Context) {
	// 保留request_id等值,但去掉取消信号
	ctx := context.WithoutCancel(parent)

	var errs []error
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			metrics.SagaCompensationsTotal.WithLabelValues(s.name, step.Name, "failure").Inc()
			continue
		}
		metrics.SagaCompensationsTotal.WithLabelValues(s.name, step.Name, "success").Inc()
	}
	s.executed = nil

	if len(errs) > 0 {
		logger.Error(ctx, "saga compensation failed, manual intervention required",
			errors.Join(errs...), zap.String("saga", s.name))
	}
}
