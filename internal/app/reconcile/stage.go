package reconcile

import (
	"context"
	"sync"
	"time"
)

// stage 是一批可并发执行的任务；Wait 是阶段屏障：下一阶段只在本阶段全部结束后开始。
type stage struct {
	wg sync.WaitGroup
}

func (s *stage) Go(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *stage) Wait() { s.wg.Wait() }

// call 在独立的超时上下文中执行 fn。
//
// 约束：
// - 每次调用有自己的 timeout；一个来源超时不会影响其它来源
// - fn 不尊重 ctx 时直接放弃等待（结果丢弃）；goroutine 结束后自行退出，不产生副作用
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(cctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-cctx.Done():
		var zero T
		return zero, cctx.Err()
	}
}
