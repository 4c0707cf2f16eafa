package handler

import (
	"context"
	"fmt"
	"sync"

	"autopark-notifier/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher 通知分发接口（notifier.Dispatcher 实现），返回是否投递成功
type Dispatcher interface {
	SendWeather(ctx context.Context, n models.WeatherNotification) bool
	SendCaution(ctx context.Context, n models.CautionNotification) bool
}

type dispatchTask func(ctx context.Context) bool

// fanOut 并发执行全部投递并等待全部结束；单个失败（含 panic）只影响自身结果
func fanOut(ctx context.Context, logger *zap.Logger, tasks []dispatchTask) []bool {
	results := make([]bool, len(tasks))

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(i int, task dispatchTask) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Dispatch panicked", zap.Int("index", i), zap.Error(fmt.Errorf("%v", r)))
					results[i] = false
				}
			}()
			results[i] = task(ctx)
		}(i, task)
	}
	wg.Wait()

	return results
}

// invocationLogger 每次触发的日志上下文
func invocationLogger(logger *zap.Logger, handler, deviceID string) *zap.Logger {
	return logger.With(
		zap.String("handler", handler),
		zap.String("device_id", deviceID),
		zap.String("invocation_id", uuid.NewString()),
	)
}

// guard 触发边界：panic 被记录并转换为空结果，错误不会传回触发源
func guard(logger *zap.Logger, msg string, results *[]bool) {
	if r := recover(); r != nil {
		logger.Error(msg, zap.Error(fmt.Errorf("panic: %v", r)))
		*results = nil
	}
}

// countDelivered 统计成功投递数
func countDelivered(results []bool) int {
	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n
}
