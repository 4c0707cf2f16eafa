package handler

import (
	"context"
	"errors"
	"testing"

	"autopark-notifier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupCautionHandler(slots []models.Slot) (*fakeSlots, *fakeDispatcher, *CautionHandler, *observer.ObservedLogs) {
	reader := &fakeSlots{slots: slots}
	dispatcher := &fakeDispatcher{}
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewCautionHandler(NewRecipientResolver(reader), dispatcher, zap.New(core))
	return reader, dispatcher, h, logs
}

func TestCautionHandler_MarkerUnchanged(t *testing.T) {
	reader, dispatcher, h, logs := setupCautionHandler([]models.Slot{{Key: "s1", UserID: "u1"}})

	assert.Nil(t, h.Handle(context.Background(), "D1", raw(`1000`), raw(`1000`)))
	assert.Nil(t, h.Handle(context.Background(), "D1", raw(`null`), nil))
	assert.Nil(t, h.Handle(context.Background(), "D1", raw(`"2024-01-01"`), raw(`"2024-01-01"`)))

	assert.Empty(t, dispatcher.caution)
	assert.Equal(t, 0, reader.calls)
	assert.Equal(t, 3, logs.FilterMessage("No change in caution data").Len())
}

func TestCautionHandler_NumberAndStringMarkersDiffer(t *testing.T) {
	reader, _, h, _ := setupCautionHandler(nil)

	results := h.Handle(context.Background(), "D1", raw(`1000`), raw(`"1000"`))

	assert.Empty(t, results)
	assert.Equal(t, 1, reader.calls)
}

func TestCautionHandler_Threshold(t *testing.T) {
	_, dispatcher, h, _ := setupCautionHandler([]models.Slot{
		// 自己的入场时间：30000000 - 1000 = 29999000 > 6h
		{Key: "s1", UserID: "u1", CheckInTime: models.NumberTimestamp(1000)},
		// 回退到旧标记：30000000 - 9000000 = 21000000 < 6h
		{Key: "s2", UserID: "u2"},
		// 入场较晚：30000000 - 20000000 = 10000000 < 6h
		{Key: "s3", UserID: "u3", CheckInTime: models.NumberTimestamp(20000000)},
		{Key: "s4", CheckInTime: models.NumberTimestamp(1)},
	})

	results := h.Handle(context.Background(), "D1", raw(`9000000`), raw(`30000000`))

	assert.Equal(t, []bool{true}, results)
	require.Len(t, dispatcher.caution, 1)
	n := dispatcher.caution[0]
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, float64(29999000), n.DurationMillis)
	assert.Equal(t, "D1", n.DeviceID)
}

func TestCautionHandler_FallbackToPriorMarker(t *testing.T) {
	_, dispatcher, h, _ := setupCautionHandler([]models.Slot{
		{Key: "s1", UserID: "u1"},
		// 0 视为未设置，同样回退到旧标记
		{Key: "s2", UserID: "u2", CheckInTime: models.NumberTimestamp(0)},
	})

	results := h.Handle(context.Background(), "D1", raw(`1000`), raw(`30000000`))

	assert.Len(t, results, 2)
	assert.Equal(t, []string{"u1", "u2"}, dispatcher.cautionUsers())
	for _, n := range dispatcher.caution {
		assert.Equal(t, float64(29999000), n.DurationMillis)
	}
}

func TestCautionHandler_NullPriorMarker(t *testing.T) {
	_, dispatcher, h, _ := setupCautionHandler([]models.Slot{{Key: "s1", UserID: "u1"}})

	// 首次写入标记：旧值 null 按 0 计算
	results := h.Handle(context.Background(), "D1", raw(`null`), raw(`30000000`))

	assert.Equal(t, []bool{true}, results)
	require.Len(t, dispatcher.caution, 1)
	assert.Equal(t, "u1", dispatcher.caution[0].UserID)
	assert.Equal(t, float64(30000000), dispatcher.caution[0].DurationMillis)
}

func TestCautionHandler_NullAfterMarker(t *testing.T) {
	_, dispatcher, h, _ := setupCautionHandler([]models.Slot{{Key: "s1", UserID: "u1"}})

	// 标记被清空：0 - 1000 为负数，不提醒
	assert.Empty(t, h.Handle(context.Background(), "D1", raw(`1000`), raw(`null`)))
	assert.Empty(t, dispatcher.caution)
}

func TestCautionHandler_ExactlyThresholdIsNotEnough(t *testing.T) {
	_, dispatcher, h, _ := setupCautionHandler([]models.Slot{{Key: "s1", UserID: "u1"}})

	assert.Empty(t, h.Handle(context.Background(), "D1", raw(`0`), raw(`21600000`)))
	assert.Empty(t, dispatcher.caution)

	assert.Len(t, h.Handle(context.Background(), "D1", raw(`0`), raw(`21600001`)), 1)
}

func TestCautionHandler_StringMarkers(t *testing.T) {
	_, dispatcher, h, _ := setupCautionHandler([]models.Slot{
		{Key: "s1", UserID: "u1", CheckInTime: models.StringTimestamp("2024-01-01T00:00:00Z")},
		{Key: "s2", UserID: "u2", CheckInTime: models.StringTimestamp("2024-01-01T03:00:00Z")},
	})

	results := h.Handle(context.Background(), "D1", raw(`"2024-01-01T01:00:00Z"`), raw(`"2024-01-01T07:30:00Z"`))

	assert.Len(t, results, 1)
	assert.Equal(t, []string{"u1"}, dispatcher.cautionUsers())
	assert.Equal(t, float64(27000000), dispatcher.caution[0].DurationMillis)
}

func TestCautionHandler_UnparseableMarkerNeverDispatches(t *testing.T) {
	_, dispatcher, h, _ := setupCautionHandler([]models.Slot{{Key: "s1", UserID: "u1"}})

	results := h.Handle(context.Background(), "D1", raw(`1000`), raw(`"soon"`))

	assert.Empty(t, results)
	assert.Empty(t, dispatcher.caution)
}

func TestCautionHandler_SlotReadErrorIsSwallowed(t *testing.T) {
	reader, dispatcher, h, logs := setupCautionHandler(nil)
	reader.err = errors.New("store unreachable")

	assert.Nil(t, h.Handle(context.Background(), "D1", raw(`1000`), raw(`30000000`)))
	assert.Empty(t, dispatcher.caution)
	assert.Equal(t, 1, logs.FilterMessage("Error processing caution notification").Len())
}

func TestCautionHandler_MalformedMarker(t *testing.T) {
	reader, _, h, logs := setupCautionHandler(nil)

	assert.Nil(t, h.Handle(context.Background(), "D1", raw(`"unterminated`), raw(`1`)))
	assert.Equal(t, 0, reader.calls)
	assert.Equal(t, 1, logs.FilterMessage("Error processing caution notification").Len())
}

func TestCautionHandler_PartialFailureIsolated(t *testing.T) {
	_, dispatcher, h, _ := setupCautionHandler([]models.Slot{
		{Key: "s1", UserID: "u1"},
		{Key: "s2", UserID: "u2"},
	})
	dispatcher.failFor = map[string]bool{"u2": true}

	results := h.Handle(context.Background(), "D1", raw(`1`), raw(`30000000`))

	require.Len(t, results, 2)
	assert.Equal(t, 1, countDelivered(results))
}
