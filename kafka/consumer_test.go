package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIgnition(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	t.Run("camel-case imei and epoch millis", func(t *testing.T) {
		payload := []byte(`{"deviceImei":"356789","timestamp":1769947200000,"ignition_on":true,"voltage":12.4,"lat":51.5,"lon":-0.12}`)

		event, err := normalizeIgnition(payload, now)
		require.NoError(t, err)

		assert.Equal(t, "356789", event.DeviceID)
		assert.Equal(t, time.UnixMilli(1769947200000).UTC(), event.Timestamp.UTC())
		assert.True(t, event.IgnitionOn)
		require.NotNil(t, event.Voltage)
		assert.Equal(t, 12.4, *event.Voltage)
		require.NotNil(t, event.Location)
		assert.Equal(t, 51.5, event.Location.Lat)
		assert.NotEmpty(t, event.ID)
	})

	t.Run("device_id fallback and missing location", func(t *testing.T) {
		payload := []byte(`{"device_id":"dev-7","timestamp":"2026-02-01T11:30:00Z"}`)

		event, err := normalizeIgnition(payload, now)
		require.NoError(t, err)

		assert.Equal(t, "dev-7", event.DeviceID)
		assert.Nil(t, event.Location)
		assert.Nil(t, event.Voltage)
	})

	t.Run("deviceImei wins over device_id", func(t *testing.T) {
		payload := []byte(`{"deviceImei":"imei-1","device_id":"dev-1","timestamp":"2026-02-01T11:30:00Z"}`)

		event, err := normalizeIgnition(payload, now)
		require.NoError(t, err)
		assert.Equal(t, "imei-1", event.DeviceID)
	})

	t.Run("missing identifier is rejected", func(t *testing.T) {
		_, err := normalizeIgnition([]byte(`{"timestamp":"2026-02-01T11:30:00Z"}`), now)
		assert.Error(t, err)
	})

	t.Run("unparseable timestamp falls back to now", func(t *testing.T) {
		payload := []byte(`{"imei":"356789","timestamp":"yesterday-ish"}`)

		event, err := normalizeIgnition(payload, now)
		require.NoError(t, err)
		assert.Equal(t, now, event.Timestamp)
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		_, err := normalizeIgnition([]byte(`{"imei":`), now)
		assert.Error(t, err)
	})
}

func TestNormalizeException(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	payload := []byte(`{"imei":"356789","timestamp":"23/07/2025 14:05:09","main":"connection timeout","detail":"retry 3 of 5","severity":"warning"}`)

	event, err := normalizeException(payload, now)
	require.NoError(t, err)

	assert.Equal(t, "356789", event.DeviceID)
	assert.Equal(t, time.Date(2025, 7, 23, 14, 5, 9, 0, time.UTC), event.Timestamp)
	assert.Equal(t, "connection timeout", event.Category)
	assert.Equal(t, "retry 3 of 5", event.Detail)
	assert.Equal(t, "warning", event.Severity)
}
