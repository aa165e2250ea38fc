package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/entitycard/config"
)

func TestDomain(t *testing.T) {
	assert.Equal(t, "sensor", Domain("sensor.kitchen_temp"))
	assert.Equal(t, "light", Domain("light.hall"))
	assert.Equal(t, "orphan", Domain("orphan"))
}

func TestAttributesSplitKnownAndExtra(t *testing.T) {
	var attrs Attributes
	raw := `{"friendly_name":"Kitchen","device_class":"temperature","area":"Kitchen","unit_of_measurement":"°C","battery_level":87}`
	require.NoError(t, json.Unmarshal([]byte(raw), &attrs))

	assert.Equal(t, "Kitchen", attrs.FriendlyName)
	assert.Equal(t, "temperature", attrs.DeviceClass)
	assert.Equal(t, "°C", attrs.Unit)
	assert.Equal(t, float64(87), attrs.Extra["battery_level"])

	v, ok := attrs.Get("battery_level")
	require.True(t, ok)
	assert.Equal(t, float64(87), v)
	v, ok = attrs.Get("device_class")
	require.True(t, ok)
	assert.Equal(t, "temperature", v)
	_, ok = attrs.Get("floor")
	assert.False(t, ok)
}

func TestRawSampleVerboseEncoding(t *testing.T) {
	var sample RawSample
	raw := `{"entity_id":"sensor.kitchen_temp","state":"21.4","last_changed":"2026-08-30T10:00:00+00:00"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &sample))

	assert.Equal(t, "21.4", sample.State)
	assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), sample.Time)
}

func TestRawSampleCompactEncoding(t *testing.T) {
	var sample RawSample
	raw := `{"s":"19.0","lu":1767096000}`
	require.NoError(t, json.Unmarshal([]byte(raw), &sample))

	assert.Equal(t, "19.0", sample.State)
	assert.Equal(t, time.Unix(1767096000, 0).UTC(), sample.Time)

	// Numeric compact states stringify.
	raw = `{"s":21.5,"lu":1767096060.5}`
	require.NoError(t, json.Unmarshal([]byte(raw), &sample))
	assert.Equal(t, "21.5", sample.State)
	assert.Equal(t, time.Unix(1767096060, int64(500*time.Millisecond)).UTC(), sample.Time)
}

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewRESTClientFactory()(config.HostConfig{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestStates(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/states", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"entity_id":"sensor.kitchen_temp","state":"21.4","attributes":{"device_class":"temperature"},"last_changed":"2026-08-30T10:00:00+00:00"},
			{"entity_id":"sensor.hall_humidity","state":"55","attributes":{"device_class":"humidity"},"last_changed":"2026-08-30T09:00:00+00:00"}
		]`))
	}))

	states, err := client.States(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "21.4", states["sensor.kitchen_temp"].State)
	assert.Equal(t, "temperature", states["sensor.kitchen_temp"].Attributes.DeviceClass)
}

func TestHistoryReturnsFirstSeries(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/api/history/period/")
		assert.Equal(t, "sensor.kitchen_temp", r.URL.Query().Get("filter_entity_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[[{"s":"20.1","lu":1767096000},{"s":"20.4","lu":1767096600}]]`))
	}))

	end := time.Now()
	samples, err := client.History(context.Background(), "sensor.kitchen_temp", end.Add(-24*time.Hour), end)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "20.1", samples[0].State)
}

func TestHistoryErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := client.History(context.Background(), "sensor.kitchen_temp", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
}
