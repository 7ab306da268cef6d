package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/parkgo/internal/domain"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "parkgo:v1:lot:snapshot:7", KeyLotSnapshot(7))
	assert.NotEqual(t, KeyLotSnapshot(1), KeyLotSnapshot(2))
	assert.Equal(t, "parkgo:v1:rl:park:ip:1.2.3.4", KeyRateLimit("park:ip:1.2.3.4"))
	assert.NotEqual(t, KeyIdemPark("k"), KeyIdemUnpark("k"))
}

func TestParseIdemValue(t *testing.T) {
	res, ok, err := parseIdemValue(`RES:201:9f2c:{"id":"a:b"}`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 201, res.Status)
	assert.Equal(t, "9f2c", res.Fingerprint)
	assert.Equal(t, `{"id":"a:b"}`, res.Body)

	_, ok, err = parseIdemValue("LOCK")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = parseIdemValue("RES:nope")
	assert.Error(t, err)

	_, _, err = parseIdemValue("RES:201:nobody")
	assert.Error(t, err)
}

func TestDecodeLotChanged(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	b, err := json.Marshal(lotChangedMsg{
		Type:     "lot_changed",
		LotEvent: domain.LotEvent{Kind: domain.VehicleParked, LotID: "lot", Plate: "AB", At: at},
	})
	require.NoError(t, err)

	ev, ok := decodeLotChanged(string(b))
	require.True(t, ok)
	assert.Equal(t, domain.VehicleParked, ev.Kind)
	assert.Equal(t, "AB", ev.Plate)
	assert.True(t, at.Equal(ev.At))

	_, ok = decodeLotChanged(`{"type":"event_changed","kind":"x"}`)
	assert.False(t, ok)

	_, ok = decodeLotChanged(`not json`)
	assert.False(t, ok)
}

func TestSlidingWindowLimiter_DisabledAllowsAll(t *testing.T) {
	l := NewSlidingWindowLimiter(nil, 0, time.Minute)

	for i := 0; i < 5; i++ {
		ok, _, _, err := l.Allow(context.Background(), "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestToInt(t *testing.T) {
	assert.Equal(t, int64(3), toInt(int64(3)))
	assert.Equal(t, int64(4), toInt(4))
	assert.Equal(t, int64(12), toInt("12"))
	assert.Equal(t, int64(0), toInt(nil))
}
