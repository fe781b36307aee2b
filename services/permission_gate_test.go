package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yashrajoria/storefront-bff/models"
)

func newObservedGate(t *testing.T) (*PermissionGate, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	gate, err := NewPermissionGate(32, nil, zap.New(core))
	require.NoError(t, err)
	return gate, logs
}

func TestGate_ParsesJSONString(t *testing.T) {
	gate, logs := newObservedGate(t)

	perms := gate.Parse(`{"canEditOrder":true}`)
	assert.Equal(t, models.Permissions{CanEditOrder: true}, perms)
	assert.Zero(t, logs.Len())
}

func TestGate_ParsesDoubleEncodedString(t *testing.T) {
	gate, _ := newObservedGate(t)

	perms := gate.Parse(json.RawMessage(`"{\"canConfirmOrder\":true,\"canCancelOrder\":true}"`))
	assert.True(t, perms.CanConfirmOrder)
	assert.True(t, perms.CanCancelOrder)
	assert.False(t, perms.CanDeleteOrder)
}

func TestGate_MalformedFailsClosedAndLogsOnce(t *testing.T) {
	gate, logs := newObservedGate(t)

	for i := 0; i < 3; i++ {
		assert.Equal(t, models.Permissions{}, gate.Parse(`{canEditOrder: true`))
	}
	assert.Equal(t, 1, logs.FilterMessage("malformed seller permissions, denying all capabilities").Len())
}

func TestGate_WrongTypesFailClosed(t *testing.T) {
	gate, _ := newObservedGate(t)

	assert.Equal(t, models.Permissions{}, gate.Parse(`{"canEditOrder":"yes","canDeleteOrder":true}`))
	assert.Equal(t, models.Permissions{}, gate.Parse(`[true]`))
	assert.Equal(t, models.Permissions{}, gate.Parse(42))
}

func TestGate_MapInput(t *testing.T) {
	gate, logs := newObservedGate(t)

	raw := map[string]any{"canDeleteOrder": true, "canCreateCustomers": true}
	first := gate.Parse(raw)
	second := gate.Parse(map[string]any{"canCreateCustomers": true, "canDeleteOrder": true})

	assert.Equal(t, models.Permissions{CanDeleteOrder: true, CanCreateCustomers: true}, first)
	assert.Equal(t, first, second)
	assert.Zero(t, logs.Len())
}

func TestGate_AbsentValues(t *testing.T) {
	gate, logs := newObservedGate(t)

	assert.Equal(t, models.Permissions{}, gate.Parse(nil))
	assert.Equal(t, models.Permissions{}, gate.Parse(""))
	assert.Equal(t, models.Permissions{}, gate.Parse(json.RawMessage(`null`)))
	assert.Equal(t, models.Permissions{}, gate.Parse(`"null"`))
	assert.Zero(t, logs.Len())
}

func TestGate_PassesThroughDecodedValues(t *testing.T) {
	gate, _ := newObservedGate(t)

	all := models.AllPermissions()
	assert.Equal(t, all, gate.Parse(all))
	assert.Equal(t, all, gate.Parse(&all))
}

func TestPermissions_Allows(t *testing.T) {
	perms := models.Permissions{CanEditOrder: true}
	assert.True(t, perms.Allows(models.CapEditOrder))
	assert.False(t, perms.Allows(models.CapDeleteOrder))
	assert.False(t, perms.Allows(models.Capability("canFly")))
}
