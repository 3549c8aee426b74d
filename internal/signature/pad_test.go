package signature

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticResolver struct {
	ip string
}

func (r staticResolver) Resolve(ctx context.Context) string {
	return r.ip
}

func sampleStroke() Stroke {
	return Stroke{{X: 10, Y: 20}, {X: 40, Y: 25}, {X: 80, Y: 30}}
}

// Ни имя без подписи, ни подпись без имени не проходят.
func TestPadCanSubmitRequiresBoth(t *testing.T) {
	pad := NewPad()

	assert.Error(t, pad.CanSubmit("Иван Петров"))

	pad.AddStroke(sampleStroke())
	assert.Error(t, pad.CanSubmit(""))
	assert.Error(t, pad.CanSubmit("   "))

	assert.NoError(t, pad.CanSubmit("Иван Петров"))
}

func TestPadClearResets(t *testing.T) {
	pad := NewPad()
	pad.AddStroke(sampleStroke())
	assert.True(t, pad.HasStrokes())

	pad.Clear()
	assert.False(t, pad.HasStrokes())
	assert.Error(t, pad.CanSubmit("Иван Петров"))
}

func TestPadIgnoresEmptyStrokes(t *testing.T) {
	pad := NewPad()
	pad.AddStroke(Stroke{})
	assert.False(t, pad.HasStrokes())
}

func TestPadSubmit(t *testing.T) {
	pad := NewPad()
	pad.AddStroke(sampleStroke())

	capture, err := pad.Submit(context.Background(), "  Иван Петров  ", staticResolver{ip: "203.0.113.7"})
	assert.NoError(t, err)
	assert.Equal(t, "Иван Петров", capture.SignerName)
	assert.Equal(t, "203.0.113.7", capture.IPAddress)
	assert.False(t, capture.SignedAt.IsZero())
	assert.True(t, strings.HasPrefix(capture.Signature, "data:image/png;base64,"))
}

// Отказ резолвера IP не блокирует подписание.
func TestPadSubmitWithoutResolver(t *testing.T) {
	pad := NewPad()
	pad.AddStroke(sampleStroke())

	capture, err := pad.Submit(context.Background(), "Иван Петров", nil)
	assert.NoError(t, err)
	assert.Empty(t, capture.IPAddress)
	assert.NotEmpty(t, capture.Signature)
}

func TestPadSubmitWithoutStrokes(t *testing.T) {
	pad := NewPad()
	_, err := pad.Submit(context.Background(), "Иван Петров", nil)
	assert.Error(t, err)
}

func TestRasterizeSingePointStroke(t *testing.T) {
	pad := NewPad()
	pad.AddStroke(Stroke{{X: 5, Y: 5}})
	assert.True(t, strings.HasPrefix(pad.Rasterize(), "data:image/png;base64,"))
}
