package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewCostNormalizesScale(t *testing.T) {
	cost, err := NewCost("1234.5")
	assert.NoError(t, err)
	assert.Equal(t, "1234.50", cost.String())

	cost, err = NewCost("100")
	assert.NoError(t, err)
	assert.Equal(t, "100.00", cost.String())

	// Лишние знаки округляются до двух.
	cost, err = NewCost("9.999")
	assert.NoError(t, err)
	assert.Equal(t, "10.00", cost.String())
}

func TestNewCostRejectsInvalid(t *testing.T) {
	_, err := NewCost("abc")
	assert.Error(t, err)

	_, err = NewCost("")
	assert.Error(t, err)

	_, err = NewCost("-10")
	assert.Error(t, err)
}

func TestCostArithmetic(t *testing.T) {
	a, _ := NewCost("100.10")
	b, _ := NewCost("0.20")
	assert.Equal(t, "100.30", a.Add(b).String())

	// Сложение через decimal не накапливает ошибок плавающей точки.
	sum, _ := NewCost("0")
	tenth, _ := NewCost("0.10")
	for i := 0; i < 10; i++ {
		sum = sum.Add(tenth)
	}
	assert.Equal(t, "1.00", sum.String())

	rate := decimal.NewFromFloat(0.07)
	assert.Equal(t, "7.01", a.Mul(rate).String())
}
