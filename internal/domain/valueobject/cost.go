package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
)

// Cost представляет стоимость работ с фиксированной точностью
// в два знака после запятой. Хранится как decimal, чтобы исключить
// накопление ошибок плавающей точки при суммировании.
type Cost struct {
	amount decimal.Decimal
}

// NewCost разбирает строковое представление стоимости.
// Отрицательные и нечисловые значения отклоняются до обращения к базе.
func NewCost(raw string) (Cost, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Cost{}, apperror.New(apperror.ErrCodeValidation, "стоимость должна быть числом")
	}
	if d.IsNegative() {
		return Cost{}, apperror.New(apperror.ErrCodeValidation, "стоимость не может быть отрицательной")
	}
	return Cost{amount: d.Round(2)}, nil
}

// Decimal возвращает значение для записи в базу.
func (c Cost) Decimal() decimal.Decimal {
	return c.amount
}

// String возвращает нормализованную строку с двумя знаками: "1234.5" -> "1234.50".
func (c Cost) String() string {
	return c.amount.StringFixed(2)
}

// Add возвращает сумму двух стоимостей.
func (c Cost) Add(other Cost) Cost {
	return Cost{amount: c.amount.Add(other.amount)}
}

// Mul умножает стоимость на коэффициент (ставку комиссии).
func (c Cost) Mul(rate decimal.Decimal) Cost {
	return Cost{amount: c.amount.Mul(rate).Round(2)}
}
