package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariantViolation означает нарушение контракта вышестоящим кодом:
	// неизвестный тег типа собеседника, вложенный секретный чат и т.п.
	// Такая ошибка фатальна и не подлежит восстановлению.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrCapacityExceeded означает, что резервирование места в стеке значений
	// не удалось. Это ошибка статического расчета размера у вызывающей
	// стороны, а не условие, зависящее от данных; тоже фатальна.
	ErrCapacityExceeded = errors.New("value stack capacity exceeded")
)

// invariantf оборачивает ErrInvariantViolation с пояснением.
func invariantf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvariantViolation)...)
}

// Invariantf — то же, что invariantf, для использования из других пакетов.
func Invariantf(format string, args ...any) error {
	return invariantf(format, args...)
}

// Fatal сообщает, относится ли ошибка к фатальным категориям,
// после которых продолжать обработку нельзя.
func Fatal(err error) bool {
	return errors.Is(err, ErrInvariantViolation) || errors.Is(err, ErrCapacityExceeded)
}
