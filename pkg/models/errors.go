package models

import "fmt"

// PriceFetchError ошибка получения текущей цены
type PriceFetchError struct {
	Symbol string
	Err    error
}

func (e *PriceFetchError) Error() string {
	return fmt.Sprintf("ошибка получения цены %s: %v", e.Symbol, e.Err)
}

func (e *PriceFetchError) Unwrap() error { return e.Err }

// TechnicalDataFetchError ошибка получения свечей
type TechnicalDataFetchError struct {
	Symbol    string
	Timeframe string
	Err       error
}

func (e *TechnicalDataFetchError) Error() string {
	return fmt.Sprintf("ошибка получения свечей %s (%s): %v", e.Symbol, e.Timeframe, e.Err)
}

func (e *TechnicalDataFetchError) Unwrap() error { return e.Err }

// InvalidInputError некорректные входные данные анализа
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("некорректные данные (%s): %s", e.Field, e.Reason)
}

// UnknownActionError неизвестное действие, запрошенное вызывающей стороной
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("неизвестное действие: %q", e.Action)
}
