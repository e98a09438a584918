package models

import "encoding/json"

// Optional — значение поля частичного обновления.
// Set означает, что поле присутствовало во входных данных,
// Null — что оно было передано явным null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some возвращает присутствующее значение.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null возвращает присутствующее значение, явно сброшенное в null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON отмечает поле как присутствующее, в том числе для null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON кодирует значение либо null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr возвращает указатель на значение или nil для null.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}
