package domain

import "fmt"

// Status — запись справочника статусов заказа.
type Status struct {
	ID   int64
	Name string
}

// Lifecycle перечисляет статусы, от которых зависит логика ядра.
type Lifecycle int

const (
	// LifecycleCreated — начальный статус нового заказа.
	LifecycleCreated Lifecycle = iota + 1
	// LifecycleIssued — заказ выдан; только из него разрешено удаление.
	LifecycleIssued
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleCreated:
		return "created"
	case LifecycleIssued:
		return "issued"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

// LifecycleNames связывает статусы жизненного цикла с именами в справочнике.
type LifecycleNames struct {
	Created string
	Issued  string
}

// DefaultLifecycleNames возвращает имена статусов, которые сеет миграция.
func DefaultLifecycleNames() LifecycleNames {
	return LifecycleNames{
		Created: "Created",
		Issued:  "Issued",
	}
}

// Name возвращает имя статуса в справочнике для состояния жизненного цикла.
func (n LifecycleNames) Name(l Lifecycle) string {
	switch l {
	case LifecycleCreated:
		return n.Created
	case LifecycleIssued:
		return n.Issued
	default:
		return ""
	}
}

// Validate проверяет, что оба имени заданы и различаются.
func (n LifecycleNames) Validate() error {
	if n.Created == "" || n.Issued == "" {
		return fmt.Errorf("lifecycle status names must not be empty")
	}
	if n.Created == n.Issued {
		return fmt.Errorf("created and issued status names must differ: %q", n.Created)
	}
	return nil
}

// MissingError возвращает ошибку конфигурации для отсутствующего статуса.
func (l Lifecycle) MissingError() error {
	if l == LifecycleIssued {
		return ErrTerminalStatusMissing
	}
	return ErrInitialStatusMissing
}
