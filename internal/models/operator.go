package models

// CapabilityModerate — право модерировать гостевую книгу.
const CapabilityModerate = "guestbook:moderate"

// Operator — аутентифицированный оператор (молодожёны или доверенное лицо).
type Operator struct {
	ID           string
	Name         string
	Capabilities []string
}

// Can сообщает, есть ли у оператора указанное право. Безопасен для nil.
func (o *Operator) Can(capability string) bool {
	if o == nil {
		return false
	}

	for _, c := range o.Capabilities {
		if c == capability {
			return true
		}
	}

	return false
}

// Action — действие модерации.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

// Valid сообщает, поддерживается ли действие.
func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionDelete:
		return true
	}
	return false
}

// BulkFailure — причина отказа по одному идентификатору пакетной модерации.
type BulkFailure struct {
	ID     string
	Reason string
}

// BulkResult — итог пакетной модерации: каждый id обрабатывается независимо.
type BulkResult struct {
	Successful int
	Failed     []BulkFailure
}
