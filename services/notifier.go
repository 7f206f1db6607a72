package services

// Event names pushed to connected clients after a ledger change.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
	EventBudgetChanged      = "budget.changed"
	EventBillPaid           = "bill.paid"
	EventBillChanged        = "bill.changed"
	EventBillReminder       = "bill.reminder"
	EventGoalChanged        = "goal.changed"
	EventBankSynced         = "bank.synced"
	EventBankChanged        = "bank.changed"
)

// Notifier fans out change events to a user's open connections.
type Notifier interface {
	Notify(userID string, event string, payload any)
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string, any) {}

func orNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
