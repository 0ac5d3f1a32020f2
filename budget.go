package gnc

// BudgetAmount is the amount budgeted for one account in one period of a
// budget.
type BudgetAmount struct {
	BudgetUID  string
	AccountUID string
	PeriodNum  int64
	Amount     Numeric
}

// Budget plans amounts per account over a number of recurring periods.
type Budget struct {
	UID             string
	Name            string
	Description     string
	NumberOfPeriods int64
	Recurrence      *Recurrence
	Amounts         []*BudgetAmount
}

// NewBudget creates a budget with a fresh UID and the default recurrence.
func NewBudget(name string) *Budget {
	return &Budget{
		UID:             NewUID(),
		Name:            name,
		NumberOfPeriods: 12,
		Recurrence:      NewRecurrence(),
	}
}

// AddAmount appends a budgeted amount.
func (b *Budget) AddAmount(a *BudgetAmount) {
	if a == nil {
		return
	}
	a.BudgetUID = b.UID
	b.Amounts = append(b.Amounts, a)
}

// AmountsByAccount groups the budgeted amounts by account UID, preserving
// first-seen account order.
func (b *Budget) AmountsByAccount() (order []string, byAccount map[string][]*BudgetAmount) {
	byAccount = make(map[string][]*BudgetAmount)
	for _, a := range b.Amounts {
		if _, seen := byAccount[a.AccountUID]; !seen {
			order = append(order, a.AccountUID)
		}
		byAccount[a.AccountUID] = append(byAccount[a.AccountUID], a)
	}
	return order, byAccount
}
