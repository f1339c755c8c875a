package ledger

import (
	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// Type ids of the built-in domain
const (
	SessionType              = "ledger.Session"
	CommodityType            = "ledger.Commodity"
	CurrencyType             = "ledger.Currency"
	AccountType              = "ledger.Account"
	CapitalAccountType       = "ledger.CapitalAccount"
	IncomeExpenseAccountType = "ledger.IncomeExpenseAccount"
	TransactionType          = "ledger.Transaction"
	EntryType                = "ledger.Entry"
)

// Types holds the descriptors registered by Register
type Types struct {
	Session              *models.TypeDescriptor
	Commodity            *models.TypeDescriptor
	Currency             *models.TypeDescriptor
	Account              *models.TypeDescriptor
	CapitalAccount       *models.TypeDescriptor
	IncomeExpenseAccount *models.TypeDescriptor
	Transaction          *models.TypeDescriptor
	Entry                *models.TypeDescriptor
}

// NewRegistry creates a registry rooted at the ledger session with the
// built-in types registered
func NewRegistry() (*models.Registry, *Types, error) {
	reg := models.NewRegistry(SessionType)
	t, err := Register(reg)
	if err != nil {
		return nil, nil, err
	}
	return reg, t, nil
}

// Register adds the built-in descriptors to reg
func Register(reg *models.Registry) (*Types, error) {
	t := &Types{}
	t.Session = &models.TypeDescriptor{
		ID: SessionType,
		Properties: []*models.Property{
			ref("defaultCurrency", CurrencyType, func(o models.Object) models.Value { return o.(*Session).defaultCurrency }),
			list("commodities", CommodityType, func(o models.Object) models.ListManager { return o.(*Session).commodities }),
			list("accounts", AccountType, func(o models.Object) models.ListManager { return o.(*Session).accounts }),
			list("transactions", TransactionType, func(o models.Object) models.ListManager { return o.(*Session).transactions }),
		},
		Build: t.buildSession,
	}
	t.Commodity = &models.TypeDescriptor{
		ID:     CommodityType,
		Cached: true,
		Properties: []*models.Property{
			scalar("name", models.TypeText, true, commodityGet(func(c *Commodity) models.Value { return c.name })),
		},
		Build: t.buildCommodity,
	}
	t.Currency = &models.TypeDescriptor{
		ID:     CurrencyType,
		BaseID: CommodityType,
		Properties: []*models.Property{
			scalar("code", models.TypeText, true, func(o models.Object) models.Value { return o.(*Currency).code }),
			scalar("decimals", models.TypeInt, false, func(o models.Object) models.Value { return o.(*Currency).decimals }),
		},
		Build: t.buildCurrency,
	}
	t.Account = &models.TypeDescriptor{
		ID:     AccountType,
		Cached: true,
		Properties: []*models.Property{
			scalar("name", models.TypeText, true, accountGet(func(a *Account) models.Value { return a.name })),
			list("subAccounts", AccountType, func(o models.Object) models.ListManager { return o.(Accounter).AsAccount().subAccounts }),
		},
		Build: t.buildAccount,
	}
	t.CapitalAccount = &models.TypeDescriptor{
		ID:     CapitalAccountType,
		BaseID: AccountType,
		Properties: []*models.Property{
			scalar("abbreviation", models.TypeText, true, func(o models.Object) models.Value { return o.(*CapitalAccount).abbreviation }),
			scalar("comment", models.TypeText, true, func(o models.Object) models.Value { return o.(*CapitalAccount).comment }),
			ref("currency", CurrencyType, func(o models.Object) models.Value { return o.(*CapitalAccount).currency }),
			scalar("startBalance", models.TypeInt, false, func(o models.Object) models.Value { return o.(*CapitalAccount).startBalance }),
		},
		Build: t.buildCapitalAccount,
	}
	t.IncomeExpenseAccount = &models.TypeDescriptor{
		ID:     IncomeExpenseAccountType,
		BaseID: AccountType,
		Properties: []*models.Property{
			scalar("multiCurrency", models.TypeBool, false, func(o models.Object) models.Value { return o.(*IncomeExpenseAccount).multiCurrency }),
			ref("currency", CurrencyType, func(o models.Object) models.Value { return o.(*IncomeExpenseAccount).currency }),
		},
		Build: t.buildIncomeExpenseAccount,
	}
	t.Transaction = &models.TypeDescriptor{
		ID: TransactionType,
		Properties: []*models.Property{
			scalar("date", models.TypeDate, true, func(o models.Object) models.Value { return o.(*Transaction).date }),
			list("entries", EntryType, func(o models.Object) models.ListManager { return o.(*Transaction).entries }),
		},
		Build: t.buildTransaction,
	}
	t.Entry = &models.TypeDescriptor{
		ID: EntryType,
		Properties: []*models.Property{
			scalar("check", models.TypeText, true, func(o models.Object) models.Value { return o.(*Entry).check }),
			scalar("description", models.TypeText, true, func(o models.Object) models.Value { return o.(*Entry).description }),
			scalar("memo", models.TypeText, true, func(o models.Object) models.Value { return o.(*Entry).memo }),
			ref("account", AccountType, func(o models.Object) models.Value { return o.(*Entry).account }),
			scalar("amount", models.TypeInt, false, func(o models.Object) models.Value { return o.(*Entry).amount }),
			scalar("creation", models.TypeInt, false, func(o models.Object) models.Value { return o.(*Entry).creation }),
			scalar("valuta", models.TypeDate, true, func(o models.Object) models.Value { return o.(*Entry).valuta }),
		},
		Build: t.buildEntry,
	}

	for _, td := range []*models.TypeDescriptor{
		t.Session, t.Commodity, t.Currency,
		t.Account, t.CapitalAccount, t.IncomeExpenseAccount,
		t.Transaction, t.Entry,
	} {
		if err := reg.Register(td); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func scalar(name string, vt models.ValueType, nullable bool, get func(models.Object) models.Value) *models.Property {
	return &models.Property{Name: name, Kind: models.KindScalar, Type: vt, Nullable: nullable, Get: get}
}

func ref(name, target string, get func(models.Object) models.Value) *models.Property {
	return &models.Property{Name: name, Kind: models.KindScalar, Type: models.TypeReference, Ref: target, Nullable: true, Get: get}
}

func list(name, elem string, get func(models.Object) models.ListManager) *models.Property {
	return &models.Property{Name: name, Kind: models.KindList, Ref: elem, List: get}
}

func commodityGet(f func(*Commodity) models.Value) func(models.Object) models.Value {
	return func(o models.Object) models.Value { return f(o.(Commoditizer).AsCommodity()) }
}

func accountGet(f func(*Account) models.Value) func(models.Object) models.Value {
	return func(o models.Object) models.Value { return f(o.(Accounter).AsAccount()) }
}
