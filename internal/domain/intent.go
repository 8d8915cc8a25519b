package domain

// IntentName is the closed set of intents the assistant understands.
type IntentName string

const (
	IntentStockCheck   IntentName = "stock_check"
	IntentSalesToday   IntentName = "sales_today"
	IntentSalesSummary IntentName = "sales_summary"
	IntentPrintInvoice IntentName = "print_invoice"
	IntentDebtCheck    IntentName = "debt_check"
	IntentProductPrice IntentName = "product_price"
	IntentHelp         IntentName = "help"
	IntentGreeting     IntentName = "greeting"
	IntentThanks       IntentName = "thanks"
	IntentGoodbye      IntentName = "goodbye"
	IntentUnknown      IntentName = "unknown"
)

// Entity keys.
const (
	EntityProduct = "product"
	EntityPeriod  = "period"
)

// Period entity values.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodWeek      = "week"
	PeriodMonth     = "month"
	PeriodYear      = "year"
)

// CategoryNotUnderstood is the response category of the unknown intent.
const CategoryNotUnderstood = "not_understood"

// Intent is the classification of one utterance.
type Intent struct {
	Name             IntentName        `json:"name"`
	Confidence       float64           `json:"confidence"`
	Entities         map[string]string `json:"entities"`
	OriginalText     string            `json:"original_text"`
	ResponseCategory string            `json:"response_category"`
}

func UnknownIntent(text string) Intent {
	return Intent{
		Name:             IntentUnknown,
		Confidence:       0,
		Entities:         map[string]string{},
		OriginalText:     text,
		ResponseCategory: CategoryNotUnderstood,
	}
}

func (i Intent) Entity(key string) (string, bool) {
	v, ok := i.Entities[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
