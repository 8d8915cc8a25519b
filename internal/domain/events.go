package domain

// Event is an inbound POS notification. The set of implementations is
// closed; consumers switch over the concrete types.
type Event interface {
	EventName() string
	isEvent()
}

type UserLogin struct {
	Name     string
	Username string
}

type LicenseActivated struct {
	Name string
}

type SaleCreated struct {
	Name          string
	SaleID        string
	InvoiceNumber string
	Client        string
	Seller        string
	TotalUSD      float64
	TotalCDF      float64
}

type PrintStarted struct {
	Name          string
	RequestID     string
	InvoiceNumber string
	Seller        string
}

type PrintDone struct {
	Name          string
	RequestID     string
	InvoiceNumber string
}

type PrintError struct {
	Name          string
	RequestID     string
	InvoiceNumber string
	Code          string
	Message       string
	Hint          string
}

type StockLow struct {
	Name     string
	Product  string
	Quantity float64
}

type SyncCompleted struct {
	Name    string
	Success bool
}

type DebtCreated struct {
	Name   string
	Client string
}

type DebtPaid struct {
	Name   string
	Client string
}

func (e UserLogin) EventName() string        { return e.Name }
func (e LicenseActivated) EventName() string { return e.Name }
func (e SaleCreated) EventName() string      { return e.Name }
func (e PrintStarted) EventName() string     { return e.Name }
func (e PrintDone) EventName() string        { return e.Name }
func (e PrintError) EventName() string       { return e.Name }
func (e StockLow) EventName() string         { return e.Name }
func (e SyncCompleted) EventName() string    { return e.Name }
func (e DebtCreated) EventName() string      { return e.Name }
func (e DebtPaid) EventName() string         { return e.Name }

func (UserLogin) isEvent()        {}
func (LicenseActivated) isEvent() {}
func (SaleCreated) isEvent()      {}
func (PrintStarted) isEvent()     {}
func (PrintDone) isEvent()        {}
func (PrintError) isEvent()       {}
func (StockLow) isEvent()         {}
func (SyncCompleted) isEvent()    {}
func (DebtCreated) isEvent()      {}
func (DebtPaid) isEvent()         {}
