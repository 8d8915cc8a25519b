package domain

// Outbound bus payloads.

type AssistantHello struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Timestamp    string   `json:"timestamp"`
	Capabilities []string `json:"capabilities"`
}

type AssistantBye struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

type Ping struct {
	Timestamp string `json:"timestamp"`
}

type PrintRequest struct {
	RequestID     string `json:"request_id"`
	SaleID        int64  `json:"sale_id"`
	InvoiceNumber string `json:"invoice_number"`
}

// PrintAck is the first POS answer to a PrintRequest.
type PrintAck struct {
	RequestID     string
	InvoiceNumber string
	OK            bool
	Code          string
	Hint          string
}
