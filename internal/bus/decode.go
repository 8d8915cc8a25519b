package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lagrace/internal/domain"
)

var ErrUnknownEvent = errors.New("unknown event")

// Field aliases, tried in order. The POS has used several spellings.
var (
	keysUsername = []string{"username", "name"}
	keysSaleID   = []string{"sale_id", "saleId", "id"}
	keysInvoice  = []string{"invoice_number", "factureNum", "facture", "invoiceNumber", "id"}
	keysClient   = []string{"client", "customer", "client_name"}
	keysTotalUSD = []string{"total_usd", "totalUSD", "total"}
	keysTotalCDF = []string{"total_cdf", "totalFC", "totalCDF"}
	keysSeller   = []string{"seller_name", "user", "vendeur"}
	keysPrintInv = []string{"factureNum", "facture", "invoice_number", "invoiceNumber"}
	keysRequest  = []string{"request_id", "requestId"}
	keysProduct  = []string{"product", "nom", "label", "name"}
	keysQuantity = []string{"quantity", "qty", "stock"}
	keysDebtor   = []string{"client_name", "client"}
)

const defaultUsername = "utilisateur"

type fields map[string]any

// Decode maps an inbound event name and JSON payload onto a domain event.
func Decode(event string, payload []byte) (domain.Event, error) {
	f := fields{}
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event, err)
		}
	}

	switch event {
	case "user:login", "user:connected":
		return domain.UserLogin{Name: event, Username: f.str(defaultUsername, keysUsername...)}, nil
	case "license:activated":
		return domain.LicenseActivated{Name: event}, nil
	case "sale:created", "sale:finalized":
		usd, _ := f.num(keysTotalUSD...)
		cdf, _ := f.num(keysTotalCDF...)
		return domain.SaleCreated{
			Name:          event,
			SaleID:        f.str("", keysSaleID...),
			InvoiceNumber: f.str("", keysInvoice...),
			Client:        f.str("", keysClient...),
			Seller:        f.str("", keysSeller...),
			TotalUSD:      usd,
			TotalCDF:      cdf,
		}, nil
	case "print:started", "print:progress":
		return domain.PrintStarted{
			Name:          event,
			RequestID:     f.str("", keysRequest...),
			InvoiceNumber: f.str("", keysPrintInv...),
			Seller:        f.str("", keysSeller...),
		}, nil
	case "print:done", "print:completed":
		return domain.PrintDone{
			Name:          event,
			RequestID:     f.str("", keysRequest...),
			InvoiceNumber: f.str("", keysPrintInv...),
		}, nil
	case "print:error":
		return domain.PrintError{
			Name:          event,
			RequestID:     f.str("", keysRequest...),
			InvoiceNumber: f.str("", keysPrintInv...),
			Code:          f.str("", "code", "error_code"),
			Message:       f.str("", "message", "error"),
			Hint:          f.str("", "hint"),
		}, nil
	case "stock:low":
		qty, _ := f.num(keysQuantity...)
		return domain.StockLow{Name: event, Product: f.str("", keysProduct...), Quantity: qty}, nil
	case "sync:completed":
		return domain.SyncCompleted{Name: event, Success: f.boolean(true, "success")}, nil
	case "debt:created":
		return domain.DebtCreated{Name: event, Client: f.str("", keysDebtor...)}, nil
	case "debt:paid":
		return domain.DebtPaid{Name: event, Client: f.str("", keysDebtor...)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
}

func (f fields) str(def string, keys ...string) string {
	for _, k := range keys {
		switch v := f[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return def
}

func (f fields) num(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := f[k].(type) {
		case float64:
			return v, true
		case string:
			n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func (f fields) boolean(def bool, keys ...string) bool {
	for _, k := range keys {
		switch v := f[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		case float64:
			return v != 0
		}
	}
	return def
}
