package render

import (
	"encoding/json"
	"fmt"
)

// DecodeEvent builds the Event for kind from its JSON payload.
func DecodeEvent(kind string, payload json.RawMessage) (Event, error) {
	var ev Event
	switch Kind(kind) {
	case KindOrderConfirmed:
		ev = &OrderConfirmed{}
	case KindAdminNewOrder:
		ev = &AdminNewOrder{}
	case KindShipped:
		ev = &Shipped{}
	case KindStatusChanged:
		ev = &StatusChanged{}
	case KindPaymentConfirmed:
		ev = &PaymentConfirmed{}
	case KindPaymentFailed:
		ev = &PaymentFailed{}
	case KindRefundIssued:
		ev = &RefundIssued{}
	case KindLowStock:
		ev = &LowStock{}
	case KindSystemError:
		ev = &SystemError{}
	case KindRFQAdminNotice:
		ev = &RFQAdminNotice{}
	case KindRFQCustomerConfirmation:
		ev = &RFQCustomerConfirmation{}
	case KindQuoteReady:
		ev = &QuoteReady{}
	case KindInvoiceIssued:
		ev = &InvoiceIssued{}
	default:
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown event kind %q", kind)}
	}

	if len(payload) == 0 {
		return nil, &ValidationError{Field: "payload", Reason: "is required"}
	}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: err.Error()}
	}
	return deref(ev), nil
}

// deref turns the decoded pointer back into the value form used everywhere
// else, so events stay immutable once handed out.
func deref(ev Event) Event {
	switch e := ev.(type) {
	case *OrderConfirmed:
		return *e
	case *AdminNewOrder:
		return *e
	case *Shipped:
		return *e
	case *StatusChanged:
		return *e
	case *PaymentConfirmed:
		return *e
	case *PaymentFailed:
		return *e
	case *RefundIssued:
		return *e
	case *LowStock:
		return *e
	case *SystemError:
		return *e
	case *RFQAdminNotice:
		return *e
	case *RFQCustomerConfirmation:
		return *e
	case *QuoteReady:
		return *e
	case *InvoiceIssued:
		return *e
	}
	return ev
}
