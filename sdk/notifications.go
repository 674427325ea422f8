package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// NotificationsService sends single events.
type NotificationsService struct {
	c *Client
}

// Send posts one event. payload is marshalled to JSON and must match the
// shape the server expects for kind.
func (s *NotificationsService) Send(ctx context.Context, kind string, payload any) (*Result, error) {
	return doRequest[Result](ctx, s.c, http.MethodPost, "/notifications", nil,
		notificationRequest{Kind: kind, Payload: payload}, http.StatusOK)
}

// OrdersService sends notifications for stored orders.
type OrdersService struct {
	c *Client
}

// Notify sends the customer confirmation and the admin notice for an order.
func (s *OrdersService) Notify(ctx context.Context, orderID string, attachInvoice bool) (*OrderResults, error) {
	path := fmt.Sprintf("/orders/%s/notify", url.PathEscape(orderID))
	return doRequest[OrderResults](ctx, s.c, http.MethodPost, path, nil,
		notifyOrderRequest{AttachInvoice: attachInvoice}, http.StatusOK)
}

// SendInvoice emails the invoice for an order. req may be nil.
func (s *OrdersService) SendInvoice(ctx context.Context, orderID string, req *SendInvoiceRequest) (*Result, error) {
	path := fmt.Sprintf("/orders/%s/invoice", url.PathEscape(orderID))
	var body any
	if req != nil {
		body = req
	}
	return doRequest[Result](ctx, s.c, http.MethodPost, path, nil, body, http.StatusOK)
}

// EmailsService lists and sends built-in templates.
type EmailsService struct {
	c *Client
}

// ListTemplates returns the built-in templates sorted by name.
func (s *EmailsService) ListTemplates(ctx context.Context) ([]TemplateListItem, error) {
	result, err := doRequest[[]TemplateListItem](ctx, s.c, http.MethodGet, "/emails/templates", nil, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// SendTemplate renders a named template with variables and sends it.
func (s *EmailsService) SendTemplate(ctx context.Context, req SendTemplateRequest) (*SendTemplateResponse, error) {
	return doRequest[SendTemplateResponse](ctx, s.c, http.MethodPost, "/emails/template", nil, req, http.StatusOK)
}
