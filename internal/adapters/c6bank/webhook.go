package c6bank

import (
	"context"
	"net/http"
	"net/url"
)

// Webhook is the notification endpoint registered for a payee key
type Webhook struct {
	WebhookURL string `json:"webhookUrl"`
	Key        string `json:"chave,omitempty"`
	CreatedAt  string `json:"criacao,omitempty"`
}

func webhookPath(key string) string {
	return "/v2/pix/webhook/" + url.PathEscape(key)
}

// RegisterWebhook points settlement notifications for key at webhookURL
func (c *Client) RegisterWebhook(ctx context.Context, key, webhookURL string) error {
	return c.call(ctx, apiRequest{
		op:     "webhook_put",
		method: http.MethodPut,
		path:   webhookPath(key),
		body:   Webhook{WebhookURL: webhookURL},
	}, nil)
}

// GetWebhook returns the notification endpoint registered for key
func (c *Client) GetWebhook(ctx context.Context, key string) (*Webhook, error) {
	var hook Webhook
	if err := c.call(ctx, apiRequest{
		op:     "webhook_get",
		method: http.MethodGet,
		path:   webhookPath(key),
	}, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// DeleteWebhook stops notifications for key
func (c *Client) DeleteWebhook(ctx context.Context, key string) error {
	return c.call(ctx, apiRequest{
		op:     "webhook_delete",
		method: http.MethodDelete,
		path:   webhookPath(key),
	}, nil)
}
