package signature

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ignatzorin/homecare-backend/internal/logger"
)

// IPLookupClient определяет публичный IP через внешний сервис
// (api.ipify.org). Любой отказ деградирует до пустой строки:
// подписание никогда не блокируется из-за недоступности сервиса.
type IPLookupClient struct {
	baseURL string
	client  *http.Client
}

// NewIPLookupClient создаёт клиент определения IP.
func NewIPLookupClient(baseURL string) *IPLookupClient {
	return &IPLookupClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

// SetHTTPClient заменяет HTTP клиент (используется в тестах).
func (c *IPLookupClient) SetHTTPClient(client *http.Client) {
	c.client = client
}

// Resolve возвращает публичный IP или пустую строку.
func (c *IPLookupClient) Resolve(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?format=json", nil)
	if err != nil {
		return ""
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if logger.Log != nil {
			logger.Log.Debugf("signature: не удалось определить IP: %v", err)
		}
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}

	return payload.IP
}
