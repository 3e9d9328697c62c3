package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupWebhook builds a Webhook pointed at a test server, without retries so
// failure tests stay fast.
func setupWebhook(handler http.Handler) (*Webhook, *httptest.Server) {
	server := httptest.NewServer(handler)

	w := &Webhook{
		client:  resty.New(),
		url:     server.URL,
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}

	return w, server
}

func TestWebhook_Notify(t *testing.T) {
	// Arrange
	var received Event
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	})

	wh, server := setupWebhook(handler)
	defer server.Close()

	event := Event{
		Type:          EventBotCompleted,
		BotID:         7,
		UserID:        3,
		Symbol:        "BTC",
		Direction:     "long",
		Leverage:      12,
		ProfitPercent: 2.4,
		ProfitAmount:  24,
		FinalBalance:  1024,
		CompletedAt:   time.Now().UTC(),
	}

	// Act
	err := wh.Notify(context.Background(), event)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, EventBotCompleted, received.Type)
	assert.Equal(t, uint(7), received.BotID)
	assert.Equal(t, 2.4, received.ProfitPercent)
}

func TestWebhook_Notify_SinkError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	wh, server := setupWebhook(handler)
	defer server.Close()

	err := wh.Notify(context.Background(), Event{Type: EventBotCompleted})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "notification sink returned")
}

func TestNop_Notify(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), Event{Type: EventBotCompleted}))
}
