// internal/recording/client.go
package recording

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/javajoker/paywallkit/internal/models"
)

const queueDepth = 256

// Client delivers session events to the collector endpoint over HTTP.
// Delivery runs on a single worker goroutine behind a rate limiter; when the
// queue is full events are dropped and logged, never blocking the caller.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     *logrus.Logger

	events chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

func NewClient(endpoint, apiKey string, perSecond float64, burst int, log *logrus.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(endpoint).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetRetryCount(2).
		SetTimeout(10 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		log:     log,
		events:  make(chan Event, queueDepth),
		cancel:  cancel,
	}

	c.wg.Add(1)
	go c.deliver(ctx)

	return c
}

func (c *Client) EnqueueTransaction(txn *models.Transaction) {
	c.TrackEvent(EventTransaction, transactionParams(txn))
}

func (c *Client) TrackRestoration(transactionID, productID string) {
	c.TrackEvent(EventTransactionRestore, map[string]interface{}{
		"transaction_id": transactionID,
		"product_id":     productID,
	})
}

func (c *Client) TrackEvent(name string, params map[string]interface{}) {
	event := Event{
		ID:        uuid.NewString(),
		Name:      name,
		Params:    params,
		CreatedAt: time.Now(),
	}

	select {
	case c.events <- event:
	default:
		c.log.WithField("event", name).Warn("event queue full, dropping event")
	}
}

// Close stops the delivery worker. Queued events that have not been sent yet
// are dropped.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
	})
}

func (c *Client) deliver(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.events:
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			resp, err := c.http.R().SetContext(ctx).SetBody(event).Post("/events")
			if err != nil {
				c.log.WithError(err).WithField("event", event.Name).Warn("event delivery failed")
				continue
			}
			if resp.IsError() {
				c.log.WithFields(logrus.Fields{
					"event":  event.Name,
					"status": resp.StatusCode(),
				}).Warn("event rejected by collector")
			}
		}
	}
}
