package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/models"
)

// NATSClient handles NATS messaging between the feed updater and the
// chart session layer
type NATSClient struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	encoder *nats.EncodedConn
	logger  *logrus.Entry

	subs   map[string]*nats.Subscription
	subsMu sync.RWMutex
}

// NewNATSClient creates a new NATS client and ensures the streams exist
func NewNATSClient(cfg *config.NATSConfig, logger *logrus.Logger) (*NATSClient, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	encoder, err := nats.NewEncodedConn(conn, nats.JSON_ENCODER)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create encoded connection: %w", err)
	}

	nc := &NATSClient{
		conn:    conn,
		js:      js,
		encoder: encoder,
		logger:  logger.WithField("component", "nats"),
		subs:    make(map[string]*nats.Subscription),
	}

	if err := nc.initializeStreams(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	return nc, nil
}

// Close unsubscribes everything and closes the connection
func (nc *NATSClient) Close() error {
	nc.subsMu.Lock()
	for _, sub := range nc.subs {
		sub.Unsubscribe()
	}
	nc.subs = make(map[string]*nats.Subscription)
	nc.subsMu.Unlock()

	nc.encoder.Close()
	nc.conn.Close()
	return nil
}

// IsConnected checks if NATS is connected
func (nc *NATSClient) IsConnected() bool {
	return nc.conn.IsConnected()
}

// Drain drains the connection for graceful shutdown
func (nc *NATSClient) Drain() error {
	return nc.conn.Drain()
}

// initializeStreams creates the JetStream streams
func (nc *NATSClient) initializeStreams() error {
	// Bar updates fan out to live chart sessions; a day of retention
	// covers reconnecting consumers
	_, err := nc.js.AddStream(&nats.StreamConfig{
		Name:     "BARS",
		Subjects: []string{"bars.>"},
		Storage:  nats.MemoryStorage,
		MaxAge:   24 * time.Hour,
		MaxMsgs:  1000000,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create BARS stream: %w", err)
	}

	_, err = nc.js.AddStream(&nats.StreamConfig{
		Name:     "QUOTES",
		Subjects: []string{"quotes.>"},
		Storage:  nats.MemoryStorage,
		MaxAge:   time.Hour,
		MaxMsgs:  100000,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create QUOTES stream: %w", err)
	}

	_, err = nc.js.AddStream(&nats.StreamConfig{
		Name:     "SYNC",
		Subjects: []string{"sync.>"},
		Storage:  nats.MemoryStorage,
		MaxAge:   time.Hour,
		MaxMsgs:  10000,
		Replicas: 1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create SYNC stream: %w", err)
	}

	return nil
}

// Bar operations

// PublishBar publishes a daily bar update for a symbol
func (nc *NATSClient) PublishBar(bar *models.Bar) error {
	subject := fmt.Sprintf("bars.%s", bar.Symbol)

	data, err := json.Marshal(bar)
	if err != nil {
		return fmt.Errorf("failed to marshal bar: %w", err)
	}

	future, err := nc.js.PublishAsync(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish bar: %w", err)
	}

	select {
	case <-future.Ok():
		return nil
	case err := <-future.Err():
		return fmt.Errorf("failed to publish bar: %w", err)
	case <-time.After(2 * time.Second):
		return fmt.Errorf("publish timeout for subject %s", subject)
	}
}

// SubscribeBars subscribes to bar updates; with no symbols it receives
// every symbol
func (nc *NATSClient) SubscribeBars(handler func(*models.Bar), symbols ...string) error {
	if len(symbols) > 0 {
		for _, symbol := range symbols {
			subj := fmt.Sprintf("bars.%s", symbol)
			sub, err := nc.encoder.Subscribe(subj, func(bar *models.Bar) {
				handler(bar)
			})
			if err != nil {
				return fmt.Errorf("failed to subscribe to %s: %w", subj, err)
			}
			nc.track(subj, sub)
		}
		return nil
	}

	subject := "bars.>"
	sub, err := nc.encoder.Subscribe(subject, func(bar *models.Bar) {
		handler(bar)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to bars: %w", err)
	}
	nc.track(subject, sub)

	return nil
}

// Quote operations

// PublishQuote publishes the latest quote for a symbol
func (nc *NATSClient) PublishQuote(quote *models.Quote) error {
	subject := fmt.Sprintf("quotes.%s", quote.Symbol)

	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	if _, err := nc.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish quote: %w", err)
	}
	return nil
}

// SubscribeQuotes subscribes to quote updates for all symbols
func (nc *NATSClient) SubscribeQuotes(handler func(*models.Quote)) error {
	subject := "quotes.>"

	sub, err := nc.encoder.Subscribe(subject, func(quote *models.Quote) {
		handler(quote)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to quotes: %w", err)
	}
	nc.track(subject, sub)

	return nil
}

// Sync operations

// PublishSyncStatus publishes backfill progress for a symbol
func (nc *NATSClient) PublishSyncStatus(status *models.SyncStatus) error {
	subject := fmt.Sprintf("sync.%s", status.Symbol)

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal sync status: %w", err)
	}

	if _, err := nc.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish sync status: %w", err)
	}
	return nil
}

// SubscribeSyncStatus subscribes to backfill progress updates
func (nc *NATSClient) SubscribeSyncStatus(handler func(*models.SyncStatus)) error {
	subject := "sync.>"

	sub, err := nc.encoder.Subscribe(subject, func(status *models.SyncStatus) {
		handler(status)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to sync status: %w", err)
	}
	nc.track(subject, sub)

	return nil
}

// Unsubscribe unsubscribes from a subject
func (nc *NATSClient) Unsubscribe(subject string) error {
	nc.subsMu.Lock()
	defer nc.subsMu.Unlock()

	if sub, exists := nc.subs[subject]; exists {
		if err := sub.Unsubscribe(); err != nil {
			return fmt.Errorf("failed to unsubscribe: %w", err)
		}
		delete(nc.subs, subject)
	}

	return nil
}

func (nc *NATSClient) track(subject string, sub *nats.Subscription) {
	nc.subsMu.Lock()
	nc.subs[subject] = sub
	nc.subsMu.Unlock()
}
