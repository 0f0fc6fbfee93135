package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	dispatch "github.com/hugolhafner/go-dispatch"
	"github.com/hugolhafner/go-dispatch/config"
	"github.com/hugolhafner/go-dispatch/errorhandler"
	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/hugolhafner/go-dispatch/logger"
	"github.com/hugolhafner/go-dispatch/metrics"
	"github.com/hugolhafner/go-dispatch/partition"
	"github.com/hugolhafner/go-dispatch/plugins/zaplogger"
	"github.com/hugolhafner/go-dispatch/serde"
	"github.com/hugolhafner/go-dispatch/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	messagePattern = "Message #%d: %s, sent at %s"
	ackPattern     = "Message with offset %d, sent to topic %s, on partition %d"
)

type sensorMessage struct {
	Index  int       `json:"index"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults built in)")
	discover := flag.Bool("discover", false, "Replace configured partitions with the cluster's (kgo only)")
	flag.Parse()

	if err := run(*configPath, *discover, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, discover bool, clientID string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}

	if clientID == "" {
		clientID = cfg.ClientID
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}
	cfg.ClientID = clientID

	l, zl, err := zaplogger.NewWithLevel(cfg.Level())
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	l = l.With("client_id", clientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, topics, err := buildTransport(ctx, cfg, discover, l)
	if err != nil {
		return err
	}

	d, err := dispatch.New(
		transport, topics,
		dispatch.WithLogger(l),
		dispatch.WithFallback(cfg.Fallback()),
		dispatch.WithDeliveryTimeout(cfg.DeliveryTimeout, 0),
		dispatch.WithErrorHandler(errorhandler.LogAndContinue(l)),
	)
	if err != nil {
		transport.Close()
		return fmt.Errorf("create dispatcher: %w", err)
	}

	if cfg.Metrics.Address != "" {
		srv := serveMetrics(cfg.Metrics.Address, clientID, d, l)
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	produce(ctx, d, cfg.Records, l)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.Close(closeCtx); err != nil {
		l.Warn("Dispatcher did not close cleanly", "error", err)
	}

	return nil
}

func buildTransport(
	ctx context.Context, cfg config.Config, discover bool, l logger.Logger,
) (kafka.Transport, []partition.Topic, error) {
	topics, err := cfg.PartitionTopics()
	if err != nil {
		return nil, nil, err
	}

	opts := cfg.ProducerOptions(l)

	switch cfg.Transport {
	case config.TransportSarama:
		if discover {
			l.Warn("Partition discovery is only supported by the kgo transport")
		}
		t, err := kafka.NewSaramaTransport(opts...)
		if err != nil {
			return nil, nil, err
		}
		return t, topics, nil

	default:
		t, err := kafka.NewKgoTransport(opts...)
		if err != nil {
			return nil, nil, err
		}

		if discover {
			topics, err = discoverTopics(ctx, t, topics)
			if err != nil {
				t.Close()
				return nil, nil, err
			}
		}
		return t, topics, nil
	}
}

func discoverTopics(ctx context.Context, t *kafka.KgoTransport, configured []partition.Topic) ([]partition.Topic, error) {
	out := make([]partition.Topic, 0, len(configured))
	for _, c := range configured {
		ps, err := t.Partitions(ctx, c.Name())
		if err != nil {
			return nil, err
		}

		topic, err := partition.NewTopic(c.Name(), ps...)
		if err != nil {
			return nil, err
		}
		out = append(out, topic)
	}
	return out, nil
}

func serveMetrics(addr, clientID string, d *dispatch.Dispatcher, l logger.Logger) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector(d, prometheus.Labels{"client_id": clientID}),
		collectors.NewGoCollector(),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		l.Info("Serving metrics", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Metrics server failed", "error", err)
		}
	}()

	return srv
}

func produce(ctx context.Context, d *dispatch.Dispatcher, records int, l logger.Logger) {
	typed := dispatch.NewTyped[struct{}, sensorMessage](d, serde.Keyless[struct{}](), serde.JSON[sensorMessage]())
	topics := d.Topics()

	onAck := func(del tracker.Delivery) {
		if !del.Succeeded() {
			l.Error("Message not delivered", "topic", del.Record.Topic, "error", del.Ack.Err)
			return
		}
		l.Info(fmt.Sprintf(ackPattern, del.Ack.Offset, del.Record.Topic, del.Ack.Partition))
	}

	for index := 0; index < records; index++ {
		for _, topic := range topics {
			if ctx.Err() != nil {
				l.Info("Interrupted, stopping", "sent_rounds", index)
				return
			}

			now := time.Now()
			msg := sensorMessage{
				Index:  index,
				Body:   fmt.Sprintf(messagePattern, index, uuid.NewString(), now.Format(time.DateTime)),
				SentAt: now,
			}

			_, err := typed.Submit(
				ctx, dispatch.TypedRecord[struct{}, sensorMessage]{
					Topic:    topic.Name(),
					Value:    msg,
					Sequence: uint64(index),
				}, onAck,
			)
			if err != nil {
				l.Error("Message rejected", "topic", topic.Name(), "index", index, "error", err)
			}
		}
	}
}
