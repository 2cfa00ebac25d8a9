package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hermes/api/httpapi"
	"hermes/api/wire"
	"hermes/api/ws"
	"hermes/config"
	"hermes/domain/engine"
	"hermes/infra/kafka"
	entrywal "hermes/infra/wal/entry"
	exitwal "hermes/infra/wal/exit"
	"hermes/jobs/broadcaster"
	"hermes/metrics"
	"hermes/service"
	"hermes/snapshot"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	symbols := make([]service.Symbol, 0, len(cfg.Symbols))
	for _, sc := range cfg.Symbols {
		tick, err := sc.TickSize()
		if err != nil {
			log.Fatal("bad symbol config", zap.Error(err))
		}
		symbols = append(symbols, service.Symbol{Name: sc.Name, Tick: tick})
	}

	cmdWAL, err := entrywal.Open(entrywal.Config{
		Dir:             cfg.WAL.Dir,
		SegmentSize:     cfg.WAL.SegmentSize,
		SegmentDuration: cfg.WAL.SegmentDuration,
	})
	if err != nil {
		log.Fatal("wal open failed", zap.Error(err))
	}

	svc := service.New(log, symbols, cmdWAL)
	if err := svc.Restore(cfg.Snapshot.Dir, cfg.WAL.Dir); err != nil {
		log.Fatal("restore failed", zap.Error(err))
	}

	enc := &wire.Encoder{TickFor: svc.TickFor}

	// Event fan-out: websocket broadcast, durable outbox, optional live
	// Kafka stream. The engines hand events to each synchronously; every
	// sink buffers its own I/O.
	hub := ws.NewHub()
	sinks := engine.Fanout{metrics.NewSink(), ws.NewSink(hub, enc)}

	outbox, err := exitwal.Open(cfg.WAL.OutboxDir)
	if err != nil {
		log.Fatal("outbox open failed", zap.Error(err))
	}
	outboxStart, err := outbox.MaxSeq()
	if err != nil {
		log.Fatal("outbox scan failed", zap.Error(err))
	}
	outboxSink := exitwal.NewSink(outbox, enc, log, outboxStart)
	sinks = append(sinks, outboxSink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var kafkaSink *kafka.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic)
		kafkaSink = kafka.NewSink(producer, enc, log, 0)
		sinks = append(sinks, kafkaSink)

		bc, err := broadcaster.New(outbox, cfg.Kafka.Brokers, cfg.Kafka.OutboxTopic, cfg.Kafka.DrainInterval, log)
		if err != nil {
			log.Fatal("broadcaster start failed", zap.Error(err))
		}
		bc.Start(ctx)
		defer func() { _ = bc.Close() }()
	}

	svc.AttachSink(sinks)

	svc.StartSnapshotJob(ctx, service.SnapshotDeps{
		Writer:    &snapshot.Writer{Dir: cfg.Snapshot.Dir},
		ExitWAL:   outbox,
		OutboxSeq: outboxSink.LastSeq,
	}, cfg.Snapshot.Interval)

	for _, sym := range svc.Symbols() {
		if view, err := svc.Render(sym, cfg.DepthLevels); err == nil {
			log.Info("book restored", zap.String("symbol", sym), zap.String("book", view))
		}
	}

	// REST admission surface.
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpapi.New(svc, log, cfg.DepthLevels).Register(app)
	go func() {
		log.Info("http api listening", zap.String("addr", cfg.HTTPAddr))
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Error("http api stopped", zap.Error(err))
			stop()
		}
	}()

	// Websocket endpoint and metrics share the second listener.
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewServer(svc, hub, log))
	mux.Handle("/metrics", promhttp.Handler())
	wsSrv := &http.Server{Addr: cfg.WSAddr, Handler: mux}
	go func() {
		log.Info("ws endpoint listening", zap.String("addr", cfg.WSAddr))
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ws endpoint stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	_ = app.Shutdown()
	_ = wsSrv.Shutdown(context.Background())
	if kafkaSink != nil {
		kafkaSink.Close()
	}
	outboxSink.Close()
	_ = outbox.Close()
	_ = cmdWAL.Sync()
	_ = cmdWAL.Close()
}
