package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-db/internal/adapters"
	"github.com/nerrad567/gray-logic-db/internal/api"
	"github.com/nerrad567/gray-logic-db/internal/governance"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-db/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-db/internal/parity"
	"github.com/nerrad567/gray-logic-db/internal/pool"
)

// poolCloseTimeout bounds the wait for checked-out connections at shutdown.
const poolCloseTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var parityOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pool and the status/governance API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), a.cfg, a.log, parityOnStart)
		},
	}
	cmd.Flags().BoolVar(&parityOnStart, "parity-on-start", false, "run the parity battery once after startup")
	return cmd
}

// run is the serve logic, separated from the command for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, cfg *config.Config, log *logging.Logger, parityOnStart bool) error {
	log.Info("starting graydb",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	p, err := openPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing connection pool")
		closeCtx, cancel := context.WithTimeout(context.Background(), poolCloseTimeout)
		defer cancel()
		if closeErr := p.Close(closeCtx); closeErr != nil {
			log.Error("error closing pool", "error", closeErr)
		}
	}()

	reg, err := governance.Load(cfg.Governance.RegistryPath)
	if err != nil {
		return fmt.Errorf("loading deviation registry: %w", err)
	}
	log.Info("deviation registry loaded", "path", cfg.Governance.RegistryPath, "records", reg.Len())

	influxClient, err := connectInflux(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		go influxdb.ReportPoolStats(ctx, p, influxClient, time.Duration(cfg.InfluxDB.ReportInterval)*time.Second)
	}

	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	var events *mqtt.Events
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		events = mqtt.NewEvents(mqttClient)
	}

	runParity, err := parityRunner(cfg, reg, log, events, influxClient)
	if err != nil {
		return err
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Pool:     p,
		Registry: reg,
		Parity:   runParity,
		OnGate:   gateListener(log, events, influxClient),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if parityOnStart {
		rep, err := runParity(ctx)
		if err != nil {
			log.Error("startup parity run failed", "error", err)
		} else {
			server.SetParityReport(rep)
		}
	}

	log.Info("initialisation complete, waiting for shutdown signal", "address", server.Addr())
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// openPool builds the pool for database.url and verifies it with a ping.
func openPool(ctx context.Context, cfg *config.Config, log *logging.Logger) (*pool.Pool, error) {
	mgr, err := pool.NewManager(adapters.Catalog(), cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("resolving database url: %w", err)
	}

	p, err := pool.New(mgr, poolConfig(cfg), pool.WithLogger(log.Component("pool")))
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetCheckoutTimeout())
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		p.Close(context.Background()) //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("connecting to %s: %w", mgr.Options().Redacted(), err)
	}
	log.Info("database connected",
		"driver", mgr.DriverName(),
		"url", mgr.Options().Redacted(),
		"max_open", p.Config().MaxOpen,
	)
	return p, nil
}

func poolConfig(cfg *config.Config) pool.Config {
	return pool.Config{
		MaxOpen:         cfg.Database.Pool.MaxOpen,
		CheckoutTimeout: cfg.GetCheckoutTimeout(),
		PingTimeout:     cfg.GetPingTimeout(),
		IdleTimeout:     cfg.GetPoolIdleTimeout(),
	}
}

// connectInflux returns nil when InfluxDB is disabled.
func connectInflux(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "org", cfg.InfluxDB.Org, "bucket", cfg.InfluxDB.Bucket)
	return client, nil
}

// connectMQTT returns nil when MQTT is disabled.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() { log.Info("MQTT reconnected") })
	client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic_prefix", client.Topics().Prefix(),
	)
	return client, nil
}

// parityRunner resolves both parity targets up front and returns a
// function that runs the configured battery and fans the report out.
func parityRunner(cfg *config.Config, reg *governance.Registry, log *logging.Logger, events *mqtt.Events, influx *influxdb.Client) (api.ParityFunc, error) {
	catalog := adapters.Catalog()
	ref, err := parity.TargetFromURI(catalog, cfg.Parity.ReferenceURL)
	if err != nil {
		return nil, fmt.Errorf("parity reference: %w", err)
	}
	cand, err := parity.TargetFromURI(catalog, cfg.Parity.CandidateURL)
	if err != nil {
		return nil, fmt.Errorf("parity candidate: %w", err)
	}

	opts := []parity.Option{
		parity.WithLogger(log.Component("parity")),
		parity.WithScenarioTimeout(cfg.GetScenarioTimeout()),
	}
	if events != nil {
		opts = append(opts, parity.WithNotifier(events))
	}
	h := parity.New(ref, cand, reg, opts...)
	battery := parity.DefaultBattery().Only(cfg.Parity.Scenarios...)
	return newParityFunc(h, battery, reg, log, events, influx), nil
}

// newParityFunc runs battery on h. Records proposed during the run are
// saved to the registry file even when the run stops early.
func newParityFunc(h *parity.Harness, battery parity.Battery, reg *governance.Registry, log *logging.Logger, events *mqtt.Events, influx *influxdb.Client) api.ParityFunc {
	return func(ctx context.Context) (*parity.Report, error) {
		before := reg.Len()
		rep, runErr := h.Run(ctx, battery)
		if runErr != nil {
			runErr = fmt.Errorf("parity run: %w", runErr)
		}

		if added := reg.Len() - before; added > 0 && reg.Path() != "" {
			if err := reg.Save(); err != nil {
				return rep, errors.Join(runErr, fmt.Errorf("saving deviation registry: %w", err))
			}
			log.Info("new deviation records saved", "added", added, "path", reg.Path())
		}
		if runErr != nil {
			return rep, runErr
		}

		influx.WriteParityReport(rep)
		if events != nil {
			if err := events.PublishParityReport(ctx, rep); err != nil {
				log.Warn("publishing parity report", "error", err)
			}
		}
		return rep, nil
	}
}

// gateListener fans gate evaluations out to InfluxDB and MQTT.
func gateListener(log *logging.Logger, events *mqtt.Events, influx *influxdb.Client) api.GateListener {
	return func(ctx context.Context, res governance.GateResult) {
		influx.WriteGateResult(res)
		if events != nil {
			if err := events.PublishGateResult(ctx, res); err != nil {
				log.Warn("publishing gate result", "error", err)
			}
		}
	}
}
