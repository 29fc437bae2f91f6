package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"

	"bemisreg-backend/lib/scrapers/bemis"
	"bemisreg-backend/lib/serviceutil"
	"bemisreg-backend/lib/telemetry"
	"bemisreg-backend/services/extraction"
	"bemisreg-backend/services/keychain"
	"bemisreg-backend/services/keychain/db"
	"bemisreg-backend/services/registration"
)

func main() {
	cfg := flag.String("config", "config.json5", "specify the path to a config file")
	flag.Parse()

	slog.Info("loading config...")
	config := MustLoadConfig(*cfg)

	ctx := serviceutil.SignalContext()

	slog.Info("setting up telemetry...")
	t, err := telemetry.Setup(ctx, "bemisd", config.Telemetry)
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer func() {
		err := t.Shutdown(context.Background())
		if err != nil {
			slog.Error("failed to shutdown telemetry", "err", err.Error())
		}
	}()
	telemetry.InstrumentPerfStats(ctx)

	slog.Info("setting up database...")
	database, err := OpenDB(config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	_, err = database.ExecContext(ctx, db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to run db schema", err)
	}

	slog.Info("wiring services...")
	keys := keychain.NewService(database)

	portal, err := bemis.NewClient(ctx, bemis.ClientOptions{
		BaseUrl:  config.BaseUrl,
		Sessions: keys,
	})
	if err != nil {
		serviceutil.Fatal("failed to create portal client", err)
	}

	extractor := extraction.NewService(ctx, keys, config.Extraction)

	mux := http.NewServeMux()
	registration.Service{
		Bemis:      portal,
		Keychain:   keys,
		Extraction: extractor,
	}.RegisterRoutes(mux)
	mux.Handle("/", http.FileServer(http.Dir(config.StaticDir)))

	serviceutil.StartHttpServer(config.HttpPort, mux)
}
