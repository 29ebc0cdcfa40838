package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"chat-client/internal/api"
	"chat-client/internal/attachment"
	"chat-client/internal/config"
	"chat-client/internal/db"
	"chat-client/internal/directory"
	"chat-client/internal/logging"
	"chat-client/internal/observability"
	"chat-client/internal/rabbitmq"
	"chat-client/internal/recent"
	"chat-client/internal/repositories"
	"chat-client/internal/session"
	"chat-client/internal/telemetry"
	"chat-client/internal/thread"
	"chat-client/internal/ui"
)

const serviceName = "chat-client"

func main() {
	profile := flag.String("profile", "default", "profile name, selects the storage directory")
	token := flag.String("token", "", "auth token, stored for later runs")
	envFile := flag.String("env", ".env", "dotenv file to load")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}
	cfg := config.Load(*profile)
	if *token != "" {
		cfg.Token = *token
	}

	logFile, err := logging.OpenFile(cfg.ProfileDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, logFile)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("client exited with error")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	database, err := db.Connect(cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer database.Close()
	storage := repositories.NewLocalStorageRepo(database)

	sess, err := resolveSession(ctx, cfg, storage)
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.APIURL, sess, nil, cfg.HTTPTimeout)
	if sess.Valid() && sess.Username == "" {
		profile, err := client.GetProfile(ctx)
		if err != nil {
			log.WithError(err).Warn("profile lookup failed")
		} else {
			sess = sess.WithIdentity(0, profile.DisplayName)
		}
	}
	identity := session.NewIdentity(sess.UserID, sess.Username)
	log.WithFields(logrus.Fields{"api_url": cfg.APIURL, "user_id": sess.UserID, "authenticated": sess.Valid()}).Info("session ready")

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	mode, reason := rabbitmq.Mode(publisher)
	log.WithFields(logrus.Fields{"mode": mode, "reason": reason}).Info("activity publisher ready")
	emitter := telemetry.NewActivityEmitter(publisher, cfg.AMQPExchange, serviceName, log)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: observability.NewDiagnosticsRouter(serviceName)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("diagnostics server error")
			}
		}()
		defer srv.Close()
	}

	searches, err := recent.Load(ctx, storage)
	if err != nil {
		return fmt.Errorf("failed to load recent searches: %w", err)
	}

	dir := directory.New(client, searches, emitter, identity, log)
	view := thread.NewView(client, newUploader(cfg, log), attachment.NewPipeline(cfg.MaxAttachBytes), emitter, identity, log)
	app := ui.New(ctx, dir, view, log, ui.Options{
		SearchDebounce: cfg.SearchDebounce,
		Identity:       identity,
	})

	_, err = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// resolveSession prefers an explicit token and persists it; otherwise the
// stored token is used.
func resolveSession(ctx context.Context, cfg config.Config, storage repositories.LocalStorage) (session.Session, error) {
	if cfg.Token != "" {
		sess := session.FromToken(cfg.Token, cfg.AuthScheme).WithIdentity(cfg.UserID, cfg.Username)
		if err := session.Save(ctx, storage, sess); err != nil {
			return session.Session{}, fmt.Errorf("failed to store token: %w", err)
		}
		return sess, nil
	}

	sess, err := session.Load(ctx, storage, cfg.AuthScheme)
	if err != nil {
		return session.Session{}, err
	}
	return sess.WithIdentity(cfg.UserID, cfg.Username), nil
}

func newUploader(cfg config.Config, log logrus.FieldLogger) attachment.Uploader {
	if cfg.UploadURL == "" {
		log.Info("no upload storage configured, images use a placeholder url")
		return attachment.StubUploader{}
	}
	return attachment.NewStorageUploader(cfg.UploadURL, cfg.UploadKey, cfg.UploadBucket, &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: observability.NewInstrumentedTransport(nil),
	})
}
