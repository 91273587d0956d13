package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/erx-harness/internal/config"
	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/chargeitem"
	"github.com/ehr/erx-harness/internal/domain/communication"
	"github.com/ehr/erx-harness/internal/domain/prescription"
	"github.com/ehr/erx-harness/internal/domain/workflow"
	"github.com/ehr/erx-harness/internal/platform/fakeerx"
	"github.com/ehr/erx-harness/internal/platform/protocol"
	"github.com/ehr/erx-harness/internal/platform/report"
	"github.com/ehr/erx-harness/internal/platform/signer"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "erx-harness",
		Short: "Scenario harness for the e-prescription workflow service",
	}

	rootCmd.AddCommand(smokeCmd())
	rootCmd.AddCommand(backendCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func smokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Drive the full prescription round trip once",
		RunE: func(cmd *cobra.Command, args []string) error {
			embedded, _ := cmd.Flags().GetBool("embedded")
			return runSmoke(embedded)
		},
	}
	cmd.Flags().Bool("embedded", false, "Run against an in-process backend instead of BACKEND_URL")
	return cmd
}

func backendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Serve the in-memory workflow backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			return runBackend(addr)
		},
	}
	cmd.Flags().String("addr", ":9090", "Listen address")
	return cmd
}

func runBackend(addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	srv := &http.Server{
		Addr:    addr,
		Handler: fakeerx.New([]byte(cfg.AuthSigningKey), logger),
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("backend listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runSmoke(embedded bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	base := cfg.BackendURL
	if embedded {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		srv := &http.Server{Handler: fakeerx.New([]byte(cfg.AuthSigningKey), logger)}
		go func() { _ = srv.Serve(ln) }()
		defer srv.Close()
		base = "http://" + ln.Addr().String()
		logger.Info().Str("addr", base).Msg("embedded backend started")
	}

	ctx := context.Background()
	tokens := signer.NewJWSSigner([]byte(cfg.AuthSigningKey), cfg.AuthIssuer)
	client := protocol.NewHTTPClient(base, tokens, logger)

	var sink report.Sink = report.NewLogSink(logger)
	if cfg.ResultsDatabaseURL != "" {
		pgSink, err := report.NewPGSink(ctx, cfg.ResultsDatabaseURL)
		if err != nil {
			return fmt.Errorf("open results sink: %w", err)
		}
		defer func() { _ = pgSink.Close(ctx) }()
		sink = pgSink
	}

	svc := workflow.NewService(workflow.Deps{
		Client:   client,
		Signer:   tokens,
		Sink:     sink,
		Log:      logger,
		Scenario: "smoke",
	})
	tracker := communication.NewTracker(client, cfg.PollInterval(), cfg.PollTimeout(), logger)

	reg := actor.NewRegistry()
	doctor := reg.ActorNamed("Dr. Schraßer")
	doctor.Grant(prescription.NewIssued())
	patient := reg.ActorNamed("Sina Hüllmann")
	patient.Grant(prescription.NewPocket())
	patient.Grant(prescription.NewReceivedDrugs())
	patient.Grant(communication.NewExchange())
	patient.Grant(chargeitem.NewBilling())
	pharmacy := reg.ActorNamed("Stadtapotheke")
	pharmacy.Grant(prescription.NewDispensing())
	pharmacy.Grant(communication.NewExchange())
	pharmacy.Grant(chargeitem.NewAccount())

	issued, err := svc.Issue(ctx, workflow.IssueConfig{
		Prescriber:   doctor,
		Patient:      patient,
		WorkflowType: erxmodels.WorkflowPharmacyOnly,
		Medication:   erxmodels.Medication{PZN: "04773414", Name: "Ibuprofen 600mg", Form: "FTA", Quantity: 20},
	})
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}

	if _, err := svc.Download(ctx, workflow.DownloadConfig{
		Patient:    patient,
		Prescriber: doctor,
		Strategy:   actor.Latest,
	}); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if _, err := svc.SendMessage(ctx, workflow.CommunicateConfig{
		Sender:     patient,
		SenderRole: prescription.Patient,
		Recipient:  pharmacy,
		Profile:    erxmodels.CommDispReq,
		Strategy:   actor.Latest,
		Payload:    "Please dispense when ready.",
	}); err != nil {
		return fmt.Errorf("send dispense request: %w", err)
	}

	match, ok, err := tracker.WaitFor(ctx, pharmacy, protocol.Identity{Name: pharmacy.Name, Role: "pharmacy"}, communication.Expectation{
		Profile: erxmodels.CommDispReq,
		Sender:  patient.Name,
		TaskID:  issued.TaskID,
	})
	if err != nil {
		return fmt.Errorf("wait for dispense request: %w", err)
	}
	if !ok {
		return fmt.Errorf("dispense request did not arrive within %s", cfg.PollTimeout())
	}
	logger.Info().Str("task_id", match.Message.TaskID).Msg("dispense request received")

	if _, err := svc.Accept(ctx, workflow.AcceptConfig{
		Pharmacy: pharmacy,
		From:     patient,
		Strategy: actor.Latest,
	}); err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	if _, err := svc.Dispense(ctx, workflow.DispenseConfig{
		Pharmacy: pharmacy,
		Strategy: actor.Latest,
		Patient:  patient,
	}); err != nil {
		return fmt.Errorf("dispense: %w", err)
	}

	if err := svc.GrantConsent(ctx, patient); err != nil {
		return fmt.Errorf("grant consent: %w", err)
	}
	if _, err := svc.PostChargeItem(ctx, workflow.ChargeItemPostConfig{
		Pharmacy: pharmacy,
		Patient:  patient,
		Strategy: actor.Latest,
		Invoice:  "12.80 EUR",
	}); err != nil {
		return fmt.Errorf("post charge item: %w", err)
	}

	logger.Info().Msg("smoke scenario completed")
	return nil
}
