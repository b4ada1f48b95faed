package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/application"
	"github.com/mollysec/molly/internal/application/usecase"
	"github.com/mollysec/molly/internal/domain/entity"
	"github.com/mollysec/molly/internal/infrastructure/config"
	"github.com/mollysec/molly/internal/infrastructure/logger"
)

const (
	cliName    = "molly"
	cliVersion = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   cliName,
		Short: "Molly — asistente de auditoría de seguridad",
		Long:  "Molly CLI — ejecuta escaneos de red asistidos por IA y consulta los resultados almacenados",
	}

	// --- Subcommands ---

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Inicia el servidor API de Molly",
		RunE:  runServe,
	})

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Ejecuta el pipeline de escaneo completo para un objetivo",
		Long:  "Escanea el objetivo con nmap, busca CVEs, analiza banners con la IA y muestra el resumen",
		RunE:  runScan,
	}
	scanCmd.Flags().StringP("target", "t", "", "IP o rango a escanear (obligatorio)")
	scanCmd.Flags().StringP("session", "s", "", "nombre de la sesión (por defecto se genera)")
	scanCmd.Flags().StringP("profile", "p", "", "perfil de escaneo (por defecto el configurado)")
	_ = scanCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(scanCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "scans",
		Short: "Lista los escaneos almacenados",
		RunE:  runScans,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Muestra la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", cliName, cliVersion)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── Server Mode ───

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	log.Info("Starting Molly API server", zap.String("version", cliVersion))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := application.NewApp(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if err := app.Start(ctx); err != nil {
		log.Fatal("Failed to start application", zap.Error(err))
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		os.Exit(1)
	}

	return nil
}

// ─── One-Shot Scan ───

func runScan(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("target")
	session, _ := cmd.Flags().GetString("session")
	profile, _ := cmd.Flags().GetString("profile")

	app, cfg, err := newCLIApp()
	if err != nil {
		return err
	}

	if session == "" {
		session = usecase.SynthesizeSessionName(target, time.Now())
	}
	if profile == "" {
		profile = cfg.Scanner.DefaultProfile
	}

	// Ctrl-C aborts the running nmap process through the context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	color.New(color.FgCyan, color.Bold).Printf("Escaneando %s (sesión %s)...\n\n", target, session)

	conv, release := app.Chats().Acquire("cli")
	defer release()

	outcome, err := app.ScanUseCase().Execute(ctx, conv, target, session, profile)
	if err != nil {
		return err
	}

	fmt.Println(renderMarkdown(outcome.Response))

	if outcome.Failed {
		return fmt.Errorf("el escaneo de %s falló", target)
	}

	pdfPath, err := app.ReportUseCase().GenerateNetworkSummary(ctx, outcome.ScanID)
	if err != nil {
		color.Yellow("\nNo se pudo generar el informe PDF: %v", err)
	} else {
		fmt.Printf("\nInforme PDF: %s\n", pdfPath)
	}

	stopCLIApp(app)
	return nil
}

// ─── Stored Scan Listing ───

func runScans(cmd *cobra.Command, args []string) error {
	app, _, err := newCLIApp()
	if err != nil {
		return err
	}

	scans, err := app.Scans().FindAll(context.Background())
	if err != nil {
		return fmt.Errorf("listing scans: %w", err)
	}
	if len(scans) == 0 {
		fmt.Println("No hay escaneos almacenados.")
		stopCLIApp(app)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Sesión", "Objetivo", "Estado", "Inicio", "Informe"})
	for _, s := range scans {
		table.Append([]string{
			fmt.Sprintf("%d", s.ID()),
			s.SessionName(),
			s.Target(),
			colorStatus(s.Status()),
			s.StartTime().Format("2006-01-02 15:04"),
			s.ResultsPath(),
		})
	}
	table.Render()

	stopCLIApp(app)
	return nil
}

// ─── Helpers ───

// newCLIApp builds the lightweight app with a quiet logger: CLI output
// goes to stdout, so logs are errors-only on stderr.
func newCLIApp() (*application.App, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:      "error",
		Format:     "console",
		OutputPath: "stderr",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger init: %w", err)
	}

	app, err := application.NewAppCLI(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("inicialización fallida: %w", err)
	}
	return app, cfg, nil
}

func stopCLIApp(app *application.App) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.Stop(shutdownCtx)
}

// renderMarkdown renders the model's summary for the terminal, falling
// back to the raw text when styling fails.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(96),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

func colorStatus(status entity.ScanStatus) string {
	switch status {
	case entity.ScanStatusCompleted:
		return color.GreenString(string(status))
	case entity.ScanStatusFailed:
		return color.RedString(string(status))
	default:
		return color.YellowString(string(status))
	}
}
