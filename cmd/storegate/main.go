package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storegate/storegate-go/internal/config"
	"github.com/storegate/storegate-go/internal/server"
)

var (
	port          int
	host          string
	logLevel      string
	configFile    string
	pidFile       string
	signingSecret string
	geoEndpoint   string
	geoDatabase   string
	datadir       string
	corsOrigins   []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "storegate",
		Short: "storegate - storefront access gating service",
		Long:  `storegate decides ALLOW, BLOCK or REQUIRE-VERIFICATION for storefront visitors using their network address, geolocation and per-shop rules.`,
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the storegate server",
		Run:   runStart,
	}

	startCmd.Flags().IntVar(&port, "port", 3550, "Port to run the server on")
	startCmd.Flags().StringVar(&host, "host", "localhost", "Host to bind to")
	startCmd.Flags().StringVar(&logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	startCmd.Flags().StringVar(&configFile, "configfile", "", "Configuration file to load")
	startCmd.Flags().StringVar(&pidFile, "pidfile", "storegate.pid", "PID file location")
	startCmd.Flags().StringVar(&signingSecret, "secret", "", "Bypass token signing secret (or BYPASS_TOKEN_SECRET)")
	startCmd.Flags().StringVar(&geoEndpoint, "geo-endpoint", "", "Geolocation endpoint base URL")
	startCmd.Flags().StringVar(&geoDatabase, "geo-database", "", "Local MMDB country database (overrides the endpoint)")
	startCmd.Flags().StringVar(&datadir, "datadir", "", "Directory to persist rules to (empty = in-memory)")
	startCmd.Flags().StringSliceVar(&corsOrigins, "origin", []string{}, "Allowed CORS origins (default all)")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the storegate server",
		Run:   runStop,
	}
	stopCmd.Flags().StringVar(&pidFile, "pidfile", "storegate.pid", "PID file location")

	rootCmd.AddCommand(startCmd, stopCmd)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "start")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStart(cmd *cobra.Command, args []string) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags override the config file.
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if cmd.Flags().Changed("loglevel") {
		cfg.LogLevel = logLevel
	}
	if signingSecret != "" {
		cfg.SigningSecret = signingSecret
	}
	if cfg.SigningSecret == "" {
		cfg.SigningSecret = os.Getenv("BYPASS_TOKEN_SECRET")
	}
	if geoEndpoint != "" {
		cfg.GeoEndpoint = geoEndpoint
	}
	if geoDatabase != "" {
		cfg.GeoDatabase = geoDatabase
	}
	if datadir != "" {
		cfg.Datadir = datadir
	}
	if len(corsOrigins) > 0 {
		cfg.CORSOrigins = corsOrigins
	}

	srv, err := server.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing PID file: %v\n", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		if err := srv.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping server: %v\n", err)
		}

		os.Remove(pidFile)
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
		os.Remove(pidFile)
		os.Exit(1)
	}
}

func runStop(cmd *cobra.Command, args []string) {
	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading PID file: %v\n", err)
		os.Exit(1)
	}

	var pid int
	fmt.Sscanf(string(pidData), "%d", &pid)

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding process: %v\n", err)
		os.Exit(1)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping process: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Server stopped")
}
