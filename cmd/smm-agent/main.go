package main

import (
	"context"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sparlane/smm-asset-api/pkg/client"
	"github.com/sparlane/smm-asset-api/pkg/models"
)

// Agent acts as one asset against an SMM server: it reports position on
// an interval, follows the commands that come back, and optionally
// works searches end to end.
type Agent struct {
	runID  uuid.UUID
	config *AgentConfig
	logger *zap.Logger
	conn   *client.Connection
	asset  *client.Asset

	// Simulated position state, stepped between reports.
	lat     float64
	lon     float64
	alt     uint32
	bearing uint16

	// Target the agent is steering for, when it has one.
	hasTarget bool
	targetLat float64
	targetLon float64

	// Search being worked, when auto-search is on.
	search    *client.Search
	waypoints []models.Waypoint
	nextWP    int

	stopCh chan struct{}
}

// AgentConfig contains agent configuration
type AgentConfig struct {
	ServerURL string `mapstructure:"server_url"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Asset     string `mapstructure:"asset"`

	ReportInterval time.Duration `mapstructure:"report_interval"`
	SpeedMPS       float64       `mapstructure:"speed_mps"`
	AutoSearch     bool          `mapstructure:"auto_search"`

	InsecureTLS   bool   `mapstructure:"insecure_tls"`
	MetricsListen string `mapstructure:"metrics_listen"`

	Start struct {
		Latitude  float64 `mapstructure:"latitude"`
		Longitude float64 `mapstructure:"longitude"`
		Altitude  uint32  `mapstructure:"altitude"`
	} `mapstructure:"start"`
}

func main() {
	logger := initLogger()
	defer logger.Sync()

	config, err := loadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	agent, err := NewAgent(config, logger)
	if err != nil {
		logger.Fatal("Failed to create agent", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := agent.Start(ctx); err != nil {
		logger.Fatal("Failed to start agent", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down agent...")
	agent.Stop()
}

// NewAgent connects to the server and resolves the configured asset.
func NewAgent(config *AgentConfig, logger *zap.Logger) (*Agent, error) {
	runID := uuid.New()

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithTimeout(30 * time.Second),
	}
	if config.InsecureTLS {
		logger.Warn("TLS certificate verification disabled")
		opts = append(opts, client.WithInsecureTLS())
	}
	registry := prometheus.NewRegistry()
	if config.MetricsListen != "" {
		opts = append(opts, client.WithMetrics(registry))
	}

	conn := client.Connect(config.ServerURL, config.Username, config.Password, opts...)
	if state := conn.State(); state != models.StateConnected {
		conn.Close()
		return nil, &connectionError{state: state}
	}

	assets, err := conn.Assets()
	if err != nil {
		conn.Close()
		return nil, err
	}
	var asset *client.Asset
	for _, a := range assets {
		if config.Asset == "" || a.Name() == config.Asset {
			asset = a
			break
		}
	}
	if asset == nil {
		conn.Close()
		return nil, &assetError{name: config.Asset}
	}

	agent := &Agent{
		runID:  runID,
		config: config,
		logger: logger,
		conn:   conn,
		asset:  asset,
		lat:    config.Start.Latitude,
		lon:    config.Start.Longitude,
		alt:    config.Start.Altitude,
		stopCh: make(chan struct{}),
	}

	if config.MetricsListen != "" {
		go agent.serveMetrics(registry)
	}

	return agent, nil
}

// Start begins the reporting loop.
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting SMM asset agent",
		zap.String("run_id", a.runID.String()),
		zap.String("server", a.conn.Host()),
		zap.String("asset", a.asset.Name()),
		zap.String("asset_type", a.asset.TypeName()),
	)

	go a.reportLoop(ctx)
	return nil
}

// Stop stops the agent and closes the connection.
func (a *Agent) Stop() {
	close(a.stopCh)
	a.conn.Close()
}

// reportLoop reports position on the configured interval and reacts to
// the command that comes back from each report.
func (a *Agent) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(a.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.step()
			a.report()
		}
	}
}

// report sends the current position and applies the server's response.
func (a *Agent) report() {
	if err := a.asset.ReportPosition(a.lat, a.lon, a.alt, a.bearing, 3); err != nil {
		a.logger.Warn("Position report failed", zap.Error(err))
		return
	}

	switch a.asset.LastCommand() {
	case models.CommandGoto:
		if lat, lon, ok := a.asset.LastGotoPosition(); ok {
			a.setTarget(lat, lon)
			a.logger.Info("Commanded to position",
				zap.Float64("lat", lat), zap.Float64("lon", lon))
		}
	case models.CommandRTL:
		a.setTarget(a.config.Start.Latitude, a.config.Start.Longitude)
		a.logger.Info("Returning to launch")
	case models.CommandCircle:
		a.hasTarget = false
		a.logger.Info("Holding position")
	case models.CommandAbandonSearch:
		if a.search != nil {
			a.logger.Info("Abandoning search")
			a.dropSearch()
		}
	case models.CommandMissionComplete:
		a.logger.Info("Mission complete, returning to launch")
		a.dropSearch()
		a.setTarget(a.config.Start.Latitude, a.config.Start.Longitude)
	case models.CommandContinue, models.CommandNone:
		if a.config.AutoSearch {
			a.workSearch()
		}
	case models.CommandUnknown:
		a.logger.Warn("Server sent an unrecognised command")
	}
}

// workSearch advances the current search, or finds a new one when idle.
func (a *Agent) workSearch() {
	if a.search == nil {
		search, err := a.asset.Search(a.lat, a.lon)
		if err != nil || search == nil {
			return
		}
		waypoints, err := search.Waypoints()
		if err != nil || len(waypoints) == 0 {
			return
		}
		if err := search.Accept(); err != nil {
			a.logger.Warn("Search refused", zap.Error(err))
			return
		}
		a.search = search
		a.waypoints = waypoints
		a.nextWP = 0
		a.logger.Info("Accepted search",
			zap.String("url", search.URL()),
			zap.Int64("length_m", search.Length()),
			zap.Int64("sweep_width_m", search.SweepWidth()),
			zap.Int("waypoints", len(waypoints)))
	}

	if a.hasTarget {
		return
	}
	if a.nextWP >= len(a.waypoints) {
		if err := a.search.Complete(); err != nil {
			a.logger.Warn("Failed to complete search", zap.Error(err))
		} else {
			a.logger.Info("Search complete")
		}
		a.dropSearch()
		return
	}
	wp := a.waypoints[a.nextWP]
	a.nextWP++
	a.setTarget(wp.Latitude, wp.Longitude)
}

func (a *Agent) dropSearch() {
	a.search = nil
	a.waypoints = nil
	a.nextWP = 0
	a.hasTarget = false
}

func (a *Agent) setTarget(lat, lon float64) {
	a.targetLat = lat
	a.targetLon = lon
	a.hasTarget = true
}

// step moves the simulated position toward the target at the configured
// speed, one report interval at a time.
func (a *Agent) step() {
	if !a.hasTarget {
		return
	}

	// Equirectangular approximation, good enough over one step.
	const metresPerDegree = 111320.0
	dLat := (a.targetLat - a.lat) * metresPerDegree
	dLon := (a.targetLon - a.lon) * metresPerDegree * math.Cos(a.lat*math.Pi/180)
	dist := math.Hypot(dLat, dLon)

	maxStep := a.config.SpeedMPS * a.config.ReportInterval.Seconds()
	if dist <= maxStep || dist == 0 {
		a.lat = a.targetLat
		a.lon = a.targetLon
		a.hasTarget = false
		return
	}

	a.bearing = uint16(math.Mod(math.Atan2(dLon, dLat)*180/math.Pi+360, 360))
	scale := maxStep / dist
	a.lat += (a.targetLat - a.lat) * scale
	a.lon += (a.targetLon - a.lon) * scale
}

func (a *Agent) serveMetrics(registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	a.logger.Info("Serving metrics", zap.String("listen", a.config.MetricsListen))
	if err := http.ListenAndServe(a.config.MetricsListen, mux); err != nil {
		a.logger.Warn("Metrics listener stopped", zap.Error(err))
	}
}

type connectionError struct {
	state models.ConnectionState
}

func (e *connectionError) Error() string {
	return "connection failed with state " + string(e.state)
}

type assetError struct {
	name string
}

func (e *assetError) Error() string {
	if e.name == "" {
		return "no assets available to this user"
	}
	return "asset not available to this user: " + e.name
}

func initLogger() *zap.Logger {
	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return logger
}

func loadConfig() (*AgentConfig, error) {
	viper.SetConfigName("smm-agent")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/smm-asset/")
	viper.AddConfigPath("$HOME/.smm-asset/")
	viper.AddConfigPath(".")

	viper.SetDefault("server_url", "https://smm.example.com")
	viper.SetDefault("report_interval", "30s")
	viper.SetDefault("speed_mps", 25.0)
	viper.SetDefault("auto_search", false)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SMM_AGENT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config AgentConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
