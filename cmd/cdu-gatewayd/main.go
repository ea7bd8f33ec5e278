// Command cdu-gatewayd is the CDU management gateway: it binds the HID
// boards, runs the two acquisition pipelines, serves the Redfish and
// Modbus TCP surfaces, and blocks until SIGINT/SIGTERM, running this
// gateway's several concurrent listeners from one process
// (design/045_CDU_Gateway_Concurrency_Model.md §5).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dexatek/cdu-gateway/internal/acquisition"
	"github.com/dexatek/cdu-gateway/internal/api"
	"github.com/dexatek/cdu-gateway/internal/auth"
	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/controllogic"
	"github.com/dexatek/cdu-gateway/internal/database"
	"github.com/dexatek/cdu-gateway/internal/gwlog"
	"github.com/dexatek/cdu-gateway/internal/hid"
	"github.com/dexatek/cdu-gateway/internal/httpfront"
	"github.com/dexatek/cdu-gateway/internal/lifecycle"
	"github.com/dexatek/cdu-gateway/internal/modbustcp"
	"github.com/dexatek/cdu-gateway/internal/netcfg"
	"github.com/dexatek/cdu-gateway/internal/regmap"
	"github.com/dexatek/cdu-gateway/internal/sensorconfig"
	"github.com/dexatek/cdu-gateway/internal/telemetry"
)

// config is every flag/env-configurable path and port design/046_CDU_Gateway_External_Interfaces.md §6
// names, resolved once at startup.
type config struct {
	dbPath             string
	modbusDevicesPath  string
	temperaturePath    string
	aiCurrentPath      string
	aiVoltagePath      string
	aoCurrentPath      string
	aoVoltagePath      string
	systemPath         string
	firmwarePath       string
	regmapSnapshotPath string

	httpPort      int
	httpsPort     int
	modbusTCPPort int
	metricsPort   int

	updateDelayMS int
	logLevel      string

	hidVendorID int
}

// envOr returns the flag value if it differs from def, otherwise falls
// back to the named environment variable, otherwise def: flags take
// precedence, environment variables set the default.
func envOr(flagVal, def, envName string) string {
	if flagVal != def {
		return flagVal
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return def
}

func parseConfig() config {
	var (
		dbPath             = flag.String("db", "/usrdata/redfish_accounts.db", "accounts/sessions/certs database path")
		modbusDevicesPath  = flag.String("modbus-devices-config", "/usrdata/modbus_devices_config", "modbus device list path")
		temperaturePath    = flag.String("temperature-config", "/usrdata/temperature_configs", "temperature sensor table path")
		aiCurrentPath      = flag.String("ai-current-config", "/usrdata/analog_input_current_configs", "AI current table path")
		aiVoltagePath      = flag.String("ai-voltage-config", "/usrdata/analog_input_voltage_configs", "AI voltage table path")
		aoCurrentPath      = flag.String("ao-current-config", "/usrdata/analog_output_current_configs", "AO current table path")
		aoVoltagePath      = flag.String("ao-voltage-config", "/usrdata/analog_output_voltage_configs", "AO voltage table path")
		systemPath         = flag.String("system-config", "/usrdata/system_configs", "system config object path")
		firmwarePath       = flag.String("firmware-path", "/usrdata/firmware.bin", "firmware upload staging path")
		regmapSnapshotPath = flag.String("register-map-snapshot", "/usrdata/register_map.bin", "register map disk snapshot path")

		httpPort      = flag.Int("http-port", 80, "HTTP listener port")
		httpsPort     = flag.Int("https-port", 443, "HTTPS listener port")
		modbusTCPPort = flag.Int("modbus-tcp-port", 502, "Modbus TCP listener port")
		metricsPort   = flag.Int("metrics-port", 0, "metrics listener port (0 disables)")

		updateDelayMS = flag.Int("update-delay-ms", 1000, "acquisition pipeline interval in milliseconds")
		logLevel      = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		hidVendorID   = flag.Int("hid-vendor-id", 0x0483, "USB vendor ID the HID boards enumerate under")
	)
	flag.Parse()

	if v := os.Getenv("CDU_METRICS_PORT"); v != "" && *metricsPort == 0 {
		if n, err := strconv.Atoi(v); err == nil {
			*metricsPort = n
		}
	}

	return config{
		dbPath:             envOr(*dbPath, "/usrdata/redfish_accounts.db", "CDU_ACCOUNTS_DB"),
		modbusDevicesPath:  envOr(*modbusDevicesPath, "/usrdata/modbus_devices_config", "CDU_MODBUS_DEVICES_CONFIG"),
		temperaturePath:    envOr(*temperaturePath, "/usrdata/temperature_configs", "CDU_TEMPERATURE_CONFIG"),
		aiCurrentPath:      envOr(*aiCurrentPath, "/usrdata/analog_input_current_configs", "CDU_AI_CURRENT_CONFIG"),
		aiVoltagePath:      envOr(*aiVoltagePath, "/usrdata/analog_input_voltage_configs", "CDU_AI_VOLTAGE_CONFIG"),
		aoCurrentPath:      envOr(*aoCurrentPath, "/usrdata/analog_output_current_configs", "CDU_AO_CURRENT_CONFIG"),
		aoVoltagePath:      envOr(*aoVoltagePath, "/usrdata/analog_output_voltage_configs", "CDU_AO_VOLTAGE_CONFIG"),
		systemPath:         envOr(*systemPath, "/usrdata/system_configs", "CDU_SYSTEM_CONFIG"),
		firmwarePath:       envOr(*firmwarePath, "/usrdata/firmware.bin", "CDU_FIRMWARE_PATH"),
		regmapSnapshotPath: envOr(*regmapSnapshotPath, "/usrdata/register_map.bin", "CDU_REGMAP_SNAPSHOT"),
		httpPort:           *httpPort,
		httpsPort:          *httpsPort,
		modbusTCPPort:      *modbusTCPPort,
		metricsPort:        *metricsPort,
		updateDelayMS:      *updateDelayMS,
		logLevel:           *logLevel,
		hidVendorID:        *hidVendorID,
	}
}

func main() {
	cfg := parseConfig()

	logger := gwlog.New(cfg.logLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway exited cleanly")
}

// run wires every component and blocks until ctx is cancelled, driving a
// signal-triggered shutdown across several listeners and background
// workers (design/045_CDU_Gateway_Concurrency_Model.md §5).
func run(ctx context.Context, cfg config) error {
	regs := regmap.New(regmap.HIDBase, regmap.MapCount)
	if err := regs.LoadFromDisk(cfg.regmapSnapshotPath); err != nil {
		slog.Warn("register map snapshot load failed, starting from zero", "error", err)
	}

	transport, err := hid.Open(hidBindings(cfg.hidVendorID))
	if err != nil {
		return fmt.Errorf("opening HID transport: %w", err)
	}

	cmd := boards.New(transport, hid.DefaultTimeout)

	metrics := telemetry.New()
	cmd.SetObserver(func(port int, ok bool, d time.Duration) {
		metrics.ObserveHIDRequest(strconv.Itoa(port), ok, d)
	})

	ports := portKinds(transport)

	cfgStore, err := sensorconfig.Load(sensorconfig.Paths{
		Temperature:   cfg.temperaturePath,
		AICurrent:     cfg.aiCurrentPath,
		AIVoltage:     cfg.aiVoltagePath,
		AOCurrent:     cfg.aoCurrentPath,
		AOVoltage:     cfg.aoVoltagePath,
		ModbusDevices: cfg.modbusDevicesPath,
		System:        cfg.systemPath,
	})
	if err != nil {
		return fmt.Errorf("loading sensor config: %w", err)
	}

	logics, err := buildControlLogicRegistry(regs, cmd)
	if err != nil {
		return fmt.Errorf("building control-logic registry: %w", err)
	}

	engine := acquisition.New(transport, cmd, regs, cfgStore, time.Duration(cfg.updateDelayMS)*time.Millisecond)
	engine.SetCycleObserver(metrics.ObserveAcquisitionCycle)

	db, err := database.New(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	authn := auth.New(db)

	life := lifecycle.New(platformReset, netcfg.LoggingApplier{}, firmwareUpdateTrigger(cfg.firmwarePath), 3*time.Second)

	handler := api.NewHandler(db, authn, regs, cmd, ports, cfgStore, logics, life, metrics, cfg.firmwarePath)
	router := api.NewRouter(handler)

	front := httpfront.New(db, router,
		fmt.Sprintf(":%d", cfg.httpPort), fmt.Sprintf(":%d", cfg.httpsPort),
		httpfront.StaticCertPaths{CertFile: "/usrdata/tls/server.crt", KeyFile: "/usrdata/tls/server.key"})

	modbusSrv, err := modbustcp.New(modbustcp.Config{
		ListenURL: fmt.Sprintf("tcp://0.0.0.0:%d", cfg.modbusTCPPort),
		Timeout:   30 * time.Second,
		MaxClients: 8,
	}, regs, modbustcp.NewWriteCallback(regs, cfgStore, cmd, modbustcp.SystemClock{}, cfg.regmapSnapshotPath))
	if err != nil {
		return fmt.Errorf("building modbus tcp server: %w", err)
	}

	var errs = make(chan error, 8)

	go engine.RunAIOPipeline(ctx)
	go engine.RunRTDPipeline(ctx)
	go front.Run(ctx, errs)
	go func() {
		if err := modbusSrv.Start(); err != nil {
			errs <- fmt.Errorf("modbus tcp server: %w", err)
		}
	}()

	if cfg.metricsPort != 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.metricsPort)
			slog.Info("metrics listener starting", "addr", addr)
			if err := serveMetrics(ctx, addr, metrics); err != nil {
				errs <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errs:
		slog.Error("listener failed, shutting down", "error", err)
	}

	_ = modbusSrv.Stop()
	front.Shutdown()

	if err := regs.SaveToDisk(cfg.regmapSnapshotPath); err != nil {
		slog.Error("failed to persist register map snapshot", "error", err)
	}

	return nil
}

// hidBindings describes the fixed port layout this gateway expects: up to
// regmap.MaxHIDPorts boards, all sharing one vendor ID, distinguished by
// product ID at bind time (design/032_CDU_Gateway_HID_Transport.md §4.A: "bind up to MAX_HID_PORTS (4) in
// port-index order").
func hidBindings(vendorID int) []hid.PortBinding {
	bindings := make([]hid.PortBinding, 0, regmap.MaxHIDPorts)
	for port := 0; port < regmap.MaxHIDPorts; port++ {
		bindings = append(bindings, hid.PortBinding{
			Port:     port,
			VendorID: uint16(vendorID),
			// ProductID 0 lets hid.Open bind the first matching-vendor
			// device at this port; board class is resolved afterward via
			// PortPID/KindFromPID, not at bind time.
			ProductID: 0,
		})
	}
	return bindings
}

// portKinds classifies every bound port by its USB product ID, the map
// internal/api's IOBoards collection iterates.
func portKinds(transport hid.Transport) map[int]boards.Kind {
	out := make(map[int]boards.Kind)
	for _, port := range transport.Ports() {
		pid, err := transport.PortPID(port)
		if err != nil {
			continue
		}
		out[port] = boards.KindFromPID(pid)
	}
	return out
}

// buildControlLogicRegistry wires the three concrete control-logic
// instances design/038_CDU_Gateway_Control_Logic.md §4.O supplements from original_source, each
// backed by its own JSON state file under /usrdata.
func buildControlLogicRegistry(regs *regmap.Map, cmd *boards.Commander) (*controllogic.Registry, error) {
	pump, err := controllogic.NewPumpSpeedControl(regs, cmd, "/usrdata/control_logic_pump_speed.json")
	if err != nil {
		return nil, fmt.Errorf("pump speed control: %w", err)
	}
	leak, err := controllogic.NewLeakInterlock(regs, cmd, "/usrdata/control_logic_leak_interlock.json")
	if err != nil {
		return nil, fmt.Errorf("leak interlock: %w", err)
	}
	flow, err := controllogic.NewFlowAlarm(regs, "/usrdata/control_logic_flow_alarm.json")
	if err != nil {
		return nil, fmt.Errorf("flow alarm: %w", err)
	}
	return controllogic.NewRegistry(pump, leak, flow), nil
}

// platformReset is the ForceRestart post-action's reset primitive. This
// gateway's deployment target is an embedded Linux host that expects the
// platform init system to restart the process after it exits, so this
// exits the process rather than attempting an in-process re-exec.
func platformReset() {
	slog.Warn("platform reset requested, exiting for supervisor restart")
	os.Exit(0)
}

// serveMetrics runs the optional metrics listener (design/044_CDU_Gateway_Telemetry.md §4.N:
// "separate listener on a config-only port, default disabled") until ctx
// is cancelled.
func serveMetrics(ctx context.Context, addr string, metrics *telemetry.Metrics) error {
	srv := &http.Server{Addr: addr, Handler: metrics.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// firmwareUpdateTrigger returns the system_firmware_update() primitive
// design/040_CDU_Gateway_Redfish_API.md §4.K/§4.M name as an external collaborator: it hands the staged
// firmware image at path to the platform updater and exits, letting the
// supervisor bring the gateway back up on the new image.
func firmwareUpdateTrigger(path string) func() {
	return func() {
		slog.Warn("firmware update requested, exiting for supervisor-driven apply", "path", path)
		os.Exit(0)
	}
}
