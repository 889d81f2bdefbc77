package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/config"
	"github.com/bigbag/tmf882x/internal/detect"
	"github.com/bigbag/tmf882x/internal/device"
	"github.com/bigbag/tmf882x/internal/firmware"
	"github.com/bigbag/tmf882x/internal/measurement"
	"github.com/bigbag/tmf882x/internal/protocol"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag  string
	busFlag     string
	addressFlag uint16
	verboseFlag bool

	noFirmwareFlag bool
	countFlag      int
	gridFlag       bool
	secondaryFlag  bool
	orderFlag      string
	layoutFlag     string
	outputFlag     string

	periodFlag     uint16
	iterationsFlag uint16
	thresholdFlag  uint8
	spadMapFlag    uint8
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tmf882x",
		Short: "Control TMF882x time-of-flight sensors over I2C",
		Long: `tmf882x drives ams TMF8820/TMF8821/TMF8828 multi-zone time-of-flight
sensors: power states, firmware download, configuration, measurements
and factory calibration.

Settings are read from tmf882x.yaml when present. Flags override it.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verboseFlag {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&busFlag, "bus", "b", "", "I2C bus (first available if not specified)")
	rootCmd.PersistentFlags().Uint16VarP(&addressFlag, "address", "a", protocol.DefaultAddress, "Device I2C address")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log protocol traces")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tmf882x %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available I2C buses",
		RunE:  runList,
	}

	// Scan command
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the bus for TMF882x devices",
		RunE:  runScan,
	}

	// Info command
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show device info",
		Long:  "Show identity, power mode, calibration state and settings of the device.",
		RunE:  runInfo,
	}

	// Enable command
	enableCmd := &cobra.Command{
		Use:   "enable",
		Short: "Wake the device, loading firmware when it is in the bootloader",
		RunE:  runEnable,
	}
	enableCmd.Flags().BoolVar(&noFirmwareFlag, "no-firmware", false, "Do not upload firmware from the bootloader")

	// Standby command
	standbyCmd := &cobra.Command{
		Use:   "standby",
		Short: "Put the device into standby",
		RunE:  runStandby,
	}

	// Flash command
	flashCmd := &cobra.Command{
		Use:   "flash <firmware.bin>",
		Short: "Upload firmware into the bootloader",
		Long: `Upload a firmware image into device RAM through the bootloader.

The device must be running the bootloader, which is the case after
power-on. The image is lost when the device is powered off.`,
		Args: cobra.ExactArgs(1),
		RunE: runFlash,
	}

	// Measure command
	measureCmd := &cobra.Command{
		Use:   "measure",
		Short: "Run measurements",
		RunE:  runMeasure,
	}
	measureCmd.Flags().IntVarP(&countFlag, "count", "n", 1, "Number of measurements")
	measureCmd.Flags().BoolVarP(&gridFlag, "grid", "g", false, "Print distances as a spatial grid")
	measureCmd.Flags().BoolVar(&secondaryFlag, "secondary", false, "Use secondary echoes")
	measureCmd.Flags().StringVar(&orderFlag, "order", "", "Grid order: row or column")
	measureCmd.Flags().StringVar(&layoutFlag, "layout", "", "Result layout: paired or flat")

	// Calibrate command
	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Run factory calibration",
		Long: `Run factory calibration and store the result.

Calibrate in the dark with no target within 40 cm of the sensor. The
calibration is only valid for the spad map active while it ran.`,
		RunE: runCalibrate,
	}
	calibrateCmd.Flags().StringVarP(&outputFlag, "output", "o", "calibration.bin", "Output file")

	// Write calibration command
	writeCalibrationCmd := &cobra.Command{
		Use:   "write-calibration <calibration.bin>",
		Short: "Load calibration data into the device",
		Args:  cobra.ExactArgs(1),
		RunE:  runWriteCalibration,
	}

	// Config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change device settings",
	}
	configGetCmd := &cobra.Command{
		Use:   "get [field...]",
		Short: "Show device settings",
		Long:  "Show all user settings, or the raw value of the named configuration fields.",
		RunE:  runConfigGet,
	}
	configSetCmd := &cobra.Command{
		Use:   "set",
		Short: "Change device settings",
		RunE:  runConfigSet,
	}
	configSetCmd.Flags().Uint16Var(&periodFlag, "period", 0, "Measurement period in ms")
	configSetCmd.Flags().Uint16Var(&iterationsFlag, "iterations", 0, "Kilo-iterations per measurement")
	configSetCmd.Flags().Uint8Var(&thresholdFlag, "threshold", 0, "Confidence threshold")
	configSetCmd.Flags().Uint8Var(&spadMapFlag, "spad-map", 0, "Spad map id")
	configCmd.AddCommand(configGetCmd, configSetCmd)

	// Set address command
	setAddressCmd := &cobra.Command{
		Use:   "set-address <address>",
		Short: "Move the device to a new I2C address",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetAddress,
	}

	rootCmd.AddCommand(versionCmd, listCmd, scanCmd, infoCmd, enableCmd, standbyCmd, flashCmd,
		measureCmd, calibrateCmd, writeCalibrationCmd, configCmd, setAddressCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("bus") {
		cfg.Bus.Name = busFlag
	}
	if cmd.Flags().Changed("address") {
		cfg.Bus.Address = addressFlag
	}
	if cmd.Flags().Changed("layout") {
		cfg.Output.Layout = layoutFlag
	}
	if cmd.Flags().Changed("order") {
		cfg.Output.Order = orderFlag
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBus opens the configured I2C bus.
func openBus(cfg *config.Config) (*bus.I2C, error) {
	b, err := bus.Open(cfg.Bus.Name, cfg.Bus.Address, cfg.Bus.OpsPerSec)
	if err != nil {
		return nil, fmt.Errorf("failed to open bus: %w", err)
	}
	return b, nil
}

// openDevice opens the bus and builds a device from the configuration.
func openDevice(cmd *cobra.Command, extra ...device.Option) (*device.Device, *bus.I2C, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return nil, nil, nil, err
	}

	b, err := openBus(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []device.Option{
		device.WithTiming(cfg.DeviceTiming()),
		device.WithLayout(layout),
		device.WithLogger(slog.Default()),
	}
	if cfg.GPIO.Enable != "" {
		p := gpioreg.ByName(cfg.GPIO.Enable)
		if p == nil {
			b.Close()
			return nil, nil, nil, fmt.Errorf("gpio: unknown pin %q", cfg.GPIO.Enable)
		}
		opts = append(opts, device.WithEnablePin(p))
	}
	if cfg.GPIO.Interrupt != "" {
		p := gpioreg.ByName(cfg.GPIO.Interrupt)
		if p == nil {
			b.Close()
			return nil, nil, nil, fmt.Errorf("gpio: unknown pin %q", cfg.GPIO.Interrupt)
		}
		opts = append(opts, device.WithInterruptPin(p))
	}
	if cfg.Device.Firmware != "" {
		img, err := firmware.Load(cfg.Device.Firmware)
		if err != nil {
			b.Close()
			return nil, nil, nil, err
		}
		opts = append(opts, device.WithFirmware(img))
	}
	opts = append(opts, extra...)

	d := device.New(b, opts...)
	slog.Debug("device configured", "bus", b.Name(), "address", fmt.Sprintf("0x%02X", b.Address()), "timing", d.Timing())
	return d, b, cfg, nil
}

// uploadProgress renders firmware upload progress. The bar is created on the
// first report, once the chunk count is known.
type uploadProgress struct {
	bar *progressbar.ProgressBar
}

func (u *uploadProgress) update(current, total int) {
	if u.bar == nil {
		u.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	u.bar.Set(current)
}

func (u *uploadProgress) finish() {
	if u.bar != nil {
		u.bar.Finish()
	}
}

func runList(cmd *cobra.Command, args []string) error {
	buses, err := bus.ListBuses()
	if err != nil {
		return err
	}

	if len(buses) == 0 {
		fmt.Println("No I2C buses found")
		return nil
	}

	fmt.Println("Available I2C buses:")
	for _, name := range buses {
		fmt.Printf("  %s\n", name)
	}

	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	b, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Printf("Scanning %s for TMF882x devices...\n", b.Name())
	devices, err := detect.Scan(b, detect.DefaultAddresses())
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No TMF882x devices found")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i := range devices {
		fmt.Printf("Device %d:\n", i+1)
		printDeviceInfo(&devices[i])
		fmt.Println()
	}

	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	d, b, _, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	result, err := detect.Probe(b)
	if err != nil {
		if cmd.Flags().Changed("address") {
			return fmt.Errorf("no device at 0x%02X on %s: %w", b.Address(), b.Name(), err)
		}
		slog.Info("no device at configured address, scanning", "address", fmt.Sprintf("0x%02X", b.Address()))
		if result, err = detect.Find(b, detect.DefaultAddresses()); err != nil {
			return err
		}
	}
	fmt.Printf("Bus:        %s\n", b.Name())
	printDeviceInfo(result)

	mode, err := d.Mode()
	if err != nil {
		return err
	}
	fmt.Printf("  Mode:     %s\n", mode)

	if result.App != protocol.AppApplication || mode != protocol.ModeEnabled {
		return nil
	}

	ok, err := d.CalibrationOK()
	if err != nil {
		return err
	}
	fmt.Printf("  Calibrated: %v\n", ok)

	s, err := d.ReadSettings()
	if err != nil {
		return err
	}
	printSettings(s)
	return nil
}

func runEnable(cmd *cobra.Command, args []string) error {
	progress := &uploadProgress{}
	d, b, cfg, err := openDevice(cmd, device.WithProgress(progress.update))
	if err != nil {
		return err
	}
	defer b.Close()

	if err := d.Enable(!noFirmwareFlag); err != nil {
		return err
	}
	progress.finish()

	if cfg.Device.Calibration != "" {
		if err := writeCalibrationFile(d, cfg.Device.Calibration); err != nil {
			return err
		}
	}
	if cfg.Settings != nil {
		if err := d.ApplySettings(*cfg.Settings); err != nil {
			return err
		}
	}

	app, err := d.AppID()
	if err != nil {
		return err
	}
	fmt.Printf("Device enabled (%s)\n", app)
	return nil
}

func runStandby(cmd *cobra.Command, args []string) error {
	d, b, _, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := d.Standby(); err != nil {
		return err
	}
	fmt.Println("Device in standby")
	return nil
}

func runFlash(cmd *cobra.Command, args []string) error {
	img, err := firmware.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Firmware: %s (%d bytes, %d frames, sha256 %s)\n", img.Name, img.Size(), img.NumChunks(), img.SHA256())

	progress := &uploadProgress{}
	d, b, _, err := openDevice(cmd, device.WithFirmware(img), device.WithProgress(progress.update))
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Println("Waking bootloader...")
	if err := d.Enable(false); err != nil {
		return err
	}

	if err := d.LoadFirmware(); err != nil {
		return err
	}
	progress.finish()

	minor, err := d.Minor()
	if err != nil {
		return err
	}
	fmt.Printf("\nFirmware running, version %d\n", minor)
	fmt.Println("Done!")
	return nil
}

func runMeasure(cmd *cobra.Command, args []string) error {
	d, b, cfg, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	order, err := cfg.Order()
	if err != nil {
		return err
	}

	for i := 0; i < countFlag; i++ {
		m, err := d.Measure()
		if err != nil {
			return err
		}
		if gridFlag {
			if err := printGrid(m, order, secondaryFlag); err != nil {
				return err
			}
			continue
		}
		printMeasurement(m, secondaryFlag)
	}
	return nil
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	d, b, _, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Println("Calibrating, keep the field of view dark and clear...")
	c, err := d.Calibrate()
	if err != nil {
		return err
	}
	if err := measurement.SaveCalibration(outputFlag, c); err != nil {
		return err
	}
	fmt.Printf("Saved %s to %s (tag in %s)\n", c, outputFlag, measurement.MetaPath(outputFlag))
	return nil
}

func runWriteCalibration(cmd *cobra.Command, args []string) error {
	d, b, _, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := writeCalibrationFile(d, args[0]); err != nil {
		return err
	}
	fmt.Println("Calibration loaded")
	return nil
}

// writeCalibrationFile loads calibration data from path and checks that the
// device accepted it.
func writeCalibrationFile(d *device.Device, path string) error {
	c, err := measurement.LoadCalibration(path)
	if err != nil {
		return err
	}
	if c.SpadMap == 0 {
		slog.Warn("calibration has no spad map tag, skipping spad map check", "file", path, "tag", measurement.MetaPath(path))
	}
	if err := d.WriteCalibration(c); err != nil {
		return err
	}

	ok, err := d.CalibrationOK()
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("device rejected calibration", "file", path)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	d, b, _, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	if len(args) == 0 {
		s, err := d.ReadSettings()
		if err != nil {
			return err
		}
		printSettings(s)
		return nil
	}

	fields := make([]device.Field, 0, len(args))
	for _, name := range args {
		f, ok := device.FieldByName(name)
		if !ok {
			return fmt.Errorf("unknown field %q", name)
		}
		fields = append(fields, f)
	}
	return d.WithConfiguration(func(p *device.ConfigPage) error {
		for _, f := range fields {
			v, err := p.Get(f)
			if err != nil {
				return err
			}
			fmt.Printf("  %-22s %d\n", f, v)
		}
		return nil
	})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	d, b, _, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	changes := []struct {
		flag  string
		field device.Field
		value uint16
	}{
		{"spad-map", device.FieldSpadMap, uint16(spadMapFlag)},
		{"period", device.FieldMeasurementPeriod, periodFlag},
		{"iterations", device.FieldKiloIterations, iterationsFlag},
		{"threshold", device.FieldConfidenceThreshold, uint16(thresholdFlag)},
	}

	if cmd.Flags().Changed("spad-map") {
		if _, err := measurement.SpadMapDims(spadMapFlag); err != nil {
			return err
		}
	}

	return d.WithConfiguration(func(p *device.ConfigPage) error {
		for _, c := range changes {
			if !cmd.Flags().Changed(c.flag) {
				continue
			}
			if err := p.Set(c.field, c.value); err != nil {
				return err
			}
			fmt.Printf("  %-22s %d\n", c.field, c.value)
		}
		return nil
	})
}

func runSetAddress(cmd *cobra.Command, args []string) error {
	addr, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", args[0], err)
	}

	d, b, _, err := openDevice(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := d.ChangeAddress(uint16(addr)); err != nil {
		return err
	}
	fmt.Printf("Device now at 0x%02X on %s\n", b.Address(), b.Name())
	return nil
}
