package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfranke/soniclink/internal/config"
	"github.com/mfranke/soniclink/internal/controller"
	"github.com/mfranke/soniclink/internal/faultlog"
	"github.com/mfranke/soniclink/internal/geometry"
	"github.com/mfranke/soniclink/internal/link"
	"github.com/mfranke/soniclink/internal/link/emulator"
	"github.com/mfranke/soniclink/internal/link/soem"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bring the device chain up and hold it operational",
	RunE:  runChain,
}

var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Print the firmware versions of every device",
	RunE:  printFirmware,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(firmwareCmd)
}

func newLogger(cfg *config.Config) (*log.Logger, func(), error) {
	if path := cfg.GetLogFilePath(); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %v", path, err)
		}
		return log.New(io.MultiWriter(os.Stderr, f), "", log.LstdFlags), func() { f.Close() }, nil
	}
	return log.New(os.Stderr, "", log.LstdFlags), func() {}, nil
}

func openLink(cfg *config.Config, geo *geometry.Geometry, onError func(string)) (link.Link, error) {
	if addr := cfg.GetEmulatorAddr(); addr != "" {
		return emulator.NewLink(addr, cfg.GetEmulatorPort(), geo.NumDevices(), cfg.GetCycleTicks()), nil
	}
	if !cfg.GetSimulate() {
		// The native master binding is not part of this build; the loopback
		// segment exercises the full stack instead.
		return nil, fmt.Errorf("no EtherCAT master driver for interface %s; set Simulate=1 or EmulatorAddr in [Interface]", cfg.GetIfname())
	}
	ifname := cfg.GetIfname()
	if ifname == "" {
		ifname = "sim0"
	}
	bus := soem.NewSimBus(geo.NumDevices())
	return soem.NewLink(bus, soem.Config{
		Ifname:     ifname,
		NumDevices: geo.NumDevices(),
		CycleTicks: cfg.GetCycleTicks(),
		OnError:    onError,
	}), nil
}

func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig(cfgFile)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bringUp connects a controller to the chain. The returned cleanup closes
// the controller and every resource behind it.
func bringUp(cfg *config.Config, logger *log.Logger) (*controller.Controller, func(), error) {
	geo, err := geometry.LoadFile(cfg.GetDeviceMap())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load device map: %v", err)
	}
	logger.Printf("Device map: %d units, %d transducers", geo.NumDevices(), geo.NumTransducers())

	onError := func(msg string) { logger.Print(msg) }
	cleanup := func() {}
	if cfg.GetFaultLogEnabled() {
		db, err := faultlog.NewDB(faultlog.Config{Path: cfg.GetFaultLogPath()}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open fault journal: %v", err)
		}
		repo := faultlog.NewFaultEventRepository(db.GetDB())
		if days := cfg.GetFaultLogKeepDays(); days > 0 {
			cutoff := time.Now().AddDate(0, 0, -int(days))
			if n, err := repo.PurgeBefore(cutoff); err != nil {
				logger.Printf("Fault journal purge failed: %v", err)
			} else if n > 0 {
				logger.Printf("Fault journal: purged %d events older than %d days", n, days)
			}
		}
		journal := faultlog.NewJournal(repo, logger)
		onError = journal.Record
		cleanup = func() { db.Close() }
	}

	lnk, err := openLink(cfg, geo, onError)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	ctrl, err := controller.Open(geo, lnk)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	ctrl.Legacy = cfg.GetLegacyMode()
	ctrl.CheckTrials = int(cfg.GetCheckTrials())

	closeAll := func() {
		if err := ctrl.Close(); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cleanup()
	}
	return ctrl, closeAll, nil
}

func runChain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctrl, closeAll, err := bringUp(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	if ok, err := ctrl.Clear(); err != nil {
		return fmt.Errorf("clear failed: %v", err)
	} else if !ok {
		logger.Print("Clear was not confirmed by all devices")
	}
	if ok, err := ctrl.Synchronize(); err != nil {
		return fmt.Errorf("synchronize failed: %v", err)
	} else if !ok {
		logger.Print("Synchronize was not confirmed by all devices")
	}
	if cfg.GetSilencerEnabled() {
		if ok, err := ctrl.ConfigSilencer(cfg.GetSilencerCycle(), cfg.GetSilencerStep()); err != nil {
			return fmt.Errorf("silencer config failed: %v", err)
		} else if !ok {
			logger.Print("Silencer config was not confirmed by all devices")
		}
	}

	infos, err := ctrl.FirmwareInfoList()
	if err != nil {
		logger.Printf("Firmware read failed: %v", err)
	} else {
		for _, info := range infos {
			logger.Printf("Firmware %s", info)
		}
	}

	logger.Printf("soniclink %s running, %d devices operational", soniclinkVersion, ctrl.Geometry().NumDevices())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Print("Shutting down")
	return nil
}

func printFirmware(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl, closeAll, err := bringUp(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		return err
	}
	defer closeAll()

	infos, err := ctrl.FirmwareInfoList()
	if err != nil {
		return fmt.Errorf("firmware read failed: %v", err)
	}
	for _, info := range infos {
		fmt.Fprintln(cmd.OutOrStdout(), info)
	}
	return nil
}
