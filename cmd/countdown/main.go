// Command countdown drives a TLC5916 seven-segment display chain as a
// countdown timer with button control, and publishes timer events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sweeney/countdown-display/internal/config"
	"github.com/sweeney/countdown-display/internal/controller"
	"github.com/sweeney/countdown-display/internal/countdown"
	"github.com/sweeney/countdown-display/internal/display"
	"github.com/sweeney/countdown-display/internal/gpio"
	"github.com/sweeney/countdown-display/internal/mqtt"
	"github.com/sweeney/countdown-display/internal/status"
	"github.com/sweeney/countdown-display/internal/web"
)

const clientID = "countdown-display"

type options struct {
	configPath string
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	wsBroker   string
	logFile    string
	debug      bool
	text       string
	powerOff   string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to countdown.toml (empty for built-in defaults)")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	flag.StringVar(&o.logFile, "log-file", "countdown.log", "Rotated log file (empty for stderr only)")
	flag.BoolVar(&o.debug, "debug", false, "Log every rendered frame")
	flag.StringVar(&o.text, "text", "", "Render this text, enable the display and exit")
	flag.StringVar(&o.powerOff, "poweroff", "sudo poweroff", "Command run by the shutdown button (empty to disable)")

	flag.Parse()

	closeLog := setupLogging(o.logFile)
	defer closeLog()

	o.wsBroker = resolveWSBroker(*wsBroker, o.broker)
	if err := run(o); err != nil {
		closeLog()
		log.Fatalf("fatal: %v", err)
	}
}

// setupLogging sends the standard logger to stderr and, when path is set, to
// a size-rotated file. The returned func closes the file.
func setupLogging(path string) func() {
	if path == "" {
		return func() {}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    1, // megabytes
		MaxBackups: 5,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, lj))
	return func() { lj.Close() }
}

// hardware is the set of opened GPIO lines.
type hardware struct {
	clk, sdi, le, oe, buzzer *gpio.RealOutput
}

func openHardware(cfg *config.Config) (*hardware, error) {
	open := func(name string, pin int) (*gpio.RealOutput, error) {
		o, err := gpio.NewRealOutput(cfg.Pins.Chip, pin)
		if err != nil {
			return nil, fmt.Errorf("open %s (pin %d): %w", name, pin, err)
		}
		return o, nil
	}
	hw := &hardware{}
	var err error
	if hw.clk, err = open("CLK", cfg.Pins.CLK); err != nil {
		return nil, err
	}
	if hw.sdi, err = open("SDI", cfg.Pins.SDI); err != nil {
		hw.Close()
		return nil, err
	}
	if hw.le, err = open("LE", cfg.Pins.LE); err != nil {
		hw.Close()
		return nil, err
	}
	if hw.oe, err = open("OE", cfg.Pins.OE); err != nil {
		hw.Close()
		return nil, err
	}
	if hw.buzzer, err = open("buzzer", cfg.Pins.Buzzer); err != nil {
		hw.Close()
		return nil, err
	}
	return hw, nil
}

func (hw *hardware) lines() display.Lines {
	return display.Lines{CLK: hw.clk, SDI: hw.sdi, LE: hw.le, OE: hw.oe}
}

// Close releases every opened line. Safe on a partially opened set.
func (hw *hardware) Close() error {
	var errs []error
	for _, o := range []*gpio.RealOutput{hw.clk, hw.sdi, hw.le, hw.oe, hw.buzzer} {
		if o == nil {
			continue
		}
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func run(o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	settings, err := cfg.TimerSettings(time.Local)
	if err != nil {
		return fmt.Errorf("timer settings: %w", err)
	}

	hw, err := openHardware(cfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()

	disp, err := display.New(hw.lines(), cfg.DisplayOptions(o.debug))
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}

	// Wiring check mode
	if o.text != "" {
		return renderText(disp, display.Code(cfg.Display.BrightnessNormal), o.text)
	}

	publisher, err := mqtt.NewRealPublisher(o.broker, clientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Loop.Poll.Milliseconds(),
		IdlePollMs:  cfg.Loop.IdlePoll.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Chips:       cfg.Display.Chips,
		Broker:      o.broker,
		HTTPPort:    o.httpAddr,
		WSBroker:    o.wsBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	ctl := controller.New(disp, countdown.New(settings, time.Now()), hw.buzzer, publisher, tracker, controller.Options{
		Brightness: controller.Brightness{
			Normal: display.Code(cfg.Display.BrightnessNormal),
			Full:   display.Code(cfg.Display.BrightnessFull),
		},
		Poll:     cfg.Loop.Poll.Duration,
		IdlePoll: cfg.Loop.IdlePoll.Duration,
		PowerOff: powerOffFunc(o.powerOff),
	}, time.Now)

	if err := ctl.Start(); err != nil {
		return fmt.Errorf("start display: %w", err)
	}

	buttons, err := gpio.NewRealButtons(cfg.Pins.Chip, cfg.ButtonPins(), cfg.Buttons.Debounce.Duration, ctl.HandleButton)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}
	defer buttons.Close()

	publishStartup(publisher, tracker)

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: mode=%s direction=%s duration=%v poll=%v broker=%s heartbeat=%v",
		settings.Mode, settings.Direction, settings.Duration, cfg.Loop.Poll.Duration, o.broker, o.heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctl, publisher, publisher, tracker, o.heartbeat, time.Now, time.After, sigCh)
}

// renderText shows text once with the outputs enabled.
func renderText(disp *display.Display, code display.Code, text string) error {
	err := disp.Exclusive(func(s *display.Session) error {
		if err := s.SetBrightness(code); err != nil {
			return err
		}
		if err := s.Render(text); err != nil {
			return err
		}
		return s.Enable()
	})
	if err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	log.Printf("rendered %q", text)
	return nil
}

func publishStartup(publisher mqtt.Publisher, tracker *status.Tracker) {
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}
}

// powerOffFunc returns a func running the shell-free command line cmd, or
// nil when cmd is empty.
func powerOffFunc(cmd string) func() error {
	args := strings.Fields(cmd)
	if len(args) == 0 {
		return nil
	}
	return func() error {
		log.Printf("running %q", cmd)
		out, err := exec.Command(args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %w (%s)", cmd, err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}

// stepper is one controller loop iteration.
type stepper interface {
	Step() (time.Duration, error)
}

func runLoop(ctl stepper, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, after func(time.Duration) <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()
	var wait time.Duration

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-after(wait):
			next, err := ctl.Step()
			if err != nil {
				return fmt.Errorf("display: %w", err)
			}
			wait = next

			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			t := now()
			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v display=%q running=%v", snap.Uptime().Truncate(time.Second), snap.Display, snap.Timer.Running)
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
