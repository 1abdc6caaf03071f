package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rixmerz/MultiComputer/input"
	"github.com/Rixmerz/MultiComputer/internal/clients"
	"github.com/Rixmerz/MultiComputer/internal/config"
	"github.com/Rixmerz/MultiComputer/internal/dispatch"
	logx "github.com/Rixmerz/MultiComputer/internal/logging"
	"github.com/Rixmerz/MultiComputer/internal/peer"
	"github.com/Rixmerz/MultiComputer/internal/screen"
	"github.com/Rixmerz/MultiComputer/internal/server"
	"github.com/Rixmerz/MultiComputer/internal/sysinfo"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "multicomputer.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	started := time.Now()
	logs := logx.NewFactory(cfg.LogLevel, cfg.Debug, nil)
	log := logs.NewLogger("main")
	gin.SetMode(gin.ReleaseMode)

	var backend input.Backend
	switch cfg.Backend {
	case "dry":
		backend = input.NewDry(logs.NewLogger("input"))
	default:
		backend = input.NewRobot(input.RobotOptions{
			Pause:        cfg.Pause(),
			ScrollPause:  cfg.ScrollPause(),
			DragDuration: cfg.DragDuration(),
			FailSafe:     cfg.FailSafe,
		}, logs.NewLogger("input"))
	}

	host := sysinfo.Detect(cfg.Platform)
	disp := dispatch.New(dispatch.Options{
		Backend: backend,
		Screen:  screen.NewProvider(backend, screen.Screenshot(), logs.NewLogger("screen")),
		Host:    host,
		Logger:  logs.NewLogger("dispatch"),
	})
	disp.OnEvent(dispatch.LogHook(logs.NewLogger("dispatch")))

	opts := server.Options{
		Dispatcher:  disp,
		Clients:     clients.NewManager(),
		Host:        host,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logs.NewLogger("server"),
		Started:     started,
	}
	var peers *peer.Manager
	if cfg.WebRTC.Enabled {
		peers = peer.NewManager(cfg.WebRTC.ICEServers, disp, logs)
		opts.Peers = peers
	}
	srv := server.New(opts)
	disp.OnEvent(srv.EventHook())

	geo := disp.Geometry()
	log.Infof("remote input server on http://%s%s (listening on %s)", localIP(), portOf(cfg.Addr), cfg.Addr)
	log.Infof("backend=%s screen=%dx%d apple=%v failsafe=%v webrtc=%v",
		cfg.Backend, geo.Width, geo.Height, host.IsApple(), cfg.FailSafe, cfg.WebRTC.Enabled)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.Addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	var runErr error
	select {
	case runErr = <-errCh:
		if runErr != nil {
			log.Errorf("ListenAndServe: %v", runErr)
		}
	case <-sigCh:
		log.Info("shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("server shutdown error: %v", err)
	}
	if peers != nil {
		if err := peers.Close(); err != nil {
			log.Warnf("closing peers: %v", err)
		}
	}
	if err := disp.Close(); err != nil {
		log.Errorf("releasing held button: %v", err)
	}
	return runErr
}

// localIP returns the address used for outbound traffic, which is the one
// clients on the LAN should connect to. No packet is sent.
func localIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func portOf(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return ":" + port
	}
	return ""
}
