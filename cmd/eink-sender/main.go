// Command eink-sender reads the local framebuffer device, detects
// which 8x8 screen tiles changed since the previous frame, compresses
// and fragments only those tiles, and streams them to a remote
// receiver over UDP at up to 60 frames per second.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/framegrace/einkmirror/capture"
	"github.com/framegrace/einkmirror/config"
	"github.com/framegrace/einkmirror/geometry"
	"github.com/framegrace/einkmirror/protocol"
	"github.com/framegrace/einkmirror/transmit"
)

func main() {
	addr := flag.String("addr", "", "receiver address host:port (overrides config file)")
	device := flag.String("device", "", "framebuffer device path (overrides config file)")
	cpuProfile := flag.String("pprof-cpu", "", "write CPU profile to file")
	verbose := flag.Bool("verbose", false, "log frame/byte/tile counters every MaxFPS frames sent")
	flag.Parse()

	streamID := uuid.New()
	logger := log.New(os.Stdout, fmt.Sprintf("[eink-sender %s] ", streamID.String()[:8]), log.LstdFlags|log.Lmicroseconds)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		logger.Printf("stream id %s", streamID)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *device != "" {
		cfg.FramebufferDevice = *device
	}
	if *verbose {
		cfg.VerboseLogs = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			logger.Fatalf("create CPU profile: %v", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Fatalf("start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	fb, err := os.Open(cfg.FramebufferDevice)
	if err != nil {
		logger.Fatalf("open framebuffer device %s: %v", cfg.FramebufferDevice, err)
	}
	defer fb.Close()

	udpAddr, err := net.ResolveUDPAddr("udp4", cfg.Addr)
	if err != nil {
		logger.Fatalf("resolve receiver address %s: %v", cfg.Addr, err)
	}
	sockFD, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		logger.Fatalf("create socket: %v", err)
	}
	defer unix.Close(sockFD)

	var sa unix.SockaddrInet4
	copy(sa.Addr[:], udpAddr.IP.To4())
	sa.Port = udpAddr.Port
	if err := unix.Connect(sockFD, &sa); err != nil {
		logger.Fatalf("connect to %s: %v", cfg.Addr, err)
	}

	engine := capture.New(int(fb.Fd()))
	tx := transmit.New(sockFD)
	pacer := transmit.NewPacer()

	logger.Printf("streaming %dx%d to %s (%d tiles, %d workers)", geometry.Width, geometry.Height, cfg.Addr, geometry.NumTiles, cfg.Workers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go runLoop(logger, engine, tx, pacer, cfg.VerboseLogs, done)

	<-sigCh
	logger.Println("shutting down")
	close(done)
}

func runLoop(logger *log.Logger, engine *capture.Engine, tx *transmit.Transmitter, pacer *transmit.Pacer, verbose bool, done <-chan struct{}) {
	var frame uint32
	var framesSent, bytesSent uint64

	for {
		select {
		case <-done:
			return
		default:
		}

		pacer.Wait()

		changed, err := engine.Capture()
		if err != nil {
			logger.Printf("capture failed, dropping frame: %v", err)
			continue
		}
		if len(changed) == 0 {
			continue
		}

		fragmentsPerTile := make([][]protocol.Fragment, len(changed))
		for i, idx := range changed {
			c := engine.Chunk(idx)
			fragmentsPerTile[i] = protocol.FragmentTile(frame, uint32(len(changed)), c.X, c.Y, c.Encoded())
		}

		if err := tx.Send(fragmentsPerTile); err != nil {
			// Don't advance the epoch on a transient send failure: the
			// next successful send should still carry this frame's
			// number so the receiver doesn't silently skip it.
			logger.Printf("send failed for frame %d: %v", frame, err)
			continue
		}

		framesSent++
		for _, frags := range fragmentsPerTile {
			for _, f := range frags {
				bytesSent += uint64(protocol.HeaderSize + len(f.Payload))
			}
		}
		if verbose && framesSent%uint64(geometry.MaxFPS) == 0 {
			logger.Printf("frames=%s tiles-changed=%d bytes-sent=%s", humanize.Comma(int64(framesSent)), len(changed), humanize.Bytes(bytesSent))
		}

		frame++
	}
}
