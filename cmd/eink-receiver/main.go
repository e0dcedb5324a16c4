// Command eink-receiver listens for tile-fragment datagrams from an
// eink-sender instance, reassembles complete frames, and publishes a
// mutex-guarded whole-screen pixel buffer plus changed-tile
// notifications for an out-of-process renderer to consume.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/framegrace/einkmirror/config"
	"github.com/framegrace/einkmirror/geometry"
	"github.com/framegrace/einkmirror/receiver"
	"github.com/framegrace/einkmirror/render"
)

func main() {
	addr := flag.String("addr", "", "UDP listen address (overrides config file)")
	verbose := flag.Bool("verbose", false, "log every completed frame")
	flag.Parse()

	streamID := uuid.New()
	logger := log.New(os.Stdout, fmt.Sprintf("[eink-receiver %s] ", streamID.String()[:8]), log.LstdFlags|log.Lmicroseconds)
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
	if *verbose {
		cfg.VerboseLogs = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	udpAddr, err := net.ResolveUDPAddr("udp4", cfg.Addr)
	if err != nil {
		logger.Fatalf("resolve listen address %s: %v", cfg.Addr, err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		logger.Fatalf("listen on %s: %v", cfg.Addr, err)
	}
	defer conn.Close()

	pub := render.NewPublisher(1)
	rx := receiver.New(pub)

	logger.Printf("listening on %s for a %dx%d, %d-tile stream", cfg.Addr, geometry.Width, geometry.Height, geometry.NumTiles)

	done := make(chan struct{})
	go readLoop(logger, conn, rx, pub, cfg.VerboseLogs, done)

	go drainChangeNotifications(logger, pub, cfg.VerboseLogs, done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Println("shutting down")
	close(done)
	conn.Close()
}

func readLoop(logger *log.Logger, conn *net.UDPConn, rx *receiver.Receiver, pub *render.Publisher, verbose bool, done <-chan struct{}) {
	buf := make([]byte, 65535)
	var datagrams uint64
	var bytesIn uint64

	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			logger.Printf("read error: %v", err)
			continue
		}

		datagrams++
		bytesIn += uint64(n)

		// Handle returning an error means the datagram failed to parse
		// structurally; that's a transient, per-frame condition and
		// gets logged once, never treated as fatal.
		if err := rx.Handle(buf[:n]); err != nil {
			logger.Printf("dropping malformed datagram: %v", err)
			continue
		}

		if verbose && datagrams%1000 == 0 {
			logger.Printf("datagrams=%s bytes=%s dropped-notifications=%d", humanize.Comma(int64(datagrams)), humanize.Bytes(bytesIn), pub.Dropped())
		}
	}
}

func drainChangeNotifications(logger *log.Logger, pub *render.Publisher, verbose bool, done <-chan struct{}) {
	var frames uint64
	for {
		select {
		case <-done:
			return
		case changed, ok := <-pub.Changes():
			if !ok {
				return
			}
			frames++
			if verbose {
				logger.Printf("frame complete: %d tiles changed (total frames=%d)", len(changed), frames)
			}
		}
	}
}
