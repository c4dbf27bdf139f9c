package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/framewire-io/framewire/internal/config"
	"github.com/framewire-io/framewire/internal/proto"
	"github.com/framewire-io/framewire/internal/transport"
)

var version = "dev"

func main() {
	target := flag.String("url", "ws://127.0.0.1:18090", "echod address")
	token := flag.String("token", "", "shared token")
	n := flag.Uint("n", 3, "number of echoes to request")
	data := flag.String("data", "ping", "request data")
	metadata := flag.String("metadata", "", "request metadata (optional)")
	timeout := flag.Duration("timeout", 10*time.Second, "per-frame receive timeout")
	configPath := flag.String("config", "", "config file path (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	opts := transport.Options{
		MaxFrameSize:      cfg.Wire.MaxFrameSize,
		StrictFragments:   cfg.Wire.StrictFragments,
		ReadLimit:         cfg.Wire.ReadLimit,
		KeepaliveInterval: cfg.Keepalive.Interval.Std(),
		KeepaliveTimeout:  cfg.Keepalive.Timeout.Std(),
		Logger:            &log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := transport.Dial(ctx, *target, *token, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("dial")
	}
	defer c.Close()

	st, err := c.OpenStream()
	if err != nil {
		log.Fatal().Err(err).Msg("open stream")
	}

	var md []byte
	if *metadata != "" {
		md = []byte(*metadata)
	}
	start := time.Now()
	if err := st.RequestStream(uint32(*n), md, []byte(*data)); err != nil {
		log.Fatal().Err(err).Msg("request stream")
	}

	for i := uint(0); i < *n; i++ {
		f, err := st.Recv(*timeout)
		if err != nil {
			log.Fatal().Err(err).Uint("received", i).Msg("recv")
		}
		switch f.Type() {
		case proto.FramePayload:
			body, _ := f.Data()
			fmt.Printf("%d: %q (%s)\n", i+1, body, time.Since(start).Round(time.Millisecond))
			if f.Flags().Has(proto.FlagComplete) {
				return
			}
		case proto.FrameError:
			body, _ := f.Data()
			log.Fatal().Str("error", string(body)).Msg("stream error")
		default:
			log.Fatal().Stringer("frame", f).Msg("unexpected frame")
		}
	}
	_ = st.Cancel()
}
