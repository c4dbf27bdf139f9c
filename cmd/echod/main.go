package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/framewire-io/framewire/internal/config"
	"github.com/framewire-io/framewire/internal/proto"
	"github.com/framewire-io/framewire/internal/transport"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "framewire.yaml", "config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	writeConfig := flag.Bool("write-config", false, "write the default config to the config path and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "echod").Logger()

	if *writeConfig {
		if err := os.WriteFile(*configPath, []byte(config.DefaultConfig), 0o644); err != nil {
			log.Fatal().Err(err).Msg("write config")
		}
		log.Info().Str("path", *configPath).Msg("wrote default config")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	opts := transport.Options{
		MaxFrameSize:      cfg.Wire.MaxFrameSize,
		StrictFragments:   cfg.Wire.StrictFragments,
		ReadLimit:         cfg.Wire.ReadLimit,
		KeepaliveInterval: cfg.Keepalive.Interval.Std(),
		KeepaliveTimeout:  cfg.Keepalive.Timeout.Std(),
		Logger:            &log,
	}

	srv := transport.NewServer(opts, cfg.Server.Token, func(c *transport.Conn) {
		serveConn(log, c)
	})

	log.Info().Str("listen", cfg.Server.Listen).Int("max_frame_size", cfg.Wire.MaxFrameSize).Msg("listening")
	hs := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Fatal().Err(hs.ListenAndServe()).Msg("server exit")
}

func serveConn(log zerolog.Logger, c *transport.Conn) {
	defer c.Close()
	for {
		st, err := c.Accept()
		if err != nil {
			if cerr := c.Err(); cerr != nil {
				log.Debug().Err(cerr).Msg("connection done")
			}
			return
		}
		go serveStream(log.With().Uint32("stream", st.ID()).Logger(), st)
	}
}

// serveStream echoes the request data back, once per unit of granted
// demand. REQUEST_N frames extend the demand; CANCEL or idleness end the
// stream.
func serveStream(log zerolog.Logger, st *transport.Stream) {
	defer st.Close()

	f, err := st.Recv(30 * time.Second)
	if err != nil {
		return
	}

	var demand uint32
	var echo []byte
	switch f.Type() {
	case proto.FrameRequestResponse:
		data, _ := f.Data()
		_ = st.Payload(nil, data, proto.FlagNext|proto.FlagComplete)
		return
	case proto.FrameRequestFNF:
		data, _ := f.Data()
		log.Info().Int("bytes", len(data)).Msg("fire-and-forget received")
		return
	case proto.FrameRequestStream, proto.FrameRequestChannel:
		n, err := f.InitialRequestN()
		if err != nil {
			return
		}
		demand = n
		data, _ := f.Data()
		echo = append([]byte(nil), data...)
	default:
		_ = st.Error(fmt.Sprintf("unexpected %s frame", f.Type()))
		return
	}

	sent := uint32(0)
	for {
		for demand > 0 {
			demand--
			sent++
			flags := proto.FlagNext
			if err := st.Payload(nil, echo, flags); err != nil {
				return
			}
		}
		f, err := st.Recv(30 * time.Second)
		if err != nil {
			_ = st.Payload(nil, nil, proto.FlagComplete)
			log.Debug().Uint32("sent", sent).Msg("stream idle, completed")
			return
		}
		switch f.Type() {
		case proto.FrameRequestN:
			n, err := f.RequestN()
			if err != nil {
				return
			}
			demand += n
		case proto.FrameCancel:
			log.Debug().Uint32("sent", sent).Msg("stream cancelled")
			return
		case proto.FramePayload:
			// channel traffic; a complete marker ends the exchange
			if f.Flags().Has(proto.FlagComplete) {
				_ = st.Payload(nil, nil, proto.FlagComplete)
				return
			}
		}
	}
}
