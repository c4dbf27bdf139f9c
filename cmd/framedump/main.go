package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/framewire-io/framewire/internal/proto"
)

var version = "dev"

// framedump prints the frames of a capture file: a sequence of frames, each
// prefixed with a 3-byte big-endian length, optionally gzip-compressed as a
// whole.

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: framedump [flags] <capture-file>")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	r, err := maybeGzip(bufio.NewReader(f))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := dump(r, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// maybeGzip peeks for the gzip magic and wraps the reader when found.
func maybeGzip(br *bufio.Reader) (io.Reader, error) {
	magic, err := br.Peek(2)
	if err == io.EOF {
		return br, nil
	}
	if err != nil {
		return nil, err
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}

func dump(r io.Reader, w io.Writer) error {
	n := 0
	err := readFrames(r, func(f proto.Frame) {
		n++
		fmt.Fprintf(w, "%4d %s\n", n, describe(f))
	})
	if err != nil {
		return fmt.Errorf("after %d frames: %w", n, err)
	}
	fmt.Fprintf(w, "%d frames\n", n)
	return nil
}

// readFrames parses length-prefixed frames from r and calls fn for each.
func readFrames(r io.Reader, fn func(proto.Frame)) error {
	var prefix [3]byte
	for {
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("frame length: %w", err)
		}
		n := int(prefix[0])<<16 | int(prefix[1])<<8 | int(prefix[2])
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("frame body (%d bytes): %w", n, err)
		}
		f, err := proto.Decode(buf)
		if err != nil {
			return err
		}
		fn(f)
	}
}

func describe(f proto.Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s stream=%-10d flags=%s", f.Type(), f.StreamID(), flagString(f))
	if n, err := f.RequestN(); err == nil {
		fmt.Fprintf(&b, " n=%d", n)
	}
	if md, err := f.Metadata(); err == nil {
		fmt.Fprintf(&b, " metadata=%dB", len(md))
	}
	if data, err := f.Data(); err == nil {
		fmt.Fprintf(&b, " data=%dB", len(data))
	}
	return b.String()
}

func flagString(f proto.Frame) string {
	flags := f.Flags()
	marks := []struct {
		flag proto.Flags
		c    byte
	}{
		{proto.FlagIgnore, 'I'},
		{proto.FlagMetadata, 'M'},
		{proto.FlagFollows, 'F'},
		{proto.FlagComplete, 'C'},
		{proto.FlagNext, 'N'},
	}
	out := make([]byte, len(marks))
	for i, m := range marks {
		out[i] = '.'
		if flags.Has(m.flag) {
			out[i] = m.c
		}
	}
	return string(out)
}
