// scbpack converts a raw script image (.bin) into a CBOR script bundle (.scb)
// and prints bundle summaries.
//
// Usage:
//
//	scbpack [-o out.scb] [-entry offset] input.bin
//	scbpack -info input.scb
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zurustar/scriptcore/pkg/bundle"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("scbpack", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("o", "", "output bundle (default: input with .scb extension)")
	entry := fs.Int("entry", -1, "entry offset to record (default: keep)")
	info := fs.Bool("info", false, "print a summary instead of converting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one input file, got %d", fs.NArg())
	}
	in := fs.Arg(0)

	b, err := bundle.Load(in)
	if err != nil {
		return err
	}
	if *info {
		printInfo(stdout, b)
		return nil
	}

	if *entry >= 0 {
		if *entry > len(b.Main()) {
			return fmt.Errorf("entry %#x outside main stream of %d bytes", *entry, len(b.Main()))
		}
		b.Entry = uint32(*entry)
	}
	data, err := bundle.Encode(b)
	if err != nil {
		return err
	}

	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(in, filepath.Ext(in)) + ".scb"
	}
	if dst == in {
		return fmt.Errorf("refusing to overwrite input %s", in)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", dst, len(data))
	return nil
}

func printInfo(w io.Writer, b *bundle.Bundle) {
	fmt.Fprintf(w, "bundle %s (version %d)\n", b.Path, b.Version)
	fmt.Fprintf(w, "  entry      %#x\n", b.Entry)
	names := make([]string, 0, len(b.Streams))
	for name := range b.Streams {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  stream     %-10s %d bytes\n", name, len(b.Streams[name]))
	}
	fmt.Fprintf(w, "  resources  %d\n", len(b.Resources))
	fmt.Fprintf(w, "  placements %d\n", len(b.Placements))
	fmt.Fprintf(w, "  kinds      %d\n", len(b.Kinds))
	fmt.Fprintf(w, "  palette    %d\n", len(b.Palette))
}
