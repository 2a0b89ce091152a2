// Copyright 2025 Jonathan Amsterdam. All rights reserved.
// Use of this source code is governed by a
// license that can be found in the LICENSE file.

// rxh compresses and decompresses files with a Huffman code.
//
// Usage:
//
//	rxh [-d] [-stat] [-dump] [-f] [-v] <file> [<file> ...]
//
// By default each file is compressed to file.rxc. With -d, each file.rxc is
// decompressed to file. Use '-' as a filename to read from stdin and write
// to stdout.
//
// Options:
//
//	-d              decompress
//	-f              overwrite existing output files
//	-stat           compare the rxh and zstd sizes of each file; write nothing
//	-dump           print the code tree and decode table of each .rxc file
//	-v              log debug output
//	-h, --help      print help message
//	    --version   print version information
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jba/rxh"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	version = "1.0.0"
	suffix  = ".rxc"
)

var (
	decompress bool
	force      bool
	stat       bool
	dump       bool
	verbose    bool
	showHelp   bool
	showVer    bool
)

func init() {
	flag.BoolVar(&decompress, "d", false, "decompress")
	flag.BoolVar(&force, "f", false, "overwrite existing output files")
	flag.BoolVar(&stat, "stat", false, "print sizes instead of writing output")
	flag.BoolVar(&dump, "dump", false, "print the tree and decode table")
	flag.BoolVar(&verbose, "v", false, "log debug output")
	flag.BoolVar(&showHelp, "h", false, "print help message")
	flag.BoolVar(&showHelp, "help", false, "print help message")
	flag.BoolVar(&showVer, "version", false, "print version information")
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-d] [-stat] [-dump] [-f] [-v] <file> [<file> ...]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Compress each file to file%s, or with -d decompress file%s to file.\n", suffix, suffix)
	fmt.Fprintf(os.Stderr, "Use '-' as filename to read from stdin and write to stdout.\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if showHelp {
		usage()
		os.Exit(0)
	}
	if showVer {
		fmt.Printf("rxh %s\n", version)
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	log, err := newLogger(verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sugar := log.Sugar()

	status := 0
	for _, name := range flag.Args() {
		if err := run(name, log); err != nil {
			sugar.Errorf("%s: %v", name, err)
			status = 1
		}
	}
	_ = log.Sync()
	os.Exit(status)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func run(name string, log *zap.Logger) error {
	switch {
	case stat:
		return statFile(name, os.Stdout, log)
	case dump:
		return dumpFile(name, os.Stdout)
	case name == "-" && decompress:
		return rxh.Decode(os.Stdin, os.Stdout, rxh.WithLogger(log))
	case name == "-":
		return rxh.Encode(os.Stdin, os.Stdout, rxh.WithLogger(log))
	case decompress:
		out, err := decompressedName(name)
		if err != nil {
			return err
		}
		return convert(name, out, force, func(r io.Reader, w io.Writer) error {
			return rxh.Decode(r, w, rxh.WithLogger(log))
		})
	default:
		return convert(name, name+suffix, force, func(r io.Reader, w io.Writer) error {
			return rxh.Encode(r, w, rxh.WithLogger(log))
		})
	}
}

var errSuffix = errors.New("file name does not end in " + suffix)

func decompressedName(name string) (string, error) {
	out, ok := strings.CutSuffix(name, suffix)
	if !ok || out == "" {
		return "", errSuffix
	}
	return out, nil
}

// convert runs f from the file inPath to a new file outPath.
// On failure the output file is removed.
func convert(inPath, outPath string, force bool, f func(io.Reader, io.Writer) error) (err error) {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	out, err := os.OpenFile(outPath, flags, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outPath)
		}
	}()
	return f(in, out)
}

func open(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

// statFile compresses name with rxh and with zstd and reports the sizes.
func statFile(name string, w io.Writer, log *zap.Logger) error {
	in, err := open(name)
	if err != nil {
		return err
	}
	defer in.Close()
	raw, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var cw countingWriter
	if err := rxh.Encode(bytes.NewReader(raw), &cw, rxh.WithLogger(log)); err != nil {
		return err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	zsize := len(enc.EncodeAll(raw, nil))

	_, err = fmt.Fprintf(w, "%s: %d bytes, rxh %d (%s), zstd %d (%s)\n",
		name, len(raw), cw.n, ratio(cw.n, len(raw)), zsize, ratio(int64(zsize), len(raw)))
	return err
}

func ratio(n int64, orig int) string {
	if orig == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(orig))
}

func dumpFile(name string, w io.Writer) error {
	in, err := open(name)
	if err != nil {
		return err
	}
	defer in.Close()
	s, err := rxh.Inspect(in)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: header %d bytes, payload %d bytes (%d bits), padding %d, %d symbols, longest code %d bits\n",
		name, s.HeaderBytes, s.PayloadBytes, s.PayloadBits(), s.Padding, s.Symbols, s.MaxCodeLen); err != nil {
		return err
	}
	if name == "-" {
		// stdin cannot be read twice.
		return nil
	}
	in2, err := os.Open(name)
	if err != nil {
		return err
	}
	defer in2.Close()
	return rxh.Dump(in2, w)
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
