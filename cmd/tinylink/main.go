// tinylink links class files into an image for the tiny interpreter.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/xyproto/env/v2"

	"github.com/chazu/tinylink/classpath"
	"github.com/chazu/tinylink/image"
	"github.com/chazu/tinylink/linker"
	"github.com/chazu/tinylink/manifest"
	"github.com/chazu/tinylink/report"
)

var log = commonlog.GetLogger("tinylink")

// options are the resolved settings of one run: flags first, then the
// manifest, then the environment.
type options struct {
	classPath      []string
	entries        []string
	output         string
	byteOrder      string
	specialClasses []string
	mapPath        string
	symdbPath      string
	graphPath      string
	verify         bool
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tinylink: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("tinylink", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cp := fs.String("cp", "", "Class path (directories and .jar/.zip files, OS list separator); default $CLASSPATH or .")
	out := fs.String("o", "", "Output image (default a.tvm)")
	endian := fs.String("endian", "", "Byte order of the image: big or little (default big)")
	manifestDir := fs.String("manifest", "", "Directory holding tinylink.toml")
	mapPath := fs.String("map", "", "Write a CBOR link map to this file")
	symdbPath := fs.String("symdb", "", "Write a SQLite symbol database to this file")
	graphPath := fs.String("graph", "", "Write the class reference graph as DOT to this file")
	verify := fs.Bool("verify", true, "Check every record's offset and length while writing")
	verbose := fs.Bool("v", false, "Verbose output (per-stage summaries)")
	debug := fs.Bool("vv", false, "Debug output (per-class detail)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tinylink [options] EntryClass...\n\n")
		fmt.Fprintf(stderr, "Links the entry classes and every class they reach into one image.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  tinylink -cp classes:lib/platform.jar -o robot.tvm Robot\n")
		fmt.Fprintf(stderr, "  tinylink -manifest . -map robot.map\n")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	commonlog.Configure(verbosity(*verbose, *debug), nil)

	opts := options{verify: *verify}
	if *manifestDir != "" {
		if err := opts.fromManifest(*manifestDir); err != nil {
			return err
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["cp"] {
		opts.classPath = filepath.SplitList(*cp)
	}
	if fs.NArg() > 0 {
		opts.entries = fs.Args()
	}
	if set["o"] {
		opts.output = *out
	}
	if set["endian"] {
		opts.byteOrder = *endian
	}
	if set["map"] {
		opts.mapPath = *mapPath
	}
	if set["symdb"] {
		opts.symdbPath = *symdbPath
	}
	if set["graph"] {
		opts.graphPath = *graphPath
	}

	if len(opts.classPath) == 0 {
		opts.classPath = filepath.SplitList(env.Str("CLASSPATH", "."))
	}
	if opts.output == "" {
		opts.output = "a.tvm"
	}
	if len(opts.entries) == 0 {
		fs.Usage()
		return errors.New("no entry classes given")
	}
	return link(opts)
}

// fromManifest loads tinylink.toml from dir and resolves its dependencies.
func (o *options) fromManifest(dir string) error {
	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	r := manifest.NewResolver(m)
	deps, err := r.Resolve()
	if err != nil {
		return fmt.Errorf("resolving dependencies: %w", err)
	}
	o.classPath = r.ClassPath(deps)
	o.entries = m.Link.Entry
	o.output = m.OutputPath()
	o.byteOrder = m.Link.ByteOrder
	o.specialClasses = m.Link.SpecialClasses
	o.mapPath = m.MapPath()
	o.symdbPath = m.SymDBPath()
	o.graphPath = m.GraphPath()
	return nil
}

func link(o options) error {
	order, err := image.ParseByteOrder(o.byteOrder)
	if err != nil {
		return err
	}
	path, err := classpath.OpenEntries(o.classPath)
	if err != nil {
		return err
	}
	defer path.Close()
	log.Debugf("class path: %d entries", path.Len())

	config := linker.Config{
		SpecialClasses: o.specialClasses,
		ByteOrder:      order,
		Verify:         o.verify,
	}
	s, err := linker.LinkFile(path, o.entries, config, o.output)
	if err != nil {
		return err
	}
	log.Noticef("wrote %s: %d bytes, %d classes, %d signatures, %d constants",
		o.output, s.Size(), len(s.Classes()), s.Signatures().Len(), len(s.Constants()))
	if n := len(s.Warnings()); n > 0 {
		log.Noticef("%d warnings", n)
	}

	if o.mapPath == "" && o.symdbPath == "" && o.graphPath == "" {
		return nil
	}
	data, err := s.Bytes()
	if err != nil {
		return err
	}
	m := report.NewLinkMap(s, data)
	if o.mapPath != "" {
		if err := report.WriteLinkMap(o.mapPath, m); err != nil {
			return err
		}
	}
	if o.symdbPath != "" {
		if err := report.WriteSymbolDB(o.symdbPath, m); err != nil {
			return err
		}
	}
	if o.graphPath != "" {
		if err := report.WriteGraph(o.graphPath, m); err != nil {
			return err
		}
	}
	return nil
}

// verbosity maps -v to Info and -vv to Debug.
func verbosity(verbose, debug bool) int {
	switch {
	case debug:
		return 2
	case verbose:
		return 1
	}
	return 0
}
