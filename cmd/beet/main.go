// beet encodes, decodes and inspects binary values described by a YAML
// schema.
//
//	beet encode --schema accounts.yaml --type Trader --value '{"name": "bob1", ...}'
//	beet decode --schema accounts.yaml --type Trader --hex --in trader.hex
//	beet layout --schema accounts.yaml --type Trader
//	beet types --schema accounts.yaml
//
// Values are given as JSON with comments allowed. Wide integers are
// decimal or 0x strings, bytes are 0x hex or base64 strings and data enum
// values are objects carrying a "__kind" key.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/rawbytedev/beet"
	"github.com/rawbytedev/beet/pkg/schema"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

type command struct {
	name    string
	summary string
	run     func(args []string, s streams) error
}

var commands = []command{
	{"encode", "serialize a JSON value", runEncode},
	{"decode", "deserialize bytes into JSON, YAML or CBOR", runDecode},
	{"layout", "print the field offsets of a struct", runLayout},
	{"types", "list primitive and declared type names", runTypes},
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	s := streams{in: stdin, out: stdout, err: stderr}
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage(stderr)
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(args[1:], s)
		}
	}
	printUsage(stderr)
	return errors.Newf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage:\n  beet <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun 'beet <command> --help' for the flags of a command.\n")
}

// schemaFlags are shared by every command.
type schemaFlags struct {
	path    string
	expr    string
	verbose bool
}

func (f *schemaFlags) add(fs *pflag.FlagSet, needType bool) {
	fs.StringVarP(&f.path, "schema", "s", "", "YAML schema declaring named types")
	if needType {
		fs.StringVarP(&f.expr, "type", "t", "", "type expression, e.g. Trader or vec<u32>")
	}
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log codec construction and resolution to stderr")
}

func (f *schemaFlags) load(s streams) (*schema.Schema, error) {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(s.err, &slog.HandlerOptions{Level: level}))
	if f.path == "" {
		return schema.Compile(schema.Document{}, beet.WithLogger(logger))
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading schema %s", f.path)
	}
	sc, err := schema.Parse(data, beet.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrapf(err, "schema %s", f.path)
	}
	logger.Debug("schema loaded", slog.String("path", f.path), slog.Any("types", sc.Names()))
	return sc, nil
}

// parseFlags parses args into fs. It reports true when help was printed
// and the command should stop.
func parseFlags(fs *pflag.FlagSet, args []string, s streams) (bool, error) {
	fs.SetOutput(s.err)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	if fs.NArg() > 0 {
		return false, errors.Newf("unexpected argument: %s", fs.Arg(0))
	}
	return false, nil
}

func readInput(path string, s streams) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(s.in)
		return data, errors.Wrap(err, "reading stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrapf(err, "reading %s", path)
}
