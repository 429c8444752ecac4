// cmd/uigen generates React source from layout trees on the command line.
//
// Inputs and outputs are afs URLs, so a layout can be read from a local path,
// file://, mem:// or any other afs-backed location. "-" reads stdin.
//
//	uigen page -layout tree.json [-name Hero] [-placeholders] [-check] [-out dir]
//	uigen app -pages pages.yaml [-name shop] [-title "My Shop"] [-out dir | -archive shop.zip [-transcript]]
//	uigen validate -layout tree.yaml
//	uigen components
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/viant/afs"

	"github.com/matthewbaird/uibuilder/internal/appgen"
	"github.com/matthewbaird/uibuilder/internal/codegen"
	"github.com/matthewbaird/uibuilder/internal/layout"
	"github.com/matthewbaird/uibuilder/internal/packaging"
	"github.com/matthewbaird/uibuilder/internal/registry"
	"github.com/matthewbaird/uibuilder/internal/syntax"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("uigen: ")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, afs.New(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, fs afs.Service, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return showHelp(stdout)
	}
	switch args[0] {
	case "page":
		return runPage(ctx, fs, args[1:], stdin, stdout)
	case "app":
		return runApp(ctx, fs, args[1:], stdin, stdout)
	case "validate":
		return runValidate(ctx, fs, args[1:], stdin, stdout)
	case "components":
		return runComponents(stdout)
	case "help", "-h", "--help":
		return showHelp(stdout)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func showHelp(w io.Writer) error {
	_, err := fmt.Fprint(w, `uigen - generate React source from layout trees

Usage:
  uigen <command> [options]

Commands:
  page        Generate one component module from a layout tree
  app         Generate a multi-page application from a page list
  validate    Check a layout tree against the schema
  components  List the built-in component types
`)
	return err
}

// readInput reads "-" from stdin and anything else through afs. Files ending
// in .yaml or .yml are decoded as YAML.
func readInput(ctx context.Context, fs afs.Service, location string, stdin io.Reader) (layout.Value, error) {
	if location == "" {
		return layout.Value{}, fmt.Errorf("an input location is required")
	}
	var (
		data []byte
		err  error
	)
	if location == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = fs.DownloadWithURL(ctx, location)
	}
	if err != nil {
		return layout.Value{}, fmt.Errorf("reading %s: %w", location, err)
	}
	if strings.HasSuffix(location, ".yaml") || strings.HasSuffix(location, ".yml") {
		return layout.ParseYAML(data)
	}
	return layout.Parse(data)
}

func newRegistry() (*registry.Registry, error) {
	return registry.NewDefault(registry.WithWarnFunc(log.Printf))
}

func runPage(ctx context.Context, fs afs.Service, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("page", flag.ContinueOnError)
	input := flags.String("layout", "", "layout tree location (JSON or YAML, - for stdin)")
	name := flags.String("name", "", "component name")
	placeholders := flags.Bool("placeholders", false, "emit the editor placeholder in empty containers")
	check := flags.Bool("check", false, "parse the generated module and fail on syntax errors")
	out := flags.String("out", "", "write module, stylesheet and package.json beneath this URL instead of stdout")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	tree, err := readInput(ctx, fs, *input, stdin)
	if err != nil {
		return err
	}
	reg, err := newRegistry()
	if err != nil {
		return err
	}

	opts := codegen.Options{ComponentName: *name, Placeholders: *placeholders}
	res := codegen.GenerateValue(tree, codegen.RegistryResolver(reg), opts)
	for _, w := range res.Warnings {
		log.Printf("warning: %s", w)
	}
	if *check {
		if err := syntax.Check(ctx, []byte(res.Code)); err != nil {
			return err
		}
	}

	if *out == "" {
		_, err := io.WriteString(stdout, res.Code)
		return err
	}
	files := codegen.PageFiles(res, opts)
	if err := packaging.Export(ctx, fs, *out, files); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d files to %s\n", len(files), *out)
	return nil
}

func runApp(ctx context.Context, fs afs.Service, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("app", flag.ContinueOnError)
	input := flags.String("pages", "", "page list location (JSON or YAML, - for stdin)")
	name := flags.String("name", appgen.DefaultName, "npm package name")
	title := flags.String("title", "", "document title")
	out := flags.String("out", "", "write the project beneath this URL")
	archive := flags.String("archive", "", "write a single zip (or transcript) to this URL")
	transcript := flags.Bool("transcript", false, "with -archive, write a plain-text transcript instead of a zip")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	if (*out == "") == (*archive == "") {
		return fmt.Errorf("exactly one of -out and -archive is required")
	}

	v, err := readInput(ctx, fs, *input, stdin)
	if err != nil {
		return err
	}
	var pages []layout.Page
	if err := json.Unmarshal([]byte(v.JSON()), &pages); err != nil {
		return fmt.Errorf("decoding pages: %w", err)
	}

	files, err := appgen.Generate(pages, appgen.Options{Name: *name, Title: *title})
	if err != nil {
		return err
	}
	digest, err := files.Digest()
	if err != nil {
		return err
	}

	if *out != "" {
		if err := packaging.Export(ctx, fs, *out, files); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %d files (%d bytes, digest %s) to %s\n", len(files), files.Size(), digest, *out)
		return nil
	}

	var archiver packaging.Archiver = packaging.ZipArchiver{Root: *name}
	if *transcript {
		archiver = nil
	}
	res, err := packaging.Package(ctx, *name, files, archiver)
	if err != nil {
		return err
	}
	if err := fs.Upload(ctx, *archive, 0644, bytes.NewReader(res.Data)); err != nil {
		return fmt.Errorf("writing %s: %w", *archive, err)
	}
	fmt.Fprintf(stdout, "wrote %s %s (%d files, digest %s)\n", res.Kind, *archive, len(files), digest)
	return nil
}

func runValidate(ctx context.Context, fs afs.Service, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("validate", flag.ContinueOnError)
	input := flags.String("layout", "", "layout tree location (JSON or YAML, - for stdin)")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	tree, err := readInput(ctx, fs, *input, stdin)
	if err != nil {
		return err
	}
	nodes, err := layout.Validate(tree)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	count := 0
	layout.Walk(nodes, func(layout.Node, int) bool {
		count++
		return true
	})
	fmt.Fprintf(stdout, "valid: %d nodes\n", count)
	for _, id := range layout.DuplicateIDs(nodes) {
		fmt.Fprintf(stdout, "  duplicate id %q\n", id)
	}
	return nil
}

func runComponents(stdout io.Writer) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	entries := reg.Snapshot()
	for _, key := range reg.Keys() {
		e := entries[key]
		fmt.Fprintf(stdout, "%-10s %-10s %s\n", key, e.Category, e.SourcePath)
	}
	return nil
}
