package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	ejschema "github.com/ejschema/ejschema"
	"github.com/ejschema/ejschema/i18n"
	"github.com/ejschema/ejschema/loader"
)

// Exit codes
const (
	exitInvalid    = 1 // one or more input files are invalid
	exitBadSchema  = 2 // problem found with one or more schemas (including missing)
	exitBadInputs  = 3 // bad inputs provided (including files not found)
	exitUnexpected = 10
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "validate":
		os.Exit(validateCmd(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `ejschema CLI

Usage:
  ejschema validate [options] FILE...

Validates one or more JSON documents against their schemas, including any
extension schemas declared within the documents.`)
}

func validateCmd(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var (
		docSchema = fs.String("S", "", "URI of the schema to assume for the document as a whole (overriding the internal id)")
		locArg    = fs.String("L", "", "a directory containing cached schemas, or a schema location file")
		minimal   = fs.Bool("g", false, "ignore any extension declarations when validating")
		strict    = fs.Bool("C", false, "fail if an extension schema cannot be loaded (otherwise, ignore unresolvable extensions)")
		quiet     = fs.Bool("q", false, "suppress messages explaining why documents are invalid")
		silent    = fs.Bool("s", false, "suppress all output; the exit code indicates validity")
		verbose   = fs.Bool("v", false, "provide additional messages; useful for troubleshooting")
		loadEJS   = fs.Bool("e", false, "load the bundled schemas needed to validate extension-schema documents")
		mongoSafe = fs.Bool("M", false, "use a MongoDB-safe convention for special validation properties (prefix _ instead of $)")
		prefix    = fs.String("prefix", "", "expect the special validation properties to start with this prefix (default: $)")
		lang      = fs.String("lang", "en", "message language for validation summaries (en or ja)")
	)
	_ = fs.Parse(args)
	i18n.SetLanguage(*lang)
	files := fs.Args()
	if len(files) == 0 {
		fs.Usage()
		return 2
	}
	if *silent {
		*quiet = true
	}
	if *quiet {
		*verbose = false
	}
	epfx := *prefix
	if epfx == "" && *mongoSafe {
		epfx = "_"
	}

	log := zap.NewNop()
	if *verbose {
		dev, err := zap.NewDevelopment()
		if err == nil {
			log = dev
		}
	}

	var reg *loader.Registry
	if *loadEJS {
		r, err := loader.ForBundledSchemas()
		if err != nil {
			complain(*quiet, "unable to load bundled schemas: %v", err)
			return exitUnexpected
		}
		reg = r
	}
	if *locArg != "" {
		fi, err := os.Stat(*locArg)
		if err != nil {
			complain(*quiet, "%s: schema file/dir not found", *locArg)
			return exitBadInputs
		}
		var r *loader.Registry
		if fi.IsDir() {
			r, err = loader.FromDirectory(*locArg, loader.DirOptions{Logger: log})
		} else {
			r, err = loader.FromLocationFile(*locArg, "")
		}
		if err != nil {
			complain(*quiet, "%s: %v", *locArg, err)
			return exitBadInputs
		}
		if reg != nil {
			reg.MergeFrom(r)
		} else {
			reg = r
		}
	}

	v := ejschema.New(ejschema.Options{Prefix: epfx, Registry: reg})
	ctx := context.Background()
	opt := ejschema.ValidateOpt{Minimal: *minimal, Strict: *strict, SchemaID: *docSchema}

	anyInvalid := false
	badSchema := false
	badInput := false
	for _, filename := range files {
		name := filepath.Base(filename)
		if _, err := os.Stat(filename); err != nil {
			complain(*quiet, "%s: file not found.", filename)
			badInput = true
			continue
		}
		errs, err := v.ValidateFile(ctx, filename, opt)
		if err != nil {
			complain(*quiet, "%s: %v", name, err)
			if ee, ok := ejschema.AsErrors(err); ok && ee.HasCode(ejschema.CodeMalformedInput) {
				badInput = true
			} else {
				anyInvalid = true
			}
			tell(*silent, "%s: not valid.", name)
			continue
		}
		if len(errs) == 0 {
			tell(*silent, "%s: valid!", name)
			continue
		}
		anyInvalid = true
		for _, e := range errs {
			complain(*quiet, "%s: %s: %v", name, i18n.Message(e.Code, nil), e)
			switch e.Code {
			case ejschema.CodeSchemaInvalid, ejschema.CodeSchemaNotFound, ejschema.CodeUnresolvable:
				badSchema = true
			}
		}
		if *verbose && errs.HasCode(ejschema.CodeSchemaNotFound) && reg != nil {
			complain(*quiet, "cached schemas available: %v", reg.IDs())
		}
		tell(*silent, "%s: not valid.", name)
	}

	switch {
	case badSchema:
		return exitBadSchema
	case anyInvalid:
		return exitInvalid
	case badInput:
		return exitBadInputs
	default:
		return 0
	}
}

func complain(quiet bool, format string, args ...any) {
	if quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func tell(silent bool, format string, args ...any) {
	if silent {
		return
	}
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}
