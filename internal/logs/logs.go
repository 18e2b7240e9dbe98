// Package logs configures klog for the jose command and hands out
// contextual logr loggers.
//
// The jose command follows the Kubernetes logging conventions: there are no
// named levels, only verbosity. Info messages are written at level 0 and
// the levels below add detail.
package logs

import (
	"context"
	"flag"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

const (
	// Standard log verbosity levels.
	// Use these instead of integers in jose code.
	Info  = 0
	Debug = 1
	Trace = 2
)

// visibleFlagNames lists the klog flags shown in the help output. The
// others still work.
var visibleFlagNames = map[string]bool{
	"log-level": true,
	"vmodule":   true,
}

// AddFlags adds the klog flags to fs. The "v" flag is renamed to
// "log-level", keeping "-v" as its shorthand.
func AddFlags(fs *pflag.FlagSet) {
	gfs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(gfs)

	var tfs pflag.FlagSet
	tfs.AddGoFlagSet(gfs)
	tfs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "v" {
			f.Name = "log-level"
			f.Shorthand = "v"
			f.Usage = fmt.Sprintf("%s. 0=Info, 1=Debug, 2=Trace. (default: 0)", f.Usage)
		}
		if !visibleFlagNames[f.Name] {
			f.Hidden = true
		}
	})
	fs.AddFlagSet(&tfs)
}

// Initialize returns ctx carrying the global klog logger, named after the
// command.
func Initialize(ctx context.Context, name string) context.Context {
	return klog.NewContext(ctx, klog.Background().WithName(name))
}

// FromContext returns the logger stored in ctx by [Initialize], or the
// global klog logger.
func FromContext(ctx context.Context) logr.Logger {
	return klog.FromContext(ctx)
}

// Flush writes out buffered log lines.
func Flush() {
	klog.Flush()
}
