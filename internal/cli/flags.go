package cli

import (
	"strconv"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/config"
	"github.com/spf13/pflag"
)

// OptionalDuration records a duration flag and whether it was set.
type OptionalDuration struct {
	value time.Duration
	set   bool
}

func (o *OptionalDuration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalDuration) String() string {
	if !o.set {
		return ""
	}
	return o.value.String()
}

func (o *OptionalDuration) Type() string { return "duration" }

func (o *OptionalDuration) Value() (time.Duration, bool) {
	return o.value, o.set
}

// OptionalInt records an int flag and whether it was set.
type OptionalInt struct {
	value int
	set   bool
}

func (o *OptionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalInt) String() string {
	if !o.set {
		return ""
	}
	return strconv.Itoa(o.value)
}

func (o *OptionalInt) Type() string { return "int" }

func (o *OptionalInt) Value() (int, bool) {
	return o.value, o.set
}

// OptionalString records a string flag and whether it was set.
type OptionalString struct {
	value string
	set   bool
}

func (o *OptionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

func (o *OptionalString) String() string {
	if !o.set {
		return ""
	}
	return o.value
}

func (o *OptionalString) Type() string { return "string" }

func (o *OptionalString) Value() (string, bool) {
	return o.value, o.set
}

// OptionalBool records a bool flag and whether it was set.
type OptionalBool struct {
	value bool
	set   bool
}

func (o *OptionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalBool) String() string {
	if !o.set {
		return ""
	}
	if o.value {
		return "true"
	}
	return "false"
}

func (o *OptionalBool) Type() string { return "bool" }

func (o *OptionalBool) IsBoolFlag() bool {
	return true
}

func (o *OptionalBool) Value() (bool, bool) {
	return o.value, o.set
}

// OptionalProber records a prober kind flag and whether it was set.
type OptionalProber struct {
	value config.ProberKind
	set   bool
}

func (o *OptionalProber) Set(s string) error {
	kind, err := config.ParseProberKind(s)
	if err != nil {
		return err
	}
	o.value = kind
	o.set = true
	return nil
}

func (o *OptionalProber) String() string {
	if !o.set {
		return ""
	}
	return string(o.value)
}

func (o *OptionalProber) Type() string { return "prober" }

func (o *OptionalProber) Value() (config.ProberKind, bool) {
	return o.value, o.set
}

// Flags is the full command line surface.
type Flags struct {
	Interval       OptionalDuration
	Timeout        OptionalDuration
	MaxConcurrency OptionalInt
	Prober         OptionalProber
	Listen         OptionalString
	Webhook        OptionalString
	NoUI           OptionalBool
	LogLevel       OptionalString
	Report         string
	Version        bool
}

// Register binds every flag to fs.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.VarP(&f.Interval, "interval", "i", "probe cycle period (e.g. 30s)")
	fs.VarP(&f.Timeout, "timeout", "t", "per-probe timeout (e.g. 5s)")
	fs.Var(&f.MaxConcurrency, "max-concurrency", "maximum probes in flight")
	fs.Var(&f.Prober, "prober", "prober: auto, icmp, external, parallel, tcp, simulated")
	fs.Var(&f.Listen, "listen", "HTTP listen address for the API, websocket and /metrics")
	fs.Var(&f.Webhook, "webhook", "URL receiving lost and restored notifications")
	fs.Var(&f.NoUI, "no-ui", "disable the terminal dashboard")
	fs.Lookup("no-ui").NoOptDefVal = "true"
	fs.Var(&f.LogLevel, "log-level", "log level: debug, info, warn, error")
	fs.StringVar(&f.Report, "report", "", "run one cycle, write a report to this path (.xlsx or text) and exit")
	fs.BoolVarP(&f.Version, "version", "v", false, "print version and exit")
}

// Overrides converts the flags that were set into config overrides.
func (f *Flags) Overrides() config.CLIOverrides {
	var o config.CLIOverrides
	if v, ok := f.Interval.Value(); ok {
		o.Interval = &v
	}
	if v, ok := f.Timeout.Value(); ok {
		o.Timeout = &v
	}
	if v, ok := f.MaxConcurrency.Value(); ok {
		o.MaxConcurrency = &v
	}
	if v, ok := f.Prober.Value(); ok {
		o.Prober = &v
	}
	if v, ok := f.Listen.Value(); ok {
		o.Listen = &v
	}
	if v, ok := f.Webhook.Value(); ok {
		o.Webhook = &v
	}
	if v, ok := f.NoUI.Value(); ok {
		o.UIDisable = &v
	}
	if v, ok := f.LogLevel.Value(); ok {
		o.LogLevel = &v
	}
	return o
}
