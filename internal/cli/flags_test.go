package cli

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/config"
	"github.com/spf13/pflag"
)

type optionalValue interface {
	pflag.Value
	isSet() bool
}

func (o *OptionalDuration) isSet() bool {
	_, ok := o.Value()
	return ok
}

func (o *OptionalInt) isSet() bool {
	_, ok := o.Value()
	return ok
}

func (o *OptionalString) isSet() bool {
	_, ok := o.Value()
	return ok
}

func (o *OptionalBool) isSet() bool {
	_, ok := o.Value()
	return ok
}

func (o *OptionalProber) isSet() bool {
	_, ok := o.Value()
	return ok
}

func TestOptionalValues(t *testing.T) {
	cases := []struct {
		name    string
		value   func() optionalValue
		input   string
		want    string
		invalid string
	}{
		{"duration", func() optionalValue { return &OptionalDuration{} }, "250ms", "250ms", "soon"},
		{"int", func() optionalValue { return &OptionalInt{} }, "42", "42", "many"},
		{"string", func() optionalValue { return &OptionalString{} }, "debug", "debug", ""},
		{"bool", func() optionalValue { return &OptionalBool{} }, "true", "true", "maybe"},
		{"prober", func() optionalValue { return &OptionalProber{} }, "parallel", "parallel", "udp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.value()
			if v.String() != "" || v.isSet() {
				t.Fatalf("expected unset value to be empty, got %q", v.String())
			}
			if err := v.Set(tc.input); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !v.isSet() || v.String() != tc.want {
				t.Fatalf("expected %q, got %q (set=%v)", tc.want, v.String(), v.isSet())
			}

			if tc.invalid == "" {
				return
			}
			fresh := tc.value()
			if err := fresh.Set(tc.invalid); err == nil {
				t.Fatalf("expected error for %q", tc.invalid)
			}
			if fresh.isSet() {
				t.Fatalf("expected invalid input to leave the value unset")
			}
		})
	}
}

func TestOptionalDurationValue(t *testing.T) {
	var d OptionalDuration
	if err := d.Set("1m30s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := d.Value(); !ok || v != 90*time.Second {
		t.Fatalf("expected 90s, got %v (ok=%v)", v, ok)
	}
}

func TestOptionalBoolIsBoolFlag(t *testing.T) {
	var b OptionalBool
	if !b.IsBoolFlag() {
		t.Fatalf("expected IsBoolFlag to return true")
	}
	if err := b.Set("false"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := b.Value(); !ok || v {
		t.Fatalf("expected explicit false to be set, got %v (ok=%v)", v, ok)
	}
}

func TestOptionalProber(t *testing.T) {
	var p OptionalProber
	if _, ok := p.Value(); ok {
		t.Fatalf("expected unset prober to report false")
	}
	if err := p.Set("TCP"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := p.Value(); !ok || v != config.ProberTCP {
		t.Fatalf("expected prober tcp, got %q (ok=%v)", v, ok)
	}
	if p.String() != "tcp" {
		t.Fatalf("expected prober string tcp, got %q", p.String())
	}
}

func TestOptionalProberInvalid(t *testing.T) {
	var p OptionalProber
	err := p.Set("carrier-pigeon")
	if !errors.Is(err, config.ErrInvalidProber) {
		t.Fatalf("expected ErrInvalidProber, got %v", err)
	}
	if _, ok := p.Value(); ok {
		t.Fatalf("expected invalid prober to remain unset")
	}
}

func TestFlagTypes(t *testing.T) {
	values := map[string]pflag.Value{
		"duration": &OptionalDuration{},
		"int":      &OptionalInt{},
		"string":   &OptionalString{},
		"bool":     &OptionalBool{},
		"prober":   &OptionalProber{},
	}
	for want, v := range values {
		if v.Type() != want {
			t.Fatalf("expected type %q, got %q", want, v.Type())
		}
	}
}

func newFlagSet(f *Flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("regionwatch", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f.Register(fs)
	return fs
}

func TestRegisterParsesAllFlags(t *testing.T) {
	var f Flags
	fs := newFlagSet(&f)
	err := fs.Parse([]string{
		"-i", "30s",
		"--timeout=2s",
		"--max-concurrency", "8",
		"--prober", "simulated",
		"--listen", "9100",
		"--webhook", "https://hooks.example.test/regionwatch",
		"--no-ui",
		"--log-level", "debug",
		"--report", "out.xlsx",
		"regions.conf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Arg(0) != "regions.conf" {
		t.Fatalf("expected positional config path, got %q", fs.Arg(0))
	}
	if f.Report != "out.xlsx" {
		t.Fatalf("expected report path, got %q", f.Report)
	}

	o := f.Overrides()
	if o.Interval == nil || *o.Interval != 30*time.Second {
		t.Fatalf("expected interval override 30s, got %v", o.Interval)
	}
	if o.Timeout == nil || *o.Timeout != 2*time.Second {
		t.Fatalf("expected timeout override 2s, got %v", o.Timeout)
	}
	if o.MaxConcurrency == nil || *o.MaxConcurrency != 8 {
		t.Fatalf("expected max concurrency 8, got %v", o.MaxConcurrency)
	}
	if o.Prober == nil || *o.Prober != config.ProberSimulated {
		t.Fatalf("expected simulated prober, got %v", o.Prober)
	}
	if o.Listen == nil || *o.Listen != "9100" {
		t.Fatalf("expected listen override, got %v", o.Listen)
	}
	if o.Webhook == nil || *o.Webhook != "https://hooks.example.test/regionwatch" {
		t.Fatalf("expected webhook override, got %v", o.Webhook)
	}
	if o.UIDisable == nil || !*o.UIDisable {
		t.Fatalf("expected ui disable override, got %v", o.UIDisable)
	}
	if o.LogLevel == nil || *o.LogLevel != "debug" {
		t.Fatalf("expected log level override, got %v", o.LogLevel)
	}
}

func TestOverridesLeaveUnsetFlagsNil(t *testing.T) {
	var f Flags
	fs := newFlagSet(&f)
	if err := fs.Parse([]string{"-v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Version {
		t.Fatalf("expected version flag")
	}
	o := f.Overrides()
	if o.Interval != nil || o.Timeout != nil || o.MaxConcurrency != nil || o.Prober != nil ||
		o.Listen != nil || o.Webhook != nil || o.UIDisable != nil || o.LogLevel != nil {
		t.Fatalf("expected no overrides, got %+v", o)
	}
}

func TestRegisterRejectsBadValues(t *testing.T) {
	cases := [][]string{
		{"--interval", "soon"},
		{"--max-concurrency", "many"},
		{"--prober", "smoke-signal"},
		{"--no-ui=maybe"},
	}
	for _, args := range cases {
		var f Flags
		if err := newFlagSet(&f).Parse(args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
