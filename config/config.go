package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Name is the base name of the optional config file.
const Name = "hogepos"

// Config is the machine and kernel configuration. Every field is a flag
// named by its mapstructure tag and may be set in hogepos.yaml.
type Config struct {
	Headless bool `mapstructure:"headless" default:"false" description:"run without a window"`
	TTY      bool `mapstructure:"tty" default:"false" description:"in headless mode, read the keyboard from the terminal"`

	Ticks   int `mapstructure:"ticks" default:"0" description:"power off after this many timer ticks (0 = run until interrupted)"`
	TimerHz int `mapstructure:"timer-hz" default:"100" description:"local APIC timer interrupts per second"`
	Width   int `mapstructure:"width" default:"640" description:"framebuffer width in pixels"`
	Height  int `mapstructure:"height" default:"400" description:"framebuffer height in pixels"`

	Counters   int    `mapstructure:"counters" default:"2" description:"number of busy counter tasks"`
	Screenshot string `mapstructure:"screenshot" default:"" description:"save the screen as PNG here at power off"`

	LogLevel string `mapstructure:"log-level" default:"info" description:"debug, info, warn or error"`
	LogTags  string `mapstructure:"log-tags" default:"" description:"comma-separated verbose trace tags (sched, timer, layer)"`
}

// Default returns the configuration built from the default tags.
func Default() *Config {
	c := &Config{}
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("default")
		if tag == "" {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.String:
			f.SetString(tag)
		case reflect.Int:
			if n, err := strconv.Atoi(tag); err == nil {
				f.SetInt(int64(n))
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(tag); err == nil {
				f.SetBool(b)
			}
		}
	}
	return c
}

// RegisterFlags adds one flag per Config field.
func RegisterFlags(flags *pflag.FlagSet) {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("mapstructure")
		def := field.Tag.Get("default")
		desc := field.Tag.Get("description")

		switch field.Type.Kind() {
		case reflect.String:
			flags.String(name, def, desc)
		case reflect.Int:
			n, _ := strconv.Atoi(def)
			flags.Int(name, n, desc)
		case reflect.Bool:
			b, _ := strconv.ParseBool(def)
			flags.Bool(name, b, desc)
		}
	}
}

// Load reads hogepos.yaml from dir if present and overlays the flags. A flag
// set on the command line wins over the file; the file wins over defaults.
func Load(flags *pflag.FlagSet, dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName(Name)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name == "help" {
			return
		}
		if flag.Changed || !v.IsSet(flag.Name) {
			v.Set(flag.Name, flag.Value.String())
		}
	})

	c := Default()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch {
	case c.Ticks < 0:
		return fmt.Errorf("ticks must not be negative, got %d", c.Ticks)
	case c.TimerHz <= 0:
		return fmt.Errorf("timer-hz must be positive, got %d", c.TimerHz)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("invalid framebuffer size %dx%d", c.Width, c.Height)
	case c.Counters < 0:
		return fmt.Errorf("counters must not be negative, got %d", c.Counters)
	}
	return nil
}
