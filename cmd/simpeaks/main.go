package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"
	"go.uber.org/zap"

	"github.com/nasa-jpl/simpeaks/acquire"
	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/imgrec"
	"github.com/nasa-jpl/simpeaks/logging"
	"github.com/nasa-jpl/simpeaks/params"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "simpeaks.yml"

	// EnvPrefix marks the environment variables which override the config file
	EnvPrefix = "SIMPEAKS_"
	k         = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey(EnvPrefix, k.Keys())), nil); err != nil {
		log.Fatalf("error loading environment: %v", err)
	}
}

func loadconfig() Config {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	return c
}

func root() {
	str := `simpeaks simulates a detector which produces frames of peaks
on a background with noise, and exposes it over HTTP.
This enables a server-client architecture,
and the clients can leverage the excellent HTTP
libraries for any programming language,
instead of custom socket logic.

Usage:
	simpeaks <command>

Commands:
	run
	snap <file.fits> [count]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `simpeaks is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are case-sensitive.
The command mkconf generates the configuration file with the default values.
Any key may be overridden with an environment variable, e.g. SIMPEAKS_ADDR=:9000
or SIMPEAKS_ACQUIRE_MAXSIZEY=512.

Acquire.MaxSizeY of 0 makes a 1D detector.  Acquire.DataType is an ordinal:
0 Int8, 1 UInt8, 2 Int16, 3 UInt16, 4 Int32, 5 UInt32, 6 Int64, 7 UInt64,
8 Float32, 9 Float64.

Preset is the path to a YAML file describing the peaks, background and noise.
It is applied at startup and again every time the file is saved.

snap acquires count frames (default 1) without
starting the HTTP server and writes them to a single FITS file.

If the files and folders created do not have the permissions you want on linux,
your umask is likely to blame  simpeaks makes them with permission 666, but your
umask is probably the default of 0022 which knocks them down to 444.  Set your
umask to 0000 before running simpeaks to solve this.`
	fmt.Println(str)
}

func mkconf() {
	c := loadconfig()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := loadconfig()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("simpeaks version %v\n", Version)
}

func run() {
	cfg := loadconfig()
	lg := logging.New(cfg.Log)
	defer lg.Sync()

	n, err := NewNode(cfg, lg)
	if err != nil {
		log.Fatal(err)
	}
	defer n.Close()
	lg.Info("detector ready",
		zap.String("port", cfg.Acquire.PortName),
		zap.Int("maxSizeX", cfg.Acquire.MaxSizeX),
		zap.Int("maxSizeY", cfg.Acquire.MaxSizeY),
		zap.Stringer("dataType", cfg.Acquire.DataType))

	mux := BuildMux(cfg, n)
	addr := cfg.Addr + cfg.Root
	log.Println("now listening for requests at ", addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, mux))
}

// snap acquires count frames and writes them to fn as one FITS file
func snap(fn string, count int) error {
	cfg := loadconfig()
	lg := logging.New(cfg.Log)
	defer lg.Sync()

	n, err := NewNode(cfg, lg)
	if err != nil {
		return err
	}
	defer n.Close()

	if count < 1 {
		count, _ = n.Store.GetInt(params.NumImages, 0)
	}
	ch := make(chan *frame.Buffer, count)
	if err = n.Bus.Subscribe("snap", ch); err != nil {
		return err
	}
	defer n.Bus.Unsubscribe("snap")

	period, _ := n.Store.GetFloat(params.AcquirePeriod, 0)
	timeout := time.Duration(float64(count)*period*float64(time.Second)) + time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " acquiring",
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return err
	}
	spinner.Start()

	for _, kv := range []struct {
		key string
		v   int
	}{
		{params.ImageMode, int(acquire.Multiple)},
		{params.NumImages, count},
		{params.Acquire, 1},
	} {
		if err = n.Store.SetInt(kv.key, 0, kv.v); err != nil {
			spinner.StopFail()
			return err
		}
	}

	frames := make([]*frame.Buffer, 0, count)
	defer func() {
		for _, f := range frames {
			f.Release()
		}
	}()
	for len(frames) < count {
		select {
		case f := <-ch:
			frames = append(frames, f)
			spinner.Message(fmt.Sprintf("%d/%d frames", len(frames), count))
		case <-ctx.Done():
			spinner.StopFail()
			return fmt.Errorf("%d of %d frames acquired: %w", len(frames), count, ctx.Err())
		}
	}
	spinner.Stop()

	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	return frame.WriteFits(f, imgrec.Cards(frames[0]), frames...)
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "snap":
		if len(args) < 3 {
			log.Fatal("snap needs a file name")
		}
		count := 0
		if len(args) > 3 {
			c, err := strconv.Atoi(args[3])
			if err != nil {
				log.Fatal(err)
			}
			count = c
		}
		if err := snap(args[2], count); err != nil {
			color.Red("snap failed: %v", err)
			os.Exit(1)
		}
		color.Green("wrote %s", args[2])
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
