// The gnssdecode command reads the output of a GNSS receiver from a serial
// USB port or a file, decodes the RTCM2, RTCM3, SBF and Asv messages in it
// and writes them to stdout in readable form.  Errors and, on the schedule
// given in the config, the parser counters go to the log on stderr.
// Selected RTCM3 frames can also be kept undecoded in a daily log.
//
// Usage:
//
//	gnssdecode -c config.json
//	gnssdecode -c config.yaml -f capture.bin
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"go.bug.st/serial"

	"github.com/goblimey/go-gnssparser/config"
	"github.com/goblimey/go-gnssparser/gnss/asv"
	"github.com/goblimey/go-gnssparser/gnss/connection"
	"github.com/goblimey/go-gnssparser/gnss/parser"
	"github.com/goblimey/go-gnssparser/gnss/rtcm2"
	"github.com/goblimey/go-gnssparser/gnss/rtcm3"
	"github.com/goblimey/go-gnssparser/gnss/sbf"
	"github.com/goblimey/go-gnssparser/rawlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run is the body of the command.  It returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("gnssdecode", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var configFileName, inputFileName string
	flags.StringVar(&configFileName, "c", "", "config file (.json, .yaml or .toml)")
	flags.StringVar(&configFileName, "config", "", "config file (.json, .yaml or .toml)")
	flags.StringVar(&inputFileName, "f", "", "read this file instead of a serial port")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	var conf *config.Config
	var err error
	if len(configFileName) > 0 {
		conf, err = config.Load(configFileName)
	} else {
		conf, err = config.Parse([]byte("{}"), config.JSON)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: conf.Level()}))

	d := newDecoder(conf, logger, stdout, rawlog.SystemClock{})
	defer d.close()

	if len(conf.StatsSchedule) > 0 {
		c := cron.New()
		if err := c.AddFunc(conf.StatsSchedule, d.reportStats); err != nil {
			logger.Error("cannot schedule the stats report", "error", err)
			return 1
		}
		c.Start()
		defer c.Stop()
	}

	if len(inputFileName) > 0 {
		err = d.decodeFile(ctx, inputFileName)
	} else {
		if len(conf.Filenames) == 0 {
			logger.Error("no input - give a file with -f or serial devices in the config")
			return 1
		}
		err = d.decodeFromPorts(ctx)
	}

	d.reportStats()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err.Error())
		return 1
	}
	return 0
}

// decoder connects the input to the parsers and the parsers to the output.
type decoder struct {
	conf     *config.Config
	logger   *slog.Logger
	out      io.Writer
	conn     *connection.Connection
	counters map[string]*parser.Counters
	rawLog   io.WriteCloser // nil unless the config names a raw log directory.
}

// newDecoder creates the parsers for the protocols enabled in the config.
// The clock drives the raw frame log.
func newDecoder(conf *config.Config, logger *slog.Logger, out io.Writer, clock rawlog.Clock) *decoder {
	d := decoder{
		conf:     conf,
		logger:   logger,
		out:      out,
		counters: make(map[string]*parser.Counters),
	}

	if len(conf.RawLogDirectory) > 0 {
		d.rawLog = rawlog.New(clock, conf.RawLogDirectory, logger)
	}

	var parsers []parser.Parser
	for _, id := range config.Protocols {
		if !conf.ProtocolEnabled(id) {
			continue
		}
		counters := &parser.Counters{}
		d.counters[id] = counters

		switch id {
		case rtcm3.ProtocolID:
			p := rtcm3.RegisterDefaultMessages(rtcm3.New(counters, logger))
			p.RegisterRaw(conf.RawRTCM3...)
			p.OnRawMessage(d.writeRaw)
			parsers = append(parsers, p)
		case sbf.ProtocolID:
			parsers = append(parsers, sbf.RegisterDefaultMessages(sbf.New(counters, logger)))
		case asv.ProtocolID:
			parsers = append(parsers, asv.RegisterDefaultMessages(asv.New(counters, logger)))
		case rtcm2.ProtocolID:
			parsers = append(parsers, rtcm2.RegisterDefaultMessages(rtcm2.New(counters, logger)))
		}
	}

	d.conn = connection.New(logger, parsers...)
	d.conn.OnMessage(d.writeMessage)
	d.conn.OnError(func(pe *parser.ParseError) {
		logger.Warn("parse error", "protocol", pe.ProtocolID, "kind", pe.Kind.String(), "error", pe.Error())
	})

	return &d
}

// writeMessage writes a decoded message to the output.
func (d *decoder) writeMessage(m parser.Message) error {
	display := fmt.Sprintf("%s %s\n", m.ProtocolID(), m.Name())
	if s, ok := m.(fmt.Stringer); ok {
		display += s.String()
	}
	_, err := io.WriteString(d.out, display+"\n")
	return err
}

// writeRaw writes an undecoded RTCM3 frame to the output and to the raw
// frame log.
func (d *decoder) writeRaw(m *rtcm3.RawMessage) {
	fmt.Fprintf(d.out, "%s raw message %d, %d bytes\n% x\n\n",
		rtcm3.ProtocolID, m.MessageNumber, len(m.Frame), m.Frame)

	if d.rawLog != nil {
		if _, err := d.rawLog.Write(m.Frame); err != nil {
			d.logger.Error("cannot log raw frame", "message", m.MessageNumber, "error", err)
		}
	}
}

// close closes the raw frame log.
func (d *decoder) close() {
	if d.rawLog == nil {
		return
	}
	if err := d.rawLog.Close(); err != nil {
		d.logger.Error("cannot close raw log", "error", err)
	}
}

// reportStats logs the counters of each parser.
func (d *decoder) reportStats() {
	ids := make([]string, 0, len(d.counters))
	for id := range d.counters {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	d.logger.Info("received", "bytes", d.conn.Received())
	for _, id := range ids {
		d.logger.Info("stats", "protocol", id, "counters", d.counters[id].Snapshot().String())
	}
}

// decodeFile decodes the contents of a file.
func (d *decoder) decodeFile(ctx context.Context, fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return d.conn.Run(ctx, file)
}

// decodeFromPorts loops until ctx is cancelled.  It gets the list of
// serial ports and compares it with the file names in the config.  On the
// first match it opens that port and decodes the data from it until they
// dry up.  Then it does it all again.
func (d *decoder) decodeFromPorts(ctx context.Context) error {
	for {
		port, err := d.openPort()
		if err != nil {
			d.logger.Debug("no serial port", "error", err)
			if err := sleep(ctx, d.conf.SleepTimeAfterFailedOpen()); err != nil {
				return err
			}
			continue
		}

		err = d.conn.Run(ctx, eofOnTimeout{port})
		port.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			d.logger.Error(err.Error())
		}

		// The supply from the port has dried up.  Wait for a short time
		// and then try again.
		d.conn.Reset()
		if err := sleep(ctx, d.conf.SleepTimeOnEOF()); err != nil {
			return err
		}
	}
}

// openPort opens the first serial port named in the config that exists.
func (d *decoder) openPort() (serial.Port, error) {
	knownSerialPorts, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}

	for _, name := range d.conf.Filenames {
		if !slices.Contains(knownSerialPorts, name) {
			continue
		}
		port, err := serial.Open(name, d.conf.Mode())
		if err != nil {
			return nil, err
		}
		if d.conf.ReadTimeoutMilliSeconds > 0 {
			if err := port.SetReadTimeout(d.conf.ReadTimeout()); err != nil {
				port.Close()
				return nil, err
			}
		}
		d.logger.Info("connected", "port", name)
		return port, nil
	}

	return nil, errors.New("no matching serial ports found")
}

// eofOnTimeout turns the empty read that a serial port returns when its
// read timeout expires into end of file.
type eofOnTimeout struct {
	r io.Reader
}

func (e eofOnTimeout) Read(buf []byte) (int, error) {
	n, err := e.r.Read(buf)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

// sleep waits for the given time or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
