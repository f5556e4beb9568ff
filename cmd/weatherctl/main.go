// Command weatherctl resolves and aggregates point weather from the terminal
// and applies the database schema.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/meteopoint/meteopoint/internal/app"
	"github.com/meteopoint/meteopoint/internal/config"
	"github.com/meteopoint/meteopoint/internal/provider/resilience"
	"github.com/meteopoint/meteopoint/internal/weather"
)

// Version is set at compile time via ldflags.
var Version = "dev"

type cli struct {
	Config  string `help:"Path to a TOML config file." env:"METEOPOINT_CONFIG" type:"path"`
	Verbose bool   `short:"v" help:"Log at debug level to stderr."`

	Resolve   resolveCmd       `cmd:"" help:"Resolve the weather for one point and date."`
	Aggregate aggregateCmd     `cmd:"" help:"Average the daily series of several points."`
	Migrate   migrateCmd       `cmd:"" help:"Apply the database schema to the configured store."`
	Version   kong.VersionFlag `help:"Print the version and exit."`
}

// env is bound into every command's Run.
type env struct {
	ctx context.Context
	cfg *config.Config
	log zerolog.Logger
	out io.Writer
}

type resolveCmd struct {
	Lat  float64 `required:"" help:"Latitude in degrees."`
	Lon  float64 `required:"" help:"Longitude in degrees."`
	Date string  `required:"" help:"Calendar date as YYYY-MM-DD."`
}

func (c *resolveCmd) Run(e *env) error {
	q, err := weather.NewQuery(weather.Coordinate{Latitude: c.Lat, Longitude: c.Lon}, c.Date)
	if err != nil {
		return err
	}

	svc := app.NewWeather(e.cfg, resilience.NewRegistry(), e.log, app.Options{})
	record, err := svc.Resolve(e.ctx, q)
	if err != nil {
		return err
	}
	return writeJSON(e.out, record)
}

type aggregateCmd struct {
	Points []string `name:"point" required:"" sep:"none" help:"Point as lat,lon. Repeat for each location."`
	Days   int      `help:"Number of days starting today (1-16). Defaults to FORECAST_DAYS_TO_FETCH."`
}

func (c *aggregateCmd) Run(e *env) error {
	coords := make([]weather.Coordinate, 0, len(c.Points))
	for _, p := range c.Points {
		coord, err := parsePoint(p)
		if err != nil {
			return err
		}
		coords = append(coords, coord)
	}

	svc := app.NewWeather(e.cfg, resilience.NewRegistry(), e.log, app.Options{})
	agg, err := svc.Aggregate(e.ctx, coords, c.Days)
	if err != nil {
		return err
	}
	return writeJSON(e.out, agg)
}

type migrateCmd struct{}

func (c *migrateCmd) Run(e *env) error {
	msg, err := app.Migrate(e.ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out, msg)
	return err
}

// parsePoint reads "lat,lon".
func parsePoint(s string) (weather.Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return weather.Coordinate{}, fmt.Errorf("point %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return weather.Coordinate{}, fmt.Errorf("point %q: bad latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return weather.Coordinate{}, fmt.Errorf("point %q: bad longitude: %w", s, err)
	}
	coord := weather.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return weather.Coordinate{}, fmt.Errorf("point %q: %w", s, err)
	}
	return coord, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newParser(c *cli, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("weatherctl"),
		kong.Description("MeteoPoint weather tools."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	}, options...)
	return kong.New(c, options...)
}

func main() {
	var c cli
	parser, err := newParser(&c)
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cfg, err := config.LoadFrom(c.Config)
	kctx.FatalIfErrorf(err)

	level := zerolog.WarnLevel
	if c.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&env{ctx: ctx, cfg: cfg, log: log, out: os.Stdout})
	stop()
	kctx.FatalIfErrorf(err)
}
