// pricectl prices products from the command line.
//
// Usage:
//
//	pricectl batch --products products.json [--rules rules.json] [--workers 8]
//	pricectl validate --cost 100 --markup 25 [--min 110] [--max 200]
//	pricectl price --cost 80 --margin 20
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	pricingapp "github.com/erp/pricing/internal/application/pricing"
	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/infrastructure/rulefile"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pricectl",
		Usage:   "Markup and margin pricing for B2B and retail channels",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PRICECTL_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			batchCommand(),
			validateCommand(),
			priceCommand(),
		},
	}
}

// =============================================================================
// BATCH COMMAND
// =============================================================================

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Price every product of a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "products",
				Aliases:  []string{"p"},
				Usage:    `Path to a JSON document {"products": [...]}`,
				Required: true,
			},
			&cli.StringFlag{
				Name:    "rules",
				Aliases: []string{"r"},
				Usage:   `Path to a JSON rule snapshot {"rules": [...]}`,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   8,
				Usage:   "Concurrent pricing workers",
			},
			&cli.IntFlag{
				Name:  "max-items",
				Value: 100000,
				Usage: "Upper bound on products per batch",
			},
		},
		Action: runBatch,
	}
}

type productsDocument struct {
	Products []pricingapp.ProductInput `json:"products"`
}

func runBatch(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	products, err := readProducts(c.String("products"))
	if err != nil {
		return err
	}

	var source pricing.RuleSource
	if path := c.String("rules"); path != "" {
		snapshot, err := rulefile.Load(path, log)
		if err != nil {
			return err
		}
		source = snapshot
	}

	service, err := newService(config.PricingConfig{
		BatchWorkers:  c.Int("workers"),
		MaxBatchItems: c.Int("max-items"),
	}, source, log)
	if err != nil {
		return err
	}

	ctx := logger.WithContext(c.Context, log)
	resp, err := service.Batch(ctx, pricingapp.BatchRequest{Products: products})
	if err != nil {
		return fmt.Errorf("batch pricing failed: %w", err)
	}

	return writeJSON(c.App.Writer, resp)
}

func readProducts(path string) ([]pricingapp.ProductInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open products: %w", err)
	}
	defer f.Close()

	var doc productsDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse products %s: %w", path, err)
	}
	if len(doc.Products) == 0 {
		return nil, fmt.Errorf("products %s: no products", path)
	}
	return doc.Products, nil
}

// =============================================================================
// VALIDATE COMMAND
// =============================================================================

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a cost, markup and price bounds",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cost", Usage: "Cost basis", Required: true},
			&cli.StringFlag{Name: "markup", Usage: "Markup percent", Required: true},
			&cli.StringFlag{Name: "min", Usage: "Minimum price"},
			&cli.StringFlag{Name: "max", Usage: "Maximum price"},
		},
		Action: runValidate,
	}
}

func runValidate(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	service, err := newService(config.PricingConfig{}, nil, log)
	if err != nil {
		return err
	}

	req := pricingapp.ValidateRequest{}
	for _, f := range []struct {
		name   string
		target **decimal.Decimal
	}{
		{"cost", &req.Cost},
		{"markup", &req.MarkupPercent},
		{"min", &req.MinPrice},
		{"max", &req.MaxPrice},
	} {
		if *f.target, err = decimalFlag(c, f.name); err != nil {
			return err
		}
	}

	resp, err := service.ValidateConstraints(c.Context, req)
	if err != nil {
		return err
	}
	if err := writeJSON(c.App.Writer, resp); err != nil {
		return err
	}
	if !resp.IsValid {
		return fmt.Errorf("validation failed with %d error(s)", len(resp.Errors))
	}
	return nil
}

// =============================================================================
// PRICE COMMAND
// =============================================================================

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:  "price",
		Usage: "Derive a selling price from a markup or a margin, or the percents of a price",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cost", Usage: "Cost basis", Required: true},
			&cli.StringFlag{Name: "markup", Usage: "Markup percent"},
			&cli.StringFlag{Name: "margin", Usage: "Margin percent, below 100"},
			&cli.StringFlag{Name: "price", Usage: "Known selling price"},
		},
		Action: runPrice,
	}
}

func runPrice(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	service, err := newService(config.PricingConfig{}, nil, log)
	if err != nil {
		return err
	}

	req := pricingapp.SellingPriceRequest{}
	for _, f := range []struct {
		name   string
		target **decimal.Decimal
	}{
		{"cost", &req.Cost},
		{"markup", &req.MarkupPercent},
		{"margin", &req.MarginPercent},
		{"price", &req.SellingPrice},
	} {
		if *f.target, err = decimalFlag(c, f.name); err != nil {
			return err
		}
	}

	resp, err := service.SellingPrice(logger.WithContext(c.Context, log), req)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func newLogger(c *cli.Context) (*zap.Logger, error) {
	log, err := logger.New(logger.CLIConfig(c.String("log-level")))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

// newService builds the pricing service without an exporter; metrics go to a
// no-op meter
func newService(cfg config.PricingConfig, source pricing.RuleSource, log *zap.Logger) (*pricingapp.Service, error) {
	metrics, err := telemetry.NewPricingMetrics(noop.NewMeterProvider().Meter("pricectl"), log)
	if err != nil {
		return nil, err
	}
	return pricingapp.NewService(cfg, source, metrics), nil
}

// decimalFlag returns nil for an unset flag
func decimalFlag(c *cli.Context, name string) (*decimal.Decimal, error) {
	raw := c.String(name)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %q is not a decimal number", name, raw)
	}
	return &v, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
