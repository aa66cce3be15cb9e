package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"relatorios/internal/export"
	"relatorios/internal/jobs/background"
	"relatorios/internal/models"
	"relatorios/internal/storage"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"list":        runList,
	"get":         runGet,
	"update":      runUpdate,
	"delete":      runDelete,
	"customer":    runCustomer,
	"cache-flush": runCacheFlush,
	"smoke":       runSmoke,
	"watch":       runWatch,
	"export":      runExport,
}

// filterFlags registers the order search flags on fs.
func filterFlags(fs *pflag.FlagSet) *models.OrderFilter {
	f := &models.OrderFilter{}
	fs.StringVar(&f.DateFromISO, "from", "", "first delivery date, YYYY-MM-DD")
	fs.StringVar(&f.DateToISO, "to", "", "last delivery date, YYYY-MM-DD")
	fs.StringVar(&f.CustomerNameContains, "cliente", "", "customer name contains")
	fs.StringVar(&f.DeliveryType, "tipo", "", "delivery type")
	fs.StringVar(&f.HourFrom, "hour-from", "", "earliest delivery hour, HH:MM")
	fs.StringVar(&f.HourTo, "hour-to", "", "latest delivery hour, HH:MM")
	fs.IntVar(&f.MaxResults, "max", 0, "maximum orders fetched (default 1000)")
	return f
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	filter := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	orders, err := a.orderSvc.Search(ctx, filter)
	if err != nil {
		return err
	}
	return printJSON(orders)
}

func runGet(ctx context.Context, a *app, args []string) error {
	id, err := singleID("get", args)
	if err != nil {
		return err
	}
	order, err := a.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %s not found", id)
	}
	return printJSON(order)
}

func runUpdate(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("update", pflag.ContinueOnError)
	sets := fs.StringArray("set", nil, "field=value to merge into the order; repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("update: expected one order id")
	}
	id := fs.Arg(0)
	fields, err := parseAssignments(*sets)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return errors.New("update: nothing to set")
	}
	if err := a.orderSvc.Save(ctx, id, fields); err != nil {
		return err
	}
	order, err := a.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(order)
}

// parseAssignments turns field=value pairs into order fields. A value that
// parses as JSON keeps its JSON type, anything else is a string.
func parseAssignments(pairs []string) (models.Fields, error) {
	fields := models.Fields{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("update: expected field=value, got %q", pair)
		}
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[key] = value
	}
	return fields, nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	id, err := singleID("delete", args)
	if err != nil {
		return err
	}
	return a.orderSvc.Delete(ctx, id)
}

func runCustomer(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("customer", pflag.ContinueOnError)
	name := fs.String("name", "", "customer name")
	address := fs.String("address", "", "customer address")
	exempt := fs.Bool("exempt", false, "exempt from delivery fee")
	var extras models.CustomerExtras
	fs.StringVar(&extras.CNPJ, "cnpj", "", "CNPJ")
	fs.StringVar(&extras.IE, "ie", "", "state registration")
	fs.StringVar(&extras.CEP, "cep", "", "postal code")
	fs.StringVar(&extras.Contato, "contato", "", "contact")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.customers.Upsert(ctx, *name, *address, *exempt, extras); err != nil {
		return err
	}
	customer, err := a.customers.FindByNameUpper(ctx, *name)
	if err != nil {
		return err
	}
	if customer == nil {
		return nil
	}
	return printJSON(customer)
}

func runCacheFlush(ctx context.Context, a *app, _ []string) error {
	if a.cache == nil {
		return errors.New("cache-flush: REDIS_ADDR is not set")
	}
	tc, err := a.session.RequireTenantContext(ctx)
	if err != nil {
		return err
	}
	if err := a.cache.InvalidateTenantCache(ctx, tc.TenantID); err != nil {
		return fmt.Errorf("cache-flush: %w", err)
	}
	a.log.Info().Str("tenant_id", tc.TenantID).Msg("customer cache flushed")
	return nil
}

func runSmoke(ctx context.Context, a *app, _ []string) error {
	report, err := a.orderSvc.SmokeTestPermissions(ctx)
	if err != nil {
		return err
	}
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.OK() {
		return errors.New("permission smoke test failed")
	}
	return nil
}

func runWatch(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	interval := fs.Duration("interval", a.cfg.Jobs.SmokeInterval, "time between smoke tests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	js, err := background.NewJobScheduler(a.orderSvc, *interval, a.log)
	if err != nil {
		return err
	}
	js.OnRun(func(r *models.PermissionReport) {
		_ = printJSON(r)
	})
	js.Start()
	if err := js.RunNow(); err != nil {
		a.log.Warn().Err(err).Msg("initial smoke test not triggered")
	}
	<-ctx.Done()
	return js.Stop()
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	filter := filterFlags(fs)
	format := fs.String("format", formatPDF, "output format: pdf or xlsx")
	title := fs.String("title", "Relatório de pedidos", "document title (pdf only)")
	out := fs.String("out", "", "write the export to this file")
	upload := fs.Bool("upload", false, "upload the export to object storage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, ok := exportFormats[strings.ToLower(*format)]
	if !ok {
		return fmt.Errorf("export: unknown format %q", *format)
	}

	orders, err := a.orderSvc.Search(ctx, filter)
	if err != nil {
		return err
	}
	doc, err := kind.render(orders, *title)
	if err != nil {
		return err
	}

	if *out != "" {
		if err := os.WriteFile(*out, doc, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		a.log.Info().Str("file", *out).Int("orders", len(orders)).Msg("export written")
	}
	if !*upload {
		return nil
	}
	if a.objects == nil {
		return errors.New("upload requested but MINIO_ENDPOINT is not set")
	}

	tc, err := a.session.RequireTenantContext(ctx)
	if err != nil {
		return err
	}
	bucket := a.cfg.Export.Bucket
	object := storage.ExportObjectName(tc.TenantID, time.Now(), kind.ext)
	if err := a.objects.EnsureBucket(ctx, bucket); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", bucket, err)
	}
	if err := a.objects.Upload(ctx, bucket, object, kind.contentType, bytes.NewReader(doc), int64(len(doc))); err != nil {
		return fmt.Errorf("upload export: %w", err)
	}
	url, err := a.objects.PresignedURL(ctx, bucket, object, 24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

const (
	formatPDF  = "pdf"
	formatXLSX = "xlsx"
)

type exportFormat struct {
	ext         string
	contentType string
	render      func(orders []*models.Order, title string) ([]byte, error)
}

var exportFormats = map[string]exportFormat{
	formatPDF: {ext: formatPDF, contentType: "application/pdf", render: export.OrdersPDF},
	formatXLSX: {
		ext:         formatXLSX,
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		render: func(orders []*models.Order, _ string) ([]byte, error) {
			return export.OrdersXLSX(orders)
		},
	},
}

func singleID(name string, args []string) (string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected one order id", name)
	}
	return fs.Arg(0), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
