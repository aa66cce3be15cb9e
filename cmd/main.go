package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"relatorios/internal/caching"
	"relatorios/internal/config"
	"relatorios/internal/docstore"
	"relatorios/internal/identity"
	"relatorios/internal/logger"
	"relatorios/internal/repositories"
	"relatorios/internal/services"
	"relatorios/internal/session"
	"relatorios/internal/storage"
	"relatorios/internal/viewstate"
	"relatorios/pkg/database"
)

const version = "1.0.0"

const usage = `usage: relatorios <command> [flags]

commands:
  list         search orders
  get          show one order
  update       merge --set field=value pairs into one order
  delete       delete one order
  customer     create or update a customer
  cache-flush  drop the tenant's cached customer lookups
  smoke        run the permission smoke test once
  watch        run the permission smoke test on a schedule
  export       export orders to PDF or XLSX
  version      print the version
`

// app is everything a command can use, built once from the configuration.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	session   *session.Context
	orders    repositories.OrderRepository
	customers repositories.CustomerRepository
	view      *viewstate.Cache
	cache     caching.CacheService
	orderSvc  services.OrderServiceInterface
	objects   storage.ObjectStore
	closers   []func()
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name, args := os.Args[1], os.Args[2:]
	if name == "version" {
		fmt.Println(version)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.close()

	if err := cmd(ctx, a, args); err != nil {
		a.close()
		log.Fatal().Err(err).Str("command", name).Msg("command failed")
	}
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	verifier, err := newVerifier(cfg.Identity, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, verifier.Close)

	source, raw, err := tokenSource(ctx, cfg.Identity.IDToken)
	if err != nil {
		a.close()
		return nil, err
	}
	provider := identity.NewTokenProvider(verifier, source)
	a.session = session.New(provider, log)
	a.session.Start()
	a.closers = append(a.closers, a.session.Close)

	if raw == "" {
		a.close()
		return nil, fmt.Errorf("ID_TOKEN is required")
	}
	if _, err := provider.SignIn(ctx, raw); err != nil {
		a.close()
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if cfg.Redis.Addr != "" {
		a.cache = caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		a.closers = append(a.closers, caching.InvalidateOnTenantChange(a.session, a.cache, log))
	}

	if cfg.Export.MinioEndpoint != "" {
		objects, err := storage.NewMinioStore(cfg.Export.MinioEndpoint, cfg.Export.MinioAccessKey, cfg.Export.MinioSecretKey, cfg.Export.MinioUseSSL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		a.objects = objects
	}

	a.orders = repositories.NewOrderRepo(a.session, store, log)
	a.customers = repositories.NewCustomerRepo(a.session, store, a.cache, cfg.Redis.CustomerCacheTTL, log)
	a.view = viewstate.New(nil)
	a.orderSvc = services.NewOrderService(a.session, a.orders, a.view, log)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (docstore.Store, error) {
	if a.cfg.Store.Driver != config.DriverPostgres {
		a.log.Warn().Msg("using in-memory store; nothing is persisted")
		return docstore.NewMemStore(), nil
	}
	pool, err := database.NewPool(ctx, a.cfg.Store.DatabaseURL, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)
	store := docstore.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newVerifier(cfg config.IdentityConfig, log zerolog.Logger) (*identity.Verifier, error) {
	if cfg.JWKSURL != "" {
		return identity.NewJWKSVerifier(cfg.JWKSURL, log)
	}
	return identity.NewHMACVerifier(cfg.JWTSecret), nil
}

// tokenSource interprets ID_TOKEN: "@path" reads the token from a file on
// every refresh, anything else is the token itself.
func tokenSource(ctx context.Context, setting string) (identity.TokenSource, string, error) {
	if setting == "" {
		return nil, "", nil
	}
	var source identity.TokenSource = identity.StaticToken(setting)
	if path, ok := strings.CutPrefix(setting, "@"); ok {
		source = identity.FileToken{Path: path}
	}
	raw, err := source.Token(ctx)
	if err != nil {
		return nil, "", err
	}
	return source, raw, nil
}
