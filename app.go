package main

import (
	"context"
	"os"

	"companyresolver/browser"
	"companyresolver/cache"
	"companyresolver/config"
	"companyresolver/resolver"
	"companyresolver/scraper"
	"companyresolver/store"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds everything a command needs, built from config and flags.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	db      *store.DB
	catalog *scraper.IndustryCatalog
	service *resolver.Service
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = headless
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open result store")
	}

	seed := scraper.DefaultIndustryCodes()
	stored, err := db.Industries(ctx)
	if err != nil {
		log.WithError(err).Warn("load industry catalog")
	}
	for code, name := range stored {
		seed[code] = name
	}
	catalog := scraper.NewIndustryCatalog(seed)

	policy := browser.NewRandomPolicy(cfg.Interaction)
	snap := browser.NewSnapshotter(cfg.Debug.Dir, log)

	var verifier browser.ManualVerifier
	if manualVerify {
		if cfg.Browser.Headless {
			log.Warn("manual verification needs a visible browser, use --headless=false")
		}
		verifier = consoleVerifier{in: os.Stdin, out: os.Stderr}
	}

	svc := resolver.NewService(resolver.Options{
		Config:      cfg,
		Credentials: config.LoadCredentials(),
		Sessions:    browser.NewManager(cfg.Browser, policy, nil, log),
		Auth:        browser.NewAuthenticator(cfg.Site.BaseURL, policy, snap, log),
		Verifier:    verifier,
		Extractor:   scraper.NewExtractor(log, catalog),
		Policy:      policy,
		Snapshots:   snap,
		Cache:       cache.NewClient(cfg.Redis),
		Log:         log,
	})

	return &app{cfg: cfg, log: log, db: db, catalog: catalog, service: svc}, nil
}

// close persists what the run learned about industries and closes the
// store.
func (a *app) close(ctx context.Context) {
	if err := a.db.SaveIndustries(ctx, a.catalog.Snapshot()); err != nil {
		a.log.WithError(err).Warn("save industry catalog")
	}
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("close result store")
	}
}
