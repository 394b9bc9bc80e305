package registry

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	dockermetrics "github.com/docker/go-metrics"
	gorhandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/distribution/drawbridge/auth"
	"github.com/distribution/drawbridge/configuration"
	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/entity"
	"github.com/distribution/drawbridge/health"
	"github.com/distribution/drawbridge/health/checks"
	"github.com/distribution/drawbridge/internal/dcontext"
	"github.com/distribution/drawbridge/registry/handlers"
	"github.com/distribution/drawbridge/store"
	"github.com/distribution/drawbridge/tracing"
	"github.com/distribution/drawbridge/version"
)

// defaultLogFormatter is the default formatter to use for logs.
const defaultLogFormatter = "text"

// ServeCmd is a cobra command for running the registry.
var ServeCmd = &cobra.Command{
	Use:   "serve <config>",
	Short: "`serve` runs a drawbridge registry server",
	Long:  "`serve` runs a drawbridge registry server.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := dcontext.WithVersion(dcontext.Background(), version.Version())

		config, err := resolveConfiguration(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
			// nolint:errcheck
			cmd.Usage()
			os.Exit(1)
		}
		reg, err := NewRegistry(ctx, config)
		if err != nil {
			logrus.Fatalln(err)
		}

		if err = reg.ListenAndServe(); err != nil {
			logrus.Fatalln(err)
		}
	},
}

// A Registry represents a complete, running instance of the drawbridge
// server: the Entity Store, the OIDC subject verifier, the resource
// dispatcher, and the net/http server fronting them.
type Registry struct {
	config *configuration.Configuration
	app    *handlers.App
	server *http.Server
	quit   chan os.Signal
}

// NewRegistry wires an Entity Store, an OIDC subject verifier and the
// Resource Dispatcher into a Registry ready to serve requests. Grounded
// on the teacher's own NewRegistry: the construct-then-wrap-with-
// middleware shape survives, but the storage-driver factory, the blob
// descriptor cache and the TLS cipher-suite/version configuration surface
// have no equivalent here — the Entity Store is the only storage backend,
// nothing in spec.md names a descriptor cache, and auth.TLSConfig covers
// the spec's TLS/mTLS contract without a configurable cipher-suite table.
func NewRegistry(ctx context.Context, config *configuration.Configuration) (*Registry, error) {
	ctx, err := configureLogging(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("error configuring logger: %v", err)
	}

	st, err := store.New(config.Store.RootDirectory)
	if err != nil {
		return nil, fmt.Errorf("error opening entity store: %v", err)
	}
	index := entity.New(st)

	var verifier auth.SubjectVerifier
	if config.OIDC.IssuerURL != "" {
		verifier, err = auth.NewOIDCVerifier(ctx, config.OIDC.ProviderName, config.OIDC.IssuerURL, config.OIDC.Audience)
		if err != nil {
			return nil, fmt.Errorf("error configuring oidc verifier: %v", err)
		}
	} else {
		dcontext.GetLogger(ctx).Warn("no oidc issuer configured; all write and private-read requests will be rejected")
	}

	serverVersion, err := serverSemVer()
	if err != nil {
		return nil, fmt.Errorf("error parsing server version: %v", err)
	}

	app := handlers.NewApp(index, verifier, serverVersion)
	// Each Registry installs a fresh default health registry, so a second
	// Registry in the same process replaces the "store" check instead of
	// registering a duplicate name (which panics).
	healthRegistry := health.NewRegistry()
	healthRegistry.Register("store", checks.StoreChecker(config.Store.RootDirectory))
	health.DefaultRegistry = healthRegistry

	router := mux.NewRouter()
	router.PathPrefix("/api/").Handler(app)
	router.Path("/debug/health").HandlerFunc(health.StatusHandler)
	router.Path("/metrics").Handler(dockermetrics.Handler())

	var handler http.Handler = router
	handler = health.Handler(handler)
	handler = panicHandler(handler)
	handler = gorhandlers.CombinedLoggingHandler(os.Stdout, handler)

	shutdownTracing := tracing.Init()
	_ = shutdownTracing

	server := &http.Server{
		Handler: handler,
	}

	return &Registry{
		app:    app,
		config: config,
		server: server,
		quit:   make(chan os.Signal, 1),
	}, nil
}

// serverSemVer parses the module's build version into the dbtype.SemVer
// the dispatcher's version gate compares requests against.
func serverSemVer() (dbtype.SemVer, error) {
	return dbtype.ParseSemVer(strings.TrimPrefix(version.Version(), "v"))
}

// ListenAndServe runs the registry's HTTP server, optionally behind TLS
// (with the spec's mTLS client-certificate bypass for tree reads), until a
// SIGTERM/SIGINT requests a graceful shutdown.
func (reg *Registry) ListenAndServe() error {
	config := reg.config

	ln, err := net.Listen("tcp", config.HTTP.Addr)
	if err != nil {
		return err
	}

	if config.HTTP.TLS.Certificate != "" {
		tlsConf, err := auth.TLSConfig(config.HTTP.TLS.Certificate, config.HTTP.TLS.Key, config.HTTP.TLS.ClientCAs)
		if err != nil {
			return err
		}
		ln = tls.NewListener(ln, tlsConf)
		dcontext.GetLogger(context.Background()).Infof("listening on %v, tls", ln.Addr())
	} else {
		dcontext.GetLogger(context.Background()).Infof("listening on %v", ln.Addr())
	}

	signal.Notify(reg.quit, os.Interrupt, syscall.SIGTERM)
	serveErr := make(chan error, 1)

	go func() {
		serveErr <- reg.server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-reg.quit:
		dcontext.GetLogger(context.Background()).Info("stopping server gracefully")
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return reg.Shutdown(c)
	}
}

// Shutdown gracefully shuts down the registry's HTTP server.
func (reg *Registry) Shutdown(ctx context.Context) error {
	return reg.server.Shutdown(ctx)
}

// configureLogging prepares the context with a logger using the
// configuration.
func configureLogging(ctx context.Context, config *configuration.Configuration) (context.Context, error) {
	logrus.SetLevel(logLevel(config.Log.Level))

	formatter := config.Log.Formatter
	if formatter == "" {
		formatter = defaultLogFormatter
	}

	switch formatter {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:   time.RFC3339Nano,
			DisableHTMLEscape: true,
		})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		return ctx, fmt.Errorf("unsupported logging formatter: %q", formatter)
	}

	logrus.Debugf("using %q logging formatter", formatter)
	dcontext.SetDefaultLogger(dcontext.GetLogger(ctx))
	return ctx, nil
}

func logLevel(level configuration.Loglevel) logrus.Level {
	l, err := logrus.ParseLevel(string(level))
	if err != nil {
		l = logrus.InfoLevel
		logrus.Warnf("error parsing level %q: %v, using %q", level, err, l)
	}
	return l
}

// panicHandler wraps handler with panic recovery, transmitting the panic
// message to logrus (and any pre-configured log hooks) instead of
// crashing the process.
func panicHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logrus.Panic(fmt.Sprintf("%v", err))
			}
		}()
		handler.ServeHTTP(w, r)
	})
}

func resolveConfiguration(args []string) (*configuration.Configuration, error) {
	var configurationPath string

	if len(args) > 0 {
		configurationPath = args[0]
	} else if os.Getenv("DRAWBRIDGE_CONFIGURATION_PATH") != "" {
		configurationPath = os.Getenv("DRAWBRIDGE_CONFIGURATION_PATH")
	}

	if configurationPath == "" {
		return nil, errors.New("configuration path unspecified")
	}

	fp, err := os.Open(configurationPath)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	config, err := configuration.Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", configurationPath, err)
	}

	return config, nil
}
