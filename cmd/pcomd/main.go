package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Comcast/pcom/announce"
	"github.com/Comcast/pcom/assembler"
	"github.com/Comcast/pcom/assembly"
	"github.com/Comcast/pcom/device"
	"github.com/Comcast/pcom/discovery"
	"github.com/Comcast/pcom/lease"
	"github.com/Comcast/pcom/storage"
	"github.com/Comcast/pcom/storage/bolt"
	"github.com/Comcast/pcom/storage/noop"
	"github.com/Comcast/pcom/tools"

	"github.com/spf13/cobra"
)

var version = "dev"

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.LUTC)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var cfg struct {
	httpPort      string
	discoveryPort string
	discoveryURL  string
	catalogs      []string
	storeFile     string
	address       string
	scope         []string
	leaseTTL      time.Duration
	maxLeases     int
	bootFile      string
	stdin         bool
	verbose       bool

	mqtt announce.Options
}

var rootCmd = &cobra.Command{
	Use:     "pcomd",
	Short:   "Assemble pervasive applications from the devices around you",
	Version: version,
	Args:    cobra.NoArgs,
	RunE:    run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&cfg.httpPort, "http", "H", ":8080", "assembler (HTTP and websockets) port")
	f.StringVar(&cfg.discoveryPort, "discovery", ":8081", "discovery service port (empty to disable)")
	f.StringVar(&cfg.discoveryURL, "discovery-url", "", "use the remote discovery service at this URL instead of the local catalog")
	f.StringSliceVarP(&cfg.catalogs, "catalog", "c", nil, "catalog files to load")
	f.StringVarP(&cfg.storeFile, "store", "p", "", "optional filename for persisting announced devices")
	f.StringVar(&cfg.address, "address", "local", "this assembler's address")
	f.StringSliceVar(&cfg.scope, "scope", nil, "devices to consider (default all)")
	f.DurationVar(&cfg.leaseTTL, "lease-ttl", 60*time.Second, "session lease TTL")
	f.IntVar(&cfg.maxLeases, "max-leases", 1024, "maximum number of sessions")
	f.StringVarP(&cfg.bootFile, "boot", "b", "", "file to read for initial ops")
	f.BoolVarP(&cfg.stdin, "stdin", "I", false, "listen for ops on stdin")
	f.BoolVarP(&cfg.verbose, "verbose", "v", false, "log lots of wonderful things")

	f.StringVar(&cfg.mqtt.Broker, "mqtt-broker", "", "MQTT broker for device announcements (e.g. tcp://localhost:1883)")
	f.StringVar(&cfg.mqtt.ClientId, "mqtt-client-id", "pcomd", "MQTT client id")
	f.StringVar(&cfg.mqtt.Username, "mqtt-user", "", "MQTT username")
	f.StringVar(&cfg.mqtt.Password, "mqtt-password", "", "MQTT password")
	f.StringVar(&cfg.mqtt.Prefix, "mqtt-prefix", "pcom", "MQTT topic prefix")
	f.Uint8Var(&cfg.mqtt.QoS, "mqtt-qos", 1, "MQTT QoS")
	f.DurationVar(&cfg.mqtt.KeepAlive, "mqtt-keepalive", 30*time.Second, "MQTT keepalive")
	f.BoolVar(&cfg.mqtt.Reconnect, "mqtt-reconnect", true, "reconnect to the MQTT broker automatically")
	f.BoolVar(&cfg.mqtt.Insecure, "mqtt-insecure", false, "skip MQTT broker certificate verification")
}

func openStorage(ctx context.Context) (storage.Storage, error) {
	var s storage.Storage = noop.NewStorage()
	if cfg.storeFile != "" {
		b, err := bolt.NewStorage(cfg.storeFile)
		if err != nil {
			return nil, err
		}
		b.Debug = cfg.verbose
		s = b
	}
	return s, s.Open(ctx)
}

func loadCatalogs(c *discovery.Catalog, pool *device.Pool) error {
	for _, filename := range cfg.catalogs {
		bs, err := tools.ReadFileWithInlines(filename)
		if err != nil {
			return err
		}
		f, err := discovery.ParseFile(bs)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		a := tools.Analyze(f)
		for _, problem := range a.Errors {
			log.Printf("catalog %s: %s", filename, problem)
		}
		for _, k := range a.MissingScripts {
			log.Printf("catalog %s: no script for %s", filename, k)
		}
		if err = f.Load(c, pool); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		log.Printf("loaded %d devices from %s", len(f.Devices), filename)
	}
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := device.NewPool()

	catalog := discovery.NewCatalog()
	catalog.Verbose = cfg.verbose

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	n, err := storage.Restore(ctx, store, catalog, pool)
	if err != nil {
		return err
	}
	log.Printf("restored %d devices", n)

	if err = loadCatalogs(catalog, pool); err != nil {
		return err
	}

	var ds assembly.Discoverer = catalog
	if cfg.discoveryURL != "" {
		client, err := discovery.NewClient(cfg.discoveryURL)
		if err != nil {
			return err
		}
		client.Debug = cfg.verbose
		ds = client
	}

	leases := lease.NewRegistry(cfg.leaseTTL, cfg.maxLeases)
	leases.Debug = cfg.verbose
	go func() {
		if err := leases.Run(ctx); err != nil {
			log.Printf("leases: %v", err)
		}
	}()
	if !leases.Wait(5 * time.Second) {
		return fmt.Errorf("lease registry didn't start")
	}

	s := assembler.NewService(cfg.address, pool, ds, leases)
	s.Scope = cfg.scope
	s.Verbose = cfg.verbose

	if cfg.mqtt.Broker != "" {
		l := announce.NewListener(&cfg.mqtt, pool, catalog, store)
		l.Verbose = cfg.verbose
		if err = l.Start(ctx); err != nil {
			return err
		}
		defer l.Stop()
	}

	if cfg.bootFile != "" {
		in, err := os.Open(cfg.bootFile)
		if err != nil {
			return err
		}
		err = s.Boot(ctx, in)
		in.Close()
		if err != nil {
			return err
		}
	}

	if cfg.discoveryPort != "" {
		srv := &http.Server{
			Addr:    cfg.discoveryPort,
			Handler: discovery.Handler(catalog),
		}
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		go func() {
			log.Printf("discovery service on %s", cfg.discoveryPort)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Printf("discovery service: %v", err)
				stop()
			}
		}()
	}

	if cfg.stdin {
		go func() {
			if err := s.Listener(ctx, os.Stdin, os.Stdout); err != nil {
				log.Printf("stdin: %v", err)
			}
			stop()
		}()
	}

	if cfg.httpPort == "" {
		<-ctx.Done()
		return nil
	}
	err = s.HTTPServer(ctx, cfg.httpPort)
	log.Printf("pcomd terminating")
	return err
}
