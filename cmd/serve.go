package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/aita/kvtraverse/catalog"
	"github.com/aita/kvtraverse/memtablet"
	"github.com/aita/kvtraverse/tablet"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog tables from memory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logrus.NewEntry(logrus.StandardLogger())
		store := memtablet.NewStore(log, memtablet.WithMetrics(prometheus.DefaultRegisterer))
		if err := createTables(store, viper.GetString("catalog")); err != nil {
			return err
		}
		if path := viper.GetString("serve.data"); path != "" {
			if err := loadData(store, path); err != nil {
				return err
			}
		}

		lis, err := net.Listen("tcp", viper.GetString("serve.listen"))
		if err != nil {
			return err
		}
		srv := grpc.NewServer(tablet.ServerOption())
		tablet.RegisterTabletServer(srv, store)

		if addr := viper.GetString("serve.metrics"); addr != "" {
			go func() {
				err := http.ListenAndServe(addr, promhttp.Handler())
				log.WithField(logrus.ErrorKey, err).Warn("metrics server stopped")
			}()
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		go func() {
			<-ctx.Done()
			srv.GracefulStop()
		}()
		log.WithField("addr", lis.Addr().String()).Info("serving tablet")
		return srv.Serve(lis)
	},
}

func createTables(store *memtablet.Store, path string) error {
	cat, err := catalog.Load(path, catalog.NewConnections())
	if err != nil {
		return err
	}
	for _, name := range cat.Tables() {
		id, err := cat.Resolve(context.Background(), name)
		if err != nil {
			return err
		}
		if err := store.CreateTable(id.Tid, id.Partitions); err != nil {
			return errors.WithMessagef(err, "table %s", name)
		}
	}
	return nil
}

// loadData reads records written as "<tid>.<pid>.<ts>.<key> = <value>".
func loadData(store *memtablet.Store, path string) error {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return err
	}
	for _, k := range p.Keys() {
		parts := strings.SplitN(k, ".", 4)
		if len(parts) != 4 {
			return errors.Errorf("%s: bad record key %q", path, k)
		}
		var nums [3]uint64
		for i := range nums {
			if nums[i], err = strconv.ParseUint(parts[i], 10, 64); err != nil {
				return errors.Wrapf(err, "%s: bad record key %q", path, k)
			}
		}
		v, _ := p.Get(k)
		if err := store.Put(uint32(nums[0]), uint32(nums[1]), "", parts[3], nums[2], []byte(v)); err != nil {
			return errors.WithMessagef(err, "%s: %s", path, k)
		}
	}
	return nil
}

func init() {
	flags := serveCmd.Flags()
	flags.String("listen", "127.0.0.1:9527", "address to serve traverse calls on")
	flags.String("data", "", "records to load, as <tid>.<pid>.<ts>.<key> = <value>")
	flags.String("metrics", "", "address to serve prometheus metrics on")
	viper.BindPFlag("serve.listen", flags.Lookup("listen"))
	viper.BindPFlag("serve.data", flags.Lookup("data"))
	viper.BindPFlag("serve.metrics", flags.Lookup("metrics"))

	rootCmd.AddCommand(serveCmd)
}
