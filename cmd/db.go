package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"

	"github.com/aita/kvtraverse/catalog"
	"github.com/aita/kvtraverse/codec"
	"github.com/aita/kvtraverse/db"
	"github.com/aita/kvtraverse/tablet"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var traverseCmd = &cobra.Command{
	Use:   "traverse [table]",
	Short: "Print every record of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := clientConfig()
		if err != nil {
			return err
		}
		retries, err := uintSetting("rpc.retries", math.MaxInt32)
		if err != nil {
			return err
		}
		schema, err := codec.ParseSchema(viper.GetString("traverse.schema"))
		if err != nil {
			return err
		}
		reg := prometheus.NewRegistry()
		conns := catalog.NewConnections(
			catalog.WithDialOptions(grpc.WithTransportCredentials(insecure.NewCredentials())),
			catalog.WithClientOptions(tablet.WithMetrics(tablet.NewMetrics(reg))),
			catalog.WithRetries(retries),
		)
		cat, err := catalog.Load(viper.GetString("catalog"), conns)
		if err != nil {
			return multierr.Append(err, conns.Close())
		}
		client, err := db.NewClient(cat, cfg)
		if err != nil {
			return multierr.Append(err, conns.Close())
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		cur, err := client.Traverse(ctx, args[0], viper.GetString("traverse.index"), schema)
		if err == nil {
			err = printRecords(ctx, cmd.OutOrStdout(), cur)
		}
		if err == nil && viper.GetBool("traverse.metrics") {
			err = printMetrics(cmd.OutOrStderr(), reg)
		}
		return multierr.Append(err, conns.Close())
	},
}

func clientConfig() (db.Config, error) {
	cfg := db.DefaultConfig()
	limit, err := uintSetting("traverse.limit", math.MaxUint32)
	if err != nil {
		return cfg, err
	}
	cfg.TraverseLimit = uint32(limit)
	cfg.RemoveDuplicateByTime = viper.GetBool("traverse.dedup")
	cfg.RPCTimeout = viper.GetDuration("rpc.timeout")
	strategy, err := db.ParseReadStrategy(viper.GetString("read.strategy"))
	if err != nil {
		return cfg, err
	}
	cfg.ReadStrategy = strategy
	return cfg, cfg.Validate()
}

// uintSetting reads an integer setting that must lie in [0, hi].
func uintSetting(key string, hi uint64) (uint64, error) {
	v := viper.GetInt64(key)
	if v < 0 || uint64(v) > hi {
		return 0, errors.Wrapf(db.ErrInvalidConfig, "%s %d out of range [0, %d]", key, v, hi)
	}
	return uint64(v), nil
}

func printRecords(ctx context.Context, w io.Writer, cur *db.Cursor) error {
	n := 0
	for {
		ok, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if cur.Schema() != nil {
			row, err := cur.DecodeValue()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%v\n", cur.Key(), cur.Timestamp(), row)
		} else {
			fmt.Fprintf(w, "%s\t%d\t%q\n", cur.Key(), cur.Timestamp(), cur.Value())
		}
		n++
	}
	logrus.WithFields(logrus.Fields{
		"records": n,
		"fetches": cur.Fetches(),
	}).Info("traverse done")
	return nil
}

func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	flags := traverseCmd.Flags()
	flags.String("index", "", "index name to traverse by")
	flags.String("schema", "", "value schema as name:type,... (raw values when empty)")
	flags.Int("limit", db.DefaultTraverseLimit, "records per page")
	flags.Bool("dedup", false, "keep only the newest version of each key")
	flags.String("read-strategy", "leader", "replica to read from: leader, random or roundrobin")
	flags.Duration("rpc-timeout", db.DefaultRPCTimeout, "timeout of one page fetch")
	flags.Int("rpc-retries", 0, "retries of a page fetch when the tablet is unreachable")
	flags.Bool("metrics", false, "print client metrics when done")
	viper.BindPFlag("traverse.index", flags.Lookup("index"))
	viper.BindPFlag("traverse.schema", flags.Lookup("schema"))
	viper.BindPFlag("traverse.limit", flags.Lookup("limit"))
	viper.BindPFlag("traverse.dedup", flags.Lookup("dedup"))
	viper.BindPFlag("read.strategy", flags.Lookup("read-strategy"))
	viper.BindPFlag("rpc.timeout", flags.Lookup("rpc-timeout"))
	viper.BindPFlag("rpc.retries", flags.Lookup("rpc-retries"))
	viper.BindPFlag("traverse.metrics", flags.Lookup("metrics"))

	rootCmd.AddCommand(traverseCmd)
}
