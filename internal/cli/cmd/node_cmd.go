package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/cli/shell"
	"github.com/rudransh-shrivastava/peer-flood/internal/db"
	"github.com/rudransh-shrivastava/peer-flood/internal/logger"
	"github.com/rudransh-shrivastava/peer-flood/internal/node"
	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/rudransh-shrivastava/peer-flood/internal/store"
	"github.com/rudransh-shrivastava/peer-flood/internal/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// noBootstrap starts a new overlay instead of joining one.
const noBootstrap = "none"

const historyFileName = "history.sqlite3"

type nodeFlags struct {
	listen      string
	advertise   string
	hopInterval time.Duration
	maxHops     int
	dialTimeout time.Duration
	ioTimeout   time.Duration
	historyDB   string
	logLevel    string
}

func newNodeCmd() *cobra.Command {
	flags := &nodeFlags{}
	defaults := transport.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "node bootstrap-address storage-dir",
		Short: "runs an overlay node with an interactive shell",
		Long: `runs an overlay node serving the files listed in storage-dir/availableFiles.txt.
bootstrap-address is an existing node to join through, or "none" to start a new overlay.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			historyChanged := cmd.Flags().Changed("history-db")
			return runNode(cmd.Context(), os.Stdin, os.Stdout, args[0], args[1], flags, historyChanged)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.listen, "listen", node.DefaultListenAddr, "address to listen on")
	f.StringVar(&flags.advertise, "advertise", "", "address other nodes reach this node at (default derived from --listen)")
	f.DurationVar(&flags.hopInterval, "hop-interval", node.DefaultHopInterval, "wait per hop of a search attempt")
	f.IntVar(&flags.maxHops, "max-hops", protocol.MaxHopCount, "largest hop count a search tries")
	f.DurationVar(&flags.dialTimeout, "dial-timeout", defaults.DialTimeout, "timeout for connecting to a neighbor")
	f.DurationVar(&flags.ioTimeout, "io-timeout", defaults.IOTimeout, "timeout for each read or write on a connection")
	f.StringVar(&flags.historyDB, "history-db", "", "sqlite file for download and search history, empty disables (default storage-dir/"+historyFileName+")")
	f.StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

// runNode fails only when the node cannot be set up or bound. A bootstrap
// peer that cannot be reached leaves the node running as a new overlay.
func runNode(ctx context.Context, in io.Reader, out io.Writer, bootstrap, storageDir string, flags *nodeFlags, historyChanged bool) error {
	level, err := logrus.ParseLevel(flags.logLevel)
	if err != nil {
		return err
	}
	log := logger.New(out, level)

	opts := node.Options{
		ListenAddr:    flags.listen,
		AdvertiseAddr: flags.advertise,
		StorageDir:    storageDir,
		HopInterval:   flags.hopInterval,
		MaxHops:       flags.maxHops,
		Transport: transport.Config{
			DialTimeout: flags.dialTimeout,
			IOTimeout:   flags.ioTimeout,
		},
		Logger: log,
	}

	historyPath := flags.historyDB
	if !historyChanged {
		historyPath = filepath.Join(storageDir, historyFileName)
	}
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0755); err != nil {
			return err
		}
		gdb, err := db.Open(historyPath)
		if err != nil {
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			defer func() { _ = sqlDB.Close() }()
		}
		opts.History = store.NewHistoryStore(gdb)
	}

	n, err := node.New(opts)
	if err != nil {
		return err
	}
	// the node outlives the signal context so Exit can still notify neighbors
	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("starting node: %w", err)
	}

	if strings.EqualFold(bootstrap, noBootstrap) {
		bootstrap = ""
	}
	if err := n.JoinNetwork(ctx, bootstrap); err != nil {
		log.Warnf("Failed to join through %s: %v", bootstrap, err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return shell.New(n, out).Run(sigCtx, in)
}
