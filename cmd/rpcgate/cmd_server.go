package rpcgate

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tidewell/rpcgate/internal/gateway"
	"github.com/tidewell/rpcgate/pkg/config"
	"github.com/tidewell/rpcgate/pkg/util"
)

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&serverAddr, "addr", "a", "", "listen address")
	serverCmd.Flags().StringVarP(&serverConfig, "config", "c", "", "config file")
	serverCmd.Flags().BoolVar(&serverVerbose, "verbose-errors", false, "include error detail in error responses")
}

var (
	serverAddr    string
	serverConfig  string
	serverVerbose bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the JSON-RPC gateway",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func runServer() {
	conf, err := loadConfig()
	if err != nil {
		log.Err(err).Msg("failed to load config")
		return
	}
	if serverAddr != "" {
		conf.Addr = serverAddr
	}
	if serverVerbose {
		conf.Verbose = true
	}

	s := gateway.NewService(conf)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("server failed")
			return
		}
	}

	if err := s.Stop(); err != nil {
		log.Err(err).Msg("shutdown failed")
	}
}

func loadConfig() (gateway.Config, error) {
	var conf gateway.Config
	m, err := config.New("rpcgate", util.DefaultWorkDir(), "", "RPCGATE", true)
	if err != nil {
		return conf, err
	}
	m.SetDefault("addr", gateway.DefaultAddr)

	if serverConfig != "" {
		return conf, m.LoadFile(serverConfig, &conf)
	}
	return conf, m.Load(&conf)
}
