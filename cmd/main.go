package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chhz0/dispatchr/app"
	"github.com/chhz0/dispatchr/config"
	"github.com/chhz0/dispatchr/server"
	"github.com/chhz0/dispatchr/telemetry"
	"github.com/chhz0/dispatchr/types"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	shutdown, err := telemetry.InitTraceProvider(ctx, cfg.TracingEndpoint, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("trace provider shutdown", zap.Error(err))
		}
	}()

	root, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer root.Close()

	// 演示订单：gold 客户 100 元，邮件通知
	res, err := root.Orders.Process(ctx, types.Order{
		BasePrice:    100,
		CustomerType: types.CustomerGold,
		NotifyBy:     types.ChannelEmail,
		Customer:     types.Recipient{Name: "demo", Email: "demo@example.com"},
	})
	if err != nil {
		return err
	}
	logger.Info("demo order",
		zap.String("order", res.OrderID),
		zap.Float64("final_price", res.FinalPrice),
		zap.String("status", string(res.Status)))

	if cfg.AdminAddr == "" {
		return nil
	}
	return server.NewServer(server.Config{HTTPAddr: cfg.AdminAddr}, root).Start(ctx)
}
