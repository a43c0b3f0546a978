package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"sol-tx-engine/internal/config"
	"sol-tx-engine/internal/logic/cancel"
	"sol-tx-engine/internal/svc"
	"sol-tx-engine/pkg/logger"
)

type command struct {
	name  string
	usage string
	run   func(s *cancel.Scope, svcCtx *svc.ServiceContext, args []string) error
}

var commands = []command{
	{name: "accounts", usage: "accounts -addrs <a,b,...> [-first N | -last N | -page P -per-page M]", run: runAccounts},
	{name: "transfer", usage: "transfer -to <address> -amount <SOL>", run: runTransfer},
	{name: "create-mint", usage: "create-mint [-decimals D] [-amount UI] [-owner <address>]", run: runCreateMint},
	{name: "metadata", usage: "metadata -mints <a,b,...>", run: runMetadata},
}

var configFile = flag.String("f", "etc/txengine.yaml", "the config file")

func main() {
	os.Exit(realMain())
}

func realMain() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			code = 2
		}
	}()

	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		return 2
	}

	cmd, ok := findCommand(flag.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		usage()
		return 2
	}

	c := config.MustLoad(*configFile)
	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}

	svcCtx, err := svc.NewServiceContext(c)
	if err != nil {
		logger.Errorf("[main] 服务上下文初始化失败: %v", err)
		return 1
	}
	defer svcCtx.Close()

	// SIGINT / SIGTERM 触发取消，正在进行的 RPC 与确认轮询随之退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = cancel.NewToken(ctx).Run(func(s *cancel.Scope) error {
		return cmd.run(s, svcCtx, flag.Args()[1:])
	})
	switch {
	case err == nil:
		return 0
	case cancel.IsCanceled(err):
		logger.Warnf("[main] %s 已取消: %v", cmd.name, err)
		return 130
	default:
		logger.Errorf("[main] %s 失败: %v", cmd.name, err)
		return 1
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: txengine [-f config] <command> [flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
}
