// Command bookrec 训练相似书产物、执行查询或启动 HTTP 服务。
//
//	bookrec [-config path] train
//	bookrec [-config path] recommend -title "The Hobbit"
//	bookrec [-config path] titles
//	bookrec [-config path] serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rushteam/bookrec"
	"github.com/rushteam/bookrec/config"
	"github.com/rushteam/bookrec/logging"
	"github.com/rushteam/bookrec/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "bookrec:", err)
		stop()
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: bookrec [-config path] <train|recommend|titles|serve> [flags]")

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("bookrec", flag.ContinueOnError)
	configPath := global.String("config", "", "config file (default: $BOOKREC_CONFIG, bookrec.yaml, config/bookrec.yaml)")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "train", "recommend", "titles", "serve":
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}

	app, err := bookrec.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case "train":
		if err := app.Trainer.Train(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "training finished")
		return nil

	case "recommend":
		fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
		title := fs.String("title", "", "book title (exact match)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *title == "" {
			return errors.New("recommend: -title is required")
		}
		res, err := app.Recommender.Recommend(ctx, *title)
		if err != nil {
			return err
		}
		for i := range res.Titles {
			fmt.Fprintf(out, "%d. %s\t%s\n", i+1, res.Titles[i], res.ImageURLs[i])
		}
		return nil

	case "titles":
		titles, err := app.Recommender.Titles(ctx)
		if err != nil {
			return err
		}
		for _, t := range titles {
			fmt.Fprintln(out, t)
		}
		return nil

	default: // serve
		sc := cfg.Server
		writeTimeout := sc.WriteTimeout
		// 训练请求同步返回，写超时至少覆盖训练时长
		if sc.TrainTimeout > writeTimeout {
			writeTimeout = sc.TrainTimeout
		}
		srv := server.New(app.Recommender,
			server.WithTrainer(app.Trainer),
			server.WithGatherer(app.Registry),
			server.WithTrainTimeout(sc.TrainTimeout),
		)
		return server.ListenAndServe(ctx, sc.Addr, srv.Handler(), sc.ReadTimeout, writeTimeout)
	}
}
