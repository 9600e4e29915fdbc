package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go-taskbus/config"
	"go-taskbus/logger"
	"go-taskbus/producer"
	"go-taskbus/queue"

	"github.com/chzyer/readline"
)

func main() {
	fmt.Println("Task Queue Test Client")
	fmt.Println("======================")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.IsPlaceholder() {
		fmt.Println("Please set QUEUE_CONNECTION_STRING in .env or the environment.")
		fmt.Println("   Current connection string appears to be a placeholder.")
		fmt.Println()
	}

	lg := logger.New("WARN", os.Stderr)

	broker, err := queue.NewBroker(cfg.ConnectionString, queue.Options{MaxBatchBytes: cfg.MaxBatchBytes})
	if err != nil {
		c := &client{out: os.Stdout}
		c.reportError(err)
		os.Exit(1)
	}
	defer broker.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          menuPrompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prod := producer.New(broker, cfg.QueueName, nil, lg)
	c := &client{
		in:      rl,
		out:     rl.Stdout(),
		pub:     prod,
		samples: prod.Samples(),
		now:     time.Now,
	}
	if err := c.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
