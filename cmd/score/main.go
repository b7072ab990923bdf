package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/aigoflow/scoring-service/internal/logging"
	"github.com/aigoflow/scoring-service/pkg/client"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"

	natsURLFlag = &cli.StringFlag{
		Name:    "nats",
		Usage:   "NATS server URL",
		Value:   "nats://127.0.0.1:4222",
		Sources: cli.EnvVars("NATS_URL"),
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs",
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "score",
		Usage:   "Send scoring requests and watch a running scoring service",
		Version: version,
		Flags:   []cli.Flag{natsURLFlag, formatFlag, debugFlag},
		Commands: []*cli.Command{
			runCmd,
			healthCmd,
			watchCmd,
		},
	}
}

func connect(cmd *cli.Command) (*client.NATSScoringClient, error) {
	level := "info"
	if cmd.Bool(debugFlag.Name) {
		level = "debug"
	}
	slog.SetDefault(logging.New(os.Stderr, "text", level))

	return client.NewNATSClient(cmd.String(natsURLFlag.Name), "score-cli")
}

var runCmd = &cli.Command{
	Name:      "run",
	Usage:     "Score a set of inputs with a model",
	ArgsUsage: "<model>",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Input variable as key=value, value parsed as JSON when possible",
		},
		&cli.BoolFlag{
			Name:  "emit",
			Usage: "Emit input, result and model run records",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log the model run at this level [debug, info, warning, error, critical]",
		},
		&cli.StringFlag{
			Name:  "execution-uuid",
			Usage: "Execution UUID to tag records with",
		},
		&cli.StringFlag{
			Name:  "flow-uuid",
			Usage: "Flow UUID to tag records with",
		},
		&cli.BoolFlag{
			Name:  "new-uuid",
			Usage: "Generate an execution UUID when none is given",
		},
		&cli.StringFlag{
			Name:  "defaults",
			Usage: "YAML file with variable default rules for this call",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "How long to wait for the reply",
			Value: 30 * time.Second,
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		model := cmd.Args().First()
		if model == "" {
			return fmt.Errorf("model name is required")
		}

		inputs, err := parseInputs(cmd.StringSlice("input"))
		if err != nil {
			return err
		}

		opts := &client.Options{
			Emit:          cmd.Bool("emit"),
			LogLevel:      cmd.String("log-level"),
			ExecutionUUID: cmd.String("execution-uuid"),
			FlowUUID:      cmd.String("flow-uuid"),
		}
		if opts.ExecutionUUID == "" && cmd.Bool("new-uuid") {
			opts.ExecutionUUID = client.NewExecutionUUID()
		}
		if path := cmd.String("defaults"); path != "" {
			if opts.VariableDefaults, err = loadDefaults(path); err != nil {
				return err
			}
		}

		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()
		c.SetTimeout(cmd.Duration("timeout"))

		resp, err := c.Score(ctx, model, inputs, opts)
		if err != nil {
			return err
		}
		if err := encode(cmd, resp); err != nil {
			return err
		}
		if resp.Error != "" {
			return fmt.Errorf("scoring failed: %s", resp.Error)
		}
		return nil
	},
}

var healthCmd = &cli.Command{
	Name:  "health",
	Usage: "Ask a running scoring service for its status",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		status, err := c.CheckHealth(ctx)
		if err != nil {
			return err
		}
		return encode(cmd, status)
	},
}

var watchCmd = &cli.Command{
	Name:  "watch",
	Usage: "Print heartbeats and emitted records until interrupted",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Subject prefix the NATS sink publishes under",
			Value: "scoring.emit",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		var mu sync.Mutex
		show := func(msg *nats.Msg) {
			line := watchLine{Subject: msg.Subject, Tags: map[string]string{}}
			for k := range msg.Header {
				line.Tags[k] = msg.Header.Get(k)
			}
			if err := json.Unmarshal(msg.Data, &line.Data); err != nil {
				line.Data = string(msg.Data)
			}
			mu.Lock()
			defer mu.Unlock()
			if err := encode(cmd, line); err != nil {
				slog.Error("failed to print message", "subject", msg.Subject, "error", err)
			}
		}

		heartbeat := make(chan error, 1)
		go func() {
			heartbeat <- c.Subscribe(ctx, "scoring.heartbeat", show)
		}()
		if err := c.Subscribe(ctx, cmd.String("prefix")+".>", show); err != nil {
			return err
		}
		return <-heartbeat
	},
}

type watchLine struct {
	Subject string            `json:"subject" yaml:"subject"`
	Tags    map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Data    any               `json:"data" yaml:"data"`
}

func encode(cmd *cli.Command, v any) error {
	f := cmd.String(formatFlag.Name)
	if f == formatYAML || f == "yml" {
		return yaml.NewEncoder(os.Stdout).Encode(v)
	}
	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
