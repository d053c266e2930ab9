package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"taskboard/internal/client"
	"taskboard/internal/domain"
	"taskboard/internal/service"
)

const usage = `usage: taskctl [flags] <command> [args]

commands:
  list
  get <id>
  create -title T -description D [-status S] [-priority P]
  update <id> [-title T] [-description D] [-status S] [-priority P]
  delete <id>

flags:
`

// readPassword is replaced in tests.
var readPassword = term.ReadPassword

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "taskctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("taskctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	addr := fs.String("addr", envOr("TASKBOARD_ADDR", "http://localhost:8080"), "API base URL")
	email := fs.String("email", os.Getenv("TASKBOARD_EMAIL"), "login email")
	password := fs.String("password", "", "login password (prompted when empty)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *password == "" {
		pw, err := promptPassword(stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		*password = pw
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	c := client.New(*addr, client.WithLogger(logger))
	if _, err := c.Login(ctx, *email, *password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "list":
		tasks, err := c.ListTasks(ctx)
		if err != nil {
			return err
		}
		printTasks(stdout, tasks)
		return nil

	case "get":
		id, err := singleID(rest)
		if err != nil {
			return err
		}
		task, err := c.GetTask(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(stdout, task)

	case "create":
		in, err := parseCreate(rest, stderr)
		if err != nil {
			return err
		}
		task, err := c.CreateTask(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(stdout, task)

	case "update":
		if len(rest) == 0 {
			return errors.New("update needs a task id")
		}
		in, err := parseUpdate(rest[1:], stderr)
		if err != nil {
			return err
		}
		task, err := c.UpdateTask(ctx, rest[0], in)
		if err != nil {
			return err
		}
		return printJSON(stdout, task)

	case "delete":
		id, err := singleID(rest)
		if err != nil {
			return err
		}
		if err := c.DeleteTask(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %s\n", id)
		return nil
	}

	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func parseCreate(args []string, stderr io.Writer) (service.CreateTaskInput, error) {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var in service.CreateTaskInput
	fs.StringVar(&in.Title, "title", "", "task title")
	fs.StringVar(&in.Description, "description", "", "task description")
	status := fs.String("status", "", "pending, in-progress or completed")
	priority := fs.String("priority", "", "low, medium or high")
	if err := fs.Parse(args); err != nil {
		return in, err
	}
	if *status != "" {
		s := domain.TaskStatus(*status)
		in.Status = &s
	}
	if *priority != "" {
		p := domain.TaskPriority(*priority)
		in.Priority = &p
	}
	return in, nil
}

// parseUpdate only sets the fields whose flags were given.
func parseUpdate(args []string, stderr io.Writer) (service.UpdateTaskInput, error) {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(stderr)
	title := fs.String("title", "", "task title")
	description := fs.String("description", "", "task description")
	status := fs.String("status", "", "pending, in-progress or completed")
	priority := fs.String("priority", "", "low, medium or high")

	var in service.UpdateTaskInput
	if err := fs.Parse(args); err != nil {
		return in, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			in.Title = title
		case "description":
			in.Description = description
		case "status":
			s := domain.TaskStatus(*status)
			in.Status = &s
		case "priority":
			p := domain.TaskPriority(*priority)
			in.Priority = &p
		}
	})
	return in, nil
}

func singleID(args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New("expected exactly one task id")
	}
	return args[0], nil
}

func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func printTasks(w io.Writer, tasks []domain.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "%s  %-11s  %-6s  %s\n", t.ID, t.Status, t.Priority, t.Title)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
