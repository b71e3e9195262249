package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/stemsi/qbank-console/internal/composer"
	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/logger"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/remote"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/tokenstore"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workflow"
)

// app holds what every command needs.
type app struct {
	cfg       *config.Config
	tokens    *tokenstore.File
	client    *remote.Client
	auth      *service.AuthService
	questions *service.QuestionService
	out       io.Writer
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	// Logs go to stderr; stdout carries command output.
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	tokens := tokenstore.NewFile(cfg.TokenFile)
	client := remote.NewClient(cfg.APIBaseURL, remote.WithTokenSource(tokens))
	a := &app{
		cfg:       cfg,
		tokens:    tokens,
		client:    client,
		auth:      service.NewAuthService(client, log),
		questions: service.NewQuestionService(client, cfg.VerifyPayloads, nil, log),
		out:       os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "login":
		err = a.login(ctx, args)
	case "logout":
		err = a.logout()
	case "whoami":
		err = a.whoami()
	case "validate":
		err = a.validate(args)
	case "compose":
		err = a.compose(args)
	case "submit":
		err = a.submit(ctx, args)
	case "batch":
		err = a.batch(ctx, args)
	case "parents":
		err = a.parents(ctx, args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: qbankctl <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login    [-email addr]     sign in and store the token")
	fmt.Println("  logout                     forget the stored token")
	fmt.Println("  whoami                     show the creator read from the token")
	fmt.Println("  validate -f draft.yaml     check a draft and list every error")
	fmt.Println("  compose  -f draft.yaml     print the payload that would be sent")
	fmt.Println("  submit   -f draft.yaml     validate and submit a standard question")
	fmt.Println("  batch    -f batch.yaml     submit a parent and its children")
	fmt.Println("  parents  [-search text]    list questions that accept children")
}

// ─── Auth ──────────────────────────────────────────────────────────────

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	reader := bufio.NewReader(os.Stdin)
	if *email == "" {
		fmt.Print("Enter Email: ")
		line, _ := reader.ReadString('\n')
		*email = strings.TrimSpace(line)
	}
	if *email == "" {
		return errors.New("email is required")
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Newline after password input
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	res, err := a.auth.Login(ctx, model.LoginRequest{Email: *email, Password: string(bytePassword)})
	if err != nil {
		return err
	}
	if err := a.tokens.Save(res.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	msg := res.Message
	if msg == "" {
		msg = "Logged in"
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) logout() error {
	if err := a.tokens.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami() error {
	creator, err := a.creator()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", creator.Name, creator.ID)
	return nil
}

func (a *app) creator() (model.Creator, error) {
	token, err := a.tokens.Token()
	if err != nil {
		return model.Creator{}, err
	}
	if token == "" {
		return model.Creator{}, remote.ErrUnauthenticated
	}
	return a.auth.CreatorFromToken(token)
}

// ─── Standard Mode ─────────────────────────────────────────────────────

func (a *app) validate(args []string) error {
	d, err := draftFlag("validate", args)
	if err != nil {
		return err
	}
	if errs := a.questions.Validate(d); errs.HasErrors() {
		printErrors(a.out, errs)
		return errors.New("draft is not valid")
	}
	fmt.Fprintln(a.out, "Draft is valid")
	return nil
}

func (a *app) compose(args []string) error {
	d, err := draftFlag("compose", args)
	if err != nil {
		return err
	}
	payload, errs := a.questions.Compose(d)
	if errs.HasErrors() {
		printErrors(a.out, errs)
		return errors.New("draft is not valid")
	}
	if err := composer.Verify(*payload); err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func (a *app) submit(ctx context.Context, args []string) error {
	d, err := draftFlag("submit", args)
	if err != nil {
		return err
	}
	creator, err := a.creator()
	if err != nil {
		return err
	}

	res, errs, err := a.questions.Submit(ctx, d, creator)
	if errs.HasErrors() {
		printErrors(a.out, errs)
		return errors.New("draft is not valid")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s\n", d.ID, resultMessage(res, "Question created"))
	return nil
}

func (a *app) parents(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("parents", flag.ExitOnError)
	search := fs.String("search", "", "filter by text")
	fs.Parse(args)

	hasChild := true
	questions, err := a.questions.List(ctx, model.QuestionFilter{HasChild: &hasChild, Search: *search})
	if err != nil {
		return err
	}
	for _, q := range questions {
		fmt.Fprintf(a.out, "%s\t%s\n", q.ID, q.QuestionTitle)
	}
	return nil
}

// ─── Parent/Child Mode ─────────────────────────────────────────────────

func (a *app) batch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	file := fs.String("f", "", "batch file (JSON or YAML) with a parent and its children")
	fs.Parse(args)
	if *file == "" {
		return errors.New("-f is required")
	}

	b, err := readBatch(*file)
	if err != nil {
		return err
	}
	creator, err := a.creator()
	if err != nil {
		return err
	}

	submit := service.NewSubmitter(a.client, a.cfg.VerifyPayloads)
	progress := func(e workflow.Event) {
		line := fmt.Sprintf("%-20s %s", e.Type, e.QuestionID)
		if e.Total > 0 {
			line += fmt.Sprintf(" (%d/%d)", e.Step, e.Total)
		}
		if e.Failed() {
			line += ": " + e.Error
		}
		fmt.Fprintln(a.out, line)
	}

	sess := workflow.NewSession("cli", creator)
	sess.SetDraft(b.Parent)
	if errs, err := sess.CreateParent(ctx, submit, progress); errs.HasErrors() {
		fmt.Fprintln(a.out, "parent:")
		printErrors(a.out, errs)
		return errors.New("parent is not valid")
	} else if err != nil {
		return err
	}

	for i, child := range b.Children {
		sess.SetDraft(child)
		errs, err := sess.AddChild()
		if err != nil {
			return err
		}
		if errs.HasErrors() {
			fmt.Fprintf(a.out, "child %d (%s):\n", i+1, child.ID)
			printErrors(a.out, errs)
			return fmt.Errorf("child %d is not valid; parent %s was created without children", i+1, sess.Parent.ID)
		}
	}

	report, err := sess.SubmitAllChildren(ctx, submit, progress)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Parent %s now has %d children: %s\n",
		report.ParentID, len(report.ChildIDs), strings.Join(report.ChildIDs, ", "))
	return nil
}

// ─── Helpers ───────────────────────────────────────────────────────────

func draftFlag(name string, args []string) (model.QuestionDraft, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	file := fs.String("f", "", "draft file (JSON or YAML)")
	fs.Parse(args)
	if *file == "" {
		return model.QuestionDraft{}, errors.New("-f is required")
	}
	return readDraft(*file)
}

func printErrors(w io.Writer, errs validator.Errors) {
	flat := errs.Flatten()
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(w, "  %s: %s\n", p, flat[p])
	}
}

func resultMessage(res *model.SubmitResult, fallback string) string {
	if res == nil || res.Message == "" {
		return fallback
	}
	return res.Message
}

// userMessage picks the text shown for a failed command.
func userMessage(err error) string {
	var batchErr *workflow.BatchError
	switch {
	case errors.As(err, &batchErr):
		return fmt.Sprintf("%s (%d of %d children of %s were submitted before the batch stopped)",
			remote.Message(batchErr.Err), batchErr.Submitted, batchErr.Total, batchErr.ParentID)
	case errors.Is(err, remote.ErrUnauthenticated):
		return "Please log in first (qbankctl login)"
	case errors.Is(err, service.ErrTokenMalformed), errors.Is(err, service.ErrNoIdentity):
		return "Stored token is not usable; log in again"
	default:
		var se *remote.ServerError
		var ne *remote.NetworkError
		if errors.As(err, &se) || errors.As(err, &ne) {
			return remote.Message(err)
		}
		return err.Error()
	}
}
