package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/formsigner/api/internal/apiclient"
	"github.com/formsigner/api/internal/document"
	"github.com/formsigner/api/internal/notify"
	"github.com/formsigner/api/internal/session"
)

const usage = `usage: portal <command> [args]

commands:
  login                      open a sub-account session
  logout                     close the current session
  whoami                     show the restored session
  docs [page]                list the owning account's documents
  open <document-id>         print a document's inline data URL
  download <document-id> <path>  save a document's PDF to disk
  tickets                    list support tickets
  messages <ticket-id>       list a ticket's messages
  read <ticket-id>           mark a ticket as read
  unread                     show unread admin-message counts
  watch                      follow unread counts until interrupted
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "portal: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	store, err := session.OpenFileStore(statePath())
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}

	api := apiclient.New(os.Getenv("FORMSIGNER_API_URL"))
	provider := session.NewProvider(store, api, trustOnRestore())
	if token := provider.Token(); token != "" {
		api.SetToken(token)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch command {
	case "login":
		return cmdLogin(ctx, provider)
	case "logout":
		return cmdLogout(ctx, provider, api)
	case "whoami":
		return cmdWhoami(ctx, provider)
	case "docs":
		return cmdDocs(ctx, provider, api, args)
	case "open":
		return cmdOpen(ctx, provider, api, args)
	case "download":
		return cmdDownload(ctx, provider, api, args)
	case "tickets":
		return cmdTickets(ctx, provider, api)
	case "messages":
		return cmdMessages(ctx, provider, api, args)
	case "read":
		return cmdRead(ctx, provider, api, store, args)
	case "unread":
		return cmdUnread(ctx, provider, api, store)
	case "watch":
		return cmdWatch(provider, api, store)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func statePath() string {
	if path := os.Getenv("FORMSIGNER_STATE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "portal.json"
	}
	return filepath.Join(home, ".formsigner", "portal.json")
}

func trustOnRestore() bool {
	raw := strings.TrimSpace(os.Getenv("FORMSIGNER_TRUST_ON_RESTORE"))
	if raw == "" {
		return true
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return parsed
}

func requireSession(provider *session.Provider) error {
	if !provider.IsSubAccount() {
		return fmt.Errorf("not logged in, run: portal login")
	}
	return nil
}

func cmdLogin(ctx context.Context, provider *session.Provider) error {
	reader := bufio.NewReader(os.Stdin)

	email, err := promptLine(reader, "Main account e-mail")
	if err != nil {
		return err
	}
	username, err := promptLine(reader, "Sub-account username")
	if err != nil {
		return err
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}

	if err := provider.Login(ctx, email, username, string(password)); err != nil {
		return err
	}

	sub := provider.Current()
	fmt.Printf("logged in as %s (%s)\n", sub.Username, sub.DisplayName)
	return nil
}

func cmdLogout(ctx context.Context, provider *session.Provider, api *apiclient.Client) error {
	if provider.IsSubAccount() {
		if err := api.SubAccountLogout(ctx); err != nil {
			// Local state clears regardless; the server token just expires.
			fmt.Fprintf(os.Stderr, "warning: server logout failed: %v\n", err)
		}
	}
	provider.Logout()
	fmt.Println("logged out")
	return nil
}

func cmdWhoami(ctx context.Context, provider *session.Provider) error {
	if err := requireSession(provider); err != nil {
		return err
	}

	sub := provider.Current()
	fmt.Printf("username:     %s\n", sub.Username)
	fmt.Printf("display name: %s\n", sub.DisplayName)
	fmt.Printf("pdf access:   %t\n", sub.Permissions.PDFAccess)
	fmt.Printf("download only: %t\n", sub.Permissions.DownloadOnly)
	if provider.Validate(ctx) {
		fmt.Println("session:      valid")
	} else {
		fmt.Println("session:      not confirmed by server")
	}
	return nil
}

func cmdDocs(ctx context.Context, provider *session.Provider, api *apiclient.Client, args []string) error {
	if err := requireSession(provider); err != nil {
		return err
	}

	page := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid page %q", args[0])
		}
		page = parsed
	}

	result, err := api.ListDocuments(ctx, page)
	if err != nil {
		return err
	}

	fmt.Printf("page %d of %d documents\n", result.Page, result.Total)
	for _, doc := range result.Documents {
		fmt.Printf("%s  %s  %s  %d bytes\n",
			doc.ID, doc.CreatedAt.Format(time.RFC3339), doc.FileName, doc.FileSize)
	}
	return nil
}

func cmdOpen(ctx context.Context, provider *session.Provider, api *apiclient.Client, args []string) error {
	if err := requireSession(provider); err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: portal open <document-id>")
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id")
	}

	doc, err := api.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	fmt.Println(document.DataURL(doc))
	return nil
}

func cmdDownload(ctx context.Context, provider *session.Provider, api *apiclient.Client, args []string) error {
	if err := requireSession(provider); err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: portal download <document-id> <path>")
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id")
	}

	doc, err := api.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	raw, err := document.Decode(doc)
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[1], raw, 0o600); err != nil {
		return err
	}
	fmt.Printf("saved %s (%d bytes)\n", args[1], len(raw))
	return nil
}

func cmdTickets(ctx context.Context, provider *session.Provider, api *apiclient.Client) error {
	if err := requireSession(provider); err != nil {
		return err
	}

	tickets, err := api.ListTickets(ctx)
	if err != nil {
		return err
	}

	for _, ticket := range tickets {
		fmt.Printf("%s  [%s]  %s\n", ticket.ID, ticket.Status, ticket.Subject)
	}
	return nil
}

func cmdMessages(ctx context.Context, provider *session.Provider, api *apiclient.Client, args []string) error {
	if err := requireSession(provider); err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: portal messages <ticket-id>")
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid ticket id")
	}

	messages, err := api.ListMessages(ctx, id)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		fmt.Printf("%s  %s\n  %s\n", msg.CreatedAt.Format(time.RFC3339), msg.AuthorType, msg.Body)
	}
	return nil
}

func cmdRead(ctx context.Context, provider *session.Provider, api *apiclient.Client, store session.Store, args []string) error {
	if err := requireSession(provider); err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: portal read <ticket-id>")
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid ticket id")
	}

	reconciler := notify.NewReconciler(api, store, 0)
	if err := reconciler.Refresh(ctx); err != nil {
		return err
	}
	reconciler.MarkRead(ctx, id)
	fmt.Printf("unread total: %d\n", reconciler.UnreadTotal())
	return nil
}

func cmdUnread(ctx context.Context, provider *session.Provider, api *apiclient.Client, store session.Store) error {
	if err := requireSession(provider); err != nil {
		return err
	}

	reconciler := notify.NewReconciler(api, store, 0)
	if err := reconciler.Refresh(ctx); err != nil {
		return err
	}

	tickets, err := api.ListTickets(ctx)
	if err != nil {
		return err
	}
	for _, ticket := range tickets {
		fmt.Printf("%s  unread=%d  %s\n", ticket.ID, reconciler.UnreadFor(ticket.ID), ticket.Subject)
	}
	fmt.Printf("total: %d\n", reconciler.UnreadTotal())
	return nil
}

func cmdWatch(provider *session.Provider, api *apiclient.Client, store session.Store) error {
	if err := requireSession(provider); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollInterval := 30 * time.Second
	if raw := os.Getenv("FORMSIGNER_POLL_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			pollInterval = parsed
		}
	}

	reconciler := notify.NewReconciler(api, store, pollInterval)

	events, err := api.SubscribeEvents(ctx)
	if err != nil {
		// Polling alone still converges, just slower.
		fmt.Fprintf(os.Stderr, "warning: event stream unavailable: %v\n", err)
		events = nil
	}

	reconciler.Start(ctx, events)
	defer reconciler.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	last := -1
	fmt.Println("watching for admin messages (ctrl-c to stop)")
	for {
		select {
		case <-sigCh:
			return nil
		case <-ticker.C:
			total := reconciler.UnreadTotal()
			if total != last {
				fmt.Printf("%s  unread total: %d\n", time.Now().Format(time.RFC3339), total)
				last = total
			}
		}
	}
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Printf("%s: ", prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
