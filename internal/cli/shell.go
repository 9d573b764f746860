package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"kasir/internal/cart"
	"kasir/internal/llm"
	"kasir/internal/posapi"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

// userError carries the one line shown to the cashier while keeping the
// underlying error reachable for errors.Is.
type userError struct {
	err error
}

func (e userError) Error() string {
	return posapi.UserMessage(e.err, "")
}

func (e userError) Unwrap() error {
	return e.err
}

type shell struct {
	opts     *Options
	client   *posapi.Client
	llm      *llm.Client
	cart     *cart.Cart
	history  *ChatHistory
	lastSale *posapi.Transaction
	logger   *zap.Logger
	out      io.Writer
}

func newShell(opts *Options, out io.Writer, logger *zap.Logger) *shell {
	return &shell{
		opts:    opts,
		cart:    cart.New(),
		history: NewChatHistory(defaultHistoryMaxMessages, defaultHistoryMaxTokens, logger),
		logger:  logger,
		out:     out,
	}
}

// navigateToLogin is the terminal's login screen: the session is gone and
// the cashier has to log in again. The cart is kept.
func (s *shell) navigateToLogin(cause error) {
	s.logger.Warn("session ended", zap.Error(cause))
	fmt.Fprintln(s.out, "Sesi berakhir. Silakan login kembali dengan perintah 'login'.")
}

func (s *shell) oneShot(ctx context.Context, argv []string) error {
	if err := s.autoLogin(ctx); err != nil {
		return userError{err}
	}
	if err := s.exec(ctx, argv); err != nil && !errors.Is(err, errExit) {
		return userError{err}
	}
	return nil
}

func (s *shell) repl(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, banner())
	fmt.Fprintf(s.out, "Terhubung ke %s (ketik 'help' untuk daftar perintah, 'exit' untuk keluar)\n", s.client.BaseURL())
	if err := s.autoLogin(ctx); err != nil {
		s.report(err)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, s.prompt())
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		argv, err := splitArgs(line)
		if err != nil {
			s.report(err)
			continue
		}
		if err := s.exec(ctx, argv); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			s.report(err)
		}
	}
}

func (s *shell) prompt() string {
	user, ok := s.client.Session().Identity()
	if !ok {
		return "kasir> "
	}
	if s.cart.Empty() {
		return user.Username + "> "
	}
	return fmt.Sprintf("%s [%d item]> ", user.Username, len(s.cart.Lines()))
}

// autoLogin logs in with configured credentials when there is no session.
func (s *shell) autoLogin(ctx context.Context) error {
	if s.client.Session().HasToken() || s.opts.Username == "" || s.opts.Password == "" {
		return nil
	}
	user, err := s.client.Login(ctx, s.opts.Username, s.opts.Password)
	if err != nil {
		return err
	}
	if !s.opts.JSON {
		fmt.Fprintf(s.out, "Login sebagai %s (%s).\n", user.Username, user.Role)
		s.lowStockNotice(ctx)
	}
	return nil
}

// lowStockNotice tells the cashier how many products need restocking. It
// never fails the login it follows.
func (s *shell) lowStockNotice(ctx context.Context) {
	n, err := s.client.LowStockCount(ctx)
	if err != nil {
		s.logger.Warn("low stock count failed", zap.Error(err))
		return
	}
	if n > 0 {
		fmt.Fprintf(s.out, "%d produk stoknya rendah (ketik 'lowstock').\n", n)
	}
}

func (s *shell) exec(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	name := strings.ToLower(argv[0])
	cmd, ok := lookupCommand(name)
	if !ok {
		return fmt.Errorf("perintah tidak dikenal: %s (ketik 'help')", argv[0])
	}
	if cmd.needsLogin && !s.client.Session().HasToken() {
		return posapi.ErrNotLoggedIn
	}

	s.logger.Info("command", zap.String("name", cmd.name), zap.Int("args", len(argv)-1))
	return cmd.run(ctx, s, argv[1:])
}

func (s *shell) report(err error) {
	s.logger.Warn("command failed", zap.Error(err))
	fmt.Fprintf(s.out, "Gagal: %s\n", posapi.UserMessage(err, ""))
}

// emit prints v as JSON in --json mode and calls human otherwise.
func (s *shell) emit(v any, human func(w io.Writer)) error {
	if s.opts.JSON {
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(s.out)
	return nil
}

func (s *shell) resetChat() {
	s.history.Clear()
	s.history.Append(openrouter.SystemMessage(llm.SystemPromptWithContext(true)))
}

type command struct {
	name       string
	aliases    []string
	usage      string
	summary    string
	needsLogin bool
	run        func(ctx context.Context, s *shell, args []string) error
}

func commandList() []command {
	cmds := []command{
		{name: "help", aliases: []string{"?", "bantuan"}, usage: "help", summary: "Daftar perintah", run: runHelp},
		{name: "exit", aliases: []string{"quit", "keluar"}, usage: "exit", summary: "Keluar", run: func(context.Context, *shell, []string) error { return errExit }},
	}
	cmds = append(cmds, sessionCommands()...)
	cmds = append(cmds, cartCommands()...)
	cmds = append(cmds, catalogCommands()...)
	cmds = append(cmds, backOfficeCommands()...)
	cmds = append(cmds, assistantCommands()...)
	return cmds
}

func lookupCommand(name string) (command, bool) {
	for _, cmd := range commandList() {
		if cmd.name == name {
			return cmd, true
		}
		for _, alias := range cmd.aliases {
			if alias == name {
				return cmd, true
			}
		}
	}
	return command{}, false
}

func runHelp(_ context.Context, s *shell, _ []string) error {
	cmds := commandList()
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })
	tw := newTable(s.out)
	for _, cmd := range cmds {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.usage, cmd.summary)
	}
	return tw.Flush()
}

// splitArgs splits a command line on whitespace; double or single quotes
// group words into one argument.
func splitArgs(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	var quote rune
	inArg := false

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, errors.New("tanda kutip tidak ditutup")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
