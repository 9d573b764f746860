package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"kasir/internal/posapi"
	"kasir/internal/session"
)

func sessionCommands() []command {
	return []command{
		{name: "login", usage: "login [username] [password]", summary: "Masuk ke POS", run: runLogin},
		{name: "logout", usage: "logout", summary: "Keluar dari sesi", needsLogin: true, run: runLogout},
		{name: "whoami", aliases: []string{"profil"}, usage: "whoami", summary: "Pengguna yang sedang login", needsLogin: true, run: runWhoami},
		{name: "password", usage: "password <lama> <baru>", summary: "Ganti password", needsLogin: true, run: runChangePassword},
		{name: "refresh", usage: "refresh", summary: "Perpanjang sesi dari cookie refresh", run: runRestore},
	}
}

func runLogin(ctx context.Context, s *shell, args []string) error {
	username, password := s.opts.Username, s.opts.Password
	if len(args) > 0 {
		username = args[0]
	}
	if len(args) > 1 {
		password = args[1]
	}

	user, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return s.emit(user, func(w io.Writer) {
		fmt.Fprintf(w, "Login sebagai %s (%s).\n", user.Username, user.Role)
		s.lowStockNotice(ctx)
	})
}

func runLogout(ctx context.Context, s *shell, _ []string) error {
	err := s.client.Logout(ctx)
	s.cart.Clear()
	s.resetChat()
	fmt.Fprintln(s.out, "Logout berhasil.")
	if err != nil {
		s.logger.Warn("server logout failed")
	}
	return nil
}

type whoamiResult struct {
	User         session.User `json:"user"`
	ExpiresAt    string       `json:"token_expires_at,omitempty"`
	RefreshState string       `json:"refresh_state"`
}

func runWhoami(ctx context.Context, s *shell, _ []string) error {
	user, err := s.client.Profile(ctx)
	if err != nil {
		return err
	}
	result := whoamiResult{User: user, RefreshState: s.client.RefreshState()}
	if claims, err := s.client.Session().Claims(); err == nil && !claims.ExpiresAt.IsZero() {
		result.ExpiresAt = formatTime(claims.ExpiresAt)
	}

	return s.emit(result, func(w io.Writer) {
		tw := newTable(w)
		fmt.Fprintf(tw, "Username\t%s\n", user.Username)
		fmt.Fprintf(tw, "Nama\t%s\n", orDash(user.FirstName+" "+user.LastName))
		fmt.Fprintf(tw, "Email\t%s\n", orDash(user.Email))
		fmt.Fprintf(tw, "Peran\t%s\n", user.Role)
		if result.ExpiresAt != "" {
			fmt.Fprintf(tw, "Token berlaku s/d\t%s\n", result.ExpiresAt)
		}
		fmt.Fprintf(tw, "Refresh token\t%s\n", result.RefreshState)
		_ = tw.Flush()
	})
}

func runChangePassword(ctx context.Context, s *shell, args []string) error {
	if len(args) != 2 {
		return errors.New("pemakaian: password <lama> <baru>")
	}
	if err := s.client.ChangePassword(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Password berhasil diganti.")
	return nil
}

func runRestore(ctx context.Context, s *shell, _ []string) error {
	ok, err := s.client.RestoreSession(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return posapi.ErrNotLoggedIn
	}
	fmt.Fprintln(s.out, "Sesi diperpanjang.")
	return nil
}
