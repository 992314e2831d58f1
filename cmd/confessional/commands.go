package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/alphabot-ai/confessional/internal/auth"
	"github.com/alphabot-ai/confessional/internal/client"
	"github.com/alphabot-ai/confessional/internal/model"
)

// session is the admin login cached between CLI invocations.
type session struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
}

func confessionalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".confessional"
	}
	return filepath.Join(home, ".confessional")
}

func sessionPath() string {
	return filepath.Join(confessionalDir(), "session.json")
}

func loadSession() (session, error) {
	var s session
	data, err := os.ReadFile(sessionPath())
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

func saveSession(s session) error {
	if err := os.MkdirAll(confessionalDir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sessionPath(), data, 0o600)
}

func clearSession() error {
	err := os.Remove(sessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// adminClient returns a client carrying the cached token for baseURL.
func adminClient(baseURL string) (*client.Client, error) {
	s, err := loadSession()
	if err != nil || s.Token == "" {
		return nil, errors.New("not logged in; run 'confessional login' first")
	}
	if s.BaseURL != strings.TrimRight(baseURL, "/") {
		return nil, fmt.Errorf("cached session is for %s; run 'confessional login' again", s.BaseURL)
	}
	c := client.New(baseURL)
	c.Token = s.Token
	return c, nil
}

func idArg(c *cli.Command) (int64, error) {
	raw := c.Args().First()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("expected a message id, got %q", raw)
	}
	return id, nil
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Print a bcrypt hash for admin.password_hash",
		UsageText: "confessional hash-password [password]  (reads stdin when omitted)",
		Action: func(ctx context.Context, c *cli.Command) error {
			pw := c.Args().First()
			if pw == "" {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.Root().Writer, hash)
			return nil
		},
	}
}

func readCommand(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:      "read",
		Aliases:   []string{"list"},
		Usage:     "List messages, newest first",
		UsageText: "confessional read [--category NAME] [--limit N]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "only this category"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "max messages to show (0 for all)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			msgs, err := client.New(flags.BaseURL).Messages(ctx, c.String("category"))
			if err != nil {
				return err
			}
			if limit := int(c.Int("limit")); limit > 0 && len(msgs) > limit {
				msgs = msgs[:limit]
			}
			printMessages(c, msgs)
			return nil
		},
	}
}

func printMessages(c *cli.Command, msgs []model.Message) {
	out := c.Root().Writer
	if len(msgs) == 0 {
		_, _ = fmt.Fprintln(out, "No messages.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCATEGORY\tLIKES\tWHEN\tFROM\tTEXT")
	for _, m := range msgs {
		text := m.Text
		if m.Image != nil {
			text = strings.TrimSpace(text + " [image]")
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			m.ID, m.Category, m.Likes, m.Timestamp.Local().Format(time.DateTime), m.DisplayName, oneLine(text, 60))
	}
	_ = w.Flush()
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func postCommand(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Post a message",
		UsageText: `confessional post --category thoughts "text" [--image photo.png]`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "message category"},
			&cli.StringFlag{Name: "name", Usage: "display name"},
			&cli.StringFlag{Name: "avatar", Usage: "avatar glyph"},
			&cli.StringFlag{Name: "image", Usage: "path to a JPEG, PNG or GIF to upload"},
			&cli.StringFlag{Name: "image-url", Usage: "link an external image instead of uploading"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			p := client.Post{
				Text:        strings.Join(c.Args().Slice(), " "),
				Category:    c.String("category"),
				DisplayName: c.String("name"),
				Avatar:      c.String("avatar"),
				ImageURL:    c.String("image-url"),
			}
			if path := c.String("image"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				p.Image, p.ImageName = f, filepath.Base(path)
			}
			msg, err := client.New(flags.BaseURL).PostMessage(ctx, p)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.Root().Writer, "✓ Posted message %d in %s\n", msg.ID, msg.Category)
			return nil
		},
	}
}

func likeCommand(flags *globalFlags, action string) *cli.Command {
	return &cli.Command{
		Name:      action,
		Usage:     strings.ToUpper(action[:1]) + action[1:] + " a message",
		UsageText: "confessional " + action + " ID",
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := idArg(c)
			if err != nil {
				return err
			}
			cl := client.New(flags.BaseURL)
			op := cl.Like
			if action == "unlike" {
				op = cl.Unlike
			}
			n, err := op(ctx, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.Root().Writer, "✓ Message %d now has %d likes\n", id, n)
			return nil
		},
	}
}

func reportCommand(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Report a message to the moderators",
		UsageText: `confessional report ID [--reason "why"]`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reason", Usage: "why the message should be removed"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := idArg(c)
			if err != nil {
				return err
			}
			n, err := client.New(flags.BaseURL).Report(ctx, id, c.String("reason"))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.Root().Writer, "✓ Reported message %d (%d reports)\n", id, n)
			return nil
		},
	}
}

func loginCommand(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Log in as the admin and cache the session",
		UsageText: "confessional login --username admin --password ...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Value: "admin", Sources: cli.EnvVars("CONFESSIONAL_ADMIN_USERNAME")},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("CONFESSIONAL_ADMIN_PASSWORD")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cl := client.New(flags.BaseURL)
			if err := cl.Login(ctx, c.String("username"), c.String("password")); err != nil {
				return err
			}
			if err := saveSession(session{BaseURL: cl.BaseURL, Token: cl.Token}); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			_, _ = fmt.Fprintf(c.Root().Writer, "✓ Logged in to %s\n", cl.BaseURL)
			return nil
		},
	}
}

func logoutCommand(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the cached admin session",
		Action: func(ctx context.Context, c *cli.Command) error {
			if cl, err := adminClient(flags.BaseURL); err == nil {
				if err := cl.Logout(ctx); err != nil {
					return err
				}
			}
			if err := clearSession(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.Root().Writer, "✓ Logged out")
			return nil
		},
	}
}

func deleteCommand(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a message (admin)",
		UsageText: "confessional delete ID",
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := idArg(c)
			if err != nil {
				return err
			}
			cl, err := adminClient(flags.BaseURL)
			if err != nil {
				return err
			}
			if err := cl.Delete(ctx, id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.Root().Writer, "✓ Deleted message %d\n", id)
			return nil
		},
	}
}

func reportsCommand(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "List reported messages (admin)",
		Action: func(ctx context.Context, c *cli.Command) error {
			cl, err := adminClient(flags.BaseURL)
			if err != nil {
				return err
			}
			reported, err := cl.Reports(ctx)
			if err != nil {
				return err
			}
			out := c.Root().Writer
			if len(reported) == 0 {
				_, _ = fmt.Fprintln(out, "No reported messages.")
				return nil
			}
			for _, r := range reported {
				_, _ = fmt.Fprintf(out, "%d [%s] %s\n", r.ID, r.Category, oneLine(r.Text, 70))
				for _, rep := range r.Reports {
					_, _ = fmt.Fprintf(out, "    - %s (%s)\n", rep.Reason, rep.Timestamp.Local().Format(time.DateTime))
				}
			}
			return nil
		},
	}
}
