package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luminosity-leds/luminosity/internal/client"
	"github.com/luminosity-leds/luminosity/internal/models"
)

// serverEnv overrides the default server; --server overrides both.
const serverEnv = "LUMINOSITY_SERVER"

type cli struct {
	server      string
	sessionPath string

	api *client.Client
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "luminosity-client",
		Short:         "Command line client for a Luminosity server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open()
		},
	}
	root.PersistentFlags().StringVar(&c.server, "server", "", "server base URL (default $"+serverEnv+" or "+client.DefaultServer+")")
	root.PersistentFlags().StringVar(&c.sessionPath, "session", "", "session file (default ~/.luminosity/session.json)")

	root.AddCommand(
		c.signupCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.meCmd(),
		c.verifyCmd(),
		c.deleteAccountCmd(),
		c.devicesCmd(),
		c.colorsCmd(),
		c.matchCmd(),
	)
	return root
}

// open resolves the server and session file and builds the API client. A
// stored session is reused only when it belongs to the same server.
func (c *cli) open() error {
	if c.sessionPath == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return err
		}
		c.sessionPath = p
	}
	s, err := client.LoadSession(c.sessionPath)
	if err != nil {
		return err
	}

	server := c.server
	if server == "" {
		server = os.Getenv(serverEnv)
	}
	if server == "" {
		server = s.Server
	}
	var opts []client.Option
	if s.Token != "" && (server == "" || strings.TrimRight(server, "/") == strings.TrimRight(s.Server, "/")) {
		opts = append(opts, client.WithToken(s.Token))
	}
	c.api, err = client.New(server, opts...)
	return err
}

func (c *cli) saveSession(email string) error {
	return client.SaveSession(c.sessionPath, &client.Session{
		Server: c.api.Server(),
		Email:  email,
		Token:  c.api.Token(),
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readPassword takes the flag value, then LUMINOSITY_PASSWORD, then one line
// from stdin.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("LUMINOSITY_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password required")
	}
	return pw, nil
}

func (c *cli) signupCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			a, err := c.api.Signup(cmd.Context(), name, email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created. Check %s for a verification link.\n", a.ID, a.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if err := c.api.Login(cmd.Context(), email, pw); err != nil {
				return err
			}
			if err := c.saveSession(email); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in as", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.api.Logout(cmd.Context())
			if cerr := client.ClearSession(c.sessionPath); cerr != nil {
				return cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify an email address with the emailed token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api.VerifyEmail(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Email verified")
			return nil
		},
	}
}

func (c *cli) deleteAccountCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the logged in account and all its devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			if err := c.api.DeleteAccount(cmd.Context()); err != nil {
				return err
			}
			if err := client.ClearSession(c.sessionPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func (c *cli) devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List and control devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.api.Devices(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, "No devices")
				return nil
			}
			for _, d := range list {
				fmt.Fprintf(w, "%s  %-20s %-10s %3d%%  powered=%t connected=%t\n",
					d.UUID, d.Name, d.Color, d.Brightness, d.Powered, d.Connected)
			}
			return nil
		},
	}

	var name, colorName string
	var brightness int
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.api.RegisterDevice(cmd.Context(), name, colorName, brightness)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
	add.Flags().StringVar(&name, "name", "", "device name")
	add.Flags().StringVar(&colorName, "color", "White", "palette color name")
	add.Flags().IntVar(&brightness, "brightness", 50, "brightness 0..100")
	_ = add.MarkFlagRequired("name")

	cmd.AddCommand(
		add,
		c.deviceShowCmd(),
		c.deviceUpdateCmd(),
		c.deviceCall("connect", "Mark a device connected", (*client.Client).Connect),
		c.deviceCall("disconnect", "Mark a device disconnected", (*client.Client).Disconnect),
		c.deviceDeleteCmd(),
		c.deviceOutputCmd(),
	)
	return cmd
}

func (c *cli) deviceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <uuid>",
		Short: "Show one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.api.Device(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
}

// deviceCall builds a single-device command around a client method. The
// client only exists once open has run.
func (c *cli) deviceCall(use, short string, call func(*client.Client, context.Context, string) (*models.Device, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <uuid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := call(c.api, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
}

func (c *cli) deviceUpdateCmd() *cobra.Command {
	var name, colorName, brightness, power string
	cmd := &cobra.Command{
		Use:   "update <uuid>",
		Short: "Change a device's name, color, brightness or power",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u models.DeviceUpdate
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("color") {
				u.Color = &colorName
			}
			if cmd.Flags().Changed("brightness") {
				b, err := strconv.Atoi(brightness)
				if err != nil {
					return fmt.Errorf("brightness: %w", err)
				}
				u.Brightness = &b
			}
			if cmd.Flags().Changed("power") {
				on, err := parsePower(power)
				if err != nil {
					return err
				}
				u.Powered = &on
			}
			if u.Empty() {
				return errors.New("nothing to update")
			}
			d, err := c.api.UpdateDevice(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&colorName, "color", "", "palette color name")
	cmd.Flags().StringVar(&brightness, "brightness", "", "brightness 0..100")
	cmd.Flags().StringVar(&power, "power", "", "on or off")
	return cmd
}

func parsePower(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("power must be on or off, got %q", s)
}

func (c *cli) deviceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Remove a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api.DeleteDevice(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Device deleted")
			return nil
		},
	}
}

func (c *cli) deviceOutputCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "output <uuid>",
		Short: "Show the color a device is emitting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.api.Output(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), f)
		},
	}
}

func (c *cli) colorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "colors",
		Short: "List the palette",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.api.Colors(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range p {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", n.Name, n.Hex)
			}
			return nil
		},
	}
}

func matchArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return errors.New("give a hex value or all three channels")
	}
	return nil
}

func (c *cli) matchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <#rrggbb | r g b>",
		Short: "Find the palette color closest to a hex or RGB value",
		Args:  matchArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				m   *client.Match
				err error
			)
			if len(args) == 1 {
				m, err = c.api.MatchHex(cmd.Context(), args[0])
			} else {
				var ch [3]int
				for i, a := range args {
					if ch[i], err = strconv.Atoi(a); err != nil {
						return fmt.Errorf("channel %d: %w", i+1, err)
					}
				}
				m, err = c.api.MatchRGB(cmd.Context(), ch[0], ch[1], ch[2])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s rgb(%d, %d, %d)\n", m.Name, m.Hex, m.RGB.R, m.RGB.G, m.RGB.B)
			return nil
		},
	}
}
