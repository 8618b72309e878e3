// Package cli implements the interactive command-line interface of the
// client: connection status, the character model, and commands sent to the
// server.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/connector"
	"github.com/cfclient-project/cfclient/internal/db"
	"github.com/cfclient-project/cfclient/internal/events"
)

// CLI provides an interactive command-line interface.
type CLI struct {
	cfg  *config.Config
	conn *connector.ServerConnector

	capture *db.CaptureStore
	roster  *db.RosterStore

	in   io.Reader
	out  io.Writer
	quit func()
}

// NewCLI creates a new CLI handler reading stdin and writing stdout.
func NewCLI(cfg *config.Config, conn *connector.ServerConnector, quit func()) *CLI {
	if quit == nil {
		quit = func() {}
	}
	return &CLI{
		cfg:  cfg,
		conn: conn,
		in:   os.Stdin,
		out:  os.Stdout,
		quit: quit,
	}
}

// SetDependencies injects the capture stores; either may be nil.
func (c *CLI) SetDependencies(capture *db.CaptureStore, roster *db.RosterStore) {
	c.capture = capture
	c.roster = roster
}

// SetIO replaces the input and output streams.
func (c *CLI) SetIO(in io.Reader, out io.Writer) {
	c.in = in
	c.out = out
}

// Start begins the interactive CLI loop. It returns on EOF, on quit, or
// once ctx is cancelled and the next line is read.
func (c *CLI) Start(ctx context.Context) {
	fmt.Fprintln(c.out, "\ncfclient CLI ready. Type 'help' for available commands.")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fmt.Fprint(c.out, "cfclient> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				log.Warn().Err(err).Msg("CLI input closed")
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			fmt.Fprintln(c.out, "Shutting down...")
			c.quit()
			return
		}
		if err := c.execute(cmd, args); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

// execute processes a single CLI command.
func (c *CLI) execute(cmd string, args []string) error {
	switch cmd {
	case "help", "h", "?":
		c.printHelp()
	case "status", "s":
		c.printStatus()
	case "stats":
		c.printStats()
	case "inventory", "inv", "i":
		return c.printInventory(args)
	case "spells":
		c.printSpells()
	case "quests":
		c.printQuests()
	case "characters", "chars":
		return c.printCharacters(args)
	case "packets":
		return c.printPackets(args)
	case "negotiation", "neg":
		c.printNegotiation()
	case "mapsize":
		return c.cmdMapSize(args)
	case "looks":
		return c.cmdLookObjects(args)
	case "cmd", "ncom":
		return c.cmdNcom(args)
	case "reply":
		return c.cmdReply(args)
	case "login":
		return c.cmdLogin(args)
	case "play":
		return c.cmdPlay(args)
	case "setconfig":
		return c.cmdSetConfig(args)
	default:
		fmt.Fprintf(c.out, "Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
	}
	return nil
}

// printHelp displays available commands.
func (c *CLI) printHelp() {
	fmt.Fprintln(c.out, `
Commands:
  status               Connection state and transport counters
  stats                Character stats
  inventory [tag]      Items at a location (default: player)
  spells               Known spells
  quests               Known quests
  characters [acct]    Stored character rosters
  packets [n] [cmd]    Recently captured packets
  negotiation          Map size and look object negotiation
  mapsize <WxH>        Change the preferred map size
  looks <n>            Change the preferred look object count
  cmd <command>        Send a command to the server
  reply <text>         Answer the pending query
  login <acct> <pw>    Log into an account
  play <name>          Play a character of the account
  setconfig <k> <v>    Update a client option
  quit                 Disconnect and exit`)
}

func (c *CLI) table(header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(c.out)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	return tw
}

// printStatus displays the connection state.
func (c *CLI) printStatus() {
	st := c.conn.Stats()
	account := c.conn.AccountName()
	if account == "" {
		account = "-"
	}

	fmt.Fprintf(c.out, "\n  State:        %s\n", c.conn.State())
	fmt.Fprintf(c.out, "  Login method: %d\n", c.conn.LoginMethod())
	fmt.Fprintf(c.out, "  Account:      %s\n", account)
	fmt.Fprintf(c.out, "  Map size:     %s\n", c.conn.CurrentMapSize())
	fmt.Fprintf(c.out, "  Look objects: %d\n", c.conn.NumLookObjects())
	if st.Connected {
		fmt.Fprintf(c.out, "  Remote:       %s\n", st.RemoteAddr)
		fmt.Fprintf(c.out, "  Frames:       %d in / %d out\n", st.FramesIn, st.FramesOut)
		fmt.Fprintf(c.out, "  Bytes:        %d in / %d out\n", st.BytesIn, st.BytesOut)
	}
	fmt.Fprintln(c.out)
}

func (c *CLI) printStats() {
	tw := c.table("ID", "Value", "Level", "Exp")
	for _, s := range c.conn.Model().Stats().Snapshot() {
		value := strconv.FormatInt(s.Value, 10)
		level, exp := "-", "-"
		switch s.Kind {
		case events.StatKindString:
			value = s.Text
		case events.StatKindSkill:
			level = strconv.Itoa(int(s.Level))
			exp = strconv.FormatUint(s.Exp, 10)
		}
		tw.Append([]string{strconv.Itoa(s.ID), value, level, exp})
	}
	tw.Render()
}

func (c *CLI) printInventory(args []string) error {
	items := c.conn.Model().Items()

	var location uint32
	if player, ok := items.Player(); ok {
		location = player.Tag
	}
	if len(args) > 0 {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid location: %s", args[0])
		}
		location = uint32(v)
	}

	tw := c.table("Tag", "Name", "Count", "Weight", "Face")
	for _, it := range items.Inventory(location) {
		tw.Append([]string{
			strconv.FormatUint(uint64(it.Tag), 10),
			it.Name,
			strconv.FormatUint(uint64(it.Nrof), 10),
			strconv.Itoa(int(it.Weight)),
			strconv.FormatUint(uint64(it.Face), 10),
		})
	}
	tw.Render()
	return nil
}

func (c *CLI) printSpells() {
	tw := c.table("Tag", "Name", "Level", "Mana", "Grace")
	for _, sp := range c.conn.Model().Spells().Spells() {
		tw.Append([]string{
			strconv.FormatUint(uint64(sp.Tag), 10),
			sp.Name,
			strconv.Itoa(int(sp.Level)),
			strconv.Itoa(int(sp.Mana)),
			strconv.Itoa(int(sp.Grace)),
		})
	}
	tw.Render()
}

func (c *CLI) printQuests() {
	tw := c.table("Code", "Title", "Done", "Step")
	for _, q := range c.conn.Model().Quests().Quests() {
		tw.Append([]string{
			strconv.FormatUint(uint64(q.Code), 10),
			q.Title,
			strconv.FormatBool(q.End != 0),
			q.Step,
		})
	}
	tw.Render()
}

func (c *CLI) printCharacters(args []string) error {
	if c.roster == nil {
		return errors.New("capture database disabled")
	}

	accounts := args
	if len(accounts) == 0 {
		all, err := c.roster.Accounts()
		if err != nil {
			return err
		}
		accounts = all
	}

	tw := c.table("Account", "Name", "Class", "Race", "Level", "Map")
	for _, account := range accounts {
		chars, err := c.roster.Characters(account)
		if err != nil {
			return err
		}
		for _, ch := range chars {
			tw.Append([]string{account, ch.Name, ch.Class, ch.Race, strconv.Itoa(int(ch.Level)), ch.Map})
		}
	}
	tw.Render()
	return nil
}

func (c *CLI) printPackets(args []string) error {
	if c.capture == nil {
		return errors.New("capture database disabled")
	}

	limit := 20
	command := ""
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid count: %s", args[0])
		}
		limit = n
	}
	if len(args) > 1 {
		command = args[1]
	}

	packets, err := c.capture.Recent(limit, command)
	if err != nil {
		return err
	}

	tw := c.table("Time", "Dir", "Command", "Category", "Length")
	for _, p := range packets {
		dir := "in"
		if p.Outbound {
			dir = "out"
		}
		tw.Append([]string{
			p.CapturedAt.Format("15:04:05.000"),
			dir,
			p.Command,
			p.Category,
			strconv.Itoa(p.Length),
		})
	}
	tw.Render()
	return nil
}

func (c *CLI) printNegotiation() {
	st := c.conn.Negotiation()
	pendingMap, pendingLook := "-", "-"
	if st.PendingMap != "" {
		pendingMap = st.PendingMap
	}
	if st.PendingLook != 0 {
		pendingLook = strconv.Itoa(st.PendingLook)
	}

	tw := c.table("", "Preferred", "Pending", "Current")
	tw.Append([]string{"map size", st.PreferredMap, pendingMap, st.CurrentMap})
	tw.Append([]string{"look objects", strconv.Itoa(st.PreferredLook), pendingLook, strconv.Itoa(st.CurrentLook)})
	tw.Render()
	fmt.Fprintf(c.out, "map rounds: %d/%d\n", st.MapRounds, st.NegotiationMax)
}

func (c *CLI) cmdMapSize(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: mapsize <width>x<height>")
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(args[0]), "%dx%d", &w, &h); err != nil {
		return fmt.Errorf("invalid map size: %s", args[0])
	}
	if err := c.conn.SetPreferredMapSize(w, h); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Preferred map size set to %dx%d\n", w, h)
	return nil
}

func (c *CLI) cmdLookObjects(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: looks <count>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid count: %s", args[0])
	}
	if err := c.conn.SetPreferredNumLookObjects(n); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Preferred look object count set to %d\n", n)
	return nil
}

func (c *CLI) cmdNcom(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: cmd <command>")
	}
	command := strings.Join(args, " ")
	seq, err := c.conn.SendNcom(0, command)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Sent '%s' (sequence %d)\n", command, seq)
	return nil
}

func (c *CLI) cmdReply(args []string) error {
	return c.conn.SendReply(strings.Join(args, " "))
}

func (c *CLI) cmdLogin(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <account> <password>")
	}
	return c.conn.SendAccountLogin(args[0], args[1])
}

func (c *CLI) cmdPlay(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: play <character>")
	}
	return c.conn.SendAccountPlay(strings.Join(args, " "))
}

func (c *CLI) cmdSetConfig(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: setconfig <key> <value>")
	}

	key := args[0]
	raw := strings.Join(args[1:], " ")
	var value interface{} = raw
	if n, err := strconv.Atoi(raw); err == nil {
		value = n
	}

	if err := c.cfg.UpdateClientField(key, value); err != nil {
		return err
	}
	if c.cfg.Path() != "" {
		if err := c.cfg.Save(); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.out, "Config updated: %s = %s (applies on next start)\n", key, raw)
	return nil
}
