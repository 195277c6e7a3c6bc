package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"navyscope/serial"
)

var (
	consoleDevice string
	consoleBaud   int
	consoleAddr   string
)

// consoleCmd is an interactive client for poking a running bridge
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Send commands to a bridge interactively",
	Long: `Connects to a bridge over a serial device or TCP and sends each line
typed on stdin. Replies are printed as they arrive.

Lines ending in '#' are sent as-is; anything else gets a newline appended
so the bridge frames it immediately.

Example:
  navyscope console --addr 127.0.0.1:10001
  navyscope console --device /dev/ttyUSB0`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleDevice, "device", "", "Serial device path")
	consoleCmd.Flags().IntVar(&consoleBaud, "baud", 9600, "Baud rate")
	consoleCmd.Flags().StringVar(&consoleAddr, "addr", "", "TCP address of the bridge")
}

func runConsole(cmd *cobra.Command, args []string) error {
	conn, err := dialBridge()
	if err != nil {
		return err
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	go printReplies(out, conn)

	fmt.Fprintln(out, "Enter commands (type 'help' for available commands, 'quit' to exit):")
	return consoleLoop(cmd.InOrStdin(), out, conn)
}

func dialBridge() (io.ReadWriteCloser, error) {
	switch {
	case consoleAddr != "" && consoleDevice != "":
		return nil, errors.New("use either --addr or --device, not both")
	case consoleAddr != "":
		conn, err := net.DialTimeout("tcp", consoleAddr, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", consoleAddr, err)
		}
		return conn, nil
	case consoleDevice != "":
		cfg := serial.DefaultConfig(consoleDevice)
		cfg.Baud = consoleBaud
		cfg.ReadTimeout = 0
		return serial.Open(cfg)
	default:
		return nil, errors.New("one of --addr or --device is required")
	}
}

// consoleLoop reads lines from in and writes them to conn until quit or EOF
func consoleLoop(in io.Reader, out io.Writer, conn io.Writer) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil

		case "help", "?":
			printConsoleHelp(out)

		default:
			if _, err := conn.Write(encodeLine(line)); err != nil {
				return fmt.Errorf("failed to send %q: %w", line, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

func encodeLine(line string) []byte {
	if strings.HasSuffix(line, "#") {
		return []byte(line)
	}
	return []byte(line + "\n")
}

// printReplies copies replies to out, one per '#' terminated frame
func printReplies(out io.Writer, conn io.Reader) {
	r := bufio.NewReader(conn)
	for {
		reply, err := r.ReadString('#')
		if reply != "" {
			fmt.Fprintf(out, "< %q\n", reply)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			return
		}
	}
}

func printConsoleHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  F+ / F-        - Move the focuser out / in by one increment")
	fmt.Fprintln(out, "  :GR#           - Query right ascension")
	fmt.Fprintln(out, "  :GD#           - Query declination")
	fmt.Fprintln(out, "  :CM#           - Sync")
	fmt.Fprintln(out, "  help           - Show this help message")
	fmt.Fprintln(out, "  quit/exit/q    - Exit the program")
	fmt.Fprintln(out)
}
