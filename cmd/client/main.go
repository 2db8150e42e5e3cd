// Command client is the interactive console client. It connects to the
// server over TCP, handles register/login/exit locally and forwards every
// other line as a command request for the authenticated user.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/ghuser/prodvault/pkg/protocol"
	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

const (
	defaultHost = "localhost"
	defaultPort = 5432
)

type client struct {
	conn   net.Conn
	reader *bufio.Reader // server responses
	stdin  *bufio.Reader

	username     string
	passwordHash string
}

func main() {
	host, port := parseArgs(os.Args[1:])

	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s:%d: %v\n", host, port, err)
		os.Exit(1)
	}
	defer conn.Close() //nolint:errcheck

	c := &client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		stdin:  bufio.NewReader(os.Stdin),
	}

	fmt.Printf("connected to %s:%d\n", host, port)
	fmt.Println("register or login to start; type help for commands, exit to quit")

	if err := c.repl(); err != nil {
		fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs accepts optional host and port positional arguments. Malformed
// values fall back to defaults with a warning.
func parseArgs(args []string) (string, int) {
	host, port := defaultHost, defaultPort
	if len(args) > 0 && args[0] != "" {
		host = args[0]
	}
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil || p <= 0 || p > 65535 {
			fmt.Fprintf(os.Stderr, "invalid port %q, using %d\n", args[1], defaultPort)
		} else {
			port = p
		}
	}
	return host, port
}

func (c *client) repl() error {
	for {
		fmt.Print("> ")
		line, err := c.stdin.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil // stdin closed, quit quietly
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := strings.ToLower(fields[0])
		args := fields[1:]

		switch name {
		case "exit":
			fmt.Println("bye")
			return nil
		case "register", "login":
			if err := c.auth(name == "register"); err != nil {
				return err
			}
		case "snapshot":
			if err := c.snapshot(); err != nil {
				return err
			}
		default:
			if err := c.command(name, args); err != nil {
				return err
			}
		}
	}
}

// auth prompts for credentials and performs a register or login round trip.
// On success the client remembers the username and password hash so every
// subsequent command can carry them.
func (c *client) auth(register bool) error {
	username := c.prompt("username: ")
	password := c.prompt("password: ")
	if username == "" || password == "" {
		fmt.Println("username and password must not be empty")
		return nil
	}

	if err := c.send(protocol.NewAuthRequest(username, password, register)); err != nil {
		return err
	}
	resp, err := c.readResponse()
	if err != nil {
		return err
	}
	if resp.Success {
		c.username = username
		c.passwordHash = models.HashPassword(password)
	}
	printResponse(resp)
	return nil
}

func (c *client) command(name string, args []string) error {
	if c.username == "" {
		fmt.Println("not authenticated: register or login first")
		return nil
	}
	if err := c.send(protocol.NewCommandRequest(name, args, c.username, c.passwordHash)); err != nil {
		return err
	}
	resp, err := c.readResponse()
	if err != nil {
		return err
	}
	printResponse(resp)
	return nil
}

// snapshot requests the raw product array and pretty-prints it.
func (c *client) snapshot() error {
	if c.username == "" {
		fmt.Println("not authenticated: register or login first")
		return nil
	}
	if err := c.send(protocol.NewSnapshotRequest()); err != nil {
		return err
	}
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return err
	}
	// A failure comes back as a response envelope instead of an array.
	if len(line) > 0 && line[0] == '{' {
		var resp protocol.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		printResponse(&resp)
		return nil
	}
	var products []*models.Product
	if err := json.Unmarshal(line, &products); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if len(products) == 0 {
		fmt.Println("collection is empty")
		return nil
	}
	for _, p := range products {
		fmt.Println(p)
	}
	return nil
}

func (c *client) send(req *protocol.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	_, err = c.conn.Write(payload)
	return err
}

func (c *client) readResponse() (*protocol.Response, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func (c *client) prompt(label string) string {
	fmt.Print(label)
	line, err := c.stdin.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func printResponse(resp *protocol.Response) {
	status := "ok"
	if !resp.Success {
		status = "error"
	}
	fmt.Printf("[%s] %s\n", status, resp.Message)
	if len(resp.Data) > 0 {
		fmt.Println(string(resp.Data))
	}
}
