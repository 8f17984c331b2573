// Command cli is an interactive terminal client for the FraudGPT chat API.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

const helpText = `Type a message and press Enter to send.
Commands:
  /image <path>  attach an image to the next message
  /history       show the messages of this session
  /sessions      list sessions
  /delete        delete this session and start a new one
  /quit          exit`

// REPL drives one interactive session.
type REPL struct {
	client    *Client
	out       io.Writer
	sessionID string
	image     string

	// following is set while an event stream prints replies for this session.
	following atomic.Bool
}

// Handle executes one input line. It returns false when the user asked to quit.
func (r *REPL) Handle(ctx context.Context, input string) bool {
	switch {
	case input == "/quit":
		fmt.Fprintln(r.out, "Bye!")
		return false

	case input == "/help":
		fmt.Fprintln(r.out, helpText)

	case strings.HasPrefix(input, "/image"):
		path := strings.TrimSpace(strings.TrimPrefix(input, "/image"))
		if path == "" {
			fmt.Fprintln(r.out, "usage: /image <path>")
			return true
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(r.out, "Cannot read image: %v\n", err)
			return true
		}
		r.image = base64.StdEncoding.EncodeToString(data)
		fmt.Fprintf(r.out, "Attached %s (%d bytes) to the next message.\n", path, len(data))

	case input == "/history":
		messages, err := r.client.ListMessages(ctx, r.sessionID)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return true
		}
		for _, m := range messages {
			printMessage(r.out, &m)
		}

	case input == "/sessions":
		sessions, err := r.client.ListSessions(ctx)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return true
		}
		for _, s := range sessions {
			marker := " "
			if s.ID == r.sessionID {
				marker = "*"
			}
			fmt.Fprintf(r.out, "%s %s  %s  %s\n", marker, s.ID, s.Title, s.UpdatedAt.Local().Format(time.DateTime))
		}

	case input == "/delete":
		if err := r.client.DeleteSession(ctx, r.sessionID); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return true
		}
		session, err := r.client.CreateSession(ctx)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return false
		}
		r.sessionID = session.ID
		r.following.Store(false)
		fmt.Fprintf(r.out, "Session deleted. New session: %s\n", session.ID)

	case strings.HasPrefix(input, "/"):
		fmt.Fprintf(r.out, "Unknown command %s, try /help\n", input)

	default:
		resp, err := r.client.Send(ctx, r.sessionID, input, r.image)
		r.image = ""
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return true
		}
		// With an event stream attached the reply is printed by the follower.
		if !r.following.Load() {
			fmt.Fprintf(r.out, "\nFraudGPT: %s\n\n", resp.Response)
		}
	}
	return true
}

func printMessage(w io.Writer, m *domain.Message) {
	who := "You"
	if m.Role == domain.RoleAssistant {
		who = "FraudGPT"
	}
	suffix := ""
	if m.HasImage() {
		suffix = " [image]"
	}
	fmt.Fprintf(w, "[%s] %s:%s %s\n", m.Timestamp.Local().Format(time.TimeOnly), who, suffix, m.Content)
}

// follow prints assistant replies and deletion notices until the stream ends.
// Afterwards Handle prints replies itself.
func (r *REPL) follow(conn *websocket.Conn) {
	defer r.following.Store(false)
	out := r.out
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				log.Printf("Event stream closed: %v", err)
			}
			return
		}
		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}
		switch ev.Type {
		case domain.EventTypeMessage:
			if ev.Message != nil && ev.Message.Role == domain.RoleAssistant {
				fmt.Fprintf(out, "\nFraudGPT: %s\n\n> ", ev.Message.Content)
			}
		case domain.EventTypeSessionDeleted:
			fmt.Fprintf(out, "\nSession %s was deleted.\n", ev.SessionID)
		}
	}
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "API base URL")
	sessionID := flag.String("session", "", "Session ID to resume (a new session is created when empty)")
	timeout := flag.Duration("timeout", 3*time.Minute, "HTTP request timeout")
	noEvents := flag.Bool("no-events", false, "Do not follow the session event stream")
	flag.Parse()

	log.SetFlags(log.Ltime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := NewClient(*addr, *timeout)
	repl := &REPL{client: client, out: os.Stdout, sessionID: *sessionID}

	if repl.sessionID == "" {
		session, err := client.CreateSession(ctx)
		if err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		repl.sessionID = session.ID
	}
	fmt.Printf("Session: %s\n", repl.sessionID)

	if !*noEvents {
		conn, err := client.Follow(ctx, repl.sessionID)
		if err != nil {
			log.Printf("Event stream unavailable: %v", err)
		} else {
			defer conn.Close()
			repl.following.Store(true)
			go repl.follow(conn)
		}
	}

	fmt.Println()
	fmt.Println(helpText)
	fmt.Println()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrupted")
			return
		case input, ok := <-lines:
			if !ok {
				return
			}
			if input == "" {
				continue
			}
			if !repl.Handle(ctx, input) {
				return
			}
		}
	}
}
