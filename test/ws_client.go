package main

import (
	"encoding/json"
	"flag"
	"log"
	"time"

	"github.com/EternisAI/print-relay/internal/protocol"
	"github.com/gorilla/websocket"
)

var (
	address  = flag.String("address", "ws://localhost:8770/ws", "Broker WebSocket URL")
	username = flag.String("username", "", "Account username (account mode)")
	password = flag.String("password", "", "Pairing code or account password; empty requests a new code")
	content  = flag.String("content", "<h1>Test page</h1>", "HTML content to print")
	wait     = flag.Duration("wait", 60*time.Second, "How long to wait for an agent before printing")
)

func main() {
	flag.Parse()

	log.Printf("Connecting to broker at %s", *address)

	conn, _, err := websocket.DefaultDialer.Dial(*address, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	cred := *password
	if cred == "" {
		send(conn, protocol.Inbound{Type: protocol.TypeGetAuthCode})
		reply := receive(conn, 5*time.Second)
		if reply.Type != protocol.TypeAuthCodeGenerated {
			log.Fatalf("Unexpected reply type=%s message=%q", reply.Type, reply.Message)
		}
		cred = reply.Code
		log.Printf("Received code %s, enter it in the print agent", cred)
	}

	send(conn, protocol.Inbound{Type: protocol.TypeCheckClientStatus, Username: *username, Password: cred})

	deadline := time.Now().Add(*wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Fatalf("No agent connected within %s", *wait)
		}
		msg := receive(conn, remaining)
		if msg.Type == protocol.TypeClientStatus && msg.Connected {
			log.Printf("Agent connected clients=%v client_id=%s", msg.Clients, msg.ClientID)
			break
		}
		log.Printf("Received message type=%s connected=%t", msg.Type, msg.Connected)
	}

	body, err := json.Marshal(*content)
	if err != nil {
		log.Fatalf("Failed to encode content: %v", err)
	}
	send(conn, protocol.Inbound{
		Type:     protocol.TypePrintRequest,
		Username: *username,
		Password: cred,
		Content:  body,
	})
	log.Println("Sent print_request")

	for {
		msg := receive(conn, 15*time.Second)
		switch msg.Type {
		case protocol.TypePrintQueued:
			log.Printf("Print queued: %s", msg.Message)
			return
		case protocol.TypeError:
			log.Fatalf("Print failed: %s", msg.Message)
		default:
			log.Printf("Received message type=%s", msg.Type)
		}
	}
}

func send(conn *websocket.Conn, msg protocol.Inbound) {
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Fatalf("Failed to encode %s: %v", msg.Type, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Fatalf("Failed to send %s: %v", msg.Type, err)
	}
}

type message struct {
	Type      string   `json:"type"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Connected bool     `json:"connected"`
	Clients   []string `json:"clients"`
	ClientID  string   `json:"client_id"`
}

func receive(conn *websocket.Conn, timeout time.Duration) message {
	conn.SetReadDeadline(time.Now().Add(timeout))
	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		log.Fatalf("Receive error: %v", err)
	}
	return msg
}
