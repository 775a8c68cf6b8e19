package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
)

const usage = `Commands:
  guest [appearance]        log in with a throwaway identity
  login <user> <pass>       log in, creating the account if it does not exist
  say <text>                chat or run a /buy, /sell, /equip, /eat command
  move <x> <y>              step toward a tile
  attack <id>               attack a monster
  interact <x> <y>          gather or talk
  quit                      log out and exit`

func main() {
	var host = flag.String("host", "localhost", "Server host")
	var port = flag.Int("port", 5555, "Server port")
	var showState = flag.Bool("state", false, "Print every StateUpdate entity")
	flag.Parse()

	conn, err := net.Dial("tcp", net.JoinHostPort(*host, strconv.Itoa(*port)))
	if err != nil {
		log.Fatalf("Failed to connect to server: %v", err)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s:%d\n", *host, *port)
	fmt.Println(usage)

	go func() {
		dec := protocol.NewDecoder(conn)
		for {
			msg, err := dec.Decode()
			if err != nil {
				fmt.Printf("Connection lost: %v\n", err)
				os.Exit(1)
			}
			printMessage(msg, *showState)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		msg, err := parseCommand(input)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if err := protocol.Write(conn, msg); err != nil {
			fmt.Printf("Failed to send message: %v\n", err)
			break
		}
		if _, ok := msg.(*protocol.Logout); ok {
			break
		}
	}
	fmt.Println("Goodbye!")
}

func parseCommand(input string) (protocol.Message, error) {
	fields := strings.Fields(input)
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "guest":
		return &protocol.Login{Guest: true, Appearance: strings.Join(args, " ")}, nil
	case "login":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: login <user> <pass>")
		}
		return &protocol.Login{Username: args[0], Password: args[1]}, nil
	case "say":
		return &protocol.Chat{Text: strings.TrimSpace(strings.TrimPrefix(input, fields[0]))}, nil
	case "move", "interact":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: %s <x> <y>", cmd)
		}
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("coordinates must be integers")
		}
		if cmd == "move" {
			return &protocol.MoveRequest{X: int32(x), Y: int32(y)}, nil
		}
		return &protocol.InteractRequest{X: int32(x), Y: int32(y)}, nil
	case "attack":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: attack <id>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("entity id must be an integer")
		}
		return &protocol.AttackRequest{TargetID: int32(id)}, nil
	case "quit", "logout", "exit":
		return &protocol.Logout{}, nil
	}
	return nil, fmt.Errorf("unknown command %q\n%s", fields[0], usage)
}

func printMessage(msg protocol.Message, showState bool) {
	switch m := msg.(type) {
	case *protocol.LoginResult:
		if !m.Success {
			fmt.Printf("Login failed: %s\n", m.Message)
			return
		}
		fmt.Printf("%s! You are entity %d at (%d,%d) in %s. HP %d/%d\n",
			m.Message, m.PlayerID, m.X, m.Y, m.Zone, m.HP, m.MaxHP)
		printStats(&m.Skills, m.Inventory, &m.Equipment)
	case *protocol.PlayerUpdate:
		fmt.Printf("HP %d/%d\n", m.HP, m.MaxHP)
		printStats(&m.Skills, m.Inventory, &m.Equipment)
	case *protocol.StateUpdate:
		if !showState {
			return
		}
		fmt.Printf("-- %d entities --\n", len(m.Entities))
		for _, e := range m.Entities {
			fmt.Printf("  #%d %-8v %-18s (%d,%d) %d/%d\n", e.ID, e.Kind, e.Name, e.X, e.Y, e.HP, e.MaxHP)
		}
	case *protocol.Chat:
		fmt.Println(m.Text)
	case *protocol.Notify:
		fmt.Printf("* %s\n", m.Text)
	default:
		fmt.Printf("%v\n", msg.Kind())
	}
}

func printStats(skills *model.SkillSet, inv *model.Inventory, eq *model.Equipment) {
	var parts []string
	for _, s := range model.AllSkills() {
		parts = append(parts, fmt.Sprintf("%v %d", s, skills.Level(s)))
	}
	fmt.Printf("  skills: %s\n", strings.Join(parts, ", "))
	parts = parts[:0]
	for _, st := range inv.Items() {
		parts = append(parts, fmt.Sprintf("%v x%d", st.Type, st.Amount))
	}
	fmt.Printf("  inventory: %s\n", strings.Join(parts, ", "))
	parts = parts[:0]
	for _, slot := range model.AllSlots() {
		if eq.Equipped(slot) {
			parts = append(parts, fmt.Sprintf("%v: %v", slot, eq.Get(slot)))
		}
	}
	if len(parts) > 0 {
		fmt.Printf("  equipped: %s\n", strings.Join(parts, ", "))
	}
}
