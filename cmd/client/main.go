package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ghostfox-code2305/raftkv/client"
)

func main() {
	// Command-line flags
	serversFlag := flag.String("servers", "localhost:50051", "comma-separated addresses of cluster members to try")
	timeout := flag.Duration("timeout", 5*time.Second, "per-RPC timeout")
	flag.Parse()

	addresses := strings.Split(*serversFlag, ",")
	for i := range addresses {
		addresses[i] = strings.TrimSpace(addresses[i])
	}

	printBanner()
	log.Printf("📡 Connecting to cluster members: %v", addresses)

	// Connect to the cluster; any member will forward to the real leader.
	kvClient, err := client.New(addresses, *timeout)
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v", err)
	}
	defer kvClient.Close()

	log.Println("✅ Connected")
	log.Println()
	printHelp()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := strings.ToUpper(parts[0])

		switch cmd {
		case "PUT":
			if len(parts) < 3 {
				fmt.Println("Usage: PUT <key> <value>")
				continue
			}
			key := parts[1]
			value := strings.Join(parts[2:], " ")

			if err := kvClient.Put(key, []byte(value)); err != nil {
				fmt.Printf("❌ Error: %v\n", err)
			} else {
				fmt.Println("✅ OK")
			}

		case "GET":
			if len(parts) != 2 {
				fmt.Println("Usage: GET <key>")
				continue
			}
			key := parts[1]

			value, found, err := kvClient.Get(key)
			if err != nil {
				fmt.Printf("❌ Error: %v\n", err)
			} else if !found {
				fmt.Println("📭 (not found)")
			} else {
				fmt.Printf("📦 %s\n", value)
			}

		case "DELETE":
			if len(parts) != 2 {
				fmt.Println("Usage: DELETE <key>")
				continue
			}
			key := parts[1]

			if err := kvClient.Delete(key); err != nil {
				fmt.Printf("❌ Error: %v\n", err)
			} else {
				fmt.Println("🗑️  Deleted")
			}

		case "HELP":
			printHelp()

		case "QUIT", "EXIT":
			fmt.Println("👋 Disconnecting...")
			return

		default:
			fmt.Printf("❓ Unknown command: %s\n", cmd)
			fmt.Println("Type HELP for available commands")
		}
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("Error reading input: %v", err)
	}
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║     🖥️  raftkv CLI Client                                ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
}

func printHelp() {
	help := `
📝 Available Commands:
  PUT <key> <value>    Submit a write, blocks until committed
  GET <key>            Non-linearizable local read
  DELETE <key>         Submit a delete, blocks until committed
  HELP                 Show this help message
  QUIT / EXIT          Disconnect
`
	fmt.Println(help)
}
