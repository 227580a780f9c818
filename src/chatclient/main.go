package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Gunhee-b/community-web-sub001/src/chatsync"
)

// teardown stops the sync loops and deletes the caller's typing marker.
func teardown(cancel context.CancelFunc, syncer *chatsync.Syncer) {
	cancel()
	if err := syncer.Close(); err != nil {
		log.Printf("close sync: %v", err)
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func login(apiURL, email, password string) (string, error) {
	raw, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(apiURL+"/v1/auth/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func whoami(apiURL, token string) (uint64, error) {
	req, _ := http.NewRequest(http.MethodGet, apiURL+"/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("profile: %s", resp.Status)
	}
	var out struct {
		UserID uint64 `json:"userId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.UserID, nil
}

func main() {
	_ = godotenv.Load()

	apiURL := getenv("API_URL", "http://localhost:8080")
	email := getenv("EMAIL", "")
	password := getenv("PASSWORD", "")
	meetingID, err := strconv.ParseUint(getenv("MEETING_ID", ""), 10, 64)
	if err != nil {
		log.Fatalf("bad MEETING_ID: %v", err)
	}

	token, err := login(apiURL, email, password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	selfID, err := whoami(apiURL, token)
	if err != nil {
		log.Fatalf("profile: %v", err)
	}

	backend := NewHTTPBackend(apiURL, token)
	syncer := chatsync.New(backend, meetingID, selfID, chatsync.Options{
		Notify: func(n chatsync.Notification) {
			fmt.Printf("\n🔔 %s: %s\n> ", n.Title, n.Body)
		},
		Logf: log.Printf,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := syncer.Start(ctx); err != nil {
		log.Fatalf("start sync: %v", err)
	}
	defer syncer.Close()

	if err := syncer.MarkRead(ctx); err != nil {
		log.Printf("mark read: %v", err)
	}

	for _, m := range syncer.Messages() {
		fmt.Printf("[%s] %s: %s\n", m.SentAt.Format("15:04"), m.Sender, m.Text)
	}

	// Typing display refresh.
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if users := syncer.TypingUsers(ctx); len(users) > 0 {
					names := make([]string, 0, len(users))
					for _, u := range users {
						names = append(names, u.Nickname)
					}
					fmt.Printf("\n✏️  %s 입력 중...\n> ", strings.Join(names, ", "))
				}
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		// Close before exiting so the typing marker is cleared server-side.
		teardown(cancel, syncer)
		os.Exit(0)
	}()

	fmt.Print("> ")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}
		if line == "/quit" {
			return
		}
		if err := syncer.Typed(ctx); err != nil {
			log.Printf("typing: %v", err)
		}
		if err := syncer.SendMessage(ctx, line); err != nil {
			log.Printf("send: %v", err)
		}
		fmt.Print("> ")
	}
}
