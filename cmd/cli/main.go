package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type probeReply struct {
	Reply   string `json:"reply"`
	Outcome string `json:"outcome"`
	Error   string `json:"error"`
}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := strings.TrimSpace(os.Getenv("API_KEY"))

	req := resty.New().SetTimeout(2 * time.Minute).R()
	if key != "" {
		req.SetHeader("X-API-Key", key)
	}
	resp, err := req.Post(strings.TrimRight(api, "/") + "/api/probe")
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}

	var out probeReply
	_ = json.Unmarshal(resp.Body(), &out)

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusBadGateway:
		fmt.Println(out.Reply)
		if out.Outcome != "login_succeeded" {
			os.Exit(1)
		}
	case http.StatusTooManyRequests:
		fmt.Printf("Slow down, try again in %ss.\n", resp.Header().Get("Retry-After"))
		os.Exit(1)
	default:
		fmt.Println("API returned status:", resp.Status())
		os.Exit(1)
	}
}
