package main

import (
	"crypto/hmac"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Tanishq67m/EventPulse/internal/delivery"
)

const sigHeader = "X-EventPulse-Signature"

var (
	failFirstN      = 0
	reqCount        = 0
	endpointSecret  = ""
	responseDelayMS = 0
)

func main() {
	if v := os.Getenv("FAIL_FIRST_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			failFirstN = n
		}
	}
	if v := os.Getenv("ENDPOINT_SECRET"); v != "" {
		endpointSecret = v
	}
	if v := os.Getenv("RESPONSE_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			responseDelayMS = n
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/hook", handleHook)

	addr := os.Getenv("FAKE_RECEIVER_PORT")
	if addr == "" {
		addr = ":8081"
	}
	log.Printf("fake-receiver listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func handleHook(w http.ResponseWriter, r *http.Request) {
	reqCount++
	b, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	if responseDelayMS > 0 {
		time.Sleep(time.Duration(responseDelayMS) * time.Millisecond)
	}

	if endpointSecret != "" {
		if !verifySignature(endpointSecret, b, r.Header.Get(sigHeader)) {
			log.Printf("fake-receiver signature mismatch")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	// Simulate flakiness: first N requests -> 500
	if reqCount <= failFirstN {
		log.Printf("FAILING (%d/%d) body=%s", reqCount, failFirstN, truncate(string(b), 160))
		http.Error(w, "temporary failure", http.StatusInternalServerError)
		return
	}

	log.Printf("fake-receiver OK body=%q", truncate(string(b), 160))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`ok`))
}

// verifySignature recomputes the body signature and compares in constant
// time.
func verifySignature(secret string, body []byte, got string) bool {
	want := delivery.Sign(secret, body)
	gotBytes, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	wantBytes, _ := hex.DecodeString(want)
	return hmac.Equal(gotBytes, wantBytes)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
