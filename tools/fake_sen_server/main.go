// Command fake_sen_server serves a synthetic national grid feed in the
// upstream's wire shape: a JSON array of one-key objects with comma-grouped
// numeric strings and a local-time timestamp. Useful for running the
// collector locally without hitting the real endpoint.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

var borderUnits = []string{
	"MUKA", "ISPOZ", "IS", "UNGE", "CIOA", "GOTE", "VULC", "DOBR", "VARN",
	"KOZL1", "KOZL2", "DJER", "SIP_", "PANCEVO21", "PANCEVO22", "KIKI",
	"SAND", "BEKE1", "BEKE115",
}

type fakeSENServer struct {
	latency    time.Duration
	failRate   float64
	dropTotals bool

	totalCalls int64
}

func main() {
	addr := getenvDefault("FAKE_SEN_ADDR", ":18081")
	latencyMs := getenvIntDefault("FAKE_SEN_LATENCY_MS", 0)
	failRate := getenvFloatDefault("FAKE_SEN_FAIL_RATE", 0)
	dropTotals := getenvDefault("FAKE_SEN_DROP_TOTALS", "") != ""

	srv := &fakeSENServer{
		latency:    time.Duration(latencyMs) * time.Millisecond,
		failRate:   failRate,
		dropTotals: dropTotals,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/", srv.handleFeed)

	log.Printf("fake SEN feed server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func (s *fakeSENServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *fakeSENServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	atomic.AddInt64(&s.totalCalls, 1)
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	if s.failRate > 0 && rand.Float64() < s.failRate {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		return
	}

	now := time.Now()
	items := []map[string]string{
		{"DATA": fmt.Sprintf("%d/%d/%02d %02d:%02d:%02d",
			now.Day(), int(now.Month()), now.Year()%100,
			now.Hour(), now.Minute(), now.Second())},
	}

	nuclear := 1400.0
	coal := 300 + rand.Float64()*200
	gas := 800 + rand.Float64()*400
	wind := rand.Float64() * 2500
	hydro := 1500 + rand.Float64()*1500
	solar := solarOutput(now)
	production := nuclear + coal + gas + wind + hydro + solar
	consumption := 5500 + rand.Float64()*2500

	if !s.dropTotals {
		items = append(items,
			map[string]string{"PROD": group(production)},
			map[string]string{"CONS": group(consumption)},
		)
	}
	items = append(items,
		map[string]string{"NUCL": group(nuclear)},
		map[string]string{"CARB": group(coal)},
		map[string]string{"GAZE": group(gas)},
		map[string]string{"EOLIAN": group(wind)},
		map[string]string{"APE": group(hydro)},
		map[string]string{"FOTO": group(solar)},
		map[string]string{"SOLD": group(consumption - production)},
	)

	for _, unit := range borderUnits {
		// Signed flows, leaning import-heavy like the real grid.
		value := rand.Float64()*300 - 100
		items = append(items, map[string]string{unit: group(value)})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func solarOutput(now time.Time) float64 {
	hour := now.Hour()
	if hour < 7 || hour > 20 {
		return 0
	}
	return rand.Float64() * 1200
}

// group renders a value with comma grouping the way the upstream does.
func group(value float64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	digits := strconv.FormatInt(int64(value), 10)
	var out []byte
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	if negative {
		return "-" + string(out)
	}
	return string(out)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
