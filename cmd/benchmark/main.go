// Benchmark tool for testing Kestrel against synthetic credit reports.
//
// Usage:
//   go run cmd/benchmark/main.go -batches 500 -url http://localhost:8080
//
// This tool:
//   1. Generates synthetic multi-bureau credit report batches (with known
//      injected cross-bureau conflicts)
//   2. Sends each batch to Kestrel for analysis
//   3. Compares Kestrel's shortlist against the injected conflict labels
//   4. Calculates precision, recall, and a confusion matrix over batches
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// AnalyzeRequest is the Kestrel API request format
type AnalyzeRequest struct {
	BatchID  string   `json:"batchId"`
	Accounts []Record `json:"accounts"`
}

// Record mirrors one bureau tradeline in the API request
type Record struct {
	Name          string `json:"name"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Balance       string `json:"balance,omitempty"`
	Status        string `json:"status,omitempty"`
	LatePayments  string `json:"latePayments,omitempty"`
	Bureau        string `json:"bureau"`
	DateOpened    string `json:"dateOpened,omitempty"`
	LastActivity  string `json:"lastActivity,omitempty"`
}

// AnalyzeResponse is the subset of the Kestrel response the benchmark reads
type AnalyzeResponse struct {
	ID              string `json:"id"`
	TotalNegatives  int    `json:"totalNegatives"`
	RoundOneTargets []struct {
		TotalScore int `json:"totalScore"`
	} `json:"roundOneTargets"`
	Metadata struct {
		ConflictCount int   `json:"conflictCount"`
		TotalMs       int64 `json:"totalMs"`
	} `json:"metadata"`
}

// Batch is one generated report plus its ground-truth labels
type Batch struct {
	ID                string
	Accounts          []Record
	InjectedConflicts int
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Conflicted batch produced a shortlist
	FalsePositives int64 // Clean batch produced a shortlist
	TrueNegatives  int64 // Clean batch produced no shortlist
	FalseNegatives int64 // Conflicted batch produced no shortlist (missed!)

	TotalProcessed  int64
	TotalConflicted int64
	TotalClean      int64
	TotalErrors     int64

	RecordsSent    int64
	NegativesFound int64
	ConflictsFound int64

	ProcessingTimeMs int64
}

var bureaus = []string{"experian", "equifax", "transunion"}

var creditors = []string{
	"CAPITAL ONE", "WELLS FARGO", "MIDLAND CREDIT", "PORTFOLIO RECOVERY",
	"SANTANDER CONSUMER", "FIRST PREMIER BANK", "LVNV FUNDING", "CREDIT ONE BANK",
	"SYNCB/AMAZON", "ACE CASH EXPRESS", "DISCOVER BANK", "ALLY FINANCIAL",
}

var negativeStatuses = []string{
	"Charged off", "Collection", "Repossession", "Late 60 days", "Past due 120 days",
}

func main() {
	// Parse flags
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	batchCount := flag.Int("batches", 500, "Number of batches to generate")
	tradelines := flag.Int("tradelines", 10, "Tradelines per batch")
	conflictRate := flag.Float64("conflict-rate", 0.5, "Fraction of batches with injected conflicts")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	seed := flag.Int64("seed", 1, "Random seed for batch generation")
	verbose := flag.Bool("verbose", false, "Print each batch result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║       KESTREL BENCHMARK - Cross-Bureau Conflict Detection     ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nKestrel URL:   %s\n", *baseURL)
	fmt.Printf("Tenant ID:     %s\n", *tenantID)
	fmt.Printf("Batches:       %d\n", *batchCount)
	fmt.Printf("Tradelines:    %d per batch\n", *tradelines)
	fmt.Printf("Conflict Rate: %.2f\n", *conflictRate)
	fmt.Printf("Workers:       %d\n", *workers)
	fmt.Printf("Seed:          %d\n", *seed)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	// Generate synthetic batches
	fmt.Printf("\nGenerating %d synthetic batches...\n", *batchCount)
	rng := rand.New(rand.NewSource(*seed))
	batches := make([]Batch, 0, *batchCount)
	conflicted := 0
	for i := 0; i < *batchCount; i++ {
		withConflicts := rng.Float64() < *conflictRate
		batches = append(batches, generateBatch(rng, i, *tradelines, withConflicts))
		if withConflicts {
			conflicted++
		}
	}
	fmt.Printf("✓ Generated %d batches\n", len(batches))
	fmt.Printf("  - Conflicted: %d (%.2f%%)\n", conflicted, 100*float64(conflicted)/float64(len(batches)))
	fmt.Printf("  - Clean:      %d (%.2f%%)\n", len(batches)-conflicted, 100*float64(len(batches)-conflicted)/float64(len(batches)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(batches, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// generateBatch builds one synthetic report. Each tradeline is reported by
// two or three bureaus with consistent fields; conflicted batches flip the
// status of one bureau's copy on roughly a third of the tradelines.
func generateBatch(rng *rand.Rand, index, tradelines int, withConflicts bool) Batch {
	batch := Batch{
		ID: fmt.Sprintf("bench-%06d", index),
	}

	for t := 0; t < tradelines; t++ {
		creditor := creditors[rng.Intn(len(creditors))]
		last4 := fmt.Sprintf("%04d", rng.Intn(10000))
		status := negativeStatuses[rng.Intn(len(negativeStatuses))]
		balance := fmt.Sprintf("$%d", 200+rng.Intn(20000))
		opened := fmt.Sprintf("20%02d-%02d-01", 15+rng.Intn(9), 1+rng.Intn(12))

		coverage := 2 + rng.Intn(2)
		conflictSlot := -1
		if withConflicts && t%3 == 0 {
			conflictSlot = rng.Intn(coverage)
			batch.InjectedConflicts++
		}

		for b := 0; b < coverage; b++ {
			rec := Record{
				Name:          creditor,
				AccountNumber: "XXXX" + last4,
				Balance:       balance,
				Status:        status,
				Bureau:        bureaus[b],
				DateOpened:    opened,
			}
			if b == conflictSlot {
				rec.Status = "Current - paid as agreed"
			}
			batch.Accounts = append(batch.Accounts, rec)
		}
	}

	return batch
}

func runBenchmark(batches []Batch, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan Batch, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for batch := range work {
				start := time.Now()
				result, err := analyzeBatch(client, baseURL, tenantID, batch)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)
				atomic.AddInt64(&metrics.RecordsSent, int64(len(batch.Accounts)))

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", batch.ID, err)
					}
					continue
				}

				atomic.AddInt64(&metrics.NegativesFound, int64(result.TotalNegatives))
				atomic.AddInt64(&metrics.ConflictsFound, int64(result.Metadata.ConflictCount))

				// Track ground-truth labels
				actual := batch.InjectedConflicts > 0
				if actual {
					atomic.AddInt64(&metrics.TotalConflicted, 1)
				} else {
					atomic.AddInt64(&metrics.TotalClean, 1)
				}

				// Calculate confusion matrix
				predicted := len(result.RoundOneTargets) > 0

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if predicted != actual {
						status = "✗"
					}
					topScore := 0
					if len(result.RoundOneTargets) > 0 {
						topScore = result.RoundOneTargets[0].TotalScore
					}
					fmt.Printf("%s %s | Records: %3d | Injected: %2d | Found: %2d | Shortlist: %d (top %d) | %dms\n",
						status,
						batch.ID,
						len(batch.Accounts),
						batch.InjectedConflicts,
						result.Metadata.ConflictCount,
						len(result.RoundOneTargets),
						topScore,
						elapsed,
					)
				}
			}
		}()
	}

	// Send work
	for _, batch := range batches {
		work <- batch
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func analyzeBatch(client *http.Client, baseURL, tenantID string, batch Batch) (*AnalyzeResponse, error) {
	req := AnalyzeRequest{
		BatchID:  batch.ID,
		Accounts: batch.Accounts,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Batches Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Records Sent:       %d\n", m.RecordsSent)
	fmt.Printf("   Conflicted Batches: %d\n", m.TotalConflicted)
	fmt.Printf("   Clean Batches:      %d\n", m.TotalClean)
	fmt.Printf("   Errors:             %d\n", m.TotalErrors)

	fmt.Printf("\n🔎 ENGINE OUTPUT\n")
	fmt.Printf("   Negatives Found:    %d\n", m.NegativesFound)
	fmt.Printf("   Conflicts Found:    %d\n", m.ConflictsFound)

	fmt.Printf("\n📈 CONFUSION MATRIX (shortlist vs injected conflicts)\n")
	fmt.Println("                        Predicted")
	fmt.Println("                  Shortlist    Empty")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  C  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          NC  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of shortlists, how many batches had real conflicts)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of conflicted batches, how many got a shortlist)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		bps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f batches/sec\n", bps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most conflicted reports")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some conflicted reports")
	} else {
		fmt.Println("   ❌ Poor recall - most conflicted reports are being missed!")
	}

	if precision >= 0.8 {
		fmt.Println("   ✅ Good precision - shortlists are meaningful")
	} else if precision >= 0.5 {
		fmt.Println("   ⚠️  Low precision - shortlists on clean reports")
	} else {
		fmt.Println("   ❌ Very low precision - mostly spurious shortlists")
	}

	fmt.Println()
}
