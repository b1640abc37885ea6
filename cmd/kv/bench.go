package kv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/conn"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	log = logger.GetLogger("cmd")

	benchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Performance testing tool for the engine",
		RunE:    runBench,
		PreRunE: processBenchConfig,
	}
	benchKeyPrefix        = "__bench"
	benchLargeValueSizeKB = 100
	benchNumThreads       = 10
	benchKeySpread        = 100
	benchSkip             = make([]string, 0)

	benchPercentiles = []float64{0.5, 0.9, 0.99}
)

// benchTest is a single benchmark, op is called with the connection and
// the index of the current iteration
type benchTest struct {
	name    string
	prepare func(c *conn.Connection, keys [][]byte)
	op      func(c *conn.Connection, key []byte, i int) error
}

func init() {
	key := "skip"
	benchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. store,fetch)"))
	key = "threads"
	benchCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines to use for the benchmark"))
	key = "large-value-size"
	benchCmd.Flags().Int(key, 100, util.WrapString("How large the value for the store-large test should be (in KB)"))
	key = "keys"
	benchCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	benchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	benchLargeValueSizeKB = viper.GetInt("large-value-size")
	benchKeySpread = viper.GetInt("keys")
	benchNumThreads = viper.GetInt("threads")
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	if benchKeySpread < 1 {
		return fmt.Errorf("keys must be at least 1, got %d", benchKeySpread)
	}
	if benchNumThreads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", benchNumThreads)
	}
	if !viper.GetBool("threadsafe") {
		return errors.New("bench shares one connection between goroutines and requires --threadsafe")
	}
	return nil
}

func runBench(_ *cobra.Command, _ []string) error {
	config := util.GetConnConfig()

	fmt.Println("Performance testing tool for eKV")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", benchNumThreads)
	fmt.Println()

	largeValue := make([]byte, benchLargeValueSizeKB*1024)
	seed := func(c *conn.Connection, keys [][]byte) {
		for _, k := range keys {
			if err := c.Store(k, []byte("bench")); err != nil {
				log.Warningf("(bench) - error seeding key: %v", err)
			}
		}
	}

	tests := []benchTest{
		{
			name: "store",
			op: func(c *conn.Connection, key []byte, _ int) error {
				return c.Store(key, []byte("bench"))
			},
		},
		{
			name: "store-large",
			op: func(c *conn.Connection, key []byte, _ int) error {
				return c.Store(key, largeValue)
			},
		},
		{
			name:    "fetch",
			prepare: seed,
			op: func(c *conn.Connection, key []byte, _ int) error {
				_, err := c.Fetch(key)
				return err
			},
		},
		{
			name:    "append",
			prepare: seed,
			op: func(c *conn.Connection, key []byte, _ int) error {
				return c.Append(key, []byte("+"))
			},
		},
		{
			name:    "delete",
			prepare: seed,
			op: func(c *conn.Connection, key []byte, _ int) error {
				err := c.Delete(key)
				if errors.Is(err, conn.ErrNotFound) {
					return nil
				}
				return err
			},
		},
		{
			name: "transaction",
			op: func(c *conn.Connection, key []byte, _ int) error {
				err := c.Update(func(c *conn.Connection) error {
					return c.Store(key, []byte("bench"))
				})
				// only one transaction can be open per connection
				if errors.Is(err, conn.ErrTxActive) {
					return nil
				}
				return err
			},
		},
		{
			name:    "mixed",
			prepare: seed,
			op: func(c *conn.Connection, key []byte, i int) error {
				var err error
				switch i % 4 {
				case 0:
					err = c.Store(key, []byte("bench"))
				case 1:
					_, err = c.Fetch(key)
				case 2:
					err = c.Append(key, []byte("+"))
				case 3:
					err = c.Delete(key)
				}
				if errors.Is(err, conn.ErrNotFound) {
					return nil
				}
				return err
			},
		},
	}

	registry := metrics.NewRegistry()
	results := make(map[string]testing.BenchmarkResult)

	err := util.WithConnection(func(c *conn.Connection) error {
		fmt.Println("starting tests...")
		for _, test := range tests {
			timer := metrics.GetOrRegisterTimer(test.name, registry)
			result := runBenchTest(c, test, timer)
			results[test.name] = result
			printResult(test.name, result, timer)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, registry, config.Mode); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

func runBenchTest(c *conn.Connection, test benchTest, timer metrics.Timer) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test.name) {
			return
		}

		getKey, keys := getKeys(test.name)
		if test.prepare != nil {
			test.prepare(c, keys)
		}

		b.Cleanup(func() {
			for _, k := range keys {
				if err := c.Delete(k); err != nil && !errors.Is(err, conn.ErrNotFound) {
					log.Warningf("(%s) - error deleting key: %v", test.name, err)
				}
			}
		})

		b.SetParallelism(benchNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := test.op(c, getKey(counter), counter); err != nil {
					log.Warningf("(%s) - error performing operation: %v", test.name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(benchSkip, test)
}

// getKeys creates the test keys of a benchmark and a function to pick one
func getKeys(prefix string) (func(int) []byte, [][]byte) {
	keys := make([][]byte, benchKeySpread)
	for i := 0; i < benchKeySpread; i++ {
		keys[i] = []byte(fmt.Sprintf("%s-%s-%d", benchKeyPrefix, prefix, i))
	}

	getKey := func(i int) []byte {
		return keys[i%benchKeySpread]
	}

	return getKey, keys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, timer metrics.Timer) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	ps := timer.Percentiles(benchPercentiles)
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p90=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, registry metrics.Registry, mode string) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"P50Ns", "P90Ns", "P99Ns", "MaxNs", "Samples",
		"Mode", "Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, test := range names {
		result := results[test]
		timer := metrics.GetOrRegisterTimer(test, registry)

		var nsPerOp, opsPerSec float64
		skipped := "true"
		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		ps := timer.Percentiles(benchPercentiles)

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strconv.FormatInt(timer.Max(), 10),
			strconv.FormatInt(timer.Count(), 10),
			mode,
			strconv.Itoa(benchNumThreads),
			strconv.Itoa(benchLargeValueSizeKB),
			strconv.Itoa(benchKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
