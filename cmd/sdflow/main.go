// Command sdflow analyses timed synchronous dataflow graphs: self-timed
// throughput, throughput/storage trade-offs, Ning-Gao buffer sizing, and
// binding-aware analysis of graphs mapped onto a multi-tile platform.
//
// Usage:
//
//	sdflow --graph app.yaml --analysis throughput
//	sdflow --graph app.yaml --analysis buffer --thr-bound 0.25
//	sdflow --graph app.yaml --analysis ninggao
//	sdflow --graph app.yaml --platform p.yaml --mapping m.yaml --analysis binding
//
// Flags may also come from a config file (--config) or the environment via
// the SDFLOW_ prefix.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gitrdm/sdflow/pkg/bindaware"
	"github.com/gitrdm/sdflow/pkg/sdf"
	"github.com/gitrdm/sdflow/pkg/sdfio"
)

func main() {
	v := viper.New()
	v.SetDefault("analysis", "throughput")
	v.SetDefault("thr-bound", 0.0)
	v.SetDefault("use-bounds", false)
	v.SetDefault("parallelism", 1)
	v.SetDefault("flow", "nsoc")
	v.SetDefault("verbose", false)

	parseArgs(v, os.Args[1:])

	if cfg := v.GetString("config"); cfg != "" {
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); err != nil {
			fatal("read config: %v", err)
		}
	}
	v.SetEnvPrefix("SDFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	logger := zap.NewNop()
	if v.GetBool("verbose") {
		l, err := zap.NewDevelopment()
		if err != nil {
			fatal("logger: %v", err)
		}
		logger = l
	}
	defer logger.Sync()

	graphPath := v.GetString("graph")
	if graphPath == "" {
		fatal("--graph is required")
	}
	g, err := sdfio.LoadGraph(graphPath)
	if err != nil {
		fatal("%v", err)
	}
	logger.Info("loaded graph",
		zap.String("name", g.Name),
		zap.Int("actors", g.NrActors()),
		zap.Int("channels", g.NrChannels()))

	start := time.Now()
	switch v.GetString("analysis") {
	case "throughput":
		thr, err := sdf.AnalyzeThroughput(g)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("throughput: %s (%g)\n", thr, thr.Float64())

	case "buffer":
		opts := &sdf.ExplorerOptions{
			Parallelism: v.GetInt("parallelism"),
			Logger:      logger,
		}
		sets, err := sdf.AnalyzeBufferTradeoffOpts(g, v.GetFloat64("thr-bound"),
			v.GetBool("use-bounds"), opts)
		if err != nil {
			fatal("%v", err)
		}
		for _, s := range sets {
			fmt.Printf("sz=%d thr=%s (%g)\n", s.Sz, s.Thr, s.Thr.Float64())
			for _, d := range s.Distributions {
				fmt.Printf("  sp=%v\n", d.Sp)
			}
		}

	case "ninggao":
		d, startTimes, err := sdf.AnalyzeNingGao(g)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("sz=%d thr=%s sp=%v\n", d.Sz, d.Thr, d.Sp)
		fmt.Printf("start times: %v\n", startTimes)

	case "binding":
		pg, err := sdfio.LoadPlatform(v.GetString("platform"))
		if err != nil {
			fatal("%v", err)
		}
		m, err := sdfio.LoadMapping(v.GetString("mapping"), g, pg)
		if err != nil {
			fatal("%v", err)
		}
		flow := bindaware.NSoC
		if v.GetString("flow") == "mpflow" {
			flow = bindaware.MPFlow
		}
		thr, util, err := bindaware.AnalyzeThroughput(g, pg, m, flow)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("throughput: %s (%g)\n", thr, thr.Float64())
		for t, u := range util {
			fmt.Printf("tile %d utilisation: %.3f\n", t, u)
		}

	default:
		fatal("unknown analysis %q", v.GetString("analysis"))
	}
	logger.Info("analysis done", zap.Duration("elapsed", time.Since(start)))
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "sdflow: "+format+"\n", args...)
	os.Exit(1)
}

// parseArgs reads --key value and --key=value pairs plus bare boolean flags
// into the viper instance.
func parseArgs(v *viper.Viper, args []string) {
	for i := 0; i < len(args); i++ {
		arg := strings.TrimPrefix(args[i], "--")
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			v.Set(arg[:eq], arg[eq+1:])
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			v.Set(arg, args[i+1])
			i++
			continue
		}
		v.Set(arg, true)
	}
}
