// Command agent runs one treatment decision cycle for a crop case given on
// the command line and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/zeromicro/go-zero/core/logx"

	"cropagent/pkg/agent"
	"cropagent/pkg/confkit"
	"cropagent/pkg/journal"
	"cropagent/pkg/llm"
	"cropagent/pkg/memory"
)

func main() {
	var (
		agentPath   = flag.String("agent-config", "etc/agent.yaml", "path to agent policy configuration")
		llmPath     = flag.String("llm-config", "etc/llm.yaml", "path to llm backend configuration")
		memoryPath  = flag.String("memory-config", "etc/memory.yaml", "path to memory configuration")
		journalDir  = flag.String("journal", "", "directory for cycle journal records (disabled when empty)")
		crop        = flag.String("crop", "", "crop name, e.g. Tomato")
		disease     = flag.String("disease", "", "detected disease, e.g. \"Leaf Blight\"")
		severity    = flag.String("severity", "", "severity level: low, medium or high")
		confidence  = flag.Float64("confidence", 0, "detection confidence in [0,1]")
		temperature = flag.String("temperature", "", "air temperature in C (optional)")
		humidity    = flag.String("humidity", "", "relative humidity in % (optional)")
	)
	flag.Parse()
	logx.MustSetup(logx.LogConf{})
	logx.DisableStat()

	confkit.LoadDotenvOnce()

	if *crop == "" || *disease == "" || *severity == "" {
		fmt.Fprintln(os.Stderr, "usage: agent -crop <crop> -disease <disease> -severity <level> [-confidence <v>] [-temperature <C>] [-humidity <%>]")
		os.Exit(2)
	}

	caseCtx := agent.CaseContext{
		Crop:       *crop,
		Disease:    *disease,
		Severity:   *severity,
		Confidence: *confidence,
	}
	var err error
	if caseCtx.Temperature, err = parseOptional(*temperature, "temperature"); err != nil {
		fatal(err)
	}
	if caseCtx.Humidity, err = parseOptional(*humidity, "humidity"); err != nil {
		fatal(err)
	}

	llmCfg, err := llm.LoadConfig(*llmPath)
	if err != nil {
		fatal(err)
	}
	agentCfg, err := agent.LoadConfig(*agentPath)
	if err != nil {
		fatal(err)
	}
	memCfg, err := memory.LoadConfig(*memoryPath)
	if err != nil {
		fatal(err)
	}

	logger := llm.NewLogger(llmCfg.LogLevel)

	backend, err := llm.NewBackend(llmCfg, llm.WithLogger(logger))
	if err != nil {
		fatal(err)
	}
	runner, err := llm.NewRunner(backend, logger)
	if err != nil {
		fatal(err)
	}

	mem, err := memory.Open(memCfg, logger)
	if err != nil {
		fatal(err)
	}
	defer mem.Close()

	opts := []agent.Option{agent.WithAgentLogger(logger)}
	if *journalDir != "" {
		writer, err := journal.NewWriter(*journalDir)
		if err != nil {
			fatal(err)
		}
		opts = append(opts, agent.WithRecorder(writer))
	}

	decider, err := agent.New(agentCfg, mem.Retriever, runner, opts...)
	if err != nil {
		fatal(err)
	}

	result, err := decider.Decide(context.Background(), caseCtx)
	if err != nil {
		fatal(err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

func parseOptional(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return &v, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "agent:", err)
	os.Exit(1)
}
