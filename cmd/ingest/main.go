// Command ingest seeds the case memory from a JSON file of historical cases:
// each case is flattened to text, embedded, added to the vector index and
// stored for later retrieval.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/zeromicro/go-zero/core/logx"

	"cropagent/pkg/confkit"
	"cropagent/pkg/llm"
	"cropagent/pkg/memory"
)

type seedCase struct {
	Crop             string  `json:"crop"`
	Disease          string  `json:"disease"`
	Severity         string  `json:"severity"`
	Temperature      float64 `json:"temperature"`
	Humidity         float64 `json:"humidity"`
	TreatmentApplied string  `json:"treatment_applied"`
	Outcome          string  `json:"outcome"`
}

func (c seedCase) text() string {
	return fmt.Sprintf("%s %s %s %gC %g%% %s %s",
		c.Crop, c.Disease, c.Severity, c.Temperature, c.Humidity,
		c.TreatmentApplied, c.Outcome)
}

func main() {
	var (
		memoryPath = flag.String("memory-config", "etc/memory.yaml", "path to memory configuration")
		seedPath   = flag.String("seed", "data/seed/sample.json", "path to seed case JSON file")
	)
	flag.Parse()
	logx.MustSetup(logx.LogConf{})
	logx.DisableStat()

	confkit.LoadDotenvOnce()

	memCfg, err := memory.LoadConfig(*memoryPath)
	if err != nil {
		fatal(err)
	}

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		fatal(err)
	}
	var cases []seedCase
	if err := json.Unmarshal(data, &cases); err != nil {
		fatal(fmt.Errorf("parse seed file: %w", err))
	}

	logger := llm.NewLogger("info")
	mem, err := memory.Open(memCfg, logger)
	if err != nil {
		fatal(err)
	}
	defer mem.Close()

	ctx := context.Background()
	for _, c := range cases {
		text := c.text()
		vec, err := mem.Embedder.Embed(ctx, text)
		if err != nil {
			fatal(fmt.Errorf("embed case %q: %w", text, err))
		}
		if _, err := mem.Index.Add(vec); err != nil {
			fatal(err)
		}
		if _, err := mem.Store.Insert(ctx, text); err != nil {
			fatal(err)
		}
	}

	if err := mem.SaveIndex(); err != nil {
		fatal(err)
	}

	fmt.Printf("Memory seeded successfully: %d cases.\n", len(cases))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "ingest:", err)
	os.Exit(1)
}
