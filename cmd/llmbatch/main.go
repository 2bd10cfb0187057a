package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"llmbatch/internal/batch"
	"llmbatch/internal/config"
	"llmbatch/internal/llm"
	"llmbatch/internal/llm/strategy"
	"llmbatch/internal/observability"
	"llmbatch/internal/version"
)

func main() {
	source := flag.String("source", "", "path to the source text file")
	target := flag.String("target", "", "path to the target output file")
	url := flag.String("url", "", "LLM endpoint URL (ignored when saved progress exists for the source)")
	apiKey := flag.String("api-key", os.Getenv("LLMBATCH_API_KEY"), "bearer API key")
	chunkSize := flag.Int("chunk-size", 0, "lines per chunk (0 = resolver default)")
	batchSize := flag.Int("batch-size", 0, "chunks per batch (0 = resolver default)")
	parallel := flag.Int("parallel", 0, "concurrent calls per batch (0 = resolver default)")
	delay := flag.Int("delay-ms", 0, "minimum gap between batch starts, in milliseconds (0 = resolver default)")
	systemPrompt := flag.String("system-prompt", "", "optional system prompt")
	printVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.Version)
		return
	}
	if *source == "" || *target == "" {
		fmt.Fprintln(os.Stderr, "usage: llmbatch -source <file> -target <file> [-url ...]")
		os.Exit(2)
	}

	ambient := config.LoadAmbient()
	observability.InitLogger(ambient.LogLevel)

	baseCtx := context.Background()

	shutdown, err := observability.InitOTel(baseCtx, ambient.AppName, version.Version)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	raw := config.RawOptions{}
	if *url != "" {
		raw["url"] = *url
	}
	if *apiKey != "" {
		raw["apiKey"] = *apiKey
	}
	if *delay > 0 {
		raw["delay"] = float64(*delay)
	}
	if *chunkSize > 0 {
		raw["chunkSize"] = float64(*chunkSize)
	}
	if *batchSize > 0 {
		raw["batchSize"] = float64(*batchSize)
	}
	if *parallel > 0 {
		raw["parallel"] = float64(*parallel)
	}
	if *systemPrompt != "" {
		raw["systemPrompt"] = map[string]any{"text": *systemPrompt}
	}

	rec := config.Defaults()
	if err := config.Resolve(&rec, raw, config.JobTable()); err != nil {
		log.Fatal().Err(err).Msg("resolve options")
	}

	stateDir, err := batch.EnsureStateDir(ambient.AppName, ambient.StateDir)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve state directory")
	}

	// A saved record for this source wins over the flags, so the client
	// below is built from the same options the processor resumes with.
	if src, err := os.ReadFile(*source); err == nil {
		if saved, err := batch.NewStore(stateDir).Load(batch.Fingerprint(string(src))); err == nil && saved != nil {
			rec = *saved
		}
	}

	httpClient := observability.NewHTTPClient(&http.Client{}, rec.URL)
	httpClient = observability.WithHeaders(httpClient, map[string]string{
		"Content-Type": "application/json",
		"User-Agent":   "llmbatch/" + version.Version,
	})
	client := llm.NewClient(llm.Config{
		URL:       rec.URL,
		APIKey:    rec.APIKey,
		Timeout:   time.Duration(rec.Timeout) * time.Minute,
		KeepAlive: rec.KeepAlive,
		Strategy:  strategy.SelectByURL(rec.URL),
	}, httpClient)

	canceller := batch.NewCanceller()
	ctx, cancelCtx := context.WithCancel(baseCtx)
	defer cancelCtx()
	go func() {
		<-canceller.Requested()
		cancelCtx()
	}()
	go watchSignals(canceller)

	statusCh := make(chan batch.Status, 1)
	go reportStatus(statusCh)

	job := batch.Job{
		SourcePath: *source,
		TargetPath: *target,
		StateDir:   stateDir,
		Options:    rec,
		Client:     client,
		Cancel:     canceller,
		Sink:       statusCh,
	}

	if err := batch.NewProcessor().Run(ctx, job); err != nil {
		close(statusCh)
		log.Fatal().Err(err).Msg("batch run failed")
	}
	close(statusCh)
}

// watchSignals escalates the job's Canceller on every delivered signal,
// implementing the NONE -> REQUESTED -> FORCEFUL ladder.
func watchSignals(c *batch.Canceller) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for range sigCh {
		c.Raise()
	}
}

func reportStatus(statusCh <-chan batch.Status) {
	for st := range statusCh {
		log.Info().
			Int("chunkIndex", st.ChunkIndex).
			Int("total", st.Total).
			Int("batchSize", len(st.ProcessedBatch)).
			Msg("batch committed")
	}
}
