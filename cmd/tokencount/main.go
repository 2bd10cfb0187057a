package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"llmbatch/internal/observability"
	"llmbatch/internal/tokenizer"
	"llmbatch/internal/tokenizer/pool"
	"llmbatch/internal/version"
)

func main() {
	file := flag.String("file", "", "path to a text file to count, one input per line")
	tokenizerPath := flag.String("tokenizer", "", "path to a tokenizer definition JSON file")
	tokenizerName := flag.String("name", "default", "name to register the tokenizer under")
	workers := flag.Int("workers", 0, "worker pool size (0 = runtime.NumCPU())")
	addSpecials := flag.Bool("add-special-tokens", true, "include special-token accounting in the count")
	printVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.Version)
		return
	}
	if *file == "" || *tokenizerPath == "" {
		fmt.Fprintln(os.Stderr, "usage: tokencount -file <text> -tokenizer <definition.json>")
		os.Exit(2)
	}

	observability.InitLogger("")

	defJSON, err := os.ReadFile(*tokenizerPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read tokenizer definition")
	}
	if _, err := tokenizer.ParseDefinition(defJSON); err != nil {
		log.Fatal().Err(err).Msg("parse tokenizer definition")
	}

	inputs, err := readLines(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("read input file")
	}

	p := pool.New(*workers)
	defer p.Shutdown()
	p.RegisterTokenizer(*tokenizerName, pool.SharedBuffers{DefinitionJSON: defJSON})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	counts, err := p.ParallelCount(ctx, *tokenizerName, inputs, *addSpecials, *workers)
	if err != nil {
		log.Fatal().Err(err).Msg("count tokens")
	}

	total := 0
	for i, c := range counts {
		fmt.Printf("%d\t%d\n", i, c)
		total += c
	}
	fmt.Printf("total\t%d\n", total)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
