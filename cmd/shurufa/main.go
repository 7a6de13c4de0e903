/*
Package main implements the shurufa input-method training and testing CLI.

Note: This is a BETA release. APIs and functionality may rapidly change.

shurufa trains and evaluates a structured-perceptron beam-search decoder
that maps typed codes to candidate text, the same shift/reduce lattice
search used by input-method engines that convert a Latin-alphabet code
into logographic or otherwise multi-character output.

# Usage

Train a model from a dictionary and a labeled corpus:

	shurufa train -dict data/ -train corpus.txt -model model.txt

Train and also evaluate against held-out labeled data after every epoch:

	shurufa train -dict data/ -train corpus.txt -eval held_out.txt -model model.txt

Run the interactive test REPL against a trained model:

	shurufa test -dict data/ -model model.txt

# Configuration

Runtime configuration is managed through a TOML file that supports beam,
dictionary, training, and checkpoint sections:

	[beam]
	size = 20

	[training]
	learning_rate = 0.01
	epochs = 2
	batch_size = 100
	threads = 10

The config file is automatically created with defaults if it doesn't exist.

# Command Line Flags

	-dict string
	    Directory of dict_*.txt shards, or a single dictionary text file
	-train string
	    Labeled "code text" training corpus, one example per line
	-eval string
	    Labeled "code text" held-out corpus for evaluation after training
	-model string
	    Path to load/save the model's weight file (default "model.txt")
	-beam int
	    Beam size for decoding (default from config)
	-epochs int
	    Training epochs (default from config)
	-batch int
	    Samples per training batch (default from config)
	-lr float
	    Learning rate (default from config)
	-threads int
	    Worker threads for batched training/evaluation (default from config,
	    capped at the batch size)
	-checkpoint string
	    Path to a crash-recovery checkpoint, written after every epoch and
	    read back at startup to resume training from the next epoch
	-config string
	    Path to a config.toml (default resolved from the user config dir)
	-limit int
	    Number of predictions to print per code in test mode
	-d  Enable debug logging
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/hanzo-ime/shurufa/internal/cli"
	"github.com/hanzo-ime/shurufa/internal/logger"
	"github.com/hanzo-ime/shurufa/internal/utils"
	"github.com/hanzo-ime/shurufa/pkg/config"
	"github.com/hanzo-ime/shurufa/pkg/correct"
	"github.com/hanzo-ime/shurufa/pkg/decoder"
	"github.com/hanzo-ime/shurufa/pkg/dictionary"
	"github.com/hanzo-ime/shurufa/pkg/model"
)

const (
	Version = "0.1.0-beta"
	AppName = "shurufa"
	gh      = "https://github.com/hanzo-ime/shurufa"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main dispatches to the train or test subcommand. It does not implement
// their logic itself and only manages the flow.
func main() {
	sigHandler()

	if len(os.Args) > 1 && (os.Args[1] == "-version" || os.Args[1] == "--version") {
		printVersion()
		return
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: shurufa <train|test> [flags]")
		os.Exit(1)
	}

	subcommand := os.Args[1]
	fs := flag.NewFlagSet(subcommand, flag.ExitOnError)

	defaultConfig := config.DefaultConfig()

	dictPath := fs.String("dict", "data/", "Directory of dict_*.txt shards, or a single dictionary text file")
	modelPath := fs.String("model", "model.txt", "Path to load/save the model's weight file")
	trainPath := fs.String("train", "", "Labeled \"code text\" training corpus")
	evalPath := fs.String("eval", "", "Labeled \"code text\" held-out corpus for evaluation")
	beamSize := fs.Int("beam", defaultConfig.Beam.Size, "Beam size for decoding")
	epochs := fs.Int("epochs", defaultConfig.Training.Epochs, "Training epochs")
	batchSize := fs.Int("batch", defaultConfig.Training.BatchSize, "Samples per training batch")
	lr := fs.Float64("lr", defaultConfig.Training.LearningRate, "Learning rate")
	threads := fs.Int("threads", defaultConfig.Training.Threads, "Worker threads for batched training/evaluation")
	checkpointPath := fs.String("checkpoint", "", "Path to a crash-recovery checkpoint, resumed at startup if present")
	configPath := fs.String("config", "", "Path to a config.toml")
	limit := fs.Int("limit", 10, "Number of predictions to print per code in test mode")
	debugMode := fs.Bool("d", false, "Enable debug logging")
	showVersion := fs.Bool("version", false, "Show current version")

	fs.Parse(os.Args[2:])

	if *showVersion {
		printVersion()
		return
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	appConfig, resolvedConfigPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Warnf("Failed to load config, using built-in defaults: %v", err)
		appConfig = config.DefaultConfig()
	}
	log.Debugf("Using config file: %s", resolvedConfigPath)

	// Flags not given on the command line take their values from the config.
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	fromConfig := func(name string, dst *int, val int) {
		if !setFlags[name] {
			*dst = val
		}
	}
	fromConfig("beam", beamSize, appConfig.Beam.Size)
	fromConfig("epochs", epochs, appConfig.Training.Epochs)
	fromConfig("batch", batchSize, appConfig.Training.BatchSize)
	fromConfig("threads", threads, min(appConfig.Training.Threads, *batchSize))
	if !setFlags["lr"] {
		*lr = appConfig.Training.LearningRate
	}

	pr, err := utils.NewPathResolver()
	if err != nil {
		log.Warnf("Failed to initialize path resolver, resolving file arguments as given: %v", err)
	}
	resolvedDictPath := resolveInputPath(pr, *dictPath)
	resolvedModelPath := resolveInputPath(pr, *modelPath)
	resolvedTrainPath := resolveInputPath(pr, *trainPath)
	resolvedEvalPath := resolveInputPath(pr, *evalPath)

	dictCfg := dictionary.Config{
		CodeLenLimit: appConfig.Dict.CodeLenLimit,
		TextLenLimit: appConfig.Dict.TextLenLimit,
	}
	dict, err := dictionary.LoadPath(dictCfg, resolvedDictPath, *threads)
	if err != nil {
		log.Fatalf("Failed to load dictionary from %s: %v", resolvedDictPath, err)
	}
	log.Infof("Loaded dictionary: %d entries from %s", dict.Len(), resolvedDictPath)

	mdl := model.New(*lr)
	if utils.FileExists(resolvedModelPath) {
		f, err := os.Open(resolvedModelPath)
		if err != nil {
			log.Fatalf("Failed to open model file %s: %v", resolvedModelPath, err)
		}
		if err := mdl.Load(f); err != nil {
			f.Close()
			log.Fatalf("Failed to load model from %s: %v", resolvedModelPath, err)
		}
		f.Close()
		log.Infof("Loaded model with %d weights from %s", len(mdl.Weights), resolvedModelPath)
	} else {
		log.Infof("No existing model at %s, starting from scratch", resolvedModelPath)
	}

	dec := decoder.New(dict, mdl, *beamSize)

	switch subcommand {
	case "train":
		runTrain(dec, resolvedTrainPath, resolvedEvalPath, resolvedModelPath, *checkpointPath, *epochs, *batchSize, *threads)
	case "test":
		runTest(dec, dict, *limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q, expected train or test\n", subcommand)
		os.Exit(1)
	}
}

// resolveInputPath applies utils.PathResolver.ResolveInputPath when the
// resolver initialized successfully, otherwise passes the path through
// unchanged.
func resolveInputPath(pr *utils.PathResolver, path string) string {
	if pr == nil || path == "" {
		return path
	}
	return pr.ResolveInputPath(path)
}

func runTrain(dec *decoder.Decoder, trainPath, evalPath, modelPath, checkpointPath string, epochs, batchSize, threads int) {
	if trainPath == "" {
		log.Fatal("train subcommand requires -train")
	}
	samples, err := loadSamples(trainPath)
	if err != nil {
		log.Fatalf("Failed to load training corpus %s: %v", trainPath, err)
	}
	log.Infof("Loaded %d training samples from %s", len(samples), trainPath)

	var evalSamples []decoder.Sample
	if evalPath != "" {
		evalSamples, err = loadSamples(evalPath)
		if err != nil {
			log.Fatalf("Failed to load eval corpus %s: %v", evalPath, err)
		}
		log.Infof("Loaded %d eval samples from %s", len(evalSamples), evalPath)
	}

	startEpoch := 1
	if checkpointPath != "" && utils.FileExists(checkpointPath) {
		resumed, savedEpoch, err := model.LoadCheckpointFile(checkpointPath)
		if err != nil {
			log.Warnf("Failed to load checkpoint %s, starting fresh: %v", checkpointPath, err)
		} else {
			dec.Model.Weights = resumed.Weights
			dec.Model.LearningRate = resumed.LearningRate
			startEpoch = savedEpoch + 1
			log.Infof("Resumed from checkpoint %s after epoch %d", checkpointPath, savedEpoch)
		}
	}

	for epoch := startEpoch; epoch <= epochs; epoch++ {
		metrics := dec.Epoch(samples, batchSize, threads)
		log.Infof("epoch %d/%d: success=%.4f precision=%.4f loss=%.4f early_update=%.4f",
			epoch, epochs, metrics.SuccessRate(), metrics.Precision(), metrics.Loss(), metrics.EarlyUpdateRate())

		if checkpointPath != "" {
			if err := model.SaveCheckpointFile(checkpointPath, dec.Model, epoch); err != nil {
				log.Warnf("Failed to write checkpoint at epoch %d: %v", epoch, err)
			} else {
				log.Debugf("Wrote checkpoint for epoch %d to %s", epoch, checkpointPath)
			}
		}

		if len(evalSamples) > 0 {
			evalMetrics := dec.BatchEvaluate(evalSamples, threads)
			log.Infof("epoch %d/%d eval: success=%.4f precision=%.4f p@beam=%.4f loss=%.4f",
				epoch, epochs, evalMetrics.SuccessRate(), evalMetrics.Precision(), evalMetrics.PrecisionAtBeam(), evalMetrics.Loss())
		}
	}

	f, err := os.Create(modelPath)
	if err != nil {
		log.Fatalf("Failed to create model file %s: %v", modelPath, err)
	}
	defer f.Close()
	if err := dec.Model.Save(f); err != nil {
		log.Fatalf("Failed to save model to %s: %v", modelPath, err)
	}
	log.Infof("Saved model to %s", modelPath)
}

func runTest(dec *decoder.Decoder, dict *dictionary.Dictionary, limit int) {
	log.SetReportTimestamp(false)
	matcher := correct.NewMatcher(dict)
	inputHandler := cli.NewInputHandler(dec, matcher, limit)
	if err := inputHandler.Start(); err != nil {
		log.Fatalf("test REPL error: %v", err)
	}
}

// loadSamples parses whitespace-separated "code text" lines, matching the
// Dictionary's own corpus format.
func loadSamples(path string) ([]decoder.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []decoder.Sample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		samples = append(samples, decoder.Sample{Code: fields[0], Text: fields[1]})
	}
	return samples, scanner.Err()
}

func printVersion() {
	logr := logger.NewWithConfig("", log.GetLevel(), false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logr.SetStyles(styles)

	logr.Print("")
	logr.Print("[ shurufa ] structured-perceptron beam-search input method")
	logr.Print("", "version", Version)
	logr.Print("")
	logr.Print("use -h or --help to see available options")
	logr.Print("Github Repo", "gh", gh)
}
