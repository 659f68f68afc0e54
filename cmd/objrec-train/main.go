package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/object-recognition-mcp/internal/config"
	"github.com/ironsheep/object-recognition-mcp/internal/detection"
	"github.com/ironsheep/object-recognition-mcp/internal/features"
	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
)

func main() {
	input := flag.String("input", "", "directory of sample images named <label>[_suffix].<ext>")
	output := flag.String("output", "", "feature database CSV to append to (default: configured feature_db)")
	extractor := flag.String("extractor", features.ShapeExtractorName, "feature extractor")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if strings.TrimSpace(*input) == "" {
		fmt.Fprintln(os.Stderr, "objrec-train: --input is required")
		flag.Usage()
		os.Exit(2)
	}
	if *extractor != features.ShapeExtractorName {
		log.WithField("extractor", *extractor).Fatal("unsupported extractor")
	}

	fsys := fsutil.OSFileSystem{}
	cfg, err := config.LoadFromEnv(fsys)
	if err != nil {
		log.WithError(err).Fatal("failed to load tuning config")
	}
	db := *output
	if db == "" {
		db = cfg.GetFeatureDB()
	}

	detector := detection.NewDetector(cfg.DetectorOptions())
	trainer := features.NewTrainer(fsys, features.NewShapeExtractor(detector), features.WithLogger(log))

	log.WithFields(logrus.Fields{"input": *input, "db": db}).Info("enrolling samples")
	report, err := trainer.EnrollDir(*input, db)
	if err != nil {
		log.WithError(err).Fatal("enrollment failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.WithError(err).Fatal("failed to write report")
	}
	if report.Enrolled == 0 {
		os.Exit(1)
	}
}
