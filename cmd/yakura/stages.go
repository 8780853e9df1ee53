// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"log/slog"

	"github.com/taibuivan/yakura/internal/imaging"
	"github.com/taibuivan/yakura/internal/ocr"
	"github.com/taibuivan/yakura/internal/platform/config"
	"github.com/taibuivan/yakura/internal/scrape"
	"github.com/taibuivan/yakura/internal/translate"
)

// stages bundles the build-stage dependencies that the server and the
// one-shot CLI construct identically from environment configuration.
type stages struct {
	scraper   *scrape.Service
	detector  *ocr.Reader
	processor *imaging.Processor
	llm       translate.Translator
	mt        translate.Translator
}

// buildStages constructs the scraper, the OCR reader, the image
// processor, and both translator families. The LLM stays nil without an
// API key; the pipeline then falls back to the free cascade. The free
// cascade engines are always wired because each one reports its own
// availability.
func buildStages(cfg *config.Config, log *slog.Logger) (*stages, error) {
	scraper := scrape.NewService(scrape.Config{
		Timeout:             cfg.ScraperTimeout,
		ChallengeWait:       cfg.ChallengeWait,
		DownloadConcurrency: cfg.DownloadConcurrency,
		DownloadRetries:     cfg.DownloadRetries,
		RatePerHost:         cfg.DownloadRatePerHost,
		BrowserBin:          cfg.BrowserBin,
		BrowserHeadless:     cfg.BrowserHeadless,
	}, log)

	detector := ocr.NewReader(ocr.NewHTTPEngine(ocr.HTTPEngineConfig{
		BaseURL:   cfg.OCRBaseURL,
		Languages: cfg.OCRLanguages,
		UseGPU:    cfg.OCRUseGPU,
		Timeout:   cfg.OCRTimeout,
	}), cfg.OCRMinConfidence)

	processor, err := imaging.NewProcessor(imaging.Config{
		FontDir:     cfg.FontDir,
		Format:      cfg.OutputFormat,
		Quality:     cfg.OutputQuality,
		Concurrency: int64(cfg.ImagingConcurrency),
	}, log)
	if err != nil {
		return nil, err
	}

	var llm translate.Translator
	if cfg.LLMAPIKey != "" {
		llm = translate.NewLLMTranslator(translate.LLMConfig{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
			MaxRetries:  cfg.LLMMaxRetries,
		}, log)
	}

	mt := translate.NewFreeTranslator(log,
		translate.NewONNXEngine(translate.ONNXConfig{
			ModelPath: cfg.ONNXModelPath,
			VocabPath: cfg.ONNXVocabPath,
			Library:   cfg.ONNXLibrary,
		}, log),
		translate.NewPhraseEngine(cfg.PhraseTableDir, log),
		translate.NewLibreEngine(translate.LibreConfig{
			Endpoint: cfg.MTEndpoint,
			APIKey:   cfg.MTAPIKey,
			Timeout:  cfg.MTTimeout,
		}, log),
	)

	return &stages{
		scraper:   scraper,
		detector:  detector,
		processor: processor,
		llm:       llm,
		mt:        mt,
	}, nil
}
